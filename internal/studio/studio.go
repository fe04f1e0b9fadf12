// Package studio drafts long-form copy for a repository: a README narrative
// that can be committed and social posts that are only shown.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"gitbrand/internal/action"
	"gitbrand/internal/github"
	"gitbrand/internal/llm"
	"gitbrand/internal/prompts"
	"gitbrand/internal/score"
)

// Source reads repository content.
type Source interface {
	GetFileTree(ctx context.Context, repo string) []github.TreeEntry
	ReadReadme(ctx context.Context, repo string) (string, bool)
}

// Drafter generates text from a persona and a prompt. It fails open.
type Drafter interface {
	Draft(ctx context.Context, persona, prompt string) string
}

// ErrGeneration wraps a draft that came back as a fail-open apology.
var ErrGeneration = errors.New("generation failed")

// Inspection is what studio knows about a repository before drafting.
type Inspection struct {
	Repo   github.Repository
	Tree   []github.TreeEntry
	Readme string
	Health score.Report
}

type Studio struct {
	source  Source
	drafter Drafter
	prompts *prompts.Set
	log     logrus.FieldLogger
}

func New(source Source, drafter Drafter, set *prompts.Set, log logrus.FieldLogger) *Studio {
	return &Studio{source: source, drafter: drafter, prompts: set, log: log.WithField("component", "studio")}
}

// Inspect fetches the file tree and README concurrently and scores the repo.
func (s *Studio) Inspect(ctx context.Context, repo github.Repository) Inspection {
	in := Inspection{Repo: repo}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		in.Tree = s.source.GetFileTree(gctx, repo.Name)
		return nil
	})
	g.Go(func() error {
		in.Readme, _ = s.source.ReadReadme(gctx, repo.Name)
		return nil
	})
	_ = g.Wait()
	in.Health = score.Repository(repo, in.Tree)
	s.log.WithFields(logrus.Fields{
		"repo":  repo.Name,
		"files": len(in.Tree),
		"grade": in.Health.Grade,
	}).Debug("repository inspected")
	return in
}

// Narrative drafts a README for the repository and returns it together with
// the command that would commit it.
func (s *Studio) Narrative(ctx context.Context, in Inspection, instructions string) (string, action.CommitReadme, error) {
	prompt, err := s.prompts.RenderStoryteller(prompts.StoryInput{
		Repo:         in.Repo,
		Tree:         in.Tree,
		Readme:       in.Readme,
		Instructions: instructions,
	})
	if err != nil {
		return "", action.CommitReadme{}, err
	}
	text, err := s.draft(ctx, prompt)
	if err != nil {
		return "", action.CommitReadme{}, err
	}
	return text, action.CommitReadme{RepoName: in.Repo.Name, Content: text}, nil
}

// Social drafts a post of the given type. Posts are never committed.
func (s *Studio) Social(ctx context.Context, in Inspection, postType, instructions string) (string, error) {
	prompt, err := s.prompts.RenderSocial(prompts.SocialInput{
		Repo:         in.Repo,
		Type:         strings.ToLower(postType),
		Readme:       in.Readme,
		Instructions: instructions,
	})
	if err != nil {
		return "", err
	}
	return s.draft(ctx, prompt)
}

func (s *Studio) PostTypes() []string { return s.prompts.PostTypes() }

func (s *Studio) draft(ctx context.Context, prompt string) (string, error) {
	text := strings.TrimSpace(s.drafter.Draft(ctx, s.prompts.StorytellerPersona, prompt))
	if text == "" || llm.IsFailure(text) {
		return "", fmt.Errorf("%w: %s", ErrGeneration, text)
	}
	return text, nil
}
