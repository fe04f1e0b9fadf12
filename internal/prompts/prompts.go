// Package prompts holds the assistant's persona and drafting templates.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"gitbrand/internal/github"
)

//go:embed default.yaml
var defaultYAML []byte

const (
	maxFiles      = 30
	maxReadmeRune = 2000
)

// Set is one complete collection of prompt templates.
type Set struct {
	Greeting           string            `yaml:"greeting"`
	ChatSystem         string            `yaml:"chat_system"`
	StorytellerPersona string            `yaml:"storyteller_persona"`
	Storyteller        string            `yaml:"storyteller"`
	Social             string            `yaml:"social"`
	SocialTypes        map[string]string `yaml:"social_types"`
}

// Default returns the built-in prompts.
func Default() *Set {
	var s Set
	if err := yaml.Unmarshal(defaultYAML, &s); err != nil {
		panic(fmt.Sprintf("prompts: embedded defaults are invalid: %v", err))
	}
	return &s
}

// Load reads path and overlays every non-empty entry onto the defaults. An
// empty path yields the defaults.
func Load(path string) (*Set, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	var o Set
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	overlay(&s.Greeting, o.Greeting)
	overlay(&s.ChatSystem, o.ChatSystem)
	overlay(&s.StorytellerPersona, o.StorytellerPersona)
	overlay(&s.Storyteller, o.Storyteller)
	overlay(&s.Social, o.Social)
	for k, v := range o.SocialTypes {
		s.SocialTypes[k] = v
	}
	if err := s.check(); err != nil {
		return nil, fmt.Errorf("prompts %s: %w", path, err)
	}
	return s, nil
}

func overlay(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func (s *Set) check() error {
	for name, text := range map[string]string{
		"greeting":    s.Greeting,
		"chat_system": s.ChatSystem,
		"storyteller": s.Storyteller,
		"social":      s.Social,
	} {
		if _, err := template.New(name).Parse(text); err != nil {
			return err
		}
	}
	return nil
}

// PostTypes lists the supported social post types in stable order.
func (s *Set) PostTypes() []string {
	out := make([]string, 0, len(s.SocialTypes))
	for k := range s.SocialTypes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

type accountData struct{ Account string }

func (s *Set) RenderGreeting(account string) (string, error) {
	return render("greeting", s.Greeting, accountData{account})
}

func (s *Set) RenderChatSystem(account string) (string, error) {
	return render("chat_system", s.ChatSystem, accountData{account})
}

// StoryInput feeds the README narrative template.
type StoryInput struct {
	Repo         github.Repository
	Tree         []github.TreeEntry
	Readme       string
	Instructions string
}

func (s *Set) RenderStoryteller(in StoryInput) (string, error) {
	in.Readme = truncate(in.Readme, maxReadmeRune)
	return render("storyteller", s.Storyteller, struct {
		StoryInput
		Files string
	}{in, fileSummary(in.Tree)})
}

// SocialInput feeds the social post template.
type SocialInput struct {
	Repo         github.Repository
	Type         string
	Readme       string
	Instructions string
}

func (s *Set) RenderSocial(in SocialInput) (string, error) {
	constraint, ok := s.SocialTypes[in.Type]
	if !ok {
		return "", fmt.Errorf("unknown post type %q, want one of %s", in.Type, strings.Join(s.PostTypes(), ", "))
	}
	in.Readme = truncate(in.Readme, maxReadmeRune)
	return render("social", s.Social, struct {
		SocialInput
		Constraint string
	}{in, constraint})
}

func fileSummary(tree []github.TreeEntry) string {
	n := len(tree)
	if n > maxFiles {
		n = maxFiles
	}
	paths := make([]string, 0, n)
	for _, e := range tree[:n] {
		paths = append(paths, e.Path)
	}
	return strings.Join(paths, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
