// Package executor turns a confirmed command into exactly one mutation of the
// account and reports what happened as transcript messages.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"gitbrand/internal/action"
	"gitbrand/internal/github"
)

// Hosting is the subset of the hosting client the executor mutates through.
type Hosting interface {
	PatchProfile(ctx context.Context, fields map[string]string) (*github.Profile, error)
	WriteFile(ctx context.Context, repo, path, content, message string) (*github.Revision, error)
	CreateRepository(ctx context.Context, spec github.RepoSpec) (*github.Repository, error)
	DeleteRepository(ctx context.Context, repo string) error
}

type Refresher interface {
	Refresh(ctx context.Context) ([]github.Repository, error)
}

// AvatarStore keeps the locally displayed avatar reference.
type AvatarStore interface {
	SetAvatarURL(string) error
}

// Emit receives each status message as soon as it is produced.
type Emit func(message string)

type Executor struct {
	hosting   Hosting
	refresher Refresher
	avatars   AvatarStore
	timeout   time.Duration
	log       logrus.FieldLogger
}

type Option func(*Executor)

// WithTimeout bounds the remote call of a single execution.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

func New(hosting Hosting, refresher Refresher, avatars AvatarStore, log logrus.FieldLogger, opts ...Option) *Executor {
	e := &Executor{
		hosting:   hosting,
		refresher: refresher,
		avatars:   avatars,
		log:       log.WithField("component", "executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes cmd, emitting a proceeding message first and a success or
// failure message afterwards. The execution error is returned for
// bookkeeping; it has already been reported through emit.
func (e *Executor) Run(ctx context.Context, cmd action.Command, emit Emit) error {
	emit(proceeding(cmd))
	status, err := e.Execute(ctx, cmd)
	if err != nil {
		emit(Failure(err))
		return err
	}
	emit(status)
	return nil
}

// Failure renders an execution error for the transcript.
func Failure(err error) string {
	return "❌ Action failed: " + err.Error()
}

// Execute performs the single mutation cmd asks for and returns the success
// message. Nothing is retried.
func (e *Executor) Execute(ctx context.Context, cmd action.Command) (string, error) {
	if err := cmd.Validate(); err != nil {
		return "", fmt.Errorf("invalid %s: %w", cmd.Verb(), err)
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	started := time.Now()
	status, err := e.dispatch(ctx, cmd)
	entry := e.log.WithFields(logrus.Fields{"verb": cmd.Verb(), "took": time.Since(started)})
	if err != nil {
		entry.WithError(err).Warn("action failed")
		return "", err
	}
	entry.Info("action executed")
	return status, nil
}

func (e *Executor) dispatch(ctx context.Context, cmd action.Command) (status string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	switch c := cmd.(type) {
	case action.UpdateBio:
		if _, err := e.hosting.PatchProfile(ctx, map[string]string{"bio": c.Text}); err != nil {
			return "", err
		}
		return "✅ Bio updated successfully on GitHub!", nil

	case action.UpdateProfile:
		if _, err := e.hosting.PatchProfile(ctx, c.Fields); err != nil {
			return "", err
		}
		return "✅ Profile updated successfully on GitHub!", nil

	case action.CommitReadme:
		rev, err := e.hosting.WriteFile(ctx, c.RepoName, github.ReadmePath, c.Content, "")
		if err != nil {
			return "", err
		}
		msg := fmt.Sprintf("✅ README.md committed to %q.", c.RepoName)
		if rev != nil && rev.CommitSHA != "" {
			msg += " Commit " + shortSHA(rev.CommitSHA) + "."
		}
		return msg, nil

	case action.CreateRepo:
		if _, err := e.hosting.CreateRepository(ctx, github.RepoSpec{
			Name:        c.Name,
			Description: c.Description,
			Private:     c.Private,
		}); err != nil {
			return "", err
		}
		e.refresh(ctx)
		return fmt.Sprintf("✅ Repository %q created! Refreshing list.", c.Name), nil

	case action.DeleteRepo:
		if err := e.hosting.DeleteRepository(ctx, c.RepoName); err != nil {
			return "", err
		}
		e.refresh(ctx)
		return fmt.Sprintf("✅ Successfully deleted %q. I am now refreshing your repository pipeline. Status: Updated.", c.RepoName), nil

	case action.UpdateAvatar:
		if err := e.avatars.SetAvatarURL(c.ImageURL); err != nil {
			return "", err
		}
		return "✅ Avatar updated.", nil

	default:
		return "", fmt.Errorf("unsupported action %s", cmd.Verb())
	}
}

// refresh rescans the repository list after a create or delete. Its failure
// does not affect the outcome of the mutation.
func (e *Executor) refresh(ctx context.Context) {
	if e.refresher == nil {
		return
	}
	if _, err := e.refresher.Refresh(ctx); err != nil {
		e.log.WithError(err).Warn("repository refresh after mutation failed")
	}
}

func proceeding(cmd action.Command) string {
	switch c := cmd.(type) {
	case action.DeleteRepo:
		return fmt.Sprintf("🛡️ Repository %q deletion confirmed. Proceeding with deletion...", c.RepoName)
	case action.UpdateBio:
		return "⚙️ Proceeding to update your profile bio..."
	case action.CreateRepo:
		return fmt.Sprintf("🚀 Initializing creation of %q...", c.Name)
	case action.CommitReadme:
		return fmt.Sprintf("⚙️ Committing README.md to %q...", c.RepoName)
	default:
		return "⚙️ Assistant is executing the requested action..."
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
