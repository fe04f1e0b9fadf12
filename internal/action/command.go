package action

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Verb is the uppercase token that follows the ACTION: marker.
type Verb string

const (
	VerbUpdateBio     Verb = "UPDATE_BIO"
	VerbCommitReadme  Verb = "COMMIT_README"
	VerbUpdateProfile Verb = "UPDATE_PROFILE"
	VerbCreateRepo    Verb = "CREATE_REPO"
	VerbDeleteRepo    Verb = "DELETE_REPO"
	VerbUpdateAvatar  Verb = "UPDATE_AVATAR"
)

// Command is a mutation requested by the assistant. The set of variants is closed.
type Command interface {
	Verb() Verb
	// Summary is a one-line, human readable description used on confirmation prompts.
	Summary() string
	Validate() error
	isCommand()
}

type UpdateBio struct {
	Text string
}

type CommitReadme struct {
	RepoName string
	Content  string
}

type UpdateProfile struct {
	Fields map[string]string
}

type CreateRepo struct {
	Name        string
	Description string
	Private     bool
}

type DeleteRepo struct {
	RepoName string
}

type UpdateAvatar struct {
	ImageURL string
}

func (UpdateBio) Verb() Verb     { return VerbUpdateBio }
func (CommitReadme) Verb() Verb  { return VerbCommitReadme }
func (UpdateProfile) Verb() Verb { return VerbUpdateProfile }
func (CreateRepo) Verb() Verb    { return VerbCreateRepo }
func (DeleteRepo) Verb() Verb    { return VerbDeleteRepo }
func (UpdateAvatar) Verb() Verb  { return VerbUpdateAvatar }

func (UpdateBio) isCommand()     {}
func (CommitReadme) isCommand()  {}
func (UpdateProfile) isCommand() {}
func (CreateRepo) isCommand()    {}
func (DeleteRepo) isCommand()    {}
func (UpdateAvatar) isCommand()  {}

func (c UpdateBio) Summary() string {
	return fmt.Sprintf("Update bio to %q", c.Text)
}

func (c CommitReadme) Summary() string {
	return fmt.Sprintf("Commit README.md to %q (%d chars)", c.RepoName, len(c.Content))
}

func (c UpdateProfile) Summary() string {
	keys := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, c.Fields[k]))
	}
	return "Update profile: " + strings.Join(parts, ", ")
}

func (c CreateRepo) Summary() string {
	visibility := "public"
	if c.Private {
		visibility = "private"
	}
	return fmt.Sprintf("Create %s repository %q", visibility, c.Name)
}

func (c DeleteRepo) Summary() string {
	return fmt.Sprintf("Delete repository %q (irreversible)", c.RepoName)
}

func (c UpdateAvatar) Summary() string {
	return fmt.Sprintf("Set avatar to %s", c.ImageURL)
}

// An empty bio is a legitimate way to clear it, so UpdateBio has no rules.
func (c UpdateBio) Validate() error { return nil }

func (c CommitReadme) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RepoName, validation.Required),
	)
}

func (c UpdateProfile) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Fields, validation.Required),
	)
}

func (c CreateRepo) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
	)
}

func (c DeleteRepo) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RepoName, validation.Required),
	)
}

func (c UpdateAvatar) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ImageURL, validation.Required),
	)
}
