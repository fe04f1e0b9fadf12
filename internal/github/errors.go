package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v66/github"
)

// AuthError means the credential is missing or was rejected.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "GitHub token missing or invalid"
	}
	return "GitHub token missing or invalid: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError wraps a failed read call.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

type CommitError struct {
	Repo   string
	Path   string
	Reason string
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s to %s: %s", e.Path, e.Repo, e.Reason)
}

type CreateError struct {
	Name   string
	Reason string
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create repository %q: %s", e.Name, e.Reason)
}

type DeleteError struct {
	Repo   string
	Reason string
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete repository %q: %s", e.Repo, e.Reason)
}

type ProfileUpdateError struct {
	Reason string
}

func (e *ProfileUpdateError) Error() string {
	return "update profile: " + e.Reason
}

// statusOf extracts the HTTP status of a go-github error, 0 when there is none.
func statusOf(err error) int {
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	return 0
}

// reason returns the message the API attached to a rejection.
func reason(err error) string {
	var er *gh.ErrorResponse
	if errors.As(err, &er) {
		if er.Message != "" {
			return er.Message
		}
		if er.Response != nil {
			return er.Response.Status
		}
	}
	return err.Error()
}

func isUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}
