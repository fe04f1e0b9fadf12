package pending

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitbrand/internal/action"
)

type Status string

const (
	StatusAwaiting  Status = "awaiting"
	StatusConfirmed Status = "confirmed"
	StatusExecuting Status = "executing"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

var (
	ErrNoPending     = errors.New("no pending action")
	ErrUnknownAction = errors.New("pending action was replaced")
	ErrStale         = errors.New("pending action is no longer attached to the latest turn")
	ErrNotAwaiting   = errors.New("pending action is not awaiting confirmation")
)

// Action is a parsed command waiting for the user's approval.
type Action struct {
	ID       string
	Command  action.Command
	Raw      string
	Status   Status
	Turn     int
	StagedAt time.Time
}

// Store holds at most one Action. Staging always replaces the current one.
type Store struct {
	mu      sync.Mutex
	current *Action
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Stage replaces whatever is pending with cmd, attached to the transcript turn
// at index turn. The dropped action, if any and not yet executing, is returned.
func (s *Store) Stage(cmd action.Command, raw string, turn int) (staged Action, replaced *Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.Status == StatusAwaiting {
		prev := *s.current
		replaced = &prev
	}
	s.current = &Action{
		ID:       uuid.NewString(),
		Command:  cmd,
		Raw:      raw,
		Status:   StatusAwaiting,
		Turn:     turn,
		StagedAt: s.now(),
	}
	return *s.current, replaced
}

// Current returns a copy of the pending action.
func (s *Store) Current() (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Action{}, false
	}
	return *s.current, true
}

// Confirm moves the action with the given id to confirmed. An empty id
// confirms whatever is pending. latestTurn is the index of the newest
// transcript turn; an action attached to an older turn is stale and dropped.
func (s *Store) Confirm(id string, latestTurn int) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Action{}, ErrNoPending
	}
	if id != "" && s.current.ID != id {
		return Action{}, ErrUnknownAction
	}
	if s.current.Status != StatusAwaiting {
		return Action{}, ErrNotAwaiting
	}
	if s.current.Turn != latestTurn {
		s.current = nil
		return Action{}, ErrStale
	}
	s.current.Status = StatusConfirmed
	return *s.current, nil
}

// Begin marks a confirmed action as executing.
func (s *Store) Begin(id string) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != id || s.current.Status != StatusConfirmed {
		return Action{}, false
	}
	s.current.Status = StatusExecuting
	return *s.current, true
}

// Cancel clears the slot from any state. It reports whether something was dropped.
func (s *Store) Cancel() (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Action{}, false
	}
	a := *s.current
	s.current = nil
	return a, true
}

// Finish records the execution outcome of the action with the given id and
// clears the slot. It is a no-op when another action has been staged since.
func (s *Store) Finish(id string, execErr error) (Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != id {
		return Action{}, false
	}
	a := *s.current
	a.Status = StatusDone
	if execErr != nil {
		a.Status = StatusFailed
	}
	s.current = nil
	return a, true
}

// Clear empties the slot.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
