package storage

import "time"

type Kind string

const (
	// KindTurn records one user message and the assistant reply to it.
	KindTurn Kind = "turn"
	// KindAction records a pending action changing state.
	KindAction Kind = "action"
)

// Event is one journal line. Turn events carry the two messages; action
// events carry the verb, the action id and the status it moved to.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	Session           string    `json:"session"`
	Kind              Kind      `json:"kind"`
	UserMessage       string    `json:"user_message,omitempty"`
	AssistantResponse string    `json:"assistant_response,omitempty"`
	ActionID          string    `json:"action_id,omitempty"`
	Verb              string    `json:"verb,omitempty"`
	Status            string    `json:"status,omitempty"`
	Error             string    `json:"error,omitempty"`
}

// Recorder persists journal events. Load returns them in the order they were
// appended. Implementations must be safe for concurrent use.
type Recorder interface {
	Append(event Event) error
	Load() ([]Event, error)
}

// Discard is a Recorder that keeps nothing.
type Discard struct{}

func (Discard) Append(Event) error      { return nil }
func (Discard) Load() ([]Event, error) { return nil, nil }
