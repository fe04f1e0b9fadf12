package history

import "sync"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the transcript. Turns are never edited after Append.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Log is the ordered transcript of one conversation.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
	seed  string
}

// NewLog creates a log holding a single assistant seed turn. An empty seed
// starts with an empty transcript.
func NewLog(seed string) *Log {
	l := &Log{seed: seed}
	l.resetUnlocked()
	return l
}

// Reset replaces the whole transcript with the seed turn.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetUnlocked()
}

func (l *Log) resetUnlocked() {
	l.turns = nil
	if l.seed != "" {
		l.turns = append(l.turns, Turn{Role: RoleAssistant, Content: l.seed})
	}
}

func (l *Log) AppendUser(content string) int {
	return l.append(Turn{Role: RoleUser, Content: content})
}

func (l *Log) AppendAssistant(content string) int {
	return l.append(Turn{Role: RoleAssistant, Content: content})
}

// append returns the index of the new turn.
func (l *Log) append(t Turn) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, t)
	return len(l.turns) - 1
}

// Turns returns a copy of the transcript.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// LastIndex is the index of the latest turn, -1 when empty.
func (l *Log) LastIndex() int {
	return l.Len() - 1
}

// Last returns the latest turn.
func (l *Log) Last() (Turn, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.turns) == 0 {
		return Turn{}, false
	}
	return l.turns[len(l.turns)-1], true
}
