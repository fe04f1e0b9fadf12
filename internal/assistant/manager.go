package assistant

import "sync"

// Builder creates the session for a new conversation id.
type Builder func(id string) *Session

// Manager keeps one Session per conversation, created on first use.
type Manager struct {
	build Builder

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(build Builder) *Manager {
	return &Manager{build: build, sessions: make(map[string]*Session)}
}

// Get returns the session for id, creating it if needed.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = m.build(id)
		m.sessions[id] = s
	}
	return s
}

// Lookup returns the session for id without creating one.
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Drop forgets the session for id.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
