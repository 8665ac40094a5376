package session

import (
	"sync"

	"github.com/google/uuid"
)

// Manager is the global session table: the single source of truth for
// whether a session is still alive. Entries are inserted at connection
// accept and removed exactly once at disconnect.
type Manager struct {
	sessions map[uuid.UUID]*Session
	mu       sync.RWMutex
}

// NewManager creates an empty session table.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Add registers a new session.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Remove unregisters a session and closes its outbound channel, which
// terminates the writer pump. Removing an unknown ID is a no-op.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		s.Close()
	}
}

// Get returns the live session for an ID, or nil if it has disconnected.
func (m *Manager) Get(id uuid.UUID) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
