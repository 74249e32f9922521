package conversation

import (
	"sync"
)

// Manager owns every live conversation state, keyed by user and
// session. It is injected rather than held as a package singleton so
// lifetime is explicit. States are created lazily and never expire on
// their own; callers that need expiry must layer it (an outer TTL
// cache works, see the record-snapshot cache in pkg/ai/reference).
type Manager struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewManager() *Manager {
	return &Manager{
		states: make(map[string]*State),
	}
}

func stateKey(userID, sessionID string) string {
	return userID + "|" + sessionID
}

// Get returns the session state, creating a fresh one on first access
func (m *Manager) Get(userID, sessionID string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(userID, sessionID)
	state, ok := m.states[key]
	if !ok {
		state = NewState(userID, sessionID)
		m.states[key] = state
	}
	return state
}

// Reset clears one session's state
func (m *Manager) Reset(userID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, stateKey(userID, sessionID))
}

// ResetAll clears every session
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[string]*State)
}

// Len reports the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
