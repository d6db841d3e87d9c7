package conversation

import (
	"sync"
	"time"
)

// State is the bookkeeping for one chat session
type State struct {
	SessionID      string
	PrimaryConcern string          // First condition presented in the session
	History        []string        // Prior user messages, oldest first
	Asked          map[string]bool // Follow-up questions already sent
	Turns          int
	LastActivity   time.Time
}

// Manager tracks conversation state per session
type Manager struct {
	mu         sync.RWMutex
	states     map[string]*State
	maxHistory int
	now        func() time.Time
}

// NewManager creates a manager keeping at most maxHistory messages per session
func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &Manager{
		states:     make(map[string]*State),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// GetState returns a copy of the session state, creating it if needed
func (m *Manager) GetState(sessionID string) State {
	m.mu.RLock()
	state, exists := m.states[sessionID]
	if exists {
		snapshot := state.clone()
		m.mu.RUnlock()
		return snapshot
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreate(sessionID).clone()
}

// Record stores one completed turn: the user message, the follow-up
// questions sent in reply and the condition presented, if any
func (m *Manager) Record(sessionID, message string, followUps []string, condition string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.getOrCreate(sessionID)
	if message != "" {
		state.History = append(state.History, message)
		if over := len(state.History) - m.maxHistory; over > 0 {
			state.History = append([]string(nil), state.History[over:]...)
		}
	}
	for _, q := range followUps {
		state.Asked[q] = true
	}
	if state.PrimaryConcern == "" && condition != "" {
		state.PrimaryConcern = condition
	}
	state.Turns++
	state.LastActivity = m.now()
}

// Reset clears session state (e.g., after an emergency escalation)
func (m *Manager) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, sessionID)
}

// Prune drops sessions idle for longer than maxIdle and returns how many
func (m *Manager) Prune(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for id, state := range m.states {
		if state.LastActivity.Before(cutoff) {
			delete(m.states, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

func (m *Manager) getOrCreate(sessionID string) *State {
	state, exists := m.states[sessionID]
	if !exists {
		state = &State{
			SessionID:    sessionID,
			History:      make([]string, 0),
			Asked:        make(map[string]bool),
			LastActivity: m.now(),
		}
		m.states[sessionID] = state
	}
	return state
}

func (s *State) clone() State {
	out := *s
	out.History = append([]string(nil), s.History...)
	out.Asked = make(map[string]bool, len(s.Asked))
	for q := range s.Asked {
		out.Asked[q] = true
	}
	return out
}
