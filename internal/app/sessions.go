package app

import "sync"

// Membership binds a connection to the room it joined and its player identity there.
type Membership struct {
	RoomCode string
	PlayerID string
}

// SessionRegistry maps connection handles to memberships.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]Membership
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]Membership)}
}

func (s *SessionRegistry) Bind(connID string, m Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[connID] = m
}

func (s *SessionRegistry) Lookup(connID string) (Membership, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.sessions[connID]
	return m, ok
}

// Unbind forgets a connection and returns what it was bound to.
func (s *SessionRegistry) Unbind(connID string) (Membership, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[connID]
	if ok {
		delete(s.sessions, connID)
	}
	return m, ok
}

func (s *SessionRegistry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
