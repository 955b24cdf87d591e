package memory

import (
	"sync"

	"class-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRegistry.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Attach(session *app.Session) *app.Session {
	id := session.Participant().ID
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.sessions[id]
	s.sessions[id] = session
	return previous
}

func (s *SessionStore) Get(participantID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[participantID]
	return session, ok
}

func (s *SessionStore) Detach(session *app.Session) {
	id := session.Participant().ID
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[id]; ok && current == session {
		delete(s.sessions, id)
	}
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
