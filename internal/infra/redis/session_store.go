package redis

import (
	"context"
	"sync"
	"time"

	"class-quiz-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Live sessions hold a running countdown, so they stay in a local map.
//   - Redis carries a liveness marker per participant so other instances (and
//     operators) can see who is mid-quiz.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Attach(session *app.Session) *app.Session {
	id := session.Participant().ID
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.sessions[id]
	s.sessions[id] = session
	// best-effort liveness marker; presence is the signal, the value carries nothing
	_ = s.client.Set(context.Background(), s.key(id), "1", s.ttl).Err()
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
	current, ok := s.sessions[id]
	if !ok || current != session {
		return
	}
	delete(s.sessions, id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *SessionStore) key(participantID string) string {
	return "quiz:session:" + participantID
}
