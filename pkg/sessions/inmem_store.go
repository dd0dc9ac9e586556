package sessions

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/maps"
)

// InMemoryStore keeps sessions in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]ActiveSession
	now      func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]ActiveSession),
		now:      time.Now,
	}
}

func (s *InMemoryStore) Put(ctx context.Context, session ActiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Key] = session
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (ActiveSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[key]
	if !ok || session.expired(s.now()) {
		return ActiveSession{}, false, nil
	}
	return session, true, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]ActiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	live := make([]ActiveSession, 0, len(s.sessions))
	for _, session := range maps.Values(s.sessions) {
		if !session.expired(now) {
			live = append(live, session)
		}
	}
	return live, nil
}
