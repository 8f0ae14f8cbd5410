package session

import (
	"context"
	"sync"

	"babygpt/internal/domain"
)

// memoryStore keeps sessions in a process-local map. Default driver.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]domain.Session)}
}

func (s *memoryStore) Get(_ context.Context, conversationID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[conversationID]
	if !ok {
		return nil, nil
	}
	out := sess
	return &out, nil
}

func (s *memoryStore) Set(_ context.Context, sess *domain.Session) error {
	if sess == nil || sess.ConversationID == "" {
		return ErrInvalidConfig
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ConversationID] = *sess
	return nil
}

func (s *memoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, conversationID)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}
