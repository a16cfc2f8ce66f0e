package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-storefront/pkg/storefront"
)

// Store implements storefront.CartStore using in-memory storage
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*storefront.CartSession
}

// New creates a new in-memory cart store
func New() *Store {
	return &Store{
		sessions: make(map[string]*storefront.CartSession),
	}
}

func (s *Store) Get(ctx context.Context, sessionID string) (*storefront.CartSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		return nil, storefront.ErrSessionNotFound
	}
	// Return a copy to prevent external modifications
	return sess.Clone(), nil
}

func (s *Store) Save(ctx context.Context, session *storefront.CartSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.SessionID] = session.Clone()
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return storefront.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
