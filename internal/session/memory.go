package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/SIACAML/cooqu-order/internal/domain"
)

// MemoryStore is an in-memory Store used in tests and local development.
// Values round-trip through JSON so it exercises the same serialization
// boundary as the Redis store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

// Get loads the session for sid, returning a fresh zero session when absent.
func (s *MemoryStore) Get(_ context.Context, sid string) (*domain.Session, error) {
	s.mu.RLock()
	raw, ok := s.sessions[key(sid)]
	s.mu.RUnlock()

	if !ok {
		return &domain.Session{}, nil
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save replaces the session value whole.
func (s *MemoryStore) Save(_ context.Context, sid string, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	s.sessions[key(sid)] = raw
	s.mu.Unlock()
	return nil
}

// Logout clears the identity fields in a single replace.
func (s *MemoryStore) Logout(ctx context.Context, sid string) error {
	sess, err := s.Get(ctx, sid)
	if err != nil {
		return err
	}
	sess.ClearIdentity()
	return s.Save(ctx, sid, sess)
}
