// Package memory holds the snapshot in process memory. It backs tests and
// dev mode; the encoded envelope round-trip means it exercises the same codec
// and migration path as the durable backends.
package memory

import (
	"context"
	"sync"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	payload []byte
}

func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (*domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.payload) == 0 {
		return nil, store.ErrNotFound
	}
	return store.Decode(s.payload)
}

func (s *Store) Save(_ context.Context, state *domain.State) error {
	payload, err := store.Encode(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.payload = payload
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error {
	return nil
}
