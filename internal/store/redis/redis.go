// Package redis persists the snapshot blob under the pos-storage key in a
// redis instance, the till's durable local key-value store.
package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

type Store struct {
	client *redis.Client
}

func New(addr string, password string, db int) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Load(ctx context.Context) (*domain.State, error) {
	payload, err := s.client.Get(ctx, store.StorageKey).Bytes()
	if err == redis.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return store.Decode(payload)
}

func (s *Store) Save(ctx context.Context, state *domain.State) error {
	payload, err := store.Encode(state)
	if err != nil {
		return err
	}
	// No TTL: the snapshot is the system of record, not a cache.
	return s.client.Set(ctx, store.StorageKey, payload, 0).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
