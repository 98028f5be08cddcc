package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kotyarick/ttgt-schedule-api/pkg/errors"
)

// RedisStore persists values as JSON strings in Redis. Entries never expire:
// the parse artifacts stay valid until explicitly replaced by a rebuild.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	if s.client == nil {
		return errors.ErrCacheMiss
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return errors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal stored value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it without expiration.
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	if s.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Delete removes the key if present.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
