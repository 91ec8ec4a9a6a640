package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hospiq/scheduling/internal/domain/providers"
	redisclient "github.com/hospiq/scheduling/internal/infrastructure/clients/redis"
)

// RedisStore implements the TTLStore interface using Redis, so expiring
// keyed state is shared across process instances instead of living in
// per-process maps.
type RedisStore struct {
	client *redisclient.Client
}

// NewRedisStore creates a new Redis TTL store
func NewRedisStore(client *redisclient.Client) providers.TTLStore {
	return &RedisStore{client: client}
}

// Get retrieves a value from the store
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := s.client.Client().Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get from store: %w", err)
	}
	return result, true, nil
}

// Set stores a value with an expiration
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Client().Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in store: %w", err)
	}
	return nil
}

// Delete removes a key from the store
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from store: %w", err)
	}
	return nil
}

// Exists checks if a key exists in the store
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	result, err := s.client.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence in store: %w", err)
	}
	return result > 0, nil
}
