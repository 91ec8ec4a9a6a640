package locks

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hospiq/scheduling/internal/domain/providers"
	redisclient "github.com/hospiq/scheduling/internal/infrastructure/clients/redis"
)

// releaseScript deletes a lock key only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements ResourceLocker with per-key SET NX locks, shared by
// every process instance that books against the same storage.
type RedisLocker struct {
	client *redisclient.Client
}

// NewRedisLocker creates a new Redis-backed resource locker
func NewRedisLocker(client *redisclient.Client) providers.ResourceLocker {
	return &RedisLocker{client: client}
}

// Acquire takes all keys or none. Keys are taken in sorted order so two
// requests locking the same doctor/patient pair cannot deadlock each other.
func (l *RedisLocker) Acquire(ctx context.Context, keys []string, ttl time.Duration) (func(), error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	token := uuid.New().String()
	acquired := make([]string, 0, len(sorted))

	releaseAll := func() {
		for _, key := range acquired {
			if err := releaseScript.Run(context.Background(), l.client.Client(), []string{key}, token).Err(); err != nil && err != redis.Nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to release resource lock")
			}
		}
	}

	for _, key := range sorted {
		ok, err := l.client.Client().SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			releaseAll()
			return nil, err
		}
		if !ok {
			releaseAll()
			return nil, providers.ErrLockBusy
		}
		acquired = append(acquired, key)
	}

	return releaseAll, nil
}
