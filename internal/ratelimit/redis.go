package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const lastSyncKeyPrefix = "pulse:lastsync:"

// RedisStore shares last-sync times across server instances. Keys expire
// after twice the window so stale companies do not accumulate.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on the given Redis address
func NewRedisStore(addr string, window time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    2 * window,
	}
}

func (s *RedisStore) LastSync(ctx context.Context, companyID string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, lastSyncKeyPrefix+companyID).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, err
	}

	return t, true, nil
}

func (s *RedisStore) SetLastSync(ctx context.Context, companyID string, at time.Time) error {
	return s.client.Set(ctx, lastSyncKeyPrefix+companyID, at.Format(time.RFC3339Nano), s.ttl).Err()
}

// Ping verifies the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
