package dedupe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs Store with a distributed KV that has native TTL. MarkIfNew
// maps directly onto SETNX-with-expiry (SET key val NX EX ttl), which Redis
// guarantees is a single round trip (atomic compare-and-set).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis.Client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) MarkIfNew(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, &ErrBackend{Backend: "redis", Err: err}
	}
	return ok, nil
}

func (r *RedisStore) IsDuplicate(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, &ErrBackend{Backend: "redis", Err: err}
	}
	return n > 0, nil
}

func (r *RedisStore) Clear(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return &ErrBackend{Backend: "redis", Err: err}
	}
	return nil
}
