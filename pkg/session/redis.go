package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore backs Store with a distributed KV with native TTL.
// CompareAndSwapSave uses WATCH/MULTI optimistic locking: a concurrent
// writer touching the key between our GET and EXEC aborts the transaction,
// which we surface as ErrConflict.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis.Client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &ErrBackend{Backend: "redis", Err: err}
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &ErrBackend{Backend: "redis", Err: err}
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	if normalizeOutcomeForSave(s) {
		slog.Error("session_outcome_normalized", "session_id", s.ID, "outcome", string(*s.Outcome))
	}

	s.Version++
	data, err := json.Marshal(s)
	if err != nil {
		return &ErrBackend{Backend: "redis", Err: err}
	}
	if err := r.client.Set(ctx, redisKey(s.ID), data, ttl).Err(); err != nil {
		return &ErrBackend{Backend: "redis", Err: err}
	}
	return nil
}

func (r *RedisStore) CompareAndSwapSave(ctx context.Context, s *Session, ttl time.Duration) error {
	if normalizeOutcomeForSave(s) {
		slog.Error("session_outcome_normalized", "session_id", s.ID, "outcome", string(*s.Outcome))
	}

	key := redisKey(s.ID)
	expectedVersion := s.Version

	txErr := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return &ErrBackend{Backend: "redis", Err: err}
		}

		var current Session
		if err := json.Unmarshal(raw, &current); err != nil {
			return &ErrBackend{Backend: "redis", Err: err}
		}
		if current.Version != expectedVersion {
			return ErrConflict
		}

		s.Version = expectedVersion + 1
		data, err := json.Marshal(s)
		if err != nil {
			return &ErrBackend{Backend: "redis", Err: err}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	if txErr == redis.TxFailedErr {
		return ErrConflict
	}
	return txErr
}

func (r *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Del(ctx, redisKey(id)).Result()
	if err != nil {
		return false, &ErrBackend{Backend: "redis", Err: err}
	}
	return n > 0, nil
}

func (r *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKey(id)).Result()
	if err != nil {
		return false, &ErrBackend{Backend: "redis", Err: err}
	}
	return n > 0, nil
}

var _ Store = (*RedisStore)(nil)
