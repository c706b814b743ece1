package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client)
}

func TestRedisStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)
	s := NewSession("s1", "+5511999999999", time.Now().UTC())

	require.NoError(t, store.Save(ctx, s, time.Hour))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
}

func TestRedisStore_CompareAndSwapSave_ConflictOnStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)
	s := NewSession("s1", "+5511999999999", time.Now().UTC())
	require.NoError(t, store.Save(ctx, s, time.Hour))

	winner := NewSession("s1", "+5511999999999", time.Now().UTC())
	winner.Version = 1
	require.NoError(t, store.CompareAndSwapSave(ctx, winner, time.Hour))

	loser := NewSession("s1", "+5511999999999", time.Now().UTC())
	loser.Version = 1
	err := store.CompareAndSwapSave(ctx, loser, time.Hour)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRedisStore_LoadMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
