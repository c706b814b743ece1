package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
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

func TestRedisStore_MarkIfNew_FirstCallWins(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	wasNew, err := store.MarkIfNew(ctx, InboundKey("m1"), time.Minute)
	require.NoError(t, err)
	require.True(t, wasNew)

	wasNew, err = store.MarkIfNew(ctx, InboundKey("m1"), time.Minute)
	require.NoError(t, err)
	require.False(t, wasNew)
}

func TestRedisStore_IsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	dup, err := store.IsDuplicate(ctx, InboundKey("m2"))
	require.NoError(t, err)
	require.False(t, dup)

	_, err = store.MarkIfNew(ctx, InboundKey("m2"), time.Minute)
	require.NoError(t, err)

	dup, err = store.IsDuplicate(ctx, InboundKey("m2"))
	require.NoError(t, err)
	require.True(t, dup)
}

func TestRedisStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	_, err := store.MarkIfNew(ctx, InboundKey("m3"), time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, InboundKey("m3")))

	dup, err := store.IsDuplicate(ctx, InboundKey("m3"))
	require.NoError(t, err)
	require.False(t, dup)
}
