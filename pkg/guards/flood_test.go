package guards

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestInMemoryFloodDetector_AcceptsUnderThreshold(t *testing.T) {
	ctx := context.Background()
	d := NewInMemoryFloodDetector(3, time.Minute)

	for i := 0; i < 3; i++ {
		flooded, err := d.CheckAndRecord(ctx, "s1")
		require.NoError(t, err)
		require.False(t, flooded)
	}
}

func TestInMemoryFloodDetector_RejectsOverThreshold(t *testing.T) {
	ctx := context.Background()
	d := NewInMemoryFloodDetector(3, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := d.CheckAndRecord(ctx, "s1")
		require.NoError(t, err)
	}
	flooded, err := d.CheckAndRecord(ctx, "s1")
	require.NoError(t, err)
	require.True(t, flooded)
}

func TestInMemoryFloodDetector_WindowExpires(t *testing.T) {
	ctx := context.Background()
	d := NewInMemoryFloodDetector(1, 5*time.Millisecond)

	flooded, err := d.CheckAndRecord(ctx, "s1")
	require.NoError(t, err)
	require.False(t, flooded)

	time.Sleep(10 * time.Millisecond)

	flooded, err = d.CheckAndRecord(ctx, "s1")
	require.NoError(t, err)
	require.False(t, flooded, "window should have expired the earlier event")
}

func newTestRedisFloodDetector(t *testing.T, threshold int, window time.Duration) *RedisFloodDetector {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisFloodDetector(client, threshold, window)
}

func TestRedisFloodDetector_RejectsOverThreshold(t *testing.T) {
	ctx := context.Background()
	d := newTestRedisFloodDetector(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		flooded, err := d.CheckAndRecord(ctx, "s1")
		require.NoError(t, err)
		require.False(t, flooded)
	}

	flooded, err := d.CheckAndRecord(ctx, "s1")
	require.NoError(t, err)
	require.True(t, flooded)
}

func TestNewFloodDetectorFromConfig_RejectsMemoryOutsideDevelopment(t *testing.T) {
	_, err := NewFloodDetectorFromConfig("memory", "production", 10, time.Minute, nil)
	require.Error(t, err)
}
