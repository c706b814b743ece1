// Package guards implements the abuse guards that run after session
// resolution and before the FSM: flood detection, a deterministic spam
// heuristic, and intent-queue capacity enforcement.
package guards

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultFloodThreshold and DefaultFloodWindow are applied absent explicit
// configuration.
const (
	DefaultFloodThreshold = 10
	DefaultFloodWindow    = 60 * time.Second
)

// FloodDetector accepts the Nth event for a session iff fewer than
// threshold events fell in the last window.
type FloodDetector interface {
	// CheckAndRecord records this event and reports whether the session is
	// currently flooded (i.e. this event pushed it over threshold).
	CheckAndRecord(ctx context.Context, sessionID string) (flooded bool, err error)
}

// InMemoryFloodDetector is a per-process sliding-window ring, for
// development only. Rejected at startup in staging/production.
type InMemoryFloodDetector struct {
	mu        sync.Mutex
	events    map[string][]time.Time
	threshold int
	window    time.Duration
}

// NewInMemoryFloodDetector builds a dev-only flood detector.
func NewInMemoryFloodDetector(threshold int, window time.Duration) *InMemoryFloodDetector {
	if threshold <= 0 {
		threshold = DefaultFloodThreshold
	}
	if window <= 0 {
		window = DefaultFloodWindow
	}
	return &InMemoryFloodDetector{
		events:    make(map[string][]time.Time),
		threshold: threshold,
		window:    window,
	}
}

func (d *InMemoryFloodDetector) CheckAndRecord(_ context.Context, sessionID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-d.window)

	kept := d.events[sessionID][:0]
	for _, t := range d.events[sessionID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	d.events[sessionID] = kept

	return len(kept) > d.threshold, nil
}

// RedisFloodDetector implements the sliding window with a per-session
// sorted set: score is the event's unix-nano timestamp, trimmed to the
// window on every check, counted with ZCARD.
type RedisFloodDetector struct {
	client    *redis.Client
	threshold int
	window    time.Duration
}

// NewRedisFloodDetector builds a distributed flood detector suitable for
// multi-instance deployment.
func NewRedisFloodDetector(client *redis.Client, threshold int, window time.Duration) *RedisFloodDetector {
	if threshold <= 0 {
		threshold = DefaultFloodThreshold
	}
	if window <= 0 {
		window = DefaultFloodWindow
	}
	return &RedisFloodDetector{client: client, threshold: threshold, window: window}
}

func (d *RedisFloodDetector) CheckAndRecord(ctx context.Context, sessionID string) (bool, error) {
	key := "flood:" + sessionID
	now := time.Now()
	cutoff := now.Add(-d.window)

	pipe := d.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: fmt.Sprintf("%d", now.UnixNano())})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, d.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("guards: flood check: %w", err)
	}

	count, err := card.Result()
	if err != nil {
		return false, fmt.Errorf("guards: flood check: %w", err)
	}
	return count > int64(d.threshold), nil
}

// NewFloodDetectorFromConfig selects a backend, refusing the in-memory
// variant outside development.
func NewFloodDetectorFromConfig(backend, environment string, threshold int, window time.Duration, redisClient *redis.Client) (FloodDetector, error) {
	if backend == "memory" && environment != "development" && environment != "" && environment != "test" {
		return nil, fmt.Errorf("guards: in-memory flood detector is not permitted in %q", environment)
	}

	switch backend {
	case "memory", "":
		slog.Warn("using in-memory flood detector (development only)", "threshold", threshold, "window_seconds", int(window.Seconds()))
		return NewInMemoryFloodDetector(threshold, window), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("guards: redis flood backend selected but no client configured")
		}
		return NewRedisFloodDetector(redisClient, threshold, window), nil
	default:
		return nil, fmt.Errorf("guards: unknown flood backend %q", backend)
	}
}
