package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ottohq/otto-gateway/pkg/docstore"
)

// Backend names recognized by NewFromConfig.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// FactoryConfig selects and configures a session Store.
type FactoryConfig struct {
	Backend     string
	Environment string

	RedisClient *redis.Client
	DocStore    docstore.Store
}

// NewFromConfig builds a Store for the configured backend, refusing the
// in-memory backend outside development — a second replica with its own
// in-memory map would silently fork session state.
func NewFromConfig(_ context.Context, cfg FactoryConfig) (Store, error) {
	if cfg.Backend == BackendMemory && cfg.Environment != "development" && cfg.Environment != "" && cfg.Environment != "test" {
		return nil, fmt.Errorf("session: memory backend is not permitted in %q", cfg.Environment)
	}

	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendRedis:
		if cfg.RedisClient == nil {
			return nil, fmt.Errorf("session: redis backend selected but no client configured")
		}
		return NewRedisStore(cfg.RedisClient), nil
	case BackendPostgres:
		if cfg.DocStore == nil {
			return nil, fmt.Errorf("session: postgres backend selected but no doc store configured")
		}
		return NewPostgresStore(cfg.DocStore), nil
	default:
		return nil, fmt.Errorf("session: unknown backend %q", cfg.Backend)
	}
}
