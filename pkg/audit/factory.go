package audit

import (
	"fmt"

	"github.com/ottohq/otto-gateway/pkg/docstore"
)

// Backend names a UserAuditStore/DecisionAuditStore implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
)

// FactoryConfig selects and wires an audit backend pair.
type FactoryConfig struct {
	Backend     Backend
	Environment string
	DocStore    docstore.Store
}

// NewFromConfig builds a UserAuditStore and DecisionAuditStore pair,
// refusing BackendMemory outside development/test environments, matching
// the refusal guard already established for dedupe and session.
func NewFromConfig(cfg FactoryConfig) (UserAuditStore, DecisionAuditStore, error) {
	switch cfg.Backend {
	case BackendMemory:
		if cfg.Environment != "" && cfg.Environment != "development" && cfg.Environment != "test" {
			return nil, nil, fmt.Errorf("audit: memory backend is not allowed in environment %q", cfg.Environment)
		}
		return NewMemoryUserAuditStore(), NewMemoryDecisionAuditStore(), nil
	case BackendPostgres:
		if cfg.DocStore == nil {
			return nil, nil, fmt.Errorf("audit: postgres backend requires a docstore.Store")
		}
		return NewPostgresUserAuditStore(cfg.DocStore), NewPostgresDecisionAuditStore(cfg.DocStore), nil
	default:
		return nil, nil, fmt.Errorf("audit: unknown backend %q", cfg.Backend)
	}
}
