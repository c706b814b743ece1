package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromConfig_MemoryRejectedOutsideDevelopment(t *testing.T) {
	_, _, err := NewFromConfig(FactoryConfig{Backend: BackendMemory, Environment: "production"})
	require.Error(t, err)
}

func TestNewFromConfig_MemoryAllowedInDevelopment(t *testing.T) {
	users, decisions, err := NewFromConfig(FactoryConfig{Backend: BackendMemory, Environment: "development"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryUserAuditStore{}, users)
	assert.IsType(t, &MemoryDecisionAuditStore{}, decisions)
}

func TestNewFromConfig_PostgresRequiresDocStore(t *testing.T) {
	_, _, err := NewFromConfig(FactoryConfig{Backend: BackendPostgres, Environment: "production"})
	require.Error(t, err)
}

func TestNewFromConfig_UnknownBackend(t *testing.T) {
	_, _, err := NewFromConfig(FactoryConfig{Backend: "carrier-pigeon", Environment: "production"})
	require.Error(t, err)
}
