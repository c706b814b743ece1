package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"ENVIRONMENT", "WHATSAPP_VERIFY_TOKEN", "WHATSAPP_WEBHOOK_SECRET", "REDIS_URL",
		"DEDUPE_BACKEND", "DEDUPE_TTL_SECONDS",
		"SESSION_STORE_BACKEND", "SESSION_TTL_SECONDS", "SESSION_MESSAGE_HISTORY_MAX_ENTRIES",
		"FLOOD_DETECTOR_BACKEND", "FLOOD_THRESHOLD", "FLOOD_TTL_SECONDS",
		"DECISION_AUDIT_BACKEND", "USER_AUDIT_BACKEND",
		"STATE_SELECTOR_THRESHOLD", "MASTER_DECIDER_CONFIDENCE_THRESHOLD", "RESPONSE_GENERATOR_MIN_RESPONSES",
		"USER_KEY_PEPPER", "OPSNOTIFY_SLACK_TOKEN", "OPSNOTIFY_SLACK_CHANNEL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"DOCSTORE_PASSWORD",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearGatewayEnv(t)
	os.Setenv("WHATSAPP_VERIFY_TOKEN", "tok")
	os.Setenv("USER_KEY_PEPPER", "pepper")
	defer clearGatewayEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, DefaultDedupeTTLSeconds, cfg.DedupeTTLSeconds)
	assert.Equal(t, DefaultSessionTTLSeconds, cfg.SessionTTLSeconds)
	assert.Equal(t, DefaultFloodThreshold, cfg.FloodThreshold)
	assert.InDelta(t, DefaultStateSelectorThreshold, cfg.StateSelectorThreshold, 0.0001)
}

func TestLoadFromEnv_MissingVerifyToken(t *testing.T) {
	clearGatewayEnv(t)
	os.Setenv("USER_KEY_PEPPER", "pepper")
	defer clearGatewayEnv(t)

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnv_MemoryRefusedInProduction(t *testing.T) {
	clearGatewayEnv(t)
	os.Setenv("WHATSAPP_VERIFY_TOKEN", "tok")
	os.Setenv("USER_KEY_PEPPER", "pepper")
	os.Setenv("ENVIRONMENT", "production")
	defer clearGatewayEnv(t)

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnv_InvalidEnvironment(t *testing.T) {
	clearGatewayEnv(t)
	os.Setenv("WHATSAPP_VERIFY_TOKEN", "tok")
	os.Setenv("USER_KEY_PEPPER", "pepper")
	os.Setenv("ENVIRONMENT", "bogus")
	defer clearGatewayEnv(t)

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnv_InvalidThreshold(t *testing.T) {
	clearGatewayEnv(t)
	os.Setenv("WHATSAPP_VERIFY_TOKEN", "tok")
	os.Setenv("USER_KEY_PEPPER", "pepper")
	os.Setenv("STATE_SELECTOR_THRESHOLD", "1.5")
	defer clearGatewayEnv(t)

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := &Config{SessionTTLSeconds: 120, DedupeTTLSeconds: 60, FloodTTLSeconds: 30}
	assert.Equal(t, 120.0, cfg.SessionTTL().Seconds())
	assert.Equal(t, 60.0, cfg.DedupeTTL().Seconds())
	assert.Equal(t, 30.0, cfg.FloodWindow().Seconds())
}
