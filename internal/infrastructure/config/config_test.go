package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8090", cfg.Server.Addr())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Rate.Enabled)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "./data/sessions", cfg.Session.Dir)
	assert.Equal(t, 3, cfg.Content.RetryMax)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("NAVIGATOR_PORT", "9001")
	t.Setenv("NAVIGATOR_LOG_LEVEL", "debug")
	t.Setenv("NAVIGATOR_ALLOWED_ORIGINS", "https://app.sprout.dev,https://staging.sprout.dev")
	t.Setenv("NAVIGATOR_CONTENT_RATE_PER_SEC", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"https://app.sprout.dev", "https://staging.sprout.dev"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.Content.RatePerSec)
}

func TestValidateRejectsBadPort(t *testing.T) {
	t.Setenv("NAVIGATOR_PORT", "70000")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	t.Setenv("NAVIGATOR_LOG_LEVEL", "verbose")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsZeroRate(t *testing.T) {
	t.Setenv("NAVIGATOR_RATE_PER_SEC", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("NAVIGATOR_RATE_ENABLED", "false")
	_, err = Load()
	assert.NoError(t, err, "rate bounds are irrelevant when limiting is disabled")
}
