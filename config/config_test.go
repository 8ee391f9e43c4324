package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 300*time.Second, cfg.PollInterval)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 5, cfg.DeactivationThreshold)
	assert.Equal(t, 5, cfg.NotifyCap)
	assert.Equal(t, 2*time.Second, cfg.NotifyPause)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "newads", cfg.RedisStream)
	assert.Equal(t, "localhost:11211", cfg.MemcacheAddr)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.KufarRegionsFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "60")
	t.Setenv("BATCH_SIZE", "3")
	t.Setenv("DEACTIVATION_THRESHOLD", "2")
	t.Setenv("NOTIFY_CAP", "1")
	t.Setenv("KUFAR_API_URL", "http://localhost:9999/search")
	t.Setenv("ADRADAR_ENVIRONMENT", "production")

	cfg := LoadConfig()

	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, 2, cfg.DeactivationThreshold)
	assert.Equal(t, 1, cfg.NotifyCap)
	assert.Equal(t, "http://localhost:9999/search", cfg.KufarAPIURL)
	assert.Equal(t, "production", cfg.Environment)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := LoadConfig()
	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.PollInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.NotifyCap = 0
	assert.Error(t, cfg.Validate())
}
