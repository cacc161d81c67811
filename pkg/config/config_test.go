package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 60, cfg.Instagram.RequestsPerMinute)
	assert.Equal(t, "instagram-scraper-api2.p.rapidapi.com", cfg.ProxyAPI.InstagramHost)
	assert.Equal(t, "tiktok-api23.p.rapidapi.com", cfg.ProxyAPI.TikTokHost)
	assert.Equal(t, 10*time.Second, cfg.ProxyAPI.InstagramTimeout)
	assert.Equal(t, 12*time.Second, cfg.ProxyAPI.TikTokTimeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Hour, cfg.Cache.InstagramTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TikTokTTL)
	assert.Equal(t, 3, cfg.Batch.Workers)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	content := `
instagram:
  session_id: file-session
  requests_per_minute: 30
proxy_api:
  key: file-key
retry:
  max_attempts: 2
cache:
  instagram_ttl: 30m
batch:
  workers: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "file-session", cfg.Instagram.SessionID)
	assert.Equal(t, 30, cfg.Instagram.RequestsPerMinute)
	assert.Equal(t, "file-key", cfg.ProxyAPI.Key)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Cache.InstagramTTL)
	assert.Equal(t, 5, cfg.Batch.Workers)

	// values the file does not mention keep their defaults
	assert.Equal(t, 24*time.Hour, cfg.Cache.TikTokTTL)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile("/nonexistent/config.yaml"))
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SOCIALSCOPE_SESSION_ID", "env-session")
	t.Setenv("SOCIALSCOPE_CSRF_TOKEN", "env-csrf")
	t.Setenv("SOCIALSCOPE_RAPIDAPI_KEY", "env-key")
	t.Setenv("SOCIALSCOPE_BATCH_WORKERS", "7")
	t.Setenv("SOCIALSCOPE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env-session", cfg.Instagram.SessionID)
	assert.Equal(t, "env-csrf", cfg.Instagram.CSRFToken)
	assert.Equal(t, "env-key", cfg.ProxyAPI.Key)
	assert.Equal(t, 7, cfg.Batch.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvFallbackNames(t *testing.T) {
	t.Setenv("SOCIALSCOPE_RAPIDAPI_KEY", "")
	t.Setenv("RAPIDAPI_KEY", "bare-key")
	t.Setenv("SOCIALSCOPE_TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_TOKEN", "bare-token")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "bare-key", cfg.ProxyAPI.Key)
	assert.Equal(t, "bare-token", cfg.Telegram.Token)
}

func TestLoadFromEnvPrefixedWinsOverBare(t *testing.T) {
	t.Setenv("SOCIALSCOPE_RAPIDAPI_KEY", "prefixed-key")
	t.Setenv("RAPIDAPI_KEY", "bare-key")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, "prefixed-key", cfg.ProxyAPI.Key)
}

func TestMergeFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeFlags(map[string]interface{}{
		"rapidapi-key": "flag-key",
		"workers":      4,
		"log-level":    "warn",
	})

	assert.Equal(t, "flag-key", cfg.ProxyAPI.Key)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero_retry_attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"zero_base_delay", func(c *Config) { c.Retry.BaseDelay = 0 }},
		{"zero_cache_ttl", func(c *Config) { c.Cache.InstagramTTL = 0 }},
		{"empty_history_file", func(c *Config) { c.History.File = "" }},
		{"zero_workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"too_many_workers", func(c *Config) { c.Batch.Workers = 50 }},
		{"bad_log_level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry.MaxAttempts = 0
	cfg.Batch.Workers = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry max attempts")
	assert.Contains(t, err.Error(), "batch workers")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.ProxyAPI.Key = "saved-key"
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "saved-key", loaded.ProxyAPI.Key)
}

func TestLoadPrecedence(t *testing.T) {
	content := `
proxy_api:
  key: file-key
batch:
  workers: 2
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("SOCIALSCOPE_BATCH_WORKERS", "4")

	cfg, err := Load(path, map[string]interface{}{"workers": 6})
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.ProxyAPI.Key, "file value survives")
	assert.Equal(t, 6, cfg.Batch.Workers, "flags beat environment beats file")
}
