package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://www.jma.go.jp/bosai/warning/data", cfg.JMABaseURL)
	assert.Equal(t, 5*time.Second, cfg.JMATimeout)
	assert.Equal(t, "170000", cfg.DefaultRegion)
	assert.Equal(t, 60*time.Second, cfg.AlertCacheTTL)
	assert.Equal(t, 64, cfg.AlertCacheSize)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.AlertWatchEnabled)
	assert.Equal(t, 5*time.Minute, cfg.AlertPollInterval)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "advisory-summaries", cfg.KafkaAlertTopic)
	assert.InDelta(t, 36.5781, cfg.FallbackLat, 1e-9)
	assert.InDelta(t, 136.6478, cfg.FallbackLng, 1e-9)
	assert.Equal(t, "zerodelay.db", cfg.SettingsDB)
	assert.False(t, cfg.PublishEnabled())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("JMA_BASE_URL", "http://localhost:9999/data/")
	t.Setenv("JMA_TIMEOUT", "2s")
	t.Setenv("DEFAULT_REGION", "160000")
	t.Setenv("ALERT_CACHE_TTL", "30s")
	t.Setenv("ALERT_CACHE_SIZE", "8")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ALERT_WATCH_ENABLED", "true")
	t.Setenv("ALERT_POLL_INTERVAL", "1m")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_ALERT_TOPIC", "alerts")
	t.Setenv("DATABASE_URL", "postgres://localhost/zerodelay")
	t.Setenv("FALLBACK_LAT", "35.0")
	t.Setenv("FALLBACK_LNG", "135.0")
	t.Setenv("SETTINGS_DB", "/tmp/settings.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:9999/data", cfg.JMABaseURL)
	assert.Equal(t, 2*time.Second, cfg.JMATimeout)
	assert.Equal(t, "160000", cfg.DefaultRegion)
	assert.Equal(t, 30*time.Second, cfg.AlertCacheTTL)
	assert.Equal(t, 8, cfg.AlertCacheSize)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.True(t, cfg.AlertWatchEnabled)
	assert.Equal(t, time.Minute, cfg.AlertPollInterval)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "alerts", cfg.KafkaAlertTopic)
	assert.Equal(t, "postgres://localhost/zerodelay", cfg.DatabaseURL)
	assert.InDelta(t, 35.0, cfg.FallbackLat, 1e-9)
	assert.InDelta(t, 135.0, cfg.FallbackLng, 1e-9)
	assert.Equal(t, "/tmp/settings.db", cfg.SettingsDB)
	assert.True(t, cfg.PublishEnabled())
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidJMATimeout(t *testing.T) {
	t.Setenv("JMA_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JMA_TIMEOUT")
}

func TestLoad_NegativeCacheTTL(t *testing.T) {
	t.Setenv("ALERT_CACHE_TTL", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_CACHE_TTL")
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	t.Setenv("ALERT_POLL_INTERVAL", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_POLL_INTERVAL")
}

func TestLoad_UnsupportedRegion(t *testing.T) {
	t.Setenv("DEFAULT_REGION", "130000")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_REGION")
}

func TestLoad_FallbackOutOfRange(t *testing.T) {
	t.Setenv("FALLBACK_LAT", "91")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FALLBACK_LAT")
}

func TestLoad_FallbackNotANumber(t *testing.T) {
	t.Setenv("FALLBACK_LNG", "east")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FALLBACK_LNG")
}

func TestLoad_InvalidCacheSizeFallsBackToDefault(t *testing.T) {
	t.Setenv("ALERT_CACHE_SIZE", "zero")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.AlertCacheSize)
}

func TestLoad_BrokersWithoutWatcherDoNotPublish(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.PublishEnabled())
}
