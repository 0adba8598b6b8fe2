package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// JMA advisory feed.
	JMABaseURL    string
	JMATimeout    time.Duration
	DefaultRegion string

	// Summary cache. Redis is used when RedisURL is set, otherwise an in-process LRU.
	AlertCacheTTL  time.Duration
	AlertCacheSize int
	RedisURL       string

	// Background feed watcher and Kafka publishing.
	AlertWatchEnabled bool
	AlertPollInterval time.Duration
	KafkaBrokers      []string
	KafkaAlertTopic   string

	// Shelter catalog sources, in order of precedence.
	DatabaseURL  string
	SheltersFile string
	SheltersURL  string
	FallbackLat  float64
	FallbackLng  float64

	SettingsDB string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	jmaTimeout, err := parsePositiveDuration("JMA_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("ALERT_CACHE_TTL", "60s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parsePositiveDuration("ALERT_POLL_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	fallbackLat, err := parseFloat("FALLBACK_LAT", 36.5781)
	if err != nil {
		return nil, err
	}
	fallbackLng, err := parseFloat("FALLBACK_LNG", 136.6478)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		JMABaseURL:    strings.TrimRight(sharedcfg.EnvOrDefault("JMA_BASE_URL", "https://www.jma.go.jp/bosai/warning/data"), "/"),
		JMATimeout:    jmaTimeout,
		DefaultRegion: sharedcfg.EnvOrDefault("DEFAULT_REGION", "170000"),

		AlertCacheTTL:  cacheTTL,
		AlertCacheSize: parsePositiveInt("ALERT_CACHE_SIZE", 64),
		RedisURL:       os.Getenv("REDIS_URL"),

		AlertWatchEnabled: os.Getenv("ALERT_WATCH_ENABLED") == "true",
		AlertPollInterval: pollInterval,
		KafkaBrokers:      brokers,
		KafkaAlertTopic:   sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "advisory-summaries"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SheltersFile: os.Getenv("SHELTERS_FILE"),
		SheltersURL:  os.Getenv("SHELTERS_URL"),
		FallbackLat:  fallbackLat,
		FallbackLng:  fallbackLng,

		SettingsDB: sharedcfg.EnvOrDefault("SETTINGS_DB", "zerodelay.db"),
	}

	if !domain.Region(cfg.DefaultRegion).Valid() {
		return nil, fmt.Errorf("unsupported DEFAULT_REGION %q", cfg.DefaultRegion)
	}
	if cfg.FallbackLat < -90 || cfg.FallbackLat > 90 {
		return nil, errors.New("FALLBACK_LAT out of range")
	}
	if cfg.FallbackLng < -180 || cfg.FallbackLng > 180 {
		return nil, errors.New("FALLBACK_LNG out of range")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// PublishEnabled reports whether watcher output should be written to Kafka.
func (c *Config) PublishEnabled() bool {
	return c.AlertWatchEnabled && len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
