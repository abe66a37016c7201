// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// StatsKey is the shared secret the reporting poller sends in the x-stats-key header. Required.
	// Read once at startup and never mutated.
	StatsKey string `mapstructure:"STATS_KEY"`
	// EventJWTSecret is the HS256 key for service tokens on the event trigger endpoints.
	// When empty, the trigger endpoints accept the stats key header instead.
	EventJWTSecret string `mapstructure:"EVENT_JWT_SECRET"`
	// SweepInterval is how often the expiry sweeper runs (e.g. "5m").
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
	// IdleTimeout is the inactivity threshold after which an active session is expired (e.g. "15m").
	IdleTimeout string `mapstructure:"IDLE_TIMEOUT"`
	// StatsTimezone is the IANA zone used to derive the calendar-day key for rollups (e.g. "Asia/Seoul").
	StatsTimezone string `mapstructure:"STATS_TIMEZONE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Presence event stream (optional). When Kafka brokers are set, accepted events are emitted to Kafka.
	// EventsKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	EventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for presence events (default presence-events).
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STATS_KEY", "")
	v.SetDefault("EVENT_JWT_SECRET", "")
	v.SetDefault("SWEEP_INTERVAL", "5m")
	v.SetDefault("IDLE_TIMEOUT", "15m")
	v.SetDefault("STATS_TIMEZONE", "UTC")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "presence-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "presence-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.StatsKey == "" {
		return nil, errors.New("config: STATS_KEY must be set")
	}
	if _, err := time.LoadLocation(cfg.StatsTimezone); err != nil {
		return nil, errors.New("config: STATS_TIMEZONE is not a valid IANA zone name")
	}

	return &cfg, nil
}

// SweepEvery parses SweepInterval as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) SweepEvery() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// IdleThreshold parses IdleTimeout as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) IdleThreshold() time.Duration {
	d, err := time.ParseDuration(c.IdleTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// Location returns the rendering timezone for day keys. Falls back to UTC if the
// configured zone cannot be loaded (Load rejects bad zones, so this covers
// zero-value Configs constructed directly in tests).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

// EventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the event stream is enabled (non-empty list) and to create the producer.
func (c *Config) EventsKafkaBrokersList() []string {
	if c == nil || c.EventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.EventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
