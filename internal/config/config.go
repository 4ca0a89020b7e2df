package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// DataDir is the folder relative settings paths are resolved against.
	DataDir string `envconfig:"DATA_DIR" default:"."`

	TideCacheSize     int   `envconfig:"TIDE_CACHE_SIZE" default:"16"`
	CorrectionWorkers int   `envconfig:"CORRECTION_WORKERS" default:"0"`
	MaxRequestBytes   int64 `envconfig:"MAX_REQUEST_BYTES" default:"33554432"`

	// Optional sinks. Each is enabled when its address is set.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"tide-corrected-shorelines"`
	DatabaseURL  string   `envconfig:"DATABASE_URL"`
}

// KafkaEnabled reports whether corrected rows should be published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// PostgresEnabled reports whether corrected rows should be stored in Postgres.
func (c *Config) PostgresEnabled() bool { return c.DatabaseURL != "" }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.KafkaBrokers = trimEmpty(cfg.KafkaBrokers)

	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT: must be positive")
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", cfg.LogFormat)
	}
	if cfg.TideCacheSize <= 0 {
		return nil, errors.New("invalid TIDE_CACHE_SIZE: must be positive")
	}
	if cfg.CorrectionWorkers < 0 {
		return nil, errors.New("invalid CORRECTION_WORKERS: must not be negative")
	}
	if cfg.MaxRequestBytes <= 0 {
		return nil, errors.New("invalid MAX_REQUEST_BYTES: must be positive")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return &cfg, nil
}

func trimEmpty(vs []string) []string {
	out := vs[:0]
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
