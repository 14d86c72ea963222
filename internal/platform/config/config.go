package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `env:"SERVICE_NAME" envDefault:"tandem"`
	HTTPPort     string   `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN  string   `env:"POSTGRES_DSN"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`

	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	RatingLeaseTTL     time.Duration `env:"RATING_LEASE_TTL" envDefault:"30m"`
	RatingDecayGrace   time.Duration `env:"RATING_DECAY_GRACE" envDefault:"1440h"`
	RatingDecayPerDay  float64       `env:"RATING_DECAY_PER_DAY" envDefault:"1"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"2s"`

	EnableRatingOnCompletion bool `env:"ENABLE_RATING_ON_COMPLETION" envDefault:"false"`
	EnableLiveEvents         bool `env:"ENABLE_LIVE_EVENTS" envDefault:"true"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	brokers := make([]string, 0, len(cfg.KafkaBrokers))
	for _, value := range cfg.KafkaBrokers {
		if value = strings.TrimSpace(value); value != "" {
			brokers = append(brokers, value)
		}
	}
	cfg.KafkaBrokers = brokers
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)

	if cfg.RatingDecayPerDay < 0 {
		return Config{}, fmt.Errorf("RATING_DECAY_PER_DAY must not be negative")
	}
	if cfg.WorkerPollInterval <= 0 {
		return Config{}, fmt.Errorf("WORKER_POLL_INTERVAL must be positive")
	}
	return cfg, nil
}
