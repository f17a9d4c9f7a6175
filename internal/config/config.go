package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Delivery workers
	DeliveryWorkers   int           `envconfig:"DELIVERY_WORKERS" default:"4"`
	DeliveryPoll      time.Duration `envconfig:"DELIVERY_POLL_INTERVAL" default:"5s"`
	DeliveryBatchSize int           `envconfig:"DELIVERY_BATCH_SIZE" default:"10"`
	DeliveryLease     time.Duration `envconfig:"DELIVERY_LEASE" default:"60s"`
	MaxBackoff        time.Duration `envconfig:"DELIVERY_MAX_BACKOFF" default:"1h"`

	// When true every failed attempt increments the webhook's failure
	// counter instead of only the terminal one.
	CountRetryFailures bool `envconfig:"COUNT_RETRY_FAILURES" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
