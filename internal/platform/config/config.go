package config

import (
	"fmt"
	"time"

	"github.com/yungbote/estate-backend/internal/domain/estate"
	"github.com/yungbote/estate-backend/internal/platform/envutil"
)

// Config is the process configuration for estated. Postgres and OTel settings
// are read by their own packages.
type Config struct {
	LogMode string

	RedisAddr    string
	RedisChannel string

	MetricsAddr string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	CommandRetries int

	Policy estate.Policy
}

func Load() (Config, error) {
	policy, err := LoadPolicy()
	if err != nil {
		return Config{}, fmt.Errorf("load policy: %w", err)
	}
	cfg := Config{
		LogMode:            envutil.String("LOG_MODE", "production"),
		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		RedisChannel:       envutil.String("REDIS_CHANNEL", "estate.events"),
		MetricsAddr:        envutil.String("METRICS_ADDR", ":9090"),
		OutboxPollInterval: envutil.Seconds("OUTBOX_POLL_INTERVAL_SECONDS", 2*time.Second),
		OutboxBatchSize:    envutil.Int("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxAttempts:  envutil.Int("OUTBOX_MAX_ATTEMPTS", 10),
		CommandRetries:     envutil.Int("ESTATE_COMMAND_RETRIES", 3),
		Policy:             policy,
	}
	if cfg.OutboxBatchSize <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", cfg.OutboxBatchSize)
	}
	if cfg.OutboxPollInterval <= 0 {
		cfg.OutboxPollInterval = 2 * time.Second
	}
	if cfg.CommandRetries < 0 {
		cfg.CommandRetries = 0
	}
	return cfg, nil
}
