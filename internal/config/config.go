package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the snapshot service configuration.
type Config struct {
	// Redis (sink and source share one client)
	RedisURL      string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Markets
	MarketsFile     string `env:"MARKETS_FILE" envDefault:"configs/markets.yaml"`
	SourceKeyPrefix string `env:"SOURCE_KEY_PREFIX" envDefault:"raw_orderbook_"`

	// Pipeline cadence and kill-switch thresholds
	RefreshIntervalMs int    `env:"REFRESH_INTERVAL_MS" envDefault:"1000"`
	SlotDiffThreshold uint64 `env:"SLOT_DIFF_THRESHOLD" envDefault:"200"`
	SpotStalenessMs   int64  `env:"SPOT_STALENESS_MS" envDefault:"1200000"`
	PerpStalenessMs   int64  `env:"PERP_STALENESS_MS" envDefault:"600000"`
	LatestTTLSec      int    `env:"LATEST_TTL_SEC" envDefault:"0"`

	// Computed durations (not from env)
	RefreshInterval     time.Duration `env:"-"`
	SpotStalenessWindow time.Duration `env:"-"`
	PerpStalenessWindow time.Duration `env:"-"`
	LatestTTL           time.Duration `env:"-"`

	// Observability
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
	OpsPort  int    `env:"OPS_PORT" envDefault:"8080"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	opts := env.Options{
		Prefix: "",
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Convert raw integers to time.Duration
	cfg.RefreshInterval = time.Duration(cfg.RefreshIntervalMs) * time.Millisecond
	cfg.SpotStalenessWindow = time.Duration(cfg.SpotStalenessMs) * time.Millisecond
	cfg.PerpStalenessWindow = time.Duration(cfg.PerpStalenessMs) * time.Millisecond
	cfg.LatestTTL = time.Duration(cfg.LatestTTLSec) * time.Second

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("redis URL must be set")
	}

	if c.MarketsFile == "" {
		return fmt.Errorf("markets file must be set")
	}

	if c.RefreshInterval < 10*time.Millisecond {
		return fmt.Errorf("refresh interval must be at least 10ms")
	}

	if c.SlotDiffThreshold == 0 {
		return fmt.Errorf("slot diff threshold must be positive")
	}

	if c.SpotStalenessWindow <= 0 {
		return fmt.Errorf("spot staleness window must be positive")
	}

	if c.PerpStalenessWindow <= 0 {
		return fmt.Errorf("perp staleness window must be positive")
	}

	if c.LatestTTLSec < 0 {
		return fmt.Errorf("latest key TTL must not be negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.OpsPort < 1 || c.OpsPort > 65535 {
		return fmt.Errorf("invalid ops port: %d", c.OpsPort)
	}

	return nil
}
