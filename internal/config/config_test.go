package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.RedisURL != "redis://localhost:6379" {
		t.Errorf("Expected default redis URL, got %s", cfg.RedisURL)
	}
	if cfg.MarketsFile != "configs/markets.yaml" {
		t.Errorf("Expected default markets file, got %s", cfg.MarketsFile)
	}
	if cfg.SourceKeyPrefix != "raw_orderbook_" {
		t.Errorf("Expected default source key prefix, got %s", cfg.SourceKeyPrefix)
	}
	if cfg.RefreshInterval != time.Second {
		t.Errorf("Expected 1s refresh interval, got %v", cfg.RefreshInterval)
	}
	if cfg.SlotDiffThreshold != 200 {
		t.Errorf("Expected slot diff threshold 200, got %d", cfg.SlotDiffThreshold)
	}
	if cfg.SpotStalenessWindow != 20*time.Minute {
		t.Errorf("Expected 20m spot staleness window, got %v", cfg.SpotStalenessWindow)
	}
	if cfg.PerpStalenessWindow != 10*time.Minute {
		t.Errorf("Expected 10m perp staleness window, got %v", cfg.PerpStalenessWindow)
	}
	if cfg.LatestTTL != 0 {
		t.Errorf("Expected no TTL by default, got %v", cfg.LatestTTL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected info log level, got %s", cfg.LogLevel)
	}
	if cfg.OpsPort != 8080 {
		t.Errorf("Expected ops port 8080, got %d", cfg.OpsPort)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache.internal:6380/2")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("MARKETS_FILE", "/etc/dlob/markets.yaml")
	t.Setenv("SOURCE_KEY_PREFIX", "dlob_raw_")
	t.Setenv("REFRESH_INTERVAL_MS", "250")
	t.Setenv("SLOT_DIFF_THRESHOLD", "50")
	t.Setenv("SPOT_STALENESS_MS", "60000")
	t.Setenv("PERP_STALENESS_MS", "30000")
	t.Setenv("LATEST_TTL_SEC", "90")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPS_PORT", "9090")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.RedisURL != "redis://cache.internal:6380/2" {
		t.Errorf("Expected overridden redis URL, got %s", cfg.RedisURL)
	}
	if cfg.RedisPassword != "hunter2" {
		t.Error("Expected redis password to be picked up")
	}
	if cfg.MarketsFile != "/etc/dlob/markets.yaml" {
		t.Errorf("Expected overridden markets file, got %s", cfg.MarketsFile)
	}
	if cfg.SourceKeyPrefix != "dlob_raw_" {
		t.Errorf("Expected overridden key prefix, got %s", cfg.SourceKeyPrefix)
	}
	if cfg.RefreshInterval != 250*time.Millisecond {
		t.Errorf("Expected 250ms refresh interval, got %v", cfg.RefreshInterval)
	}
	if cfg.SlotDiffThreshold != 50 {
		t.Errorf("Expected slot diff threshold 50, got %d", cfg.SlotDiffThreshold)
	}
	if cfg.SpotStalenessWindow != time.Minute {
		t.Errorf("Expected 1m spot staleness window, got %v", cfg.SpotStalenessWindow)
	}
	if cfg.PerpStalenessWindow != 30*time.Second {
		t.Errorf("Expected 30s perp staleness window, got %v", cfg.PerpStalenessWindow)
	}
	if cfg.LatestTTL != 90*time.Second {
		t.Errorf("Expected 90s TTL, got %v", cfg.LatestTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.OpsPort != 9090 {
		t.Errorf("Expected ops port 9090, got %d", cfg.OpsPort)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected overridden config to validate, got %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		RedisURL:            "redis://localhost:6379",
		MarketsFile:         "configs/markets.yaml",
		SourceKeyPrefix:     "raw_orderbook_",
		RefreshInterval:     time.Second,
		SlotDiffThreshold:   200,
		SpotStalenessWindow: 20 * time.Minute,
		PerpStalenessWindow: 10 * time.Minute,
		LogLevel:            "info",
		OpsPort:             8080,
	}
}

func TestValidate_RejectsEmptyRedisURL(t *testing.T) {
	cfg := validConfig()
	cfg.RedisURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for empty redis URL")
	}
}

func TestValidate_RejectsEmptyMarketsFile(t *testing.T) {
	cfg := validConfig()
	cfg.MarketsFile = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for empty markets file")
	}
}

func TestValidate_RejectsShortRefreshInterval(t *testing.T) {
	cfg := validConfig()
	cfg.RefreshInterval = 5 * time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for sub-10ms refresh interval")
	}
}

func TestValidate_RejectsZeroSlotThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.SlotDiffThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for zero slot diff threshold")
	}
}

func TestValidate_RejectsNonPositiveStalenessWindows(t *testing.T) {
	cfg := validConfig()
	cfg.SpotStalenessWindow = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for zero spot staleness window")
	}

	cfg = validConfig()
	cfg.PerpStalenessWindow = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for negative perp staleness window")
	}
}

func TestValidate_RejectsNegativeTTL(t *testing.T) {
	cfg := validConfig()
	cfg.LatestTTLSec = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for negative TTL")
	}
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for unknown log level")
	}
}

func TestValidate_RejectsBadOpsPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := validConfig()
		cfg.OpsPort = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error for port %d", port)
		}
	}
}
