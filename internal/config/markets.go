package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/viceclone/dlob-server/internal/models"
)

// marketsFile is the YAML schema of the markets config file.
type marketsFile struct {
	Markets []marketEntry `yaml:"markets"`
}

type marketEntry struct {
	Name                      string   `yaml:"name"`
	Type                      string   `yaml:"type"`
	Index                     int      `yaml:"index"`
	Depth                     int      `yaml:"depth"`
	Grouping                  int64    `yaml:"grouping"`
	PublishMode               string   `yaml:"publish_mode"`
	IncludeSecondaryLiquidity bool     `yaml:"include_secondary_liquidity"`
	SecondaryOrderCap         int      `yaml:"secondary_order_cap"`
	FallbackSources           []string `yaml:"fallback_sources"`
}

// LoadMarkets reads and validates the markets file. Defaults: an omitted
// depth means unlimited, an omitted publish mode means on_change.
func LoadMarkets(path string) ([]models.PublishConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markets file: %w", err)
	}

	var mf marketsFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("parse markets file: %w", err)
	}

	if len(mf.Markets) == 0 {
		return nil, fmt.Errorf("markets file %s configures no markets", path)
	}

	configs := make([]models.PublishConfig, 0, len(mf.Markets))
	seen := make(map[models.MarketKey]bool, len(mf.Markets))
	for i, entry := range mf.Markets {
		cfg, err := entry.toPublishConfig()
		if err != nil {
			return nil, fmt.Errorf("market %d (%q): %w", i, entry.Name, err)
		}

		key := cfg.Market.Key()
		if seen[key] {
			return nil, fmt.Errorf("market %d (%q): duplicate market %s %d", i, entry.Name, key.Type, key.Index)
		}
		seen[key] = true

		configs = append(configs, cfg)
	}

	return configs, nil
}

func (e marketEntry) toPublishConfig() (models.PublishConfig, error) {
	var zero models.PublishConfig

	if e.Name == "" {
		return zero, fmt.Errorf("name must be set")
	}

	mt := models.MarketType(e.Type)
	if !mt.Valid() {
		return zero, fmt.Errorf("invalid market type: %q", e.Type)
	}

	if e.Index < 0 {
		return zero, fmt.Errorf("index must not be negative, got %d", e.Index)
	}

	depth := e.Depth
	if depth == 0 {
		depth = -1
	}
	if depth < -1 {
		return zero, fmt.Errorf("depth must be -1 or positive, got %d", e.Depth)
	}

	if e.Grouping < 0 {
		return zero, fmt.Errorf("grouping must not be negative, got %d", e.Grouping)
	}

	mode := models.PublishMode(e.PublishMode)
	if mode == "" {
		mode = models.PublishOnChange
	}
	if !mode.Valid() {
		return zero, fmt.Errorf("invalid publish mode: %q", e.PublishMode)
	}

	if e.SecondaryOrderCap < 0 {
		return zero, fmt.Errorf("secondary order cap must not be negative, got %d", e.SecondaryOrderCap)
	}

	return models.PublishConfig{
		Market: models.Descriptor{
			MarketIndex: e.Index,
			MarketType:  mt,
			MarketName:  e.Name,
		},
		Depth:                     depth,
		Grouping:                  e.Grouping,
		Mode:                      mode,
		IncludeSecondaryLiquidity: e.IncludeSecondaryLiquidity,
		SecondaryOrderCap:         e.SecondaryOrderCap,
		FallbackSources:           e.FallbackSources,
	}, nil
}
