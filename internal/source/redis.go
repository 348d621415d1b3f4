// Package source fetches raw snapshot bundles from the latest-value store
// where the upstream aggregation engine leaves them.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/viceclone/dlob-server/internal/models"
	"github.com/viceclone/dlob-server/internal/pipeline"
)

// Redis reads one JSON bundle per market per cycle, written by the upstream
// aggregator under {prefix}orderbook_{type}_{index}.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger
}

// NewRedis wraps a connected Redis client.
func NewRedis(client *redis.Client, keyPrefix string, logger *slog.Logger) *Redis {
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.With("component", "source"),
	}
}

// Fetch returns the market's current upstream bundle. A missing key means the
// aggregator has not produced a snapshot for this market yet; that is not an
// error, and nil is returned.
func (s *Redis) Fetch(ctx context.Context, cfg models.PublishConfig) (*pipeline.Input, error) {
	key := s.keyPrefix + cfg.Market.Channel()

	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			s.logger.Debug("snapshot_not_in_store",
				"market", cfg.Market.MarketName,
				"key", key,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	in, err := decodeBundle(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return in, nil
}

// bundle is the upstream wire shape: ladders as [price, size] string pairs in
// book order, both logical clocks, and the oracle's view of the market.
type bundle struct {
	Bids       [][2]string       `json:"bids"`
	Asks       [][2]string       `json:"asks"`
	Slot       uint64            `json:"slot"`
	MarketSlot uint64            `json:"marketSlot"`
	Oracle     models.OracleData `json:"oracle"`
}

func decodeBundle(raw []byte) (*pipeline.Input, error) {
	var b bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	bids, err := decodeLevels(b.Bids, "bid")
	if err != nil {
		return nil, err
	}
	asks, err := decodeLevels(b.Asks, "ask")
	if err != nil {
		return nil, err
	}

	return &pipeline.Input{
		Book:       models.RawLadder{Bids: bids, Asks: asks, Slot: b.Slot},
		Oracle:     b.Oracle,
		MarketSlot: b.MarketSlot,
	}, nil
}

func decodeLevels(pairs [][2]string, side string) ([]models.RawLevel, error) {
	levels := make([]models.RawLevel, len(pairs))
	for i, pair := range pairs {
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("%s level %d: bad price %q: %w", side, i, pair[0], err)
		}
		size, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("%s level %d: bad size %q: %w", side, i, pair[1], err)
		}
		levels[i] = models.RawLevel{Price: price, Size: size}
	}
	return levels, nil
}
