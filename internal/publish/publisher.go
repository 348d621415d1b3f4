// Package publish gates and fans out formatted snapshots to the pub/sub
// channel and latest-value keys for each market.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/viceclone/dlob-server/internal/instrumentation"
	"github.com/viceclone/dlob-server/internal/models"
)

// depthVariants are the fixed truncation depths written alongside the full
// snapshot, each under its own latest-value key.
var depthVariants = [...]int{100, 20, 5}

// Sink is the pub/sub transport plus latest-value store the publisher writes
// to. It is treated as a reliable at-least-once sink; retry policy lives
// there, not here.
type Sink interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	SetLatest(ctx context.Context, key string, payload []byte) error
}

// Publisher emits enriched snapshots to their per-market destinations.
type Publisher struct {
	sink    Sink
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewPublisher creates a publisher writing to the given sink.
func NewPublisher(sink Sink, logger *slog.Logger, metrics *instrumentation.Metrics) *Publisher {
	return &Publisher{
		sink:    sink,
		logger:  logger.With("component", "publisher"),
		metrics: metrics,
	}
}

// Publish writes the full snapshot to the market's channel and latest-value
// key, plus depth-100/20/5 prefix truncations to their own keys. The five
// destinations are independent: a failed write is logged and counted, and the
// remaining writes still run. The returned error summarizes any failures; it
// never aborts the fan-out early.
func (p *Publisher) Publish(ctx context.Context, desc models.Descriptor, snap models.Snapshot) error {
	start := time.Now()

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}

	var failed int
	var firstErr error
	note := func(destination string, err error) {
		failed++
		if firstErr == nil {
			firstErr = err
		}
		p.logger.Error("sink_write_failed",
			"market", desc.MarketName,
			"destination", destination,
			"error", err,
		)
	}

	if err := p.sink.Publish(ctx, desc.Channel(), payload); err != nil {
		note(desc.Channel(), err)
	}
	if err := p.sink.SetLatest(ctx, desc.LatestKey(), payload); err != nil {
		note(desc.LatestKey(), err)
	}

	for _, depth := range depthVariants {
		key := desc.LatestKeyAtDepth(depth)
		truncated, err := json.Marshal(snap.Truncate(depth))
		if err != nil {
			note(key, fmt.Errorf("json marshal failed: %w", err))
			continue
		}
		if err := p.sink.SetLatest(ctx, key, truncated); err != nil {
			note(key, err)
		}
	}

	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.RecordPublishLatency(float64(elapsed.Milliseconds()))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sink writes failed: %w", failed, 2+len(depthVariants), firstErr)
	}

	p.logger.Debug("snapshot_published",
		"market", desc.MarketName,
		"channel", desc.Channel(),
		"size_bytes", len(payload),
		"latency_ms", elapsed.Milliseconds(),
	)
	return nil
}
