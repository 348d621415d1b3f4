// Package pipeline drives the per-cycle snapshot flow for every configured
// market: fetch, format, divergence check, change gate, publish, then
// market-slot observation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viceclone/dlob-server/internal/format"
	"github.com/viceclone/dlob-server/internal/instrumentation"
	"github.com/viceclone/dlob-server/internal/models"
	"github.com/viceclone/dlob-server/internal/monitor"
	"github.com/viceclone/dlob-server/internal/publish"
)

// Input is one market's upstream bundle for one cycle: the raw book plus the
// oracle's view and the metadata market slot.
type Input struct {
	Book       models.RawLadder
	Oracle     models.OracleData
	MarketSlot uint64
}

// Source supplies the upstream bundle for a market. A nil Input with a nil
// error means the upstream aggregator has not produced a snapshot yet; that
// market is skipped for the cycle. Implementations receive the full
// per-market config so aggregation settings travel with the request.
type Source interface {
	Fetch(ctx context.Context, cfg models.PublishConfig) (*Input, error)
}

// stageError tags a recoverable per-market error with the pipeline stage it
// came from, for logs and metric labels.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

// Config wires an orchestrator.
type Config struct {
	Markets   []models.PublishConfig
	Source    Source
	Monitor   *monitor.Monitor
	Detector  *publish.Detector
	Publisher *publish.Publisher
	Interval  time.Duration
}

// Orchestrator iterates the configured markets once per refresh cycle.
// Recoverable errors are absorbed at the per-market boundary; only the
// kill-switch conditions escape Run, as *monitor.FatalError.
type Orchestrator struct {
	markets   []models.PublishConfig
	source    Source
	monitor   *monitor.Monitor
	detector  *publish.Detector
	publisher *publish.Publisher
	interval  time.Duration

	logger  *slog.Logger
	metrics *instrumentation.Metrics

	cycle uint64
}

// New creates an orchestrator.
func New(cfg Config, logger *slog.Logger, metrics *instrumentation.Metrics) *Orchestrator {
	return &Orchestrator{
		markets:   cfg.Markets,
		source:    cfg.Source,
		monitor:   cfg.Monitor,
		detector:  cfg.Detector,
		publisher: cfg.Publisher,
		interval:  cfg.Interval,
		logger:    logger.With("component", "pipeline"),
		metrics:   metrics,
	}
}

// Run drives one cycle per refresh interval until the context is cancelled or
// a kill-switch condition fires. The first cycle runs immediately. Cycles do
// not overlap; a tick that arrives mid-cycle is coalesced by the ticker.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	if err := o.RunCycle(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.RunCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// RunCycle processes every configured market once. A *monitor.FatalError
// aborts the cycle immediately; everything else is logged and counted, and
// the remaining markets still run.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	start := time.Now()
	o.cycle++

	for _, cfg := range o.markets {
		err := o.processMarket(ctx, cfg, start)
		if err == nil {
			continue
		}

		var fatal *monitor.FatalError
		if errors.As(err, &fatal) {
			return err
		}

		stage := "process"
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
		}
		o.logger.Error("market_error",
			"market", cfg.Market.MarketName,
			"cycle", o.cycle,
			"stage", stage,
			"error", err,
		)
		if o.metrics != nil {
			o.metrics.RecordMarketError(cfg.Market.Label(), stage)
		}
	}

	elapsed := time.Since(start)
	if o.metrics != nil {
		o.metrics.RecordCycle(float64(elapsed.Milliseconds()))
	}
	o.logger.Debug("cycle_completed",
		"cycle", o.cycle,
		"markets", len(o.markets),
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

// processMarket runs the pipeline for a single market. Sink failures are
// counted and logged but do not stop the market-slot observation below; the
// monitor's bookkeeping runs every cycle regardless of publish outcome.
func (o *Orchestrator) processMarket(ctx context.Context, cfg models.PublishConfig, now time.Time) error {
	in, err := o.source.Fetch(ctx, cfg)
	if err != nil {
		return &stageError{stage: "fetch", err: err}
	}
	if in == nil {
		o.logger.Debug("snapshot_unavailable", "market", cfg.Market.MarketName)
		return nil
	}

	bids, asks := format.Ladders(in.Book, cfg.Grouping, cfg.Depth)
	snap := models.Snapshot{
		MarketName:  cfg.Market.MarketName,
		MarketType:  cfg.Market.MarketType,
		MarketIndex: cfg.Market.MarketIndex,
		Ts:          now.UnixMilli(),
		Slot:        in.Book.Slot,
		Bids:        bids,
		Asks:        asks,
		Oracle:      in.Oracle,
		MarketSlot:  in.MarketSlot,
	}

	if err := o.monitor.CheckDivergence(cfg.Market, in.Book.Slot, in.Oracle.Slot); err != nil {
		return err
	}

	if o.detector.ShouldPublish(cfg, snap) {
		if err := o.publisher.Publish(ctx, cfg.Market, snap); err != nil {
			o.logger.Error("publish_failed",
				"market", cfg.Market.MarketName,
				"error", err,
			)
			if o.metrics != nil {
				o.metrics.RecordMarketError(cfg.Market.Label(), "publish")
			}
		} else if o.metrics != nil {
			o.metrics.RecordSnapshotPublished(cfg.Market.Label())
		}
	} else {
		o.logger.Debug("snapshot_suppressed", "market", cfg.Market.MarketName)
		if o.metrics != nil {
			o.metrics.RecordSnapshotSuppressed(cfg.Market.Label())
		}
	}

	return o.monitor.ObserveMarketSlot(cfg.Market, in.MarketSlot, now)
}
