package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/viceclone/dlob-server/internal/config"
	"github.com/viceclone/dlob-server/internal/instrumentation"
	"github.com/viceclone/dlob-server/internal/monitor"
	"github.com/viceclone/dlob-server/internal/ops"
	"github.com/viceclone/dlob-server/internal/pipeline"
	"github.com/viceclone/dlob-server/internal/publish"
	"github.com/viceclone/dlob-server/internal/source"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Load per-market publish configs
	markets, err := config.LoadMarkets(cfg.MarketsFile)
	if err != nil {
		logger.Error("failed to load markets", "error", err)
		os.Exit(1)
	}

	logger.Info("service_starting",
		"redis_url", cfg.RedisURL,
		"markets", len(markets),
		"refresh_interval_ms", cfg.RefreshIntervalMs,
		"slot_diff_threshold", cfg.SlotDiffThreshold,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect Redis; the sink and the source share one pooled client
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid redis URL", "error", err)
		os.Exit(1)
	}
	if cfg.RedisPassword != "" {
		opt.Password = cfg.RedisPassword
	}
	client := redis.NewClient(opt)
	defer client.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	err = client.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		logger.Error("redis ping failed", "error", err)
		os.Exit(1)
	}

	logger.Info("redis_connected")

	// Initialize Prometheus metrics
	metrics := instrumentation.NewMetrics()

	mon := monitor.New(monitor.Config{
		SlotDiffThreshold:   cfg.SlotDiffThreshold,
		SpotStalenessWindow: cfg.SpotStalenessWindow,
		PerpStalenessWindow: cfg.PerpStalenessWindow,
	}, logger, metrics)

	orch := pipeline.New(pipeline.Config{
		Markets:   markets,
		Source:    source.NewRedis(client, cfg.SourceKeyPrefix, logger),
		Monitor:   mon,
		Detector:  publish.NewDetector(mon),
		Publisher: publish.NewPublisher(publish.NewRedisSink(client, cfg.LatestTTL), logger, metrics),
		Interval:  cfg.RefreshInterval,
	}, logger, metrics)

	logger.Info("pipeline_initialized")

	// Ops HTTP server: /health, /markets, /metrics
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.OpsPort),
		Handler:      ops.NewRouter(markets, mon, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("ops_server_listening", "port", cfg.OpsPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops_server_failed", "error", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Run the pipeline in a goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("pipeline_starting")
		if err := orch.Run(ctx); err != nil && err != context.Canceled {
			errChan <- err
		}
	}()

	logger.Info("service_running", "status", "healthy")

	// Wait for shutdown signal or pipeline error. Kill-switch conditions
	// arrive here as *monitor.FatalError; this is the single exit point.
	exitCode := 0
	select {
	case sig := <-sigChan:
		logger.Info("shutdown_signal_received", "signal", sig.String())
		cancel()
	case err := <-errChan:
		var fatal *monitor.FatalError
		if errors.As(err, &fatal) {
			logger.Error("kill_switch_triggered",
				"condition", string(fatal.Condition),
				"market", fatal.Market.MarketName,
				"error", err,
			)
		} else {
			logger.Error("pipeline_error", "error", err)
		}
		exitCode = 1
		cancel()
	}

	// Graceful ops server shutdown
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}

	logger.Info("service_stopped")

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
}
