package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the snapshot pipeline.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	CycleDurationMs prometheus.Histogram

	SnapshotsPublished  *prometheus.CounterVec
	SnapshotsSuppressed *prometheus.CounterVec

	MarketErrors   *prometheus.CounterVec
	SlotDivergence *prometheus.GaugeVec

	PublishLatencyMs prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlob_cycles_total",
			Help: "Total number of completed refresh cycles",
		}),

		CycleDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlob_cycle_duration_ms",
			Help:    "Time to process one full pass over all markets in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		SnapshotsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlob_snapshots_published_total",
			Help: "Total number of snapshots published, by market",
		}, []string{"market"}),

		SnapshotsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlob_snapshots_suppressed_total",
			Help: "Total number of unchanged snapshots suppressed, by market",
		}, []string{"market"}),

		MarketErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlob_market_errors_total",
			Help: "Total number of recoverable per-market errors, by market and stage",
		}, []string{"market", "stage"}),

		SlotDivergence: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dlob_slot_divergence",
			Help: "Absolute difference between book slot and oracle slot, by market",
		}, []string{"market"}),

		PublishLatencyMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlob_publish_latency_ms",
			Help:    "Time to fan out one snapshot to all destinations in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

// RecordCycle records one completed refresh cycle and its duration.
func (m *Metrics) RecordCycle(durationMs float64) {
	m.CyclesTotal.Inc()
	m.CycleDurationMs.Observe(durationMs)
}

// RecordSnapshotPublished increments the publish counter for a market.
func (m *Metrics) RecordSnapshotPublished(market string) {
	m.SnapshotsPublished.WithLabelValues(market).Inc()
}

// RecordSnapshotSuppressed increments the suppression counter for a market.
func (m *Metrics) RecordSnapshotSuppressed(market string) {
	m.SnapshotsSuppressed.WithLabelValues(market).Inc()
}

// RecordMarketError increments the error counter for a market and stage.
func (m *Metrics) RecordMarketError(market, stage string) {
	m.MarketErrors.WithLabelValues(market, stage).Inc()
}

// RecordSlotDivergence records the current book/oracle slot gap for a market.
func (m *Metrics) RecordSlotDivergence(market string, diff float64) {
	m.SlotDivergence.WithLabelValues(market).Set(diff)
}

// RecordPublishLatency records the time taken to fan out one snapshot.
func (m *Metrics) RecordPublishLatency(latencyMs float64) {
	m.PublishLatencyMs.Observe(latencyMs)
}
