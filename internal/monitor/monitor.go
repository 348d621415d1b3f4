// Package monitor owns the per-market consistency state and the two
// kill-switch checks: book/oracle slot divergence and market-slot staleness.
// Fatal conditions are returned as typed errors; the actual process exit
// happens at a single point in main.
package monitor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/viceclone/dlob-server/internal/instrumentation"
	"github.com/viceclone/dlob-server/internal/models"
)

// Condition identifies which kill-switch check failed.
type Condition string

const (
	ConditionSlotDivergence  Condition = "slot_divergence"
	ConditionStaleMarketSlot Condition = "stale_market_slot"
)

// FatalError reports a kill-switch condition. Both conditions are
// process-wide: once any monitored market trips one, the process is assumed
// unhealthy as a unit and must terminate with a non-zero exit.
type FatalError struct {
	Condition  Condition
	Market     models.Descriptor
	BookSlot   uint64
	OracleSlot uint64
	MarketSlot uint64
	FrozenFor  time.Duration
}

func (e *FatalError) Error() string {
	switch e.Condition {
	case ConditionSlotDivergence:
		return fmt.Sprintf("%s %s: book slot %d diverged from oracle slot %d",
			e.Condition, e.Market.MarketName, e.BookSlot, e.OracleSlot)
	case ConditionStaleMarketSlot:
		return fmt.Sprintf("%s %s: market slot %d unchanged for %s",
			e.Condition, e.Market.MarketName, e.MarketSlot, e.FrozenFor)
	default:
		return fmt.Sprintf("%s %s", e.Condition, e.Market.MarketName)
	}
}

// Config holds the kill-switch thresholds. The two staleness windows are
// independent values per market class; neither is assumed larger.
type Config struct {
	SlotDiffThreshold   uint64
	SpotStalenessWindow time.Duration
	PerpStalenessWindow time.Duration
}

// Monitor maintains one state entry per market: the digest of the last
// published snapshot, the last seen market slot, and when that slot last
// changed. Entries are created lazily on first contact and live for the
// process lifetime.
type Monitor struct {
	mu      sync.RWMutex
	entries map[models.MarketKey]*marketState

	cfg     Config
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// marketState is one market's bookkeeping. Each entry carries its own lock
// so the pipeline and the ops surface never contend across markets.
type marketState struct {
	mu   sync.Mutex
	desc models.Descriptor

	digest    uint64
	hasDigest bool

	seeded         bool
	marketSlot     uint64
	slotObservedAt time.Time // last time marketSlot changed, not last seen
}

// New creates a monitor with the given thresholds.
func New(cfg Config, logger *slog.Logger, metrics *instrumentation.Metrics) *Monitor {
	return &Monitor{
		entries: make(map[models.MarketKey]*marketState),
		cfg:     cfg,
		logger:  logger.With("component", "monitor"),
		metrics: metrics,
	}
}

// state returns the entry for a market, creating it on first contact.
func (m *Monitor) state(desc models.Descriptor) *marketState {
	key := desc.Key()

	m.mu.RLock()
	st, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		return st
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok = m.entries[key]; ok {
		return st
	}
	st = &marketState{desc: desc}
	m.entries[key] = st
	return st
}

// CheckDivergence compares the book's slot against the oracle's reported
// slot. A gap above the configured threshold means the book is being built
// from state that has drifted too far from the oracle's view of the chain;
// serving it is worse than serving nothing, so the result is fatal.
func (m *Monitor) CheckDivergence(desc models.Descriptor, bookSlot, oracleSlot uint64) error {
	diff := slotDiff(bookSlot, oracleSlot)
	if m.metrics != nil {
		m.metrics.RecordSlotDivergence(desc.Label(), float64(diff))
	}
	if diff <= m.cfg.SlotDiffThreshold {
		return nil
	}

	m.logger.Error("slot_divergence_detected",
		"market", desc.MarketName,
		"book_slot", bookSlot,
		"oracle_slot", oracleSlot,
		"diff", diff,
		"threshold", m.cfg.SlotDiffThreshold,
	)
	return &FatalError{
		Condition:  ConditionSlotDivergence,
		Market:     desc,
		BookSlot:   bookSlot,
		OracleSlot: oracleSlot,
	}
}

// ObserveMarketSlot runs the staleness check for one market and updates its
// slot bookkeeping. The first observation seeds the entry with no check.
// Afterwards, a changed slot refreshes the value and its change timestamp; an
// unchanged slot older than the market class's staleness window is fatal, the
// market's logical clock being frozen even though refreshes keep arriving.
func (m *Monitor) ObserveMarketSlot(desc models.Descriptor, marketSlot uint64, now time.Time) error {
	st := m.state(desc)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.seeded {
		st.seeded = true
		st.marketSlot = marketSlot
		st.slotObservedAt = now
		m.logger.Debug("market_state_seeded",
			"market", desc.MarketName,
			"market_slot", marketSlot,
		)
		return nil
	}

	if marketSlot != st.marketSlot {
		st.marketSlot = marketSlot
		st.slotObservedAt = now
		return nil
	}

	window := m.windowFor(desc.MarketType)
	frozen := now.Sub(st.slotObservedAt)
	if frozen <= window {
		return nil
	}

	m.logger.Error("market_slot_stale",
		"market", desc.MarketName,
		"market_type", desc.MarketType,
		"market_slot", marketSlot,
		"frozen_ms", frozen.Milliseconds(),
		"window_ms", window.Milliseconds(),
	)
	return &FatalError{
		Condition:  ConditionStaleMarketSlot,
		Market:     desc,
		MarketSlot: marketSlot,
		FrozenFor:  frozen,
	}
}

// SwapDigest stores the content digest of a snapshot about to be published
// and reports whether it differed from the stored one (or none was stored).
// The swap is unconditional on a true result: suppression is best-effort, not
// transactional, so a later publish failure does not roll it back.
func (m *Monitor) SwapDigest(desc models.Descriptor, digest uint64) bool {
	st := m.state(desc)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.hasDigest && st.digest == digest {
		return false
	}
	st.digest = digest
	st.hasDigest = true
	return true
}

// MarketStatus is a read-only view of one market's state for the ops surface.
type MarketStatus struct {
	Market         models.Descriptor `json:"market"`
	LastMarketSlot uint64            `json:"lastMarketSlot"`
	SlotChangedAt  int64             `json:"slotChangedAt"` // unix ms
	SlotAgeMs      int64             `json:"slotAgeMs"`
}

// Status returns the current view of one market's state. The second return
// is false until the market has been observed at least once.
func (m *Monitor) Status(key models.MarketKey, now time.Time) (MarketStatus, bool) {
	m.mu.RLock()
	st, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return MarketStatus{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.seeded {
		return MarketStatus{}, false
	}
	return MarketStatus{
		Market:         st.desc,
		LastMarketSlot: st.marketSlot,
		SlotChangedAt:  st.slotObservedAt.UnixMilli(),
		SlotAgeMs:      now.Sub(st.slotObservedAt).Milliseconds(),
	}, true
}

func (m *Monitor) windowFor(t models.MarketType) time.Duration {
	if t == models.MarketTypeSpot {
		return m.cfg.SpotStalenessWindow
	}
	return m.cfg.PerpStalenessWindow
}

func slotDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
