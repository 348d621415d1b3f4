package models

import "fmt"

// MarketType classifies a market as spot or perpetual.
type MarketType string

const (
	MarketTypeSpot MarketType = "spot"
	MarketTypePerp MarketType = "perp"
)

// Valid reports whether t is a known market type.
func (t MarketType) Valid() bool {
	return t == MarketTypeSpot || t == MarketTypePerp
}

// PublishMode controls whether a market publishes every cycle or only on change.
type PublishMode string

const (
	PublishAlways   PublishMode = "always"
	PublishOnChange PublishMode = "on_change"
)

// Valid reports whether m is a known publish mode.
func (m PublishMode) Valid() bool {
	return m == PublishAlways || m == PublishOnChange
}

// Descriptor identifies a configured market. Immutable after startup.
type Descriptor struct {
	MarketIndex int        `json:"marketIndex"` // e.g., 3
	MarketType  MarketType `json:"marketType"`  // spot, perp
	MarketName  string     `json:"marketName"`  // e.g., SOL-PERP
}

// MarketKey is the comparable identity used for state tables and lookups.
type MarketKey struct {
	Type  MarketType
	Index int
}

// Key returns the descriptor's state-table identity.
func (d Descriptor) Key() MarketKey {
	return MarketKey{Type: d.MarketType, Index: d.MarketIndex}
}

// Label returns the short form used in metric labels and logs, e.g. "perp_3".
func (d Descriptor) Label() string {
	return fmt.Sprintf("%s_%d", d.MarketType, d.MarketIndex)
}

// Channel returns the pub/sub channel name, e.g. "orderbook_perp_3".
func (d Descriptor) Channel() string {
	return fmt.Sprintf("orderbook_%s_%d", d.MarketType, d.MarketIndex)
}

// LatestKey returns the latest-value store key holding the full snapshot,
// e.g. "last_update_orderbook_perp_3".
func (d Descriptor) LatestKey() string {
	return fmt.Sprintf("last_update_orderbook_%s_%d", d.MarketType, d.MarketIndex)
}

// LatestKeyAtDepth returns the latest-value key for a depth-truncated copy,
// e.g. "last_update_orderbook_perp_3_depth_20".
func (d Descriptor) LatestKeyAtDepth(depth int) string {
	return fmt.Sprintf("%s_depth_%d", d.LatestKey(), depth)
}

// PublishConfig is the per-market publication configuration. Built once at
// startup from the markets file; immutable thereafter.
type PublishConfig struct {
	Market Descriptor `json:"market"`

	// Depth limits the published ladder per side. -1 means unlimited.
	Depth int `json:"depth"`

	// Grouping buckets prices to multiples of this size before truncation.
	// 0 disables grouping.
	Grouping int64 `json:"grouping"`

	Mode PublishMode `json:"publishMode"`

	// Upstream aggregation settings, forwarded to the snapshot source.
	IncludeSecondaryLiquidity bool     `json:"includeSecondaryLiquidity"`
	SecondaryOrderCap         int      `json:"secondaryOrderCap"`
	FallbackSources           []string `json:"fallbackSources,omitempty"`
}
