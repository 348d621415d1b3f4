package models

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// RawLevel is one order-book level as received from the upstream aggregator.
type RawLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// RawLadder is the upstream L2 snapshot for one market: bids sorted
// highest-to-lowest, asks lowest-to-highest, plus the book's logical clock.
// Produced fresh every refresh cycle and not retained.
type RawLadder struct {
	Bids []RawLevel
	Asks []RawLevel
	Slot uint64
}

// Level is one formatted order-book level. Prices and sizes are base-10
// strings; on-chain quantities exceed float64 mantissa range.
type Level struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OracleData carries the oracle's view of the market at fetch time.
type OracleData struct {
	Price      decimal.Decimal `json:"price"`
	Slot       uint64          `json:"slot"`
	Confidence decimal.Decimal `json:"confidence"`
	Ts         int64           `json:"ts"` // unix ms, from the oracle feed
}

// Snapshot is the enriched, formatted order-book snapshot published for one
// market on one cycle. Immutable once built; enrichment produces new values
// rather than mutating in place.
type Snapshot struct {
	MarketName  string     `json:"marketName"`
	MarketType  MarketType `json:"marketType"`
	MarketIndex int        `json:"marketIndex"`
	Ts          int64      `json:"ts"`   // unix ms, stamped per cycle
	Slot        uint64     `json:"slot"` // book slot, captured before formatting
	Bids        []Level    `json:"bids"`
	Asks        []Level    `json:"asks"`
	Oracle      OracleData `json:"oracleData"`
	MarketSlot  uint64     `json:"marketSlot"` // metadata logical clock, distinct from Slot
}

// Truncate returns a copy of the snapshot with each side limited to depth
// levels. The result is always a prefix of the original ladders; order is
// preserved. Negative depth returns the snapshot unchanged.
func (s Snapshot) Truncate(depth int) Snapshot {
	if depth < 0 {
		return s
	}
	if depth < len(s.Bids) {
		s.Bids = s.Bids[:depth]
	}
	if depth < len(s.Asks) {
		s.Asks = s.Asks[:depth]
	}
	return s
}

// ContentDigest returns a digest of the snapshot's content for change
// detection. The wall-clock Ts stamp is excluded so that two snapshots built
// from identical upstream data on different cycles compare equal.
func (s Snapshot) ContentDigest() uint64 {
	d := xxhash.New()
	writeField(d, s.MarketName)
	writeField(d, string(s.MarketType))
	writeField(d, strconv.Itoa(s.MarketIndex))
	writeField(d, strconv.FormatUint(s.Slot, 10))
	writeField(d, strconv.FormatUint(s.MarketSlot, 10))
	writeField(d, s.Oracle.Price.String())
	writeField(d, strconv.FormatUint(s.Oracle.Slot, 10))
	writeField(d, s.Oracle.Confidence.String())
	writeField(d, strconv.FormatInt(s.Oracle.Ts, 10))
	writeLevels(d, s.Bids)
	writeLevels(d, s.Asks)
	return d.Sum64()
}

func writeField(d *xxhash.Digest, s string) {
	d.WriteString(s)
	d.Write([]byte{0})
}

func writeLevels(d *xxhash.Digest, levels []Level) {
	d.WriteString(strconv.Itoa(len(levels)))
	d.Write([]byte{0x1e})
	for _, l := range levels {
		writeField(d, l.Price)
		writeField(d, l.Size)
	}
}
