// Package format converts raw order-book ladders into their canonical
// published representation: optionally price-grouped, depth-truncated, and
// rendered as decimal strings.
package format

import (
	"github.com/shopspring/decimal"

	"github.com/viceclone/dlob-server/internal/models"
)

// Ladders formats both sides of a raw ladder. With grouping > 0, prices are
// bucketed to multiples of the grouping size (bids round down, asks round up,
// the direction favorable to the maker) and sizes within a bucket are summed.
// Each side is then truncated to depth levels; depth < 0 means unlimited.
//
// The book slot is not part of the result; the caller captures it separately
// when it builds the snapshot envelope.
func Ladders(raw models.RawLadder, grouping int64, depth int) (bids, asks []models.Level) {
	rawBids := raw.Bids
	rawAsks := raw.Asks
	if grouping > 0 {
		g := decimal.NewFromInt(grouping)
		rawBids = groupLevels(rawBids, g, false)
		rawAsks = groupLevels(rawAsks, g, true)
	}
	return render(truncate(rawBids, depth)), render(truncate(rawAsks, depth))
}

// groupLevels buckets prices to multiples of g, summing sizes per bucket.
// Input is assumed in book order (bids descending, asks ascending), so equal
// buckets are adjacent and relative order survives. Bucketing uses Mod rather
// than Div to stay exact at any precision.
func groupLevels(levels []models.RawLevel, g decimal.Decimal, roundUp bool) []models.RawLevel {
	if len(levels) == 0 {
		return levels
	}
	out := make([]models.RawLevel, 0, len(levels))
	for _, lvl := range levels {
		rem := lvl.Price.Mod(g)
		bucket := lvl.Price.Sub(rem)
		if roundUp && !rem.IsZero() {
			bucket = bucket.Add(g)
		}
		if n := len(out); n > 0 && out[n-1].Price.Equal(bucket) {
			out[n-1].Size = out[n-1].Size.Add(lvl.Size)
			continue
		}
		out = append(out, models.RawLevel{Price: bucket, Size: lvl.Size})
	}
	return out
}

func truncate(levels []models.RawLevel, depth int) []models.RawLevel {
	if depth < 0 || depth >= len(levels) {
		return levels
	}
	return levels[:depth]
}

func render(levels []models.RawLevel) []models.Level {
	out := make([]models.Level, len(levels))
	for i, lvl := range levels {
		out[i] = models.Level{
			Price: lvl.Price.String(),
			Size:  lvl.Size.String(),
		}
	}
	return out
}
