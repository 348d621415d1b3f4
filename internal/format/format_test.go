package format

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/viceclone/dlob-server/internal/models"
)

func level(price, size string) models.RawLevel {
	return models.RawLevel{
		Price: decimal.RequireFromString(price),
		Size:  decimal.RequireFromString(size),
	}
}

func TestLadders_RendersDecimalStrings(t *testing.T) {
	raw := models.RawLadder{
		Bids: []models.RawLevel{level("100", "5"), level("99", "3")},
		Asks: []models.RawLevel{level("101", "4")},
		Slot: 500,
	}

	bids, asks := Ladders(raw, 0, -1)

	if len(bids) != 2 || len(asks) != 1 {
		t.Fatalf("Expected 2 bids and 1 ask, got %d and %d", len(bids), len(asks))
	}
	if bids[0].Price != "100" || bids[0].Size != "5" {
		t.Errorf("Expected best bid 100/5, got %s/%s", bids[0].Price, bids[0].Size)
	}
	if bids[1].Price != "99" || bids[1].Size != "3" {
		t.Errorf("Expected second bid 99/3, got %s/%s", bids[1].Price, bids[1].Size)
	}
	if asks[0].Price != "101" || asks[0].Size != "4" {
		t.Errorf("Expected best ask 101/4, got %s/%s", asks[0].Price, asks[0].Size)
	}
}

func TestLadders_PreservesPrecisionBeyondFloat64(t *testing.T) {
	// 2^53 is the float64 mantissa limit; these values are well past it.
	price := "123456789012345678901234567.000000001"
	size := "98765432109876543210.5"
	raw := models.RawLadder{
		Bids: []models.RawLevel{level(price, size)},
	}

	bids, _ := Ladders(raw, 0, -1)

	if bids[0].Price != price {
		t.Errorf("Price lost precision: %s", bids[0].Price)
	}
	if bids[0].Size != size {
		t.Errorf("Size lost precision: %s", bids[0].Size)
	}
}

func TestLadders_TruncationIsPrefix(t *testing.T) {
	raw := models.RawLadder{
		Bids: []models.RawLevel{
			level("104", "1"), level("103", "2"), level("102", "3"),
			level("101", "4"), level("100", "5"),
		},
		Asks: []models.RawLevel{level("105", "1"), level("106", "2")},
	}

	full, _ := Ladders(raw, 0, -1)
	bids, asks := Ladders(raw, 0, 3)

	if len(bids) != 3 {
		t.Fatalf("Expected 3 bids, got %d", len(bids))
	}
	for i := range bids {
		if bids[i] != full[i] {
			t.Errorf("Truncated bid %d is not a prefix: %v vs %v", i, bids[i], full[i])
		}
	}

	// Depth beyond the ladder keeps everything
	if len(asks) != 2 {
		t.Errorf("Expected 2 asks for depth 3, got %d", len(asks))
	}
}

func TestLadders_DepthZeroEmptiesLadder(t *testing.T) {
	raw := models.RawLadder{
		Bids: []models.RawLevel{level("100", "5")},
		Asks: []models.RawLevel{level("101", "4")},
	}

	bids, asks := Ladders(raw, 0, 0)

	if len(bids) != 0 || len(asks) != 0 {
		t.Errorf("Expected empty ladders at depth 0, got %d bids and %d asks", len(bids), len(asks))
	}
}

func TestLadders_GroupingBidsRoundDown(t *testing.T) {
	raw := models.RawLadder{
		Bids: []models.RawLevel{level("102.7", "1"), level("101.2", "2"), level("99.8", "3")},
	}

	bids, _ := Ladders(raw, 5, -1)

	if len(bids) != 2 {
		t.Fatalf("Expected 2 buckets, got %d", len(bids))
	}
	if bids[0].Price != "100" || bids[0].Size != "3" {
		t.Errorf("Expected bucket 100/3, got %s/%s", bids[0].Price, bids[0].Size)
	}
	if bids[1].Price != "95" || bids[1].Size != "3" {
		t.Errorf("Expected bucket 95/3, got %s/%s", bids[1].Price, bids[1].Size)
	}
}

func TestLadders_GroupingAsksRoundUp(t *testing.T) {
	raw := models.RawLadder{
		Asks: []models.RawLevel{level("100.1", "1"), level("103", "2"), level("106", "3")},
	}

	_, asks := Ladders(raw, 5, -1)

	if len(asks) != 2 {
		t.Fatalf("Expected 2 buckets, got %d", len(asks))
	}
	if asks[0].Price != "105" || asks[0].Size != "3" {
		t.Errorf("Expected bucket 105/3, got %s/%s", asks[0].Price, asks[0].Size)
	}
	if asks[1].Price != "110" || asks[1].Size != "3" {
		t.Errorf("Expected bucket 110/3, got %s/%s", asks[1].Price, asks[1].Size)
	}
}

func TestLadders_GroupingExactMultipleStays(t *testing.T) {
	raw := models.RawLadder{
		Bids: []models.RawLevel{level("100", "1")},
		Asks: []models.RawLevel{level("105", "2")},
	}

	bids, asks := Ladders(raw, 5, -1)

	// Prices already on a bucket boundary must not move in either direction.
	if bids[0].Price != "100" {
		t.Errorf("Expected bid bucket 100, got %s", bids[0].Price)
	}
	if asks[0].Price != "105" {
		t.Errorf("Expected ask bucket 105, got %s", asks[0].Price)
	}
}

func TestLadders_GroupingConservesSize(t *testing.T) {
	levels := []models.RawLevel{
		level("102.7", "1.5"), level("101.2", "2.25"), level("100.9", "0.125"),
		level("99.8", "3"), level("95.1", "10"),
	}
	raw := models.RawLadder{Bids: levels}

	total := decimal.Zero
	for _, lvl := range levels {
		total = total.Add(lvl.Size)
	}

	bids, _ := Ladders(raw, 5, -1)

	sum := decimal.Zero
	for _, lvl := range bids {
		sum = sum.Add(decimal.RequireFromString(lvl.Size))
	}
	if !sum.Equal(total) {
		t.Errorf("Expected total size %s, got %s", total, sum)
	}
}

func TestLadders_GroupingThenTruncation(t *testing.T) {
	raw := models.RawLadder{
		Bids: []models.RawLevel{
			level("109", "1"), level("104", "1"), level("99", "1"), level("94", "1"),
		},
	}

	bids, _ := Ladders(raw, 5, 2)

	if len(bids) != 2 {
		t.Fatalf("Expected 2 bids, got %d", len(bids))
	}
	// Grouping runs before truncation: buckets 105, 100, 95, 90 -> keep 105, 100
	if bids[0].Price != "105" || bids[1].Price != "100" {
		t.Errorf("Expected buckets 105 and 100, got %s and %s", bids[0].Price, bids[1].Price)
	}
}

func TestLadders_EmptySides(t *testing.T) {
	bids, asks := Ladders(models.RawLadder{}, 5, 10)

	if len(bids) != 0 || len(asks) != 0 {
		t.Errorf("Expected empty output for empty ladder, got %d bids and %d asks", len(bids), len(asks))
	}
}
