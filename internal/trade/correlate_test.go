package trade

import (
	"testing"
	"time"

	"contextgate/internal/models"
)

func ctxAt(pair string, ts time.Time, note string) models.ContextRecord {
	return models.ContextRecord{Timestamp: ts, Pair: pair, Note: note}
}

func TestFindLatestContextPicksWithinLag(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []models.ContextRecord{
		ctxAt("BTCUSDT", now.Add(-45*time.Minute), "old"),
		ctxAt("BTCUSDT", now.Add(-10*time.Minute), "recent"),
	}
	got := FindLatestContext(records, "BTCUSDT", now, 30*time.Minute)
	if got == nil || got.Note != "recent" {
		t.Fatalf("expected the t-10m record, got %+v", got)
	}

	// Order of the slice does not matter.
	reversed := []models.ContextRecord{records[1], records[0]}
	if got := FindLatestContext(reversed, "BTCUSDT", now, 30*time.Minute); got == nil || got.Note != "recent" {
		t.Fatalf("expected the t-10m record, got %+v", got)
	}
}

func TestFindLatestContextNone(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		records []models.ContextRecord
	}{
		{"empty", nil},
		{"too old", []models.ContextRecord{ctxAt("BTCUSDT", now.Add(-31*time.Minute), "")}},
		{"other pair", []models.ContextRecord{ctxAt("ETHUSDT", now.Add(-5*time.Minute), "")}},
		{"future", []models.ContextRecord{ctxAt("BTCUSDT", now.Add(time.Minute), "")}},
	}
	for _, tt := range tests {
		if got := FindLatestContext(tt.records, "BTCUSDT", now, 30*time.Minute); got != nil {
			t.Errorf("%s: expected nil, got %+v", tt.name, got)
		}
	}
}

func TestFindLatestContextBoundaries(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []models.ContextRecord{
		ctxAt("BTCUSDT", now.Add(-30*time.Minute), "edge"),
	}
	if got := FindLatestContext(records, "BTCUSDT", now, 30*time.Minute); got == nil {
		t.Fatal("a record exactly max lag old qualifies")
	}
	records = append(records, ctxAt("BTCUSDT", now, "same minute"))
	if got := FindLatestContext(records, "BTCUSDT", now, 30*time.Minute); got == nil || got.Note != "same minute" {
		t.Fatalf("a record at the query time qualifies, got %+v", got)
	}
}

func TestFindLatestContextTieBreakPrefersLaterAppend(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Add(-5 * time.Minute)
	records := []models.ContextRecord{
		ctxAt("BTCUSDT", ts, "first"),
		ctxAt("BTCUSDT", ts, "second"),
	}
	if got := FindLatestContext(records, "BTCUSDT", now, 30*time.Minute); got == nil || got.Note != "second" {
		t.Fatalf("expected later-appended record, got %+v", got)
	}
}

func TestFindLatestContextReturnsCopy(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []models.ContextRecord{ctxAt("BTCUSDT", now, "orig")}
	got := FindLatestContext(records, "BTCUSDT", now, DefaultMaxLag)
	got.Note = "changed"
	if records[0].Note != "orig" {
		t.Fatal("returned record aliases the input slice")
	}
}
