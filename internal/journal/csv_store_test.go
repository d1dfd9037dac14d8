package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"contextgate/internal/models"
)

var wib = time.FixedZone("WIB", 7*3600)

func newStore(t *testing.T) (*CSVStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "context_gate_journal.csv")
	now := time.Date(2025, 3, 1, 10, 30, 15, 0, wib)
	return NewCSVStore(path, wib, func() time.Time { return now }), path
}

func record(pair string, ts time.Time, verdict models.Verdict) models.ContextRecord {
	return models.ContextRecord{
		Timestamp: ts,
		Pair:      pair,
		InstID:    strings.TrimSuffix(pair, "USDT") + "-USDT-SWAP",
		Session:   models.SessionAsia,
		ContextLabels: models.ContextLabels{
			Volume:     models.VolumeAboveUsual,
			Volatility: models.VolatilityCompressed,
			OI:         models.OIBuilding,
			Behavior:   models.BehaviorAccumulationLike,
			Verdict:    verdict,
		},
		Decision: models.DecisionSkipped,
		Note:     "note, with comma",
	}
}

func TestAppendLoadRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 15, 0, 0, wib)

	second := record("ETHUSDT", base.Add(6*time.Hour), models.VerdictNoTrade)
	second.Session = models.SessionLondon
	second.ContextLabels = models.ContextLabels{
		Volume:     models.VolumeBelowUsual,
		Volatility: models.VolatilityExpanding,
		OI:         models.OIUnwinding,
		Behavior:   models.BehaviorExitLike,
		Verdict:    models.VerdictNoTrade,
	}
	second.Note = ""

	third := record("SOLUSDT", base.Add(11*time.Hour), models.VerdictTradeable)
	third.Session = models.SessionNewYork
	third.ContextLabels.Volume = models.VolumeNormal
	third.ContextLabels.Volatility = models.VolatilityRangeNormal
	third.ContextLabels.OI = models.OIInert
	third.ContextLabels.Behavior = models.BehaviorHealthyParticipation
	third.Decision = models.DecisionTaken
	third.Note = "line one\nline \"two\""

	fourth := record("BTCUSDT", base.Add(15*time.Hour), models.VerdictWatchOnly)
	fourth.Session = models.SessionOffHours
	fourth.ContextLabels.Behavior = models.BehaviorMixed

	want := []models.ContextRecord{
		record("BTCUSDT", base, models.VerdictWatchOnly),
		second,
		third,
		fourth,
	}
	for _, rec := range want {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Load(ctx, Filter{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		g, w := got[i], want[i]
		if !g.Timestamp.Equal(w.Timestamp) {
			t.Errorf("record %d: timestamp %v want %v", i, g.Timestamp, w.Timestamp)
		}
		g.Timestamp, w.Timestamp = time.Time{}, time.Time{}
		if g != w {
			t.Errorf("record %d: got %+v want %+v", i, g, w)
		}
	}
}

func TestTimestampStoredAtMinutePrecisionInLocalZone(t *testing.T) {
	store, path := newStore(t)
	ts := time.Date(2025, 3, 1, 2, 15, 42, 0, time.UTC)
	if err := store.Append(context.Background(), record("BTCUSDT", ts, models.VerdictTradeable)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "2025-03-01 09:15,BTCUSDT") {
		t.Fatalf("unexpected file content:\n%s", data)
	}
}

func TestLoadFilter(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, wib)

	for i, pair := range []string{"BTCUSDT", "ETHUSDT", "BTCUSDT", "BTCUSDT"} {
		if err := store.Append(ctx, record(pair, base.Add(time.Duration(i)*15*time.Minute), models.VerdictTradeable)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Load(ctx, Filter{Pair: "BTCUSDT", Until: base.Add(30 * time.Minute)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(base) || !got[1].Timestamp.Equal(base.Add(30*time.Minute)) {
		t.Fatalf("records out of insertion order: %v %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestSchemaMismatchBacksUpAndResets(t *testing.T) {
	store, path := newStore(t)
	legacy := "datetime_wib,pair,rv_label,rvol_label,oi_label,behavior,verdict,decision\n" +
		"2024-12-01 10:00,BTCUSDT,NORMAL,NORMAL,OI_INERT,MIXED,✅ Layak Dipantau,SKIPPED\n" +
		"2024-12-01 11:00,ETHUSDT,ABOVE_USUAL,EXPANDING,OI_BUILDING,HEALTHY_PARTICIPATION,✅ Layak Dipantau,TAKEN\n" +
		"2024-12-01 12:00,SOLUSDT,BELOW_USUAL,NORMAL,OI_INERT,LOW_ENGAGEMENT,⛔ Tidak Layak Ditrade,SKIPPED\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := store.MigrateIfNeeded(context.Background())
	if err != nil {
		t.Fatalf("MigrateIfNeeded: %v", err)
	}
	if !m.Migrated || m.BackupRows != 3 {
		t.Fatalf("unexpected migration %+v", m)
	}
	if want := BackupPath(path, time.Date(2025, 3, 1, 10, 30, 15, 0, wib)); m.BackupPath != want {
		t.Fatalf("backup path %s, want %s", m.BackupPath, want)
	}

	backup, err := os.Open(m.BackupPath)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer backup.Close()
	r := csv.NewReader(backup)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if len(rows)-1 != 3 {
		t.Fatalf("backup has %d data rows, want 3", len(rows)-1)
	}

	got, err := store.Load(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Load after reset: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fresh store should be empty, got %d", len(got))
	}

	again, err := store.MigrateIfNeeded(context.Background())
	if err != nil || again.Migrated {
		t.Fatalf("second migration should be a no-op: %+v %v", again, err)
	}
}

func TestMissingFileIsCreated(t *testing.T) {
	store, path := newStore(t)
	m, err := store.MigrateIfNeeded(context.Background())
	if err != nil || m.Migrated {
		t.Fatalf("unexpected result %+v %v", m, err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != strings.Join(Columns, ",") {
		t.Fatalf("unexpected header %q", data)
	}
}

func TestAppendRejectsInvalidRecord(t *testing.T) {
	store, _ := newStore(t)
	rec := record("BTCUSDT", time.Now(), models.VerdictTradeable)
	rec.Decision = "MAYBE"
	if err := store.Append(context.Background(), rec); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAppendWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := NewCSVStore(filepath.Join(blocker, "journal.csv"), wib, nil)

	err := store.Append(context.Background(), record("BTCUSDT", time.Now(), models.VerdictTradeable))
	if !errors.Is(err, models.ErrStoreWrite) {
		t.Fatalf("expected ErrStoreWrite, got %v", err)
	}
}

func TestBackupPath(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := BackupPath("data/context_gate_journal.csv", ts); got != "data/context_gate_journal.20250102-030405.bak.csv" {
		t.Fatalf("unexpected backup path %s", got)
	}
	if got := BackupPath("journal", ts); got != "journal.20250102-030405.bak" {
		t.Fatalf("unexpected backup path %s", got)
	}
}
