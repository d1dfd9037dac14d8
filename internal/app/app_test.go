package app

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	appconfig "contextgate/config"
	"contextgate/internal/journal"
	"contextgate/internal/models"
	"contextgate/internal/trade"
)

type stubFeed struct {
	candles []models.Candle
	ticker  *models.Ticker
	oi      models.OIHistory
}

func (f *stubFeed) FetchCandles(_ context.Context, instID, _ string, _ int) ([]models.Candle, error) {
	if instID != "BTC-USDT-SWAP" || len(f.candles) == 0 {
		return nil, models.ErrInsufficientData
	}
	return f.candles, nil
}

func (f *stubFeed) FetchTicker(_ context.Context, instID string) (*models.Ticker, error) {
	if instID != "BTC-USDT-SWAP" || f.ticker == nil {
		return nil, models.ErrInsufficientData
	}
	return f.ticker, nil
}

func (f *stubFeed) FetchOpenInterestHistory(_ context.Context, instID, _ string, _ int) (models.OIHistory, error) {
	if instID != "BTC-USDT-SWAP" || len(f.oi) == 0 {
		return nil, models.ErrInsufficientData
	}
	return f.oi, nil
}

// healthyFeed yields rvol 1.6, rv 2.0 and a rising open interest.
func healthyFeed() *stubFeed {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ranges := []float64{1, 1, 1, 1, 4}
	candles := make([]models.Candle, len(ranges))
	for i, r := range ranges {
		candles[i] = models.Candle{
			OpenTime:    start.Add(time.Duration(i) * 15 * time.Minute),
			Open:        100,
			High:        100 + r,
			Low:         100,
			Close:       100,
			BaseVolume:  1,
			QuoteVolume: 100,
		}
	}
	return &stubFeed{
		candles: candles,
		ticker:  &models.Ticker{InstID: "BTC-USDT-SWAP", Last: 101, QuoteVolume24h: 1000},
		oi: models.OIHistory{
			{Time: start, Value: 100},
			{Time: start.Add(time.Hour), Value: 150},
		},
	}
}

type recordingMirror struct{ paths []string }

func (m *recordingMirror) Upload(_ context.Context, p string) error {
	m.paths = append(m.paths, p)
	return nil
}

type fixture struct {
	app    *App
	cfg    *appconfig.Config
	dir    string
	now    time.Time
	mirror *recordingMirror
}

func newFixture(t *testing.T, feed *stubFeed, mutate func(*appconfig.Config)) *fixture {
	t.Helper()
	cfg := appconfig.Default()
	dir := t.TempDir()
	cfg.Journal.ContextFile = filepath.Join(dir, "context_gate_journal.csv")
	cfg.Journal.TradeFile = filepath.Join(dir, "journal.csv")
	cfg.Journal.BackupDir = filepath.Join(dir, "backups")
	if mutate != nil {
		mutate(&cfg)
	}

	f := &fixture{
		cfg:    &cfg,
		dir:    dir,
		now:    time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC), // 09:00 WIB
		mirror: &recordingMirror{},
	}
	loc, _ := time.LoadLocation(cfg.App.Timezone)
	clock := func() time.Time { return f.now }
	a, err := New(context.Background(), &cfg, Deps{
		Feed:     feed,
		Contexts: journal.NewCSVStore(cfg.Journal.ContextFile, loc, clock),
		Trades:   trade.NewCSVStore(cfg.Journal.TradeFile, loc, clock),
		Mirror:   f.mirror,
		Clock:    clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.app = a
	return f
}

func TestEvaluateHealthyParticipation(t *testing.T) {
	f := newFixture(t, healthyFeed(), nil)
	ev, err := f.app.Evaluate(context.Background(), "btcusdt")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Pair != "BTCUSDT" || ev.InstID != "BTC-USDT-SWAP" {
		t.Fatalf("unexpected instrument %s/%s", ev.Pair, ev.InstID)
	}
	if ev.Labels.Behavior != models.BehaviorHealthyParticipation || ev.Labels.Verdict != models.VerdictTradeable {
		t.Fatalf("unexpected labels %+v", ev.Labels)
	}
	if ev.Session != models.SessionAsia {
		t.Fatalf("expected Asia session at 09:00 WIB, got %s", ev.Session)
	}
	if ev.Rendered.Verdict == "" || ev.Rendered.Verdict == string(models.VerdictTradeable) {
		t.Fatalf("verdict not rendered: %q", ev.Rendered.Verdict)
	}
}

func TestEvaluateFailsWithoutData(t *testing.T) {
	f := newFixture(t, &stubFeed{}, nil)
	if _, err := f.app.Evaluate(context.Background(), "BTCUSDT"); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := f.app.Evaluate(context.Background(), "BTC"); !errors.Is(err, models.ErrInvalidPair) {
		t.Fatalf("expected ErrInvalidPair, got %v", err)
	}
}

func TestOIPolicy(t *testing.T) {
	feed := healthyFeed()
	feed.oi = nil

	strict := newFixture(t, feed, nil)
	if _, err := strict.app.Evaluate(context.Background(), "BTCUSDT"); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("strict policy should reject missing OI, got %v", err)
	}

	lenient := newFixture(t, feed, func(c *appconfig.Config) { c.Classifier.OIPolicy = "inert_fallback" })
	ev, err := lenient.app.Evaluate(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Labels.OI != models.OIInert || !ev.Labels.Degenerate.OIUnavailable {
		t.Fatalf("expected inert OI flagged as unavailable, got %+v", ev.Labels)
	}
}

func confirmRequest() TradeRequest {
	return TradeRequest{
		Pair:     "BTCUSDT",
		Entry:    100,
		StopLoss: 98,
		Checks:   []bool{true, true, true, false},
	}
}

func TestConfirmTradeLinksRecentContext(t *testing.T) {
	f := newFixture(t, healthyFeed(), nil)
	ctx := context.Background()

	ev, err := f.app.Evaluate(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	saved, err := f.app.SaveContext(ctx, ev, models.DecisionTaken, "clean breakout")
	if err != nil {
		t.Fatalf("SaveContext: %v", err)
	}

	f.now = f.now.Add(10 * time.Minute)
	conf, err := f.app.ConfirmTrade(ctx, confirmRequest())
	if err != nil {
		t.Fatalf("ConfirmTrade: %v", err)
	}
	want := trade.Sizing{RiskUSD: 25, StopDistance: 2, PositionSize: 1250, Margin: 250, Direction: models.DirectionLong}
	if conf.Sizing != want {
		t.Fatalf("sizing %+v want %+v", conf.Sizing, want)
	}
	tr := conf.Trade
	if tr.LinkedContext == nil || !tr.LinkedContext.Timestamp.Equal(saved.Timestamp) || tr.LinkedContext.Verdict != models.VerdictTradeable {
		t.Fatalf("context not linked: %+v", tr.LinkedContext)
	}
	if tr.PairSource != models.PairSourceContextGate || tr.BiasScore != 3 || tr.TimeEvalMinutes != 30 {
		t.Fatalf("unexpected trade %+v", tr)
	}
}

func TestConfirmTradeWithoutRecentContext(t *testing.T) {
	f := newFixture(t, healthyFeed(), nil)
	ctx := context.Background()

	ev, _ := f.app.Evaluate(ctx, "BTCUSDT")
	if _, err := f.app.SaveContext(ctx, ev, models.DecisionSkipped, ""); err != nil {
		t.Fatalf("SaveContext: %v", err)
	}

	f.now = f.now.Add(45 * time.Minute)
	conf, err := f.app.ConfirmTrade(ctx, confirmRequest())
	if err != nil {
		t.Fatalf("ConfirmTrade: %v", err)
	}
	if conf.Trade.LinkedContext != nil || conf.Trade.PairSource != models.PairSourceManual {
		t.Fatalf("stale context should not be linked: %+v", conf.Trade)
	}
}

func TestConfirmTradeGates(t *testing.T) {
	f := newFixture(t, healthyFeed(), nil)
	ctx := context.Background()

	low := confirmRequest()
	low.Checks = []bool{true, false, true, false}
	if _, err := f.app.ConfirmTrade(ctx, low); !errors.Is(err, models.ErrBiasTooLow) {
		t.Fatalf("expected ErrBiasTooLow, got %v", err)
	}

	flat := confirmRequest()
	flat.StopLoss = flat.Entry
	if _, err := f.app.ConfirmTrade(ctx, flat); !errors.Is(err, models.ErrInvalidRiskInput) {
		t.Fatalf("expected ErrInvalidRiskInput, got %v", err)
	}

	nan := confirmRequest()
	nan.Entry = math.NaN()
	if _, err := f.app.ConfirmTrade(ctx, nan); !errors.Is(err, models.ErrInvalidRiskInput) {
		t.Fatalf("expected ErrInvalidRiskInput for NaN entry, got %v", err)
	}

	unknown := confirmRequest()
	unknown.PairSource = "foo"
	if _, err := f.app.ConfirmTrade(ctx, unknown); !errors.Is(err, models.ErrInvalidPair) {
		t.Fatalf("expected ErrInvalidPair for unknown source, got %v", err)
	}

	if n := len(f.app.Trades().Trades); n != 0 {
		t.Fatalf("rejected confirmations recorded %d trades", n)
	}
}

func TestTradeLifecycleThroughApp(t *testing.T) {
	f := newFixture(t, healthyFeed(), nil)
	ctx := context.Background()

	conf, err := f.app.ConfirmTrade(ctx, confirmRequest())
	if err != nil {
		t.Fatalf("ConfirmTrade: %v", err)
	}
	id := conf.Trade.ID

	f.now = f.now.Add(31 * time.Minute)
	overview := f.app.Trades()
	if len(overview.Trades) != 1 || overview.Trades[0].TimeState != models.TimeMature || overview.Trades[0].ElapsedMinutes != 31 {
		t.Fatalf("unexpected overview %+v", overview)
	}

	if _, err := f.app.AttachResult(ctx, id, 1, "tp"); !errors.Is(err, models.ErrTradeNotClosed) {
		t.Fatalf("expected ErrTradeNotClosed, got %v", err)
	}
	if _, err := f.app.CloseTrade(ctx, id); err != nil {
		t.Fatalf("CloseTrade: %v", err)
	}
	rec, err := f.app.AttachResult(ctx, id, 2, "tp")
	if err != nil {
		t.Fatalf("AttachResult: %v", err)
	}
	if rec.ResultR == nil || *rec.ResultR != 2 {
		t.Fatalf("result not stored: %+v", rec)
	}
	if s := f.app.Trades().Summary; s.Done != 1 || s.PendingResults != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestStartupMigratesAndMirrorsLegacyContextJournal(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "context_gate_journal.csv")
	if err := os.WriteFile(legacy, []byte("timestamp,pair,verdict\n2025-01-01 10:00,BTCUSDT,TRADEABLE\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, healthyFeed(), func(c *appconfig.Config) { c.Journal.ContextFile = legacy })

	if len(f.mirror.paths) != 1 {
		t.Fatalf("expected migration backup to be mirrored, got %v", f.mirror.paths)
	}
	if _, err := os.Stat(f.mirror.paths[0]); err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	records, err := f.app.Contexts(context.Background(), journal.Filter{})
	if err != nil || len(records) != 0 {
		t.Fatalf("expected fresh journal, got %d records, %v", len(records), err)
	}
}

func TestExportMirrorsFiles(t *testing.T) {
	f := newFixture(t, healthyFeed(), func(c *appconfig.Config) { c.Journal.BackupDir = "" })
	ctx := context.Background()
	ev, _ := f.app.Evaluate(ctx, "BTCUSDT")
	f.app.SaveContext(ctx, ev, models.DecisionTaken, "")

	files, err := f.app.Export(ctx, filepath.Join(f.dir, "exports"), "snappy")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(f.mirror.paths) != 2 || f.mirror.paths[0] != files.Contexts || f.mirror.paths[1] != files.Trades {
		t.Fatalf("unexpected mirrored paths %v", f.mirror.paths)
	}
}

func TestLatestEvaluation(t *testing.T) {
	f := newFixture(t, healthyFeed(), nil)
	if _, ok := f.app.Latest("BTCUSDT"); ok {
		t.Fatal("no evaluation yet")
	}
	ev, err := f.app.Evaluate(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	got, ok := f.app.Latest("btcusdt")
	if !ok || !got.EvaluatedAt.Equal(ev.EvaluatedAt) || got.Labels.Verdict != ev.Labels.Verdict {
		t.Fatalf("unexpected latest evaluation %+v", got)
	}
}
