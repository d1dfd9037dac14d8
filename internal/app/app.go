// Package app holds the single application state shared by the CLI and the
// dashboard. Journal mutations are serialised behind one mutex.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appconfig "contextgate/config"
	"contextgate/internal/classifier"
	"contextgate/internal/export"
	"contextgate/internal/journal"
	"contextgate/internal/labels"
	"contextgate/internal/market"
	metrics "contextgate/internal/metrics"
	"contextgate/internal/models"
	"contextgate/internal/session"
	"contextgate/internal/snapshot"
	"contextgate/internal/symbols"
	"contextgate/internal/trade"
	"contextgate/logger"
)

// Clock supplies the current time. It is read once per operation.
type Clock func() time.Time

// Deps are the collaborators App does not build itself.
type Deps struct {
	Feed     market.Feed
	Contexts journal.ContextStore
	Trades   trade.Store
	// Mirror is optional; when set, backups and exports are copied through it.
	Mirror trade.Mirror
	Clock  Clock
}

type App struct {
	mu sync.Mutex

	cfg        *appconfig.Config
	clock      Clock
	resolver   *market.Resolver
	builder    *snapshot.Builder
	classifier *classifier.Classifier
	sessions   *session.Resolver
	contexts   journal.ContextStore
	trades     *trade.Journal
	mirror     trade.Mirror
	lang       labels.Language
	log        *logger.Log

	// latest holds the most recent evaluation per pair so a later save
	// records exactly what was shown.
	latest map[string]Evaluation
}

// New wires the pipeline and runs the context journal migration once.
func New(ctx context.Context, cfg *appconfig.Config, deps Deps) (*App, error) {
	if deps.Feed == nil || deps.Contexts == nil || deps.Trades == nil {
		return nil, fmt.Errorf("app: feed, context store and trade store are required")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	sessions, err := session.NewResolver(cfg.App.Timezone)
	if err != nil {
		return nil, err
	}
	lang, err := labels.ParseLanguage(cfg.UI.Language)
	if err != nil {
		return nil, err
	}

	requireOI := cfg.Classifier.OIPolicy != "inert_fallback"
	resolver := market.NewResolver(deps.Feed, market.Params{
		Bar:         cfg.Market.Bar,
		CandleLimit: cfg.Market.CandleLimit,
		OIPeriod:    cfg.Market.OIPeriod,
		OILimit:     cfg.Market.OILimit,
		RequireOI:   requireOI,
	})

	th := cfg.Classifier.Thresholds
	a := &App{
		cfg:      cfg,
		clock:    deps.Clock,
		resolver: resolver,
		builder:  snapshot.NewBuilder(requireOI),
		classifier: classifier.New(classifier.Thresholds{
			RVolExpanding:  th.RVolExpanding,
			RVolCompressed: th.RVolCompressed,
			RVAbove:        th.RVAbove,
			RVBelow:        th.RVBelow,
		}),
		sessions: sessions,
		contexts: deps.Contexts,
		mirror:   deps.Mirror,
		lang:     lang,
		log:      logger.GetLogger(),
		latest:   make(map[string]Evaluation),
	}

	migration, err := deps.Contexts.MigrateIfNeeded(ctx)
	if err != nil {
		return nil, err
	}
	if migration.Migrated && a.mirror != nil {
		if err := a.mirror.Upload(ctx, migration.BackupPath); err != nil {
			a.log.WithComponent("app").WithError(err).Warn("failed to mirror context journal backup")
		}
	}

	a.trades, err = trade.NewJournal(ctx, deps.Trades, trade.Options{
		BackupDir: cfg.Journal.BackupDir,
		Location:  sessions.Location(),
		Mirror:    deps.Mirror,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) Config() *appconfig.Config { return a.cfg }

func (a *App) Language() labels.Language { return a.lang }

func (a *App) Location() *time.Location { return a.sessions.Location() }

// Now is the clock reading in the journal zone.
func (a *App) Now() time.Time { return a.sessions.Local(a.clock()) }

// Evaluation is one classified snapshot together with its display form.
type Evaluation struct {
	Pair        string                `json:"pair"`
	InstID      string                `json:"inst_id"`
	EvaluatedAt time.Time             `json:"evaluated_at"`
	Session     models.Session        `json:"session"`
	Snapshot    models.MarketSnapshot `json:"snapshot"`
	Labels      models.ContextLabels  `json:"labels"`
	Rendered    labels.Rendered       `json:"rendered"`
}

// Evaluate fetches market data for pair and classifies it. Any data problem
// aborts the evaluation; no partial verdict is produced.
func (a *App) Evaluate(ctx context.Context, pair string) (Evaluation, error) {
	now := a.Now()
	start := time.Now()
	entry := a.log.WithComponent("app").WithFields(logger.Fields{"pair": pair})

	data, err := a.resolver.Resolve(ctx, pair)
	if err != nil {
		metrics.IncEvaluationError(errorReason(err))
		entry.WithError(err).Warn("market data unavailable")
		return Evaluation{}, err
	}
	snap, err := a.builder.Build(data.InstID, data.Candles, data.Ticker, data.OI)
	if err != nil {
		metrics.IncEvaluationError(errorReason(err))
		entry.WithError(err).Warn("snapshot rejected")
		return Evaluation{}, err
	}

	l := a.classifier.Classify(snap)
	metrics.IncEvaluation(string(l.Verdict), string(l.Behavior))
	logger.LogPerformanceEntry(entry, "app", "evaluate", time.Since(start), logger.Fields{
		"inst_id": data.InstID,
		"verdict": l.Verdict,
	})
	if l.Degenerate.Any() {
		entry.WithFields(logger.Fields{
			"volatility_floored": l.Degenerate.VolatilityFloored,
			"volume_floored":     l.Degenerate.VolumeFloored,
			"oi_unavailable":     l.Degenerate.OIUnavailable,
		}).Info("classification used a fallback")
	}

	ev := Evaluation{
		Pair:        data.Pair,
		InstID:      data.InstID,
		EvaluatedAt: now,
		Session:     a.sessions.Resolve(now),
		Snapshot:    snap,
		Labels:      l,
		Rendered:    labels.Render(a.lang, l),
	}
	a.mu.Lock()
	a.latest[ev.Pair] = ev
	a.mu.Unlock()
	return ev, nil
}

// Latest returns the last successful evaluation of pair.
func (a *App) Latest(pair string) (Evaluation, bool) {
	pair, err := symbols.NormalizePair(pair)
	if err != nil {
		return Evaluation{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	ev, ok := a.latest[pair]
	return ev, ok
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidPair):
		return "invalid_pair"
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "upstream"
}

// SaveContext appends ev to the context journal with the user's decision.
func (a *App) SaveContext(ctx context.Context, ev Evaluation, decision models.Decision, note string) (models.ContextRecord, error) {
	if _, err := models.ParseDecision(string(decision)); err != nil {
		return models.ContextRecord{}, err
	}
	rec := models.ContextRecord{
		Timestamp:     ev.EvaluatedAt.In(a.Location()).Truncate(time.Minute),
		Pair:          ev.Pair,
		InstID:        ev.InstID,
		Session:       ev.Session,
		ContextLabels: ev.Labels,
		Decision:      decision,
		Note:          note,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.contexts.Append(ctx, rec); err != nil {
		return models.ContextRecord{}, err
	}
	a.log.WithComponent("app").WithFields(logger.Fields{
		"pair":     rec.Pair,
		"verdict":  rec.Verdict,
		"decision": rec.Decision,
	}).Info("context saved")
	return rec, nil
}

func (a *App) Contexts(ctx context.Context, f journal.Filter) ([]models.ContextRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.contexts.Load(ctx, f)
}

// TradeRequest is a trade confirmation. Zero account fields fall back to
// the trade section of the configuration.
type TradeRequest struct {
	Pair            string            `json:"pair"`
	PairSource      models.PairSource `json:"pair_source,omitempty"`
	Entry           float64           `json:"entry"`
	StopLoss        float64           `json:"stop_loss"`
	Equity          float64           `json:"equity,omitempty"`
	RiskPercent     float64           `json:"risk_percent,omitempty"`
	Leverage        float64           `json:"leverage,omitempty"`
	Checks          []bool            `json:"checks"`
	TimeEvalMinutes int               `json:"time_eval_minutes,omitempty"`
}

type Confirmation struct {
	Trade  models.TradeRecord `json:"trade"`
	Sizing trade.Sizing       `json:"sizing"`
}

// SizeTrade applies the configured defaults and computes the position size
// without recording anything.
func (a *App) SizeTrade(req TradeRequest) (trade.Sizing, error) {
	return trade.ComputeRisk(a.riskInput(req))
}

func (a *App) riskInput(req TradeRequest) trade.RiskInput {
	in := trade.RiskInput{
		Equity:      req.Equity,
		RiskPercent: req.RiskPercent,
		Entry:       req.Entry,
		StopLoss:    req.StopLoss,
		Leverage:    req.Leverage,
	}
	if in.Equity == 0 {
		in.Equity = a.cfg.Trade.Equity
	}
	if in.RiskPercent == 0 {
		in.RiskPercent = a.cfg.Trade.RiskPercent
	}
	if in.Leverage == 0 {
		in.Leverage = a.cfg.Trade.Leverage
	}
	return in
}

// ConfirmTrade gates on the bias checklist, sizes the position, links the
// latest context of the pair within the configured lag and records the trade.
func (a *App) ConfirmTrade(ctx context.Context, req TradeRequest) (Confirmation, error) {
	pair, err := symbols.NormalizePair(req.Pair)
	if err != nil {
		return Confirmation{}, err
	}
	if req.PairSource != "" {
		if _, err := models.ParsePairSource(string(req.PairSource)); err != nil {
			return Confirmation{}, fmt.Errorf("%v: %w", err, models.ErrInvalidPair)
		}
	}
	score := trade.BiasScore(req.Checks)
	if score < a.cfg.Trade.MinBiasScore {
		return Confirmation{}, fmt.Errorf("score %d, need %d: %w", score, a.cfg.Trade.MinBiasScore, models.ErrBiasTooLow)
	}
	in := a.riskInput(req)
	sizing, err := trade.ComputeRisk(in)
	if err != nil {
		return Confirmation{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.Now()
	history, err := a.contexts.Load(ctx, journal.Filter{Pair: pair, Until: now})
	if err != nil {
		return Confirmation{}, err
	}
	linked := trade.FindLatestContext(history, pair, now, a.cfg.Journal.MaxLag)

	source := req.PairSource
	if source == "" {
		source = models.PairSourceManual
		if linked != nil {
			source = models.PairSourceContextGate
		}
	}
	evalMin := req.TimeEvalMinutes
	if evalMin <= 0 {
		evalMin = a.cfg.Trade.TimeEvalMinutes
	}

	rec, err := a.trades.Open(ctx, models.TradeRecord{
		Timestamp:       now,
		Pair:            pair,
		PairSource:      source,
		Direction:       sizing.Direction,
		EntryPrice:      in.Entry,
		StopLossPrice:   in.StopLoss,
		RiskPercent:     in.RiskPercent,
		BiasScore:       score,
		Leverage:        in.Leverage,
		PositionSize:    sizing.PositionSize,
		Margin:          sizing.Margin,
		TimeEvalMinutes: evalMin,
		LinkedContext:   linked,
	})
	if err != nil {
		return Confirmation{}, err
	}
	a.warnIfOverloaded(now)
	return Confirmation{Trade: rec, Sizing: sizing}, nil
}

func (a *App) CloseTrade(ctx context.Context, id string) (models.TradeRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trades.Close(ctx, id, a.Now())
}

func (a *App) AttachResult(ctx context.Context, id string, r float64, reason string) (models.TradeRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trades.AttachResult(ctx, id, r, reason, a.Now())
}

// TradeView is a trade with its advisory time state at the time of the call.
type TradeView struct {
	models.TradeRecord
	TimeState      models.TimeState `json:"time_state"`
	ElapsedMinutes int              `json:"elapsed_minutes"`
}

type TradeOverview struct {
	AsOf    time.Time     `json:"as_of"`
	Trades  []TradeView   `json:"trades"`
	Summary trade.Summary `json:"summary"`
}

// Trades refreshes the derived time state of every trade.
func (a *App) Trades() TradeOverview {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.Now()
	list := a.trades.List()
	views := make([]TradeView, 0, len(list))
	for _, t := range list {
		views = append(views, TradeView{
			TradeRecord:    t,
			TimeState:      t.TimeState(now),
			ElapsedMinutes: t.ElapsedMinutes(now),
		})
	}
	return TradeOverview{AsOf: now, Trades: views, Summary: a.warnIfOverloaded(now)}
}

func (a *App) warnIfOverloaded(now time.Time) trade.Summary {
	s := a.trades.Summary(now, a.cfg.Trade.MaxActive)
	if s.Overloaded {
		a.log.WithComponent("app").WithFields(logger.Fields{
			"active":     s.Active,
			"max_active": a.cfg.Trade.MaxActive,
		}).Warn("too many active trades")
	}
	return s
}

// Export writes both journals as Parquet into dir and mirrors the files
// when a mirror is configured.
func (a *App) Export(ctx context.Context, dir, compression string) (export.Files, error) {
	exp, err := export.New(compression)
	if err != nil {
		return export.Files{}, err
	}

	a.mu.Lock()
	contexts, err := a.contexts.Load(ctx, journal.Filter{})
	trades := a.trades.List()
	a.mu.Unlock()
	if err != nil {
		return export.Files{}, err
	}

	files, err := exp.WriteFiles(dir, a.Now(), contexts, trades)
	if err != nil {
		return export.Files{}, err
	}
	if a.mirror != nil {
		for _, p := range []string{files.Contexts, files.Trades} {
			if err := a.mirror.Upload(ctx, p); err != nil {
				return files, err
			}
		}
	}
	return files, nil
}
