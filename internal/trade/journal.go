package trade

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"contextgate/internal/atomicio"
	metrics "contextgate/internal/metrics"
	"contextgate/internal/models"
	"contextgate/logger"

	"github.com/google/uuid"
)

// Mirror copies a local backup file somewhere off the machine.
type Mirror interface {
	Upload(ctx context.Context, localPath string) error
}

type Options struct {
	// BackupDir receives one journal_YYYY-MM-DD.csv per day. Empty disables
	// daily backups.
	BackupDir string
	Location  *time.Location
	Mirror    Mirror
	NewID     func() string
}

// Journal owns the trade list. Every mutation is persisted before it becomes
// visible; a failed save leaves the in-memory list unchanged.
type Journal struct {
	store     Store
	records   []models.TradeRecord
	backupDir string
	loc       *time.Location
	mirror    Mirror
	newID     func() string
	log       *logger.Log
}

// NewJournal loads the existing trades from store.
func NewJournal(ctx context.Context, store Store, opts Options) (*Journal, error) {
	records, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Journal{
		store:     store,
		records:   records,
		backupDir: opts.BackupDir,
		loc:       opts.Location,
		mirror:    opts.Mirror,
		newID:     opts.NewID,
		log:       logger.GetLogger(),
	}, nil
}

// Open records a new trade. ID and Status are assigned here.
func (j *Journal) Open(ctx context.Context, rec models.TradeRecord) (models.TradeRecord, error) {
	if rec.Pair == "" {
		return models.TradeRecord{}, fmt.Errorf("trade: missing pair")
	}
	if rec.Timestamp.IsZero() {
		return models.TradeRecord{}, fmt.Errorf("trade: missing timestamp")
	}
	rec.ID = j.newID()
	rec.Status = models.TradeOpen
	rec.ClosedAt = nil
	rec.ResultR = nil
	rec.ExitReason = ""
	if rec.LinkedContext != nil {
		linked := *rec.LinkedContext
		rec.LinkedContext = &linked
	}

	next := append(j.snapshot(), rec)
	if err := j.commit(ctx, next, rec.Timestamp); err != nil {
		return models.TradeRecord{}, err
	}
	metrics.IncTradeEvent("open")
	j.log.WithComponent("trade_journal").WithFields(logger.Fields{
		"id":        rec.ID,
		"pair":      rec.Pair,
		"direction": rec.Direction,
		"linked":    rec.LinkedContext != nil,
	}).Info("trade opened")
	return rec, nil
}

// Close flips an open trade to CLOSED. Closing twice is an error.
func (j *Journal) Close(ctx context.Context, id string, at time.Time) (models.TradeRecord, error) {
	next := j.snapshot()
	i := indexOf(next, id)
	if i < 0 {
		return models.TradeRecord{}, fmt.Errorf("%s: %w", id, models.ErrTradeNotFound)
	}
	if next[i].Status == models.TradeClosed {
		return models.TradeRecord{}, fmt.Errorf("%s: %w", id, models.ErrTradeClosed)
	}
	closed := at
	next[i].Status = models.TradeClosed
	next[i].ClosedAt = &closed

	if err := j.commit(ctx, next, at); err != nil {
		return models.TradeRecord{}, err
	}
	metrics.IncTradeEvent("close")
	return next[i], nil
}

// AttachResult sets result_r and exit_reason on a closed trade. Calling it
// again overwrites the previous values.
func (j *Journal) AttachResult(ctx context.Context, id string, r float64, reason string, now time.Time) (models.TradeRecord, error) {
	if !isFinite(r) {
		return models.TradeRecord{}, fmt.Errorf("result %v must be finite: %w", r, models.ErrInvalidRiskInput)
	}
	next := j.snapshot()
	i := indexOf(next, id)
	if i < 0 {
		return models.TradeRecord{}, fmt.Errorf("%s: %w", id, models.ErrTradeNotFound)
	}
	if next[i].Status != models.TradeClosed {
		return models.TradeRecord{}, fmt.Errorf("%s: %w", id, models.ErrTradeNotClosed)
	}
	result := r
	next[i].ResultR = &result
	next[i].ExitReason = reason

	if err := j.commit(ctx, next, now); err != nil {
		return models.TradeRecord{}, err
	}
	metrics.IncTradeEvent("result")
	return next[i], nil
}

func (j *Journal) Get(id string) (models.TradeRecord, bool) {
	i := indexOf(j.records, id)
	if i < 0 {
		return models.TradeRecord{}, false
	}
	return j.records[i], true
}

// List returns a copy of all trades in the order they were opened.
func (j *Journal) List() []models.TradeRecord {
	return j.snapshot()
}

// Summary counts trades by time state at now.
type Summary struct {
	Active         int `json:"active"`
	Mature         int `json:"mature"`
	Done           int `json:"done"`
	PendingResults int `json:"pending_results"`
	// Overloaded is set when more than the allowed number of trades are ACTIVE.
	Overloaded bool `json:"overloaded"`
}

func (j *Journal) Summary(now time.Time, maxActive int) Summary {
	var s Summary
	for _, r := range j.records {
		switch r.TimeState(now) {
		case models.TimeActive:
			s.Active++
		case models.TimeMature:
			s.Mature++
		case models.TimeDone:
			s.Done++
			if r.ResultR == nil {
				s.PendingResults++
			}
		}
	}
	s.Overloaded = maxActive > 0 && s.Active > maxActive
	metrics.SetOpenTrades(map[string]int{
		string(models.TimeActive): s.Active,
		string(models.TimeMature): s.Mature,
	})
	return s
}

func (j *Journal) snapshot() []models.TradeRecord {
	out := make([]models.TradeRecord, len(j.records))
	copy(out, j.records)
	return out
}

func (j *Journal) commit(ctx context.Context, next []models.TradeRecord, now time.Time) error {
	if err := j.store.Save(ctx, next); err != nil {
		j.log.WithComponent("trade_journal").WithError(err).Error("failed to persist trade journal")
		return err
	}
	j.records = next
	if err := j.backupDaily(ctx, now); err != nil {
		j.log.WithComponent("trade_journal").WithError(err).Warn("daily trade journal backup failed")
	}
	return nil
}

// DailyBackupPath is the backup file for the calendar day of t in loc.
func DailyBackupPath(dir string, t time.Time, loc *time.Location) string {
	return filepath.Join(dir, fmt.Sprintf("journal_%s.csv", t.In(loc).Format("2006-01-02")))
}

// backupDaily writes the first backup of each day and never overwrites it.
func (j *Journal) backupDaily(ctx context.Context, now time.Time) error {
	if j.backupDir == "" {
		return nil
	}
	path := DailyBackupPath(j.backupDir, now, j.loc)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := atomicio.WriteCSV(path, Columns, EncodeRows(j.records, j.loc)); err != nil {
		return fmt.Errorf("write %s: %v: %w", path, err, models.ErrStoreWrite)
	}
	j.log.WithComponent("trade_journal").WithFields(logger.Fields{"path": path}).Info("daily trade journal backup written")

	if j.mirror != nil {
		if err := j.mirror.Upload(ctx, path); err != nil {
			return fmt.Errorf("mirror %s: %w", path, err)
		}
	}
	return nil
}

func indexOf(records []models.TradeRecord, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
