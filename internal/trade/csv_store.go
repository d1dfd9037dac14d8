package trade

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"contextgate/internal/atomicio"
	"contextgate/internal/journal"
	metrics "contextgate/internal/metrics"
	"contextgate/internal/models"
	"contextgate/logger"
)

// TimestampLayout is used for trade open and close times.
const TimestampLayout = "2006-01-02 15:04:05"

// Columns is the trade journal header.
var Columns = []string{
	"id",
	"timestamp",
	"pair",
	"pair_source",
	"direction",
	"entry_price",
	"stop_loss_price",
	"risk_percent",
	"bias_score",
	"leverage",
	"position_size",
	"margin",
	"time_eval_min",
	"ctx_datetime_wib",
	"ctx_inst_id",
	"ctx_session",
	"ctx_behavior",
	"ctx_verdict",
	"ctx_rv_label",
	"ctx_rvol_label",
	"ctx_oi_label",
	"ctx_decision",
	"ctx_note",
	"trade_status",
	"closed_at",
	"result_r",
	"exit_reason",
}

// Store persists the full trade list. Save replaces the stored list.
type Store interface {
	Load(ctx context.Context) ([]models.TradeRecord, error)
	Save(ctx context.Context, records []models.TradeRecord) error
}

type CSVStore struct {
	path string
	loc  *time.Location
	now  func() time.Time
	log  *logger.Log
}

func NewCSVStore(path string, loc *time.Location, now func() time.Time) *CSVStore {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &CSVStore{path: path, loc: loc, now: now, log: logger.GetLogger()}
}

func (s *CSVStore) Path() string { return s.path }

// Load returns no records for a missing or empty file. A file with a foreign
// header is moved to a timestamped backup and treated as empty.
func (s *CSVStore) Load(ctx context.Context) ([]models.TradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", s.path, err, models.ErrStoreWrite)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		f.Close()
		return nil, nil
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	rows, err := r.ReadAll()
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if !sameHeader(header, Columns) {
		backup := journal.BackupPath(s.path, s.now())
		s.log.WithComponent("trade_journal").WithFields(logger.Fields{
			"path":   s.path,
			"backup": backup,
			"rows":   len(rows),
		}).WithError(models.ErrSchemaMismatch).Warn("trade journal schema mismatch, resetting store")
		if err := os.Rename(s.path, backup); err != nil {
			return nil, fmt.Errorf("backup %s: %v: %w", s.path, err, models.ErrStoreWrite)
		}
		return nil, nil
	}

	records := make([]models.TradeRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := decodeTrade(row, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.path, i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *CSVStore) Save(ctx context.Context, records []models.TradeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := atomicio.WriteCSV(s.path, Columns, EncodeRows(records, s.loc))
	metrics.IncJournalWrite("trade", err)
	if err != nil {
		return fmt.Errorf("save %s: %v: %w", s.path, err, models.ErrStoreWrite)
	}
	return nil
}

func sameHeader(header, want []string) bool {
	if len(header) != len(want) {
		return false
	}
	for i := range header {
		h := strings.TrimSpace(header[i])
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h != want[i] {
			return false
		}
	}
	return true
}

// EncodeRows renders records in Columns order.
func EncodeRows(records []models.TradeRecord, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, encodeTrade(r, loc))
	}
	return rows
}

func encodeTrade(r models.TradeRecord, loc *time.Location) []string {
	linked := make([]string, 10)
	if c := r.LinkedContext; c != nil {
		linked = []string{
			c.Timestamp.In(loc).Format(models.TimestampLayout),
			c.InstID,
			string(c.Session),
			string(c.Behavior),
			string(c.Verdict),
			string(c.Volume),
			string(c.Volatility),
			string(c.OI),
			string(c.Decision),
			c.Note,
		}
	}
	var closedAt, result string
	if r.ClosedAt != nil {
		closedAt = r.ClosedAt.In(loc).Format(TimestampLayout)
	}
	if r.ResultR != nil {
		result = formatFloat(*r.ResultR)
	}
	row := []string{
		r.ID,
		r.Timestamp.In(loc).Format(TimestampLayout),
		r.Pair,
		string(r.PairSource),
		string(r.Direction),
		formatFloat(r.EntryPrice),
		formatFloat(r.StopLossPrice),
		formatFloat(r.RiskPercent),
		strconv.Itoa(r.BiasScore),
		formatFloat(r.Leverage),
		formatFloat(r.PositionSize),
		formatFloat(r.Margin),
		strconv.Itoa(r.TimeEvalMinutes),
	}
	row = append(row, linked...)
	return append(row, string(r.Status), closedAt, result, r.ExitReason)
}

func decodeTrade(row []string, loc *time.Location) (models.TradeRecord, error) {
	if len(row) != len(Columns) {
		return models.TradeRecord{}, fmt.Errorf("expected %d fields, got %d", len(Columns), len(row))
	}
	var (
		r   models.TradeRecord
		err error
	)
	r.ID = row[0]
	if r.Timestamp, err = time.ParseInLocation(TimestampLayout, row[1], loc); err != nil {
		return r, fmt.Errorf("timestamp: %w", err)
	}
	r.Pair = row[2]
	if r.PairSource, err = models.ParsePairSource(row[3]); err != nil {
		return r, err
	}
	r.Direction = models.Direction(row[4])
	if r.Direction != models.DirectionLong && r.Direction != models.DirectionShort {
		return r, fmt.Errorf("unknown direction %q", row[4])
	}

	floats := []*float64{&r.EntryPrice, &r.StopLossPrice, &r.RiskPercent}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(row[5+i], 64); err != nil {
			return r, fmt.Errorf("%s: %w", Columns[5+i], err)
		}
	}
	if r.BiasScore, err = strconv.Atoi(row[8]); err != nil {
		return r, fmt.Errorf("bias_score: %w", err)
	}
	floats = []*float64{&r.Leverage, &r.PositionSize, &r.Margin}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(row[9+i], 64); err != nil {
			return r, fmt.Errorf("%s: %w", Columns[9+i], err)
		}
	}
	if r.TimeEvalMinutes, err = strconv.Atoi(row[12]); err != nil {
		return r, fmt.Errorf("time_eval_min: %w", err)
	}

	if row[13] != "" {
		c := models.ContextRecord{Pair: r.Pair, InstID: row[14]}
		if c.Timestamp, err = time.ParseInLocation(models.TimestampLayout, row[13], loc); err != nil {
			return r, fmt.Errorf("ctx_datetime_wib: %w", err)
		}
		if row[15] != "" {
			if c.Session, err = models.ParseSession(row[15]); err != nil {
				return r, err
			}
		}
		if c.Behavior, err = models.ParseBehavior(row[16]); err != nil {
			return r, err
		}
		if c.Verdict, err = models.ParseVerdict(row[17]); err != nil {
			return r, err
		}
		if c.Volume, err = models.ParseVolumeLabel(row[18]); err != nil {
			return r, err
		}
		if c.Volatility, err = models.ParseVolatilityLabel(row[19]); err != nil {
			return r, err
		}
		if c.OI, err = models.ParseOILabel(row[20]); err != nil {
			return r, err
		}
		if c.Decision, err = models.ParseDecision(row[21]); err != nil {
			return r, err
		}
		c.Note = row[22]
		r.LinkedContext = &c
	}

	r.Status = models.TradeStatus(row[23])
	if r.Status != models.TradeOpen && r.Status != models.TradeClosed {
		return r, fmt.Errorf("unknown trade_status %q", row[23])
	}
	if row[24] != "" {
		closed, err := time.ParseInLocation(TimestampLayout, row[24], loc)
		if err != nil {
			return r, fmt.Errorf("closed_at: %w", err)
		}
		r.ClosedAt = &closed
	}
	if row[25] != "" {
		v, err := strconv.ParseFloat(row[25], 64)
		if err != nil {
			return r, fmt.Errorf("result_r: %w", err)
		}
		r.ResultR = &v
	}
	r.ExitReason = row[26]
	return r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
