package journal

import (
	"fmt"
	"strings"
	"time"

	"contextgate/internal/models"
)

// Columns is the current context journal header.
var Columns = []string{
	"datetime_wib",
	"pair",
	"inst_id",
	"session",
	"rv_label",
	"rvol_label",
	"oi_label",
	"behavior",
	"verdict",
	"decision",
	"note",
}

// headerMatches compares a header row to Columns, ignoring surrounding
// whitespace and a UTF-8 byte order mark on the first cell.
func headerMatches(header []string) bool {
	if len(header) != len(Columns) {
		return false
	}
	for i, col := range header {
		col = strings.TrimSpace(col)
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		if col != Columns[i] {
			return false
		}
	}
	return true
}

func encodeRecord(r models.ContextRecord, loc *time.Location) []string {
	return []string{
		r.Timestamp.In(loc).Format(models.TimestampLayout),
		r.Pair,
		r.InstID,
		string(r.Session),
		string(r.Volume),
		string(r.Volatility),
		string(r.OI),
		string(r.Behavior),
		string(r.Verdict),
		string(r.Decision),
		r.Note,
	}
}

func decodeRecord(row []string, loc *time.Location) (models.ContextRecord, error) {
	if len(row) != len(Columns) {
		return models.ContextRecord{}, fmt.Errorf("expected %d fields, got %d", len(Columns), len(row))
	}

	var (
		r   models.ContextRecord
		err error
	)
	if r.Timestamp, err = time.ParseInLocation(models.TimestampLayout, row[0], loc); err != nil {
		return r, fmt.Errorf("datetime_wib: %w", err)
	}
	r.Pair = row[1]
	r.InstID = row[2]
	if r.Session, err = models.ParseSession(row[3]); err != nil {
		return r, err
	}
	if r.Volume, err = models.ParseVolumeLabel(row[4]); err != nil {
		return r, err
	}
	if r.Volatility, err = models.ParseVolatilityLabel(row[5]); err != nil {
		return r, err
	}
	if r.OI, err = models.ParseOILabel(row[6]); err != nil {
		return r, err
	}
	if r.Behavior, err = models.ParseBehavior(row[7]); err != nil {
		return r, err
	}
	if r.Verdict, err = models.ParseVerdict(row[8]); err != nil {
		return r, err
	}
	if r.Decision, err = models.ParseDecision(row[9]); err != nil {
		return r, err
	}
	r.Note = row[10]
	return r, nil
}

func validateRecord(r models.ContextRecord) error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("context record: missing timestamp")
	}
	if r.Pair == "" {
		return fmt.Errorf("context record: missing pair")
	}
	if _, err := models.ParseDecision(string(r.Decision)); err != nil {
		return fmt.Errorf("context record: %w", err)
	}
	if _, err := models.ParseVerdict(string(r.Verdict)); err != nil {
		return fmt.Errorf("context record: %w", err)
	}
	return nil
}
