package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"contextgate/internal/atomicio"
	metrics "contextgate/internal/metrics"
	"contextgate/internal/models"
	"contextgate/logger"
)

// CSVStore keeps the whole journal in one CSV file that is rewritten on
// every append. It assumes a single writer.
type CSVStore struct {
	path string
	loc  *time.Location
	now  func() time.Time
	log  *logger.Log
}

// NewCSVStore stores timestamps as wall-clock time in loc. now names backup
// files.
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

// MigrateIfNeeded creates the file when absent. When the header differs from
// Columns the file is renamed to a timestamped backup and replaced by an
// empty journal.
func (s *CSVStore) MigrateIfNeeded(ctx context.Context) (Migration, error) {
	if err := ctx.Err(); err != nil {
		return Migration{}, err
	}

	header, rows, err := s.readRaw()
	if errors.Is(err, os.ErrNotExist) {
		if err := atomicio.WriteCSV(s.path, Columns, nil); err != nil {
			return Migration{}, fmt.Errorf("create %s: %v: %w", s.path, err, models.ErrStoreWrite)
		}
		return Migration{}, nil
	}
	if err != nil {
		return Migration{}, err
	}
	if header == nil {
		if err := atomicio.WriteCSV(s.path, Columns, nil); err != nil {
			return Migration{}, fmt.Errorf("initialise %s: %v: %w", s.path, err, models.ErrStoreWrite)
		}
		return Migration{}, nil
	}
	if headerMatches(header) {
		return Migration{}, nil
	}

	backup := BackupPath(s.path, s.now())
	log := s.log.WithComponent("context_journal").WithFields(logger.Fields{
		"path":   s.path,
		"backup": backup,
		"header": strings.Join(header, ","),
		"rows":   len(rows),
	})
	log.WithError(models.ErrSchemaMismatch).Warn("context journal schema mismatch, resetting store")

	if err := os.Rename(s.path, backup); err != nil {
		return Migration{}, fmt.Errorf("backup %s: %v: %w", s.path, err, models.ErrStoreWrite)
	}
	if err := atomicio.WriteCSV(s.path, Columns, nil); err != nil {
		return Migration{}, fmt.Errorf("reset %s: %v: %w", s.path, err, models.ErrStoreWrite)
	}
	return Migration{Migrated: true, BackupPath: backup, BackupRows: len(rows)}, nil
}

// Load returns matching records in insertion order.
func (s *CSVStore) Load(ctx context.Context, f Filter) ([]models.ContextRecord, error) {
	if _, err := s.MigrateIfNeeded(ctx); err != nil {
		return nil, err
	}
	records, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	out := records[:0:0]
	for _, r := range records {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Append adds one record and rewrites the file atomically. On failure the
// file is left as it was.
func (s *CSVStore) Append(ctx context.Context, rec models.ContextRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if _, err := s.MigrateIfNeeded(ctx); err != nil {
		return err
	}

	_, rows, err := s.readRaw()
	if err != nil {
		return err
	}
	rows = append(rows, encodeRecord(rec, s.loc))

	start := time.Now()
	err = atomicio.WriteCSV(s.path, Columns, rows)
	metrics.IncJournalWrite("context", err)
	if err != nil {
		return fmt.Errorf("append to %s: %v: %w", s.path, err, models.ErrStoreWrite)
	}

	logger.LogPerformanceEntry(s.log.WithComponent("context_journal"), "context_journal", "append", time.Since(start), logger.Fields{
		"pair": rec.Pair,
		"rows": len(rows),
	})
	return nil
}

func (s *CSVStore) loadAll() ([]models.ContextRecord, error) {
	_, rows, err := s.readRaw()
	if err != nil {
		return nil, err
	}
	records := make([]models.ContextRecord, 0, len(rows))
	for i, row := range rows {
		r, err := decodeRecord(row, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.path, i+2, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// readRaw returns the header and data rows. Rows may have any width so a
// foreign schema can still be counted.
func (s *CSVStore) readRaw() ([]string, [][]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, err
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %v: %w", s.path, err, models.ErrStoreWrite)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return header, rows, nil
}

// BackupPath names the backup of path taken at t:
// journal.csv -> journal.20250101-150405.bak.csv
func BackupPath(path string, t time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s.%s.bak%s", base, t.Format("20060102-150405"), ext)
}
