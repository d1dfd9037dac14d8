// Package export renders the journals as Parquet for offline analysis.
package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"contextgate/internal/atomicio"
	"contextgate/internal/models"
	"contextgate/logger"
)

type contextParquetRecord struct {
	Timestamp  int64  `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Pair       string `parquet:"name=pair, type=BYTE_ARRAY, convertedtype=UTF8"`
	InstID     string `parquet:"name=inst_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Session    string `parquet:"name=session, type=BYTE_ARRAY, convertedtype=UTF8"`
	Volume     string `parquet:"name=volume_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	Volatility string `parquet:"name=volatility_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	OI         string `parquet:"name=oi_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	Behavior   string `parquet:"name=behavior, type=BYTE_ARRAY, convertedtype=UTF8"`
	Verdict    string `parquet:"name=verdict, type=BYTE_ARRAY, convertedtype=UTF8"`
	Decision   string `parquet:"name=decision, type=BYTE_ARRAY, convertedtype=UTF8"`
	Note       string `parquet:"name=note, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type tradeParquetRecord struct {
	ID            string   `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp     int64    `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Pair          string   `parquet:"name=pair, type=BYTE_ARRAY, convertedtype=UTF8"`
	PairSource    string   `parquet:"name=pair_source, type=BYTE_ARRAY, convertedtype=UTF8"`
	Direction     string   `parquet:"name=direction, type=BYTE_ARRAY, convertedtype=UTF8"`
	EntryPrice    float64  `parquet:"name=entry_price, type=DOUBLE"`
	StopLossPrice float64  `parquet:"name=stop_loss_price, type=DOUBLE"`
	RiskPercent   float64  `parquet:"name=risk_percent, type=DOUBLE"`
	BiasScore     int32    `parquet:"name=bias_score, type=INT32"`
	Leverage      float64  `parquet:"name=leverage, type=DOUBLE"`
	PositionSize  float64  `parquet:"name=position_size, type=DOUBLE"`
	Margin        float64  `parquet:"name=margin, type=DOUBLE"`
	TimeEvalMin   int32    `parquet:"name=time_eval_min, type=INT32"`
	CtxBehavior   string   `parquet:"name=ctx_behavior, type=BYTE_ARRAY, convertedtype=UTF8"`
	CtxVerdict    string   `parquet:"name=ctx_verdict, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status        string   `parquet:"name=trade_status, type=BYTE_ARRAY, convertedtype=UTF8"`
	ClosedAt      *int64   `parquet:"name=closed_at, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	ResultR       *float64 `parquet:"name=result_r, type=DOUBLE, repetitiontype=OPTIONAL"`
	ExitReason    string   `parquet:"name=exit_reason, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// Exporter encodes journal records with one compression codec.
type Exporter struct {
	codec parquet.CompressionCodec
	name  string
	log   *logger.Log
}

// New accepts snappy, gzip or none. Anything else is an error.
func New(compression string) (*Exporter, error) {
	e := &Exporter{name: strings.ToLower(strings.TrimSpace(compression)), log: logger.GetLogger()}
	switch e.name {
	case "snappy", "":
		e.name = "snappy"
		e.codec = parquet.CompressionCodec_SNAPPY
	case "gzip":
		e.codec = parquet.CompressionCodec_GZIP
	case "none", "uncompressed":
		e.codec = parquet.CompressionCodec_UNCOMPRESSED
	default:
		return nil, fmt.Errorf("unsupported parquet compression %q", compression)
	}
	return e, nil
}

func (e *Exporter) Contexts(records []models.ContextRecord) ([]byte, error) {
	rows := make([]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, contextParquetRecord{
			Timestamp:  r.Timestamp.UnixMilli(),
			Pair:       r.Pair,
			InstID:     r.InstID,
			Session:    string(r.Session),
			Volume:     string(r.Volume),
			Volatility: string(r.Volatility),
			OI:         string(r.OI),
			Behavior:   string(r.Behavior),
			Verdict:    string(r.Verdict),
			Decision:   string(r.Decision),
			Note:       r.Note,
		})
	}
	return e.encode(new(contextParquetRecord), rows)
}

func (e *Exporter) Trades(records []models.TradeRecord) ([]byte, error) {
	rows := make([]interface{}, 0, len(records))
	for _, r := range records {
		row := tradeParquetRecord{
			ID:            r.ID,
			Timestamp:     r.Timestamp.UnixMilli(),
			Pair:          r.Pair,
			PairSource:    string(r.PairSource),
			Direction:     string(r.Direction),
			EntryPrice:    r.EntryPrice,
			StopLossPrice: r.StopLossPrice,
			RiskPercent:   r.RiskPercent,
			BiasScore:     int32(r.BiasScore),
			Leverage:      r.Leverage,
			PositionSize:  r.PositionSize,
			Margin:        r.Margin,
			TimeEvalMin:   int32(r.TimeEvalMinutes),
			Status:        string(r.Status),
			ResultR:       r.ResultR,
			ExitReason:    r.ExitReason,
		}
		if c := r.LinkedContext; c != nil {
			row.CtxBehavior = string(c.Behavior)
			row.CtxVerdict = string(c.Verdict)
		}
		if r.ClosedAt != nil {
			ms := r.ClosedAt.UnixMilli()
			row.ClosedAt = &ms
		}
		rows = append(rows, row)
	}
	return e.encode(new(tradeParquetRecord), rows)
}

func (e *Exporter) encode(schema interface{}, rows []interface{}) ([]byte, error) {
	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, schema, 1)
	if err != nil {
		return nil, fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = e.codec

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet: %w", err)
	}
	return mem.Bytes(), nil
}

// Files are the paths written by WriteFiles.
type Files struct {
	Contexts string `json:"contexts"`
	Trades   string `json:"trades"`
}

// WriteFiles writes contexts_<stamp>.parquet and trades_<stamp>.parquet into dir.
func (e *Exporter) WriteFiles(dir string, now time.Time, contexts []models.ContextRecord, trades []models.TradeRecord) (Files, error) {
	stamp := now.Format("20060102-150405")
	files := Files{
		Contexts: filepath.Join(dir, "contexts_"+stamp+".parquet"),
		Trades:   filepath.Join(dir, "trades_"+stamp+".parquet"),
	}

	data, err := e.Contexts(contexts)
	if err != nil {
		return Files{}, err
	}
	if err := atomicio.WriteFile(files.Contexts, data, 0o644); err != nil {
		return Files{}, fmt.Errorf("write %s: %w", files.Contexts, err)
	}

	data, err = e.Trades(trades)
	if err != nil {
		return Files{}, err
	}
	if err := atomicio.WriteFile(files.Trades, data, 0o644); err != nil {
		return Files{}, fmt.Errorf("write %s: %w", files.Trades, err)
	}

	logger.LogDataFlowEntry(e.log.WithComponent("export"), "context_journal", files.Contexts, len(contexts), "parquet")
	logger.LogDataFlowEntry(e.log.WithComponent("export"), "trade_journal", files.Trades, len(trades), "parquet")
	e.log.WithComponent("export").WithFields(logger.Fields{
		"dir":         dir,
		"compression": e.name,
	}).Info("journals exported")
	return files, nil
}
