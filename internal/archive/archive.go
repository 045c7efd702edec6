// Package archive persists answered questions as Parquet objects so analysts
// can replay what the service generated and executed.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/shoptalk/shoptalk/internal/storage"
)

// Record captures one fully answered question.
type Record struct {
	TraceID          string
	Question         string
	SQL              string
	Format           string
	Provider         string
	Model            string
	Columns          []string
	Rows             [][]any
	GenerateDuration time.Duration
	ExecuteDuration  time.Duration
	AnsweredAt       time.Time
}

type parquetAnswer struct {
	TraceID          string `parquet:"trace_id"`
	Question         string `parquet:"question"`
	SQL              string `parquet:"sql"`
	Format           string `parquet:"format"`
	Provider         string `parquet:"provider"`
	Model            string `parquet:"model"`
	ColumnsJSON      string `parquet:"columns_json"`
	RowsJSON         string `parquet:"rows_json"`
	RowCount         int64  `parquet:"row_count"`
	GenerateMs       int64  `parquet:"generate_ms"`
	ExecuteMs        int64  `parquet:"execute_ms"`
	AnsweredAtUnixMs int64  `parquet:"answered_at_unix_ms"`
}

// EncodeRecord renders a record as a single-row Parquet file.
func EncodeRecord(rec Record) ([]byte, error) {
	columnsJSON, err := json.Marshal(rec.Columns)
	if err != nil {
		return nil, fmt.Errorf("encode columns: %w", err)
	}
	rowsJSON, err := json.Marshal(rec.Rows)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}

	row := parquetAnswer{
		TraceID:          rec.TraceID,
		Question:         rec.Question,
		SQL:              rec.SQL,
		Format:           rec.Format,
		Provider:         rec.Provider,
		Model:            rec.Model,
		ColumnsJSON:      string(columnsJSON),
		RowsJSON:         string(rowsJSON),
		RowCount:         int64(len(rec.Rows)),
		GenerateMs:       rec.GenerateDuration.Milliseconds(),
		ExecuteMs:        rec.ExecuteDuration.Milliseconds(),
		AnsweredAtUnixMs: rec.AnsweredAt.UTC().UnixMilli(),
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetAnswer](buf)
	if _, err := writer.Write([]parquetAnswer{row}); err != nil {
		return nil, fmt.Errorf("write parquet row: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Archiver writes answer records to an object store. Archive failures are
// reported to the caller but are expected to be logged, not surfaced to
// clients.
type Archiver struct {
	store  storage.ObjectStore
	logger *slog.Logger
	now    func() time.Time
}

func NewArchiver(store storage.ObjectStore, logger *slog.Logger) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{store: store, logger: logger, now: time.Now}, nil
}

// Archive encodes and uploads one record. The object key partitions answers
// by day and is unique per trace ID; an already-archived trace is left in
// place, so replayed requests do not rewrite the object.
func (a *Archiver) Archive(ctx context.Context, rec Record) error {
	if rec.AnsweredAt.IsZero() {
		rec.AnsweredAt = a.now()
	}
	key, err := storage.BuildAnswerKey(rec.AnsweredAt, rec.TraceID)
	if err != nil {
		return err
	}
	if existing, err := a.store.Stat(ctx, key); err == nil {
		a.logger.Debug("answer already archived", "key", existing.Key, "trace_id", rec.TraceID)
		return nil
	} else if !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("check archived answer %q: %w", rec.TraceID, err)
	}
	payload, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	info, err := a.store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{ContentType: "application/vnd.apache.parquet"})
	if err != nil {
		return fmt.Errorf("archive answer %q: %w", rec.TraceID, err)
	}
	a.logger.Debug("archived answer", "key", info.Key, "bytes", info.Size, "trace_id", rec.TraceID)
	return nil
}

// Fetch reads one archived answer back. The caller supplies the answer date
// because the key is partitioned by day. A missing object surfaces as
// storage.ErrObjectNotFound.
func (a *Archiver) Fetch(ctx context.Context, answeredAt time.Time, traceID string) (Record, error) {
	key, err := storage.BuildAnswerKey(answeredAt, traceID)
	if err != nil {
		return Record{}, err
	}
	body, err := a.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Record{}, storage.ErrObjectNotFound
		}
		return Record{}, fmt.Errorf("fetch archived answer %q: %w", traceID, err)
	}
	defer func() { _ = body.Close() }()

	payload, err := io.ReadAll(body)
	if err != nil {
		return Record{}, fmt.Errorf("read archived answer %q: %w", traceID, err)
	}
	return DecodeRecord(payload)
}

// DecodeRecord parses a single-row Parquet file written by EncodeRecord.
func DecodeRecord(payload []byte) (Record, error) {
	rows, err := parquet.Read[parquetAnswer](bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return Record{}, fmt.Errorf("read parquet payload: %w", err)
	}
	if len(rows) != 1 {
		return Record{}, fmt.Errorf("archived answer holds %d rows, want 1", len(rows))
	}
	row := rows[0]

	var columns []string
	if err := json.Unmarshal([]byte(row.ColumnsJSON), &columns); err != nil {
		return Record{}, fmt.Errorf("decode columns: %w", err)
	}
	var dataRows [][]any
	if err := json.Unmarshal([]byte(row.RowsJSON), &dataRows); err != nil {
		return Record{}, fmt.Errorf("decode rows: %w", err)
	}

	return Record{
		TraceID:          row.TraceID,
		Question:         row.Question,
		SQL:              row.SQL,
		Format:           row.Format,
		Provider:         row.Provider,
		Model:            row.Model,
		Columns:          columns,
		Rows:             dataRows,
		GenerateDuration: time.Duration(row.GenerateMs) * time.Millisecond,
		ExecuteDuration:  time.Duration(row.ExecuteMs) * time.Millisecond,
		AnsweredAt:       time.UnixMilli(row.AnsweredAtUnixMs).UTC(),
	}, nil
}
