// Package ingest loads minute bars from CSV exports into a BarStore.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/observability"
	"orb-edge-lab/internal/storage"
)

// ErrBadRow is returned when a CSV row cannot be parsed.
var ErrBadRow = errors.New("malformed csv row")

// Expected header: timestamp,open,high,low,close,volume
// The timestamp column accepts either epoch milliseconds or RFC 3339.
const expectedColumns = 6

// batchSize bounds memory for large exports.
const batchSize = 10_000

// Result summarizes one ingestion run.
type Result struct {
	RowsRead     int
	BarsInserted int
}

// Loader parses CSV files and writes bars in batches.
type Loader struct {
	store   storage.BarStore
	metrics *observability.Metrics // optional; nil disables instrumentation
}

// NewLoader creates a CSV loader backed by the given store.
func NewLoader(store storage.BarStore) *Loader {
	return &Loader{store: store}
}

// WithMetrics enables ingestion counters on the loader.
func (l *Loader) WithMetrics(m *observability.Metrics) *Loader {
	l.metrics = m
	return l
}

func (l *Loader) countError(errType string) {
	if l.metrics != nil {
		l.metrics.IngestionErrors.WithLabelValues(errType).Inc()
	}
}

// LoadFile ingests one CSV file for an instrument. The first row is a
// header and is skipped. Rows must be in chronological order; duplicate
// timestamps fail the whole file so a partial re-run cannot silently
// double bars.
func (l *Loader) LoadFile(ctx context.Context, instrument, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return l.Load(ctx, instrument, f)
}

// Load ingests CSV content from a reader.
func (l *Loader) Load(ctx context.Context, instrument string, src io.Reader) (*Result, error) {
	if instrument == "" {
		return nil, storage.ErrInvalidInput
	}

	r := csv.NewReader(bufio.NewReaderSize(src, 1<<20))
	r.ReuseRecord = true

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	result := &Result{}
	batch := make([]domain.Bar, 0, batchSize)

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			l.countError("read")
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		result.RowsRead++

		bar, err := parseRow(rec)
		if err != nil {
			l.countError("bad_row")
			return nil, fmt.Errorf("row %d: %w", result.RowsRead, err)
		}
		batch = append(batch, bar)

		if len(batch) == batchSize {
			if err := l.flush(ctx, instrument, batch, result); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}

	if err := l.flush(ctx, instrument, batch, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (l *Loader) flush(ctx context.Context, instrument string, batch []domain.Bar, result *Result) error {
	if len(batch) == 0 {
		return nil
	}
	if err := l.store.InsertBulk(ctx, instrument, batch); err != nil {
		l.countError("insert")
		return fmt.Errorf("insert bars: %w", err)
	}
	result.BarsInserted += len(batch)
	if l.metrics != nil {
		l.metrics.BarsIngested.WithLabelValues(instrument).Add(float64(len(batch)))
	}
	return nil
}

// parseRow converts one CSV record into a Bar.
func parseRow(rec []string) (domain.Bar, error) {
	if len(rec) != expectedColumns {
		return domain.Bar{}, fmt.Errorf("%w: expected %d columns, got %d", ErrBadRow, expectedColumns, len(rec))
	}

	ts, err := parseTimestamp(rec[0])
	if err != nil {
		return domain.Bar{}, err
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("%w: column %d: %v", ErrBadRow, i+1, err)
		}
		vals[i] = v
	}

	bar := domain.Bar{
		TimestampMs: ts,
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
	}
	if bar.High < bar.Low {
		return domain.Bar{}, fmt.Errorf("%w: high %v below low %v", ErrBadRow, bar.High, bar.Low)
	}
	return bar, nil
}

// parseTimestamp accepts epoch milliseconds or RFC 3339.
func parseTimestamp(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q", ErrBadRow, s)
	}
	return t.UnixMilli(), nil
}
