package clickhouse

import (
	"context"
	"fmt"
	"time"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse. Minute bars
// are the bulk of the lab's data; MergeTree ordered by
// (instrument, timestamp_ms) keeps range scans cheap.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate
// (instrument, timestamp_ms). MergeTree does not enforce uniqueness,
// so duplicates are checked explicitly before the batch is sent.
func (s *BarStore) InsertBulk(ctx context.Context, instrument string, bars []domain.Bar) error {
	if instrument == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{}, len(bars))
	minTs, maxTs := bars[0].TimestampMs, bars[0].TimestampMs
	for _, b := range bars {
		if _, exists := seen[b.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[b.TimestampMs] = struct{}{}
		if b.TimestampMs < minTs {
			minTs = b.TimestampMs
		}
		if b.TimestampMs > maxTs {
			maxTs = b.TimestampMs
		}
	}

	// Check for duplicates against existing DB rows in one scan
	existing, err := s.existingTimestamps(ctx, instrument, minTs, maxTs)
	if err != nil {
		return fmt.Errorf("check existing bars: %w", err)
	}
	for _, ts := range existing {
		if _, clash := seen[ts]; clash {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO minute_bars (
			instrument, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			instrument, uint64(b.TimestampMs),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	sendStart := time.Now()
	err = batch.Send()
	s.conn.record("insert", sendStart, err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves bars for an instrument within [startMs, endMs]
// (inclusive), ordered by timestamp ASC.
func (s *BarStore) GetByTimeRange(ctx context.Context, instrument string, startMs, endMs int64) ([]domain.Bar, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM minute_bars
		WHERE instrument = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, instrument, uint64(startMs), uint64(endMs))
	if err != nil {
		return nil, fmt.Errorf("query bars by time range: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var timestampMs uint64

		err := rows.Scan(&timestampMs, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		b.TimestampMs = int64(timestampMs)
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}

// existingTimestamps returns timestamps already stored for the
// instrument inside [minTs, maxTs].
func (s *BarStore) existingTimestamps(ctx context.Context, instrument string, minTs, maxTs int64) ([]int64, error) {
	query := `
		SELECT timestamp_ms FROM minute_bars
		WHERE instrument = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
	`

	rows, err := s.conn.Query(ctx, query, instrument, uint64(minTs), uint64(maxTs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var ts uint64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, int64(ts))
	}
	return out, rows.Err()
}
