package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]domain.Bar // keyed by (instrument, timestamp_ms)
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]domain.Bar),
	}
}

// barKey generates a unique key for a bar.
func barKey(instrument string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", instrument, timestampMs)
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *BarStore) InsertBulk(_ context.Context, instrument string, bars []domain.Bar) error {
	if instrument == "" {
		return storage.ErrInvalidInput
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(bars))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bars {
		key := barKey(instrument, b.TimestampMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bars {
		s.data[barKey(instrument, b.TimestampMs)] = b
	}

	return nil
}

// GetByTimeRange retrieves bars for an instrument within [startMs, endMs]
// (inclusive), ordered by timestamp ASC.
func (s *BarStore) GetByTimeRange(_ context.Context, instrument string, startMs, endMs int64) ([]domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := instrument + "|"
	var result []domain.Bar
	for key, b := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix &&
			b.TimestampMs >= startMs && b.TimestampMs <= endMs {
			result = append(result, b)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.BarStore = (*BarStore)(nil)
