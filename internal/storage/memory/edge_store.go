package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
)

// EdgeStore is an in-memory implementation of storage.EdgeStore.
type EdgeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.EdgeRecord // keyed by edge_id
}

// NewEdgeStore creates a new in-memory edge store.
func NewEdgeStore() *EdgeStore {
	return &EdgeStore{
		data: make(map[string]*domain.EdgeRecord),
	}
}

// Insert adds a new edge. Returns ErrDuplicateKey if edge_id exists.
func (s *EdgeStore) Insert(_ context.Context, e *domain.EdgeRecord) error {
	if e == nil || e.EdgeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EdgeID]; exists {
		return storage.ErrDuplicateKey
	}

	edgeCopy := *e
	s.data[e.EdgeID] = &edgeCopy
	return nil
}

// GetByID retrieves an edge by its ID. Returns ErrNotFound if not exists.
func (s *EdgeStore) GetByID(_ context.Context, edgeID string) (*domain.EdgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[edgeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	edgeCopy := *e
	return &edgeCopy, nil
}

// GetByStatus retrieves all edges with the given status, ordered by
// created_at ASC.
func (s *EdgeStore) GetByStatus(_ context.Context, status domain.EdgeStatus) ([]*domain.EdgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EdgeRecord
	for _, e := range s.data {
		if e.Status == status {
			edgeCopy := *e
			result = append(result, &edgeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].EdgeID < result[j].EdgeID
	})

	return result, nil
}

// UpdateStatus moves an edge from one status to another. The write is a
// compare-and-set: it fails with ErrStatusConflict when the stored
// status is not `from`.
func (s *EdgeStore) UpdateStatus(_ context.Context, edgeID string, from, to domain.EdgeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[edgeID]
	if !exists {
		return storage.ErrNotFound
	}
	if e.Status != from {
		return storage.ErrStatusConflict
	}

	e.Status = to
	e.UpdatedAt = time.Now().UnixMilli()
	return nil
}

var _ storage.EdgeStore = (*EdgeStore)(nil)
