package memory

import (
	"context"
	"sort"
	"sync"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
)

// ValidationRunStore is an in-memory implementation of storage.ValidationRunStore.
type ValidationRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ValidationRun // keyed by run_id
}

// NewValidationRunStore creates a new in-memory validation run store.
func NewValidationRunStore() *ValidationRunStore {
	return &ValidationRunStore{
		data: make(map[string]*domain.ValidationRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ValidationRunStore) Insert(_ context.Context, r *domain.ValidationRun) error {
	if r == nil || r.RunID == "" || r.EdgeID == "" || r.Verdict == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = copyRun(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ValidationRunStore) GetByID(_ context.Context, runID string) (*domain.ValidationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyRun(r), nil
}

// GetByEdgeID retrieves all runs for an edge, ordered by ran_at ASC.
func (s *ValidationRunStore) GetByEdgeID(_ context.Context, edgeID string) ([]*domain.ValidationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ValidationRun
	for _, r := range s.data {
		if r.EdgeID == edgeID {
			result = append(result, copyRun(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RanAt != result[j].RanAt {
			return result[i].RanAt < result[j].RanAt
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// copyRun deep-copies a run so callers cannot mutate the stored verdict.
func copyRun(r *domain.ValidationRun) *domain.ValidationRun {
	runCopy := *r
	if r.Verdict != nil {
		verdictCopy := *r.Verdict
		verdictCopy.Phases = append([]domain.PhaseResult(nil), r.Verdict.Phases...)
		if r.Verdict.Retention != nil {
			retention := *r.Verdict.Retention
			verdictCopy.Retention = &retention
		}
		runCopy.Verdict = &verdictCopy
	}
	return &runCopy
}

var _ storage.ValidationRunStore = (*ValidationRunStore)(nil)
