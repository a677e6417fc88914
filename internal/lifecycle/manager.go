// Package lifecycle moves edges through their validation states.
//
// Transitions are one-directional and append-only: every status change
// is backed by an immutable ValidationRun, and a verdict is never
// overwritten in place.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/idhash"
	"orb-edge-lab/internal/storage"
)

// Lifecycle errors.
var (
	// ErrInvalidTransition is returned when a requested status change
	// is not in the transition table.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// transitions is the complete table of allowed status changes. Any
// change not listed here is rejected, including writes that would
// fabricate a pass state on a terminal edge.
var transitions = map[domain.EdgeStatus][]domain.EdgeStatus{
	domain.EdgeNeverTested:  {domain.EdgeTestedFailed, domain.EdgeValidated},
	domain.EdgeTestedFailed: {domain.EdgeValidated},
	domain.EdgeValidated:    {domain.EdgeTestedFailed, domain.EdgePromoted, domain.EdgeRetired},
	domain.EdgePromoted:     {domain.EdgeRetired},
	domain.EdgeRetired:      {},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to domain.EdgeStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Manager applies verdicts and explicit promotions to edge records.
type Manager struct {
	edges storage.EdgeStore
	runs  storage.ValidationRunStore
	now   func() int64
}

// NewManager creates a lifecycle manager.
func NewManager(edges storage.EdgeStore, runs storage.ValidationRunStore) *Manager {
	return &Manager{
		edges: edges,
		runs:  runs,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

// Register inserts a NEVER_TESTED record for the definition, or
// returns the existing record when the edge is already known.
func (m *Manager) Register(ctx context.Context, def *domain.StrategyDefinition) (*domain.EdgeRecord, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	now := m.now()
	rec := &domain.EdgeRecord{
		EdgeID:     idhash.ComputeEdgeID(def),
		Definition: *def,
		Status:     domain.EdgeNeverTested,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := m.edges.Insert(ctx, rec)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return m.edges.GetByID(ctx, rec.EdgeID)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ApplyVerdict records a validation run for the edge and moves its
// status accordingly: APPROVED verdicts validate the edge, everything
// else marks it TESTED_FAILED. Re-running validation on an already
// VALIDATED edge creates a new run and may demote it; the old verdict
// stays in the run log untouched.
//
// The current status is re-read immediately before transitioning and
// the update is a compare-and-set, so concurrent sweeps cannot lose
// updates (single-writer per edge id).
func (m *Manager) ApplyVerdict(ctx context.Context, verdict *domain.ValidationVerdict) (*domain.ValidationRun, error) {
	edge, err := m.edges.GetByID(ctx, verdict.EdgeID)
	if err != nil {
		return nil, err
	}

	target := domain.EdgeTestedFailed
	if verdict.Classification == domain.ClassificationApproved {
		target = domain.EdgeValidated
	}

	if edge.Status != target && !CanTransition(edge.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s for edge %s",
			ErrInvalidTransition, edge.Status, target, edge.EdgeID)
	}

	ranAt := m.now()
	run := &domain.ValidationRun{
		RunID:      idhash.ComputeRunID(verdict.EdgeID, ranAt, string(verdict.Classification)),
		EdgeID:     verdict.EdgeID,
		Verdict:    verdict,
		FromStatus: edge.Status,
		ToStatus:   target,
		RanAt:      ranAt,
	}
	if err := m.runs.Insert(ctx, run); err != nil {
		return nil, err
	}

	if edge.Status != target {
		if err := m.edges.UpdateStatus(ctx, edge.EdgeID, edge.Status, target); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// Promote moves a VALIDATED edge into production. Promotion is always
// an explicit external action; the validation pipeline never calls it.
func (m *Manager) Promote(ctx context.Context, edgeID string) error {
	return m.transition(ctx, edgeID, domain.EdgePromoted)
}

// Retire moves a VALIDATED or PROMOTED edge out of circulation.
func (m *Manager) Retire(ctx context.Context, edgeID string) error {
	return m.transition(ctx, edgeID, domain.EdgeRetired)
}

func (m *Manager) transition(ctx context.Context, edgeID string, to domain.EdgeStatus) error {
	edge, err := m.edges.GetByID(ctx, edgeID)
	if err != nil {
		return err
	}
	if !CanTransition(edge.Status, to) {
		return fmt.Errorf("%w: %s -> %s for edge %s", ErrInvalidTransition, edge.Status, to, edgeID)
	}
	return m.edges.UpdateStatus(ctx, edgeID, edge.Status, to)
}
