package storage

import (
	"context"

	"orb-edge-lab/internal/domain"
)

// BarStore provides read access to historical minute bars. The core
// loads a series once, up front; gaps (holidays, halts) are simply
// absent rows, never an error.
type BarStore interface {
	// GetByTimeRange retrieves bars for an instrument within
	// [startMs, endMs] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, instrument string, startMs, endMs int64) ([]domain.Bar, error)

	// InsertBulk adds multiple bars. Fails entire batch on duplicate
	// (instrument, timestamp_ms).
	InsertBulk(ctx context.Context, instrument string, bars []domain.Bar) error
}

// EdgeStore provides access to edge_records storage.
type EdgeStore interface {
	// Insert adds a new edge. Returns ErrDuplicateKey if edge_id exists.
	Insert(ctx context.Context, e *domain.EdgeRecord) error

	// GetByID retrieves an edge by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, edgeID string) (*domain.EdgeRecord, error)

	// GetByStatus retrieves all edges with the given status.
	GetByStatus(ctx context.Context, status domain.EdgeStatus) ([]*domain.EdgeRecord, error)

	// UpdateStatus moves an edge from one status to another. Returns
	// ErrStatusConflict when the current status is not `from`, and
	// ErrNotFound when the edge does not exist. The compare-and-set
	// is the single-writer guard for concurrent sweeps.
	UpdateStatus(ctx context.Context, edgeID string, from, to domain.EdgeStatus) error
}

// ValidationRunStore provides access to validation_runs storage.
// Runs are append-only: a verdict is never overwritten in place.
type ValidationRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.ValidationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ValidationRun, error)

	// GetByEdgeID retrieves all runs for an edge, ordered by ran_at ASC.
	GetByEdgeID(ctx context.Context, edgeID string) ([]*domain.ValidationRun, error)
}

// TradeStore provides access to simulated_trades storage.
type TradeStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on
	// any duplicate trade_id.
	InsertBulk(ctx context.Context, trades []*domain.SimulatedTrade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.SimulatedTrade, error)

	// GetByEdgeID retrieves all trades for an edge, ordered by day ASC.
	GetByEdgeID(ctx context.Context, edgeID string) ([]*domain.SimulatedTrade, error)
}
