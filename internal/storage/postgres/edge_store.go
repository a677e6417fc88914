package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
)

// EdgeStore implements storage.EdgeStore using PostgreSQL.
type EdgeStore struct {
	pool *Pool
}

// NewEdgeStore creates a new EdgeStore.
func NewEdgeStore(pool *Pool) *EdgeStore {
	return &EdgeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EdgeStore = (*EdgeStore)(nil)

// Insert adds a new edge. Returns ErrDuplicateKey if edge_id exists.
func (s *EdgeStore) Insert(ctx context.Context, e *domain.EdgeRecord) error {
	if e == nil || e.EdgeID == "" {
		return storage.ErrInvalidInput
	}

	filters, err := json.Marshal(e.Definition.Filters)
	if err != nil {
		return fmt.Errorf("marshal filters: %w", err)
	}

	query := `
		INSERT INTO edge_records (
			edge_id, instrument, range_start_minute, range_duration_min,
			direction, entry_rule, stop_fraction, reward_risk,
			confirmation_bars, filters, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.pool.Exec(ctx, query,
		e.EdgeID,
		e.Definition.Instrument,
		e.Definition.RangeStartMinute,
		e.Definition.RangeDurationMin,
		string(e.Definition.Direction),
		string(e.Definition.EntryRule),
		e.Definition.StopFraction,
		e.Definition.RewardRisk,
		e.Definition.ConfirmationBars,
		filters,
		string(e.Status),
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

const edgeColumns = `
	edge_id, instrument, range_start_minute, range_duration_min,
	direction, entry_rule, stop_fraction, reward_risk,
	confirmation_bars, filters, status, created_at, updated_at
`

// GetByID retrieves an edge by its ID. Returns ErrNotFound if not exists.
func (s *EdgeStore) GetByID(ctx context.Context, edgeID string) (*domain.EdgeRecord, error) {
	query := `SELECT ` + edgeColumns + ` FROM edge_records WHERE edge_id = $1`

	row := s.pool.QueryRow(ctx, query, edgeID)
	e, err := scanEdge(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get edge by id: %w", err)
	}
	return e, nil
}

// GetByStatus retrieves all edges with the given status, ordered by
// created_at ASC.
func (s *EdgeStore) GetByStatus(ctx context.Context, status domain.EdgeStatus) ([]*domain.EdgeRecord, error) {
	query := `SELECT ` + edgeColumns + `
		FROM edge_records
		WHERE status = $1
		ORDER BY created_at ASC, edge_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("get edges by status: %w", err)
	}
	defer rows.Close()

	var edges []*domain.EdgeRecord
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge row: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edge rows: %w", err)
	}
	return edges, nil
}

// UpdateStatus moves an edge from one status to another via a
// conditional UPDATE. A zero-row result means either the edge is
// missing or its status moved underneath us; the follow-up read
// separates the two cases.
func (s *EdgeStore) UpdateStatus(ctx context.Context, edgeID string, from, to domain.EdgeStatus) error {
	query := `
		UPDATE edge_records
		SET status = $1, updated_at = (EXTRACT(EPOCH FROM NOW()) * 1000)::BIGINT
		WHERE edge_id = $2 AND status = $3
	`

	tag, err := s.pool.Exec(ctx, query, string(to), edgeID, string(from))
	if err != nil {
		return fmt.Errorf("update edge status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM edge_records WHERE edge_id = $1)`, edgeID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check edge existence: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrStatusConflict
	}
	return nil
}

// scanEdge scans a single row into an EdgeRecord.
func scanEdge(row pgx.Row) (*domain.EdgeRecord, error) {
	var e domain.EdgeRecord
	var direction, entryRule, status string
	var filters []byte

	err := row.Scan(
		&e.EdgeID,
		&e.Definition.Instrument,
		&e.Definition.RangeStartMinute,
		&e.Definition.RangeDurationMin,
		&direction,
		&entryRule,
		&e.Definition.StopFraction,
		&e.Definition.RewardRisk,
		&e.Definition.ConfirmationBars,
		&filters,
		&status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Definition.Direction = domain.Direction(direction)
	e.Definition.EntryRule = domain.EntryRule(entryRule)
	e.Status = domain.EdgeStatus(status)
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &e.Definition.Filters); err != nil {
			return nil, fmt.Errorf("unmarshal filters: %w", err)
		}
	}
	return &e, nil
}
