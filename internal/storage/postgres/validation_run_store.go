package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
)

// ValidationRunStore implements storage.ValidationRunStore using PostgreSQL.
// The verdict payload is stored as JSONB so its phase list survives
// round-trips without a satellite table.
type ValidationRunStore struct {
	pool *Pool
}

// NewValidationRunStore creates a new ValidationRunStore.
func NewValidationRunStore(pool *Pool) *ValidationRunStore {
	return &ValidationRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ValidationRunStore = (*ValidationRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ValidationRunStore) Insert(ctx context.Context, r *domain.ValidationRun) error {
	if r == nil || r.RunID == "" || r.EdgeID == "" || r.Verdict == nil {
		return storage.ErrInvalidInput
	}

	verdict, err := json.Marshal(r.Verdict)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	query := `
		INSERT INTO validation_runs (
			run_id, edge_id, verdict, from_status, to_status, ran_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID,
		r.EdgeID,
		verdict,
		string(r.FromStatus),
		string(r.ToStatus),
		r.RanAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert validation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ValidationRunStore) GetByID(ctx context.Context, runID string) (*domain.ValidationRun, error) {
	query := `
		SELECT run_id, edge_id, verdict, from_status, to_status, ran_at
		FROM validation_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// GetByEdgeID retrieves all runs for an edge, ordered by ran_at ASC.
func (s *ValidationRunStore) GetByEdgeID(ctx context.Context, edgeID string) ([]*domain.ValidationRun, error) {
	query := `
		SELECT run_id, edge_id, verdict, from_status, to_status, ran_at
		FROM validation_runs
		WHERE edge_id = $1
		ORDER BY ran_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, edgeID)
	if err != nil {
		return nil, fmt.Errorf("get runs by edge id: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ValidationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// scanRun scans a single row into a ValidationRun.
func scanRun(row pgx.Row) (*domain.ValidationRun, error) {
	var r domain.ValidationRun
	var fromStatus, toStatus string
	var verdict []byte

	err := row.Scan(
		&r.RunID,
		&r.EdgeID,
		&verdict,
		&fromStatus,
		&toStatus,
		&r.RanAt,
	)
	if err != nil {
		return nil, err
	}

	r.FromStatus = domain.EdgeStatus(fromStatus)
	r.ToStatus = domain.EdgeStatus(toStatus)
	r.Verdict = &domain.ValidationVerdict{}
	if err := json.Unmarshal(verdict, r.Verdict); err != nil {
		return nil, fmt.Errorf("unmarshal verdict: %w", err)
	}
	return &r, nil
}
