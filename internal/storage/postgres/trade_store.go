package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.SimulatedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO simulated_trades (
			trade_id, edge_id, day, direction, range_size,
			entry_idealized, entry_real, stop_price, target_price,
			outcome, bars_to_resolution,
			canonical_r, real_r, friction_ratio, friction_flag
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}

		_, err := tx.Exec(ctx, query,
			t.TradeID,
			t.EdgeID,
			t.Day,
			string(t.Direction),
			t.RangeSize,
			t.EntryIdealized,
			t.EntryReal,
			t.StopPrice,
			t.TargetPrice,
			t.Outcome,
			t.BarsToResolution,
			t.CanonicalR,
			t.RealR,
			t.FrictionRatio,
			t.FrictionFlag,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

const tradeColumns = `
	trade_id, edge_id, day, direction, range_size,
	entry_idealized, entry_real, stop_price, target_price,
	outcome, bars_to_resolution,
	canonical_r, real_r, friction_ratio, friction_flag
`

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.SimulatedTrade, error) {
	query := `SELECT ` + tradeColumns + ` FROM simulated_trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByEdgeID retrieves all trades for an edge, ordered by day ASC.
func (s *TradeStore) GetByEdgeID(ctx context.Context, edgeID string) ([]*domain.SimulatedTrade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM simulated_trades
		WHERE edge_id = $1
		ORDER BY day ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, edgeID)
	if err != nil {
		return nil, fmt.Errorf("get trades by edge id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.SimulatedTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}

// scanTrade scans a single row into a SimulatedTrade.
func scanTrade(row pgx.Row) (*domain.SimulatedTrade, error) {
	var t domain.SimulatedTrade
	var direction string

	err := row.Scan(
		&t.TradeID,
		&t.EdgeID,
		&t.Day,
		&direction,
		&t.RangeSize,
		&t.EntryIdealized,
		&t.EntryReal,
		&t.StopPrice,
		&t.TargetPrice,
		&t.Outcome,
		&t.BarsToResolution,
		&t.CanonicalR,
		&t.RealR,
		&t.FrictionRatio,
		&t.FrictionFlag,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = domain.BreakoutDirection(direction)
	return &t, nil
}
