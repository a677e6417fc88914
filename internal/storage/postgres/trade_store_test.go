package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
)

func testTrade(tradeID, edgeID, day string) *domain.SimulatedTrade {
	return &domain.SimulatedTrade{
		TradeID:          tradeID,
		EdgeID:           edgeID,
		Day:              day,
		Direction:        domain.BreakoutUp,
		RangeSize:        2.5,
		EntryIdealized:   2688.0,
		EntryReal:        2688.25,
		StopPrice:        2686.375,
		TargetPrice:      2689.875,
		Outcome:          domain.OutcomeWin,
		BarsToResolution: 7,
		CanonicalR:       1.5,
		RealR:            1.31,
		FrictionRatio:    0.12,
		FrictionFlag:     false,
	}
}

func TestTradeStore_InsertBulkAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	trades := []*domain.SimulatedTrade{
		testTrade("trade-1", "edge-1", "2024-01-02"),
		testTrade("trade-2", "edge-1", "2024-01-03"),
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	retrieved, err := store.GetByID(ctx, "trade-1")
	require.NoError(t, err)

	assert.Equal(t, "edge-1", retrieved.EdgeID)
	assert.Equal(t, domain.BreakoutUp, retrieved.Direction)
	assert.Equal(t, domain.OutcomeWin, retrieved.Outcome)
	assert.Equal(t, 1.31, retrieved.RealR)
	assert.Equal(t, 7, retrieved.BarsToResolution)
	assert.False(t, retrieved.FrictionFlag)
}

func TestTradeStore_InsertBulkDuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.SimulatedTrade{
		testTrade("trade-dup", "edge-1", "2024-01-02"),
	}))

	err := store.InsertBulk(ctx, []*domain.SimulatedTrade{
		testTrade("trade-new", "edge-1", "2024-01-03"),
		testTrade("trade-dup", "edge-1", "2024-01-02"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The batch is atomic; trade-new must not exist
	_, err = store.GetByID(ctx, "trade-new")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_GetByEdgeIDOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.SimulatedTrade{
		testTrade("trade-b", "edge-ord", "2024-01-05"),
		testTrade("trade-a", "edge-ord", "2024-01-02"),
		testTrade("trade-c", "edge-other", "2024-01-03"),
	}))

	trades, err := store.GetByEdgeID(ctx, "edge-ord")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "2024-01-02", trades[0].Day)
	assert.Equal(t, "2024-01-05", trades[1].Day)
}

func TestTradeStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
