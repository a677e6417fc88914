package memory

import (
	"context"
	"errors"
	"testing"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
)

func TestTradeStore_InsertBulkAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []*domain.SimulatedTrade{
		{TradeID: "t1", EdgeID: "e1", Day: "2024-01-03", Outcome: domain.OutcomeWin, RealR: 1.4},
		{TradeID: "t2", EdgeID: "e1", Day: "2024-01-02", Outcome: domain.OutcomeLoss, RealR: -1.05},
		{TradeID: "t3", EdgeID: "e2", Day: "2024-01-02", Outcome: domain.OutcomeWin, RealR: 1.4},
	}

	if err := store.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByEdgeID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByEdgeID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(got))
	}
	if got[0].Day != "2024-01-02" || got[1].Day != "2024-01-03" {
		t.Errorf("Trades not ordered by day: %s, %s", got[0].Day, got[1].Day)
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	first := []*domain.SimulatedTrade{{TradeID: "t1", EdgeID: "e1", Day: "2024-01-02"}}
	if err := store.InsertBulk(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, first)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_BulkAtomicity(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, []*domain.SimulatedTrade{{TradeID: "t1", EdgeID: "e1", Day: "2024-01-02"}})

	// t2 is new but t1 is a duplicate; nothing from the batch may land
	err := store.InsertBulk(ctx, []*domain.SimulatedTrade{
		{TradeID: "t2", EdgeID: "e1", Day: "2024-01-03"},
		{TradeID: "t1", EdgeID: "e1", Day: "2024-01-02"},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	if _, err := store.GetByID(ctx, "t2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected t2 absent after failed batch, got %v", err)
	}
}

func TestTradeStore_NotFound(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
