package lifecycle

import (
	"context"
	"errors"
	"testing"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage"
	"orb-edge-lab/internal/storage/memory"
)

func testDefinition() *domain.StrategyDefinition {
	return &domain.StrategyDefinition{
		Instrument:       "MES",
		RangeStartMinute: 570,
		RangeDurationMin: 15,
		Direction:        domain.DirectionBoth,
		EntryRule:        domain.EntryRuleCloseThrough,
		StopFraction:     0.5,
		RewardRisk:       1.5,
		ConfirmationBars: 1,
	}
}

func verdictFor(edgeID string, class domain.Classification) *domain.ValidationVerdict {
	return &domain.ValidationVerdict{
		EdgeID:         edgeID,
		Classification: class,
		SampleSize:     40,
		Expectancy:     0.2,
	}
}

func newTestManager() (*Manager, *memory.EdgeStore, *memory.ValidationRunStore) {
	edges := memory.NewEdgeStore()
	runs := memory.NewValidationRunStore()
	return NewManager(edges, runs), edges, runs
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.EdgeStatus
		want     bool
	}{
		{domain.EdgeNeverTested, domain.EdgeValidated, true},
		{domain.EdgeNeverTested, domain.EdgeTestedFailed, true},
		{domain.EdgeNeverTested, domain.EdgePromoted, false},
		{domain.EdgeTestedFailed, domain.EdgeValidated, true},
		{domain.EdgeTestedFailed, domain.EdgeNeverTested, false},
		{domain.EdgeValidated, domain.EdgePromoted, true},
		{domain.EdgeValidated, domain.EdgeTestedFailed, true},
		{domain.EdgeValidated, domain.EdgeRetired, true},
		{domain.EdgePromoted, domain.EdgeRetired, true},
		{domain.EdgePromoted, domain.EdgeValidated, false},
		{domain.EdgeRetired, domain.EdgeValidated, false},
	}

	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestManager_Register(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()

	rec, err := mgr.Register(ctx, testDefinition())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if rec.Status != domain.EdgeNeverTested {
		t.Errorf("Expected NEVER_TESTED, got %s", rec.Status)
	}
	if rec.EdgeID == "" {
		t.Error("EdgeID not computed")
	}
}

func TestManager_RegisterIdempotent(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()

	first, err := mgr.Register(ctx, testDefinition())
	if err != nil {
		t.Fatalf("First register failed: %v", err)
	}

	again, err := mgr.Register(ctx, testDefinition())
	if err != nil {
		t.Fatalf("Second register failed: %v", err)
	}
	if again.EdgeID != first.EdgeID {
		t.Errorf("EdgeID changed on re-register: %s vs %s", again.EdgeID, first.EdgeID)
	}
}

func TestManager_ApplyVerdictApproved(t *testing.T) {
	mgr, edges, runs := newTestManager()
	ctx := context.Background()

	rec, _ := mgr.Register(ctx, testDefinition())

	run, err := mgr.ApplyVerdict(ctx, verdictFor(rec.EdgeID, domain.ClassificationApproved))
	if err != nil {
		t.Fatalf("ApplyVerdict failed: %v", err)
	}
	if run.FromStatus != domain.EdgeNeverTested || run.ToStatus != domain.EdgeValidated {
		t.Errorf("Run transition mismatch: %s -> %s", run.FromStatus, run.ToStatus)
	}

	edge, _ := edges.GetByID(ctx, rec.EdgeID)
	if edge.Status != domain.EdgeValidated {
		t.Errorf("Expected VALIDATED, got %s", edge.Status)
	}

	history, _ := runs.GetByEdgeID(ctx, rec.EdgeID)
	if len(history) != 1 {
		t.Errorf("Expected 1 run recorded, got %d", len(history))
	}
}

func TestManager_ApplyVerdictRejected(t *testing.T) {
	mgr, edges, _ := newTestManager()
	ctx := context.Background()

	rec, _ := mgr.Register(ctx, testDefinition())

	if _, err := mgr.ApplyVerdict(ctx, verdictFor(rec.EdgeID, domain.ClassificationRejected)); err != nil {
		t.Fatalf("ApplyVerdict failed: %v", err)
	}

	edge, _ := edges.GetByID(ctx, rec.EdgeID)
	if edge.Status != domain.EdgeTestedFailed {
		t.Errorf("Expected TESTED_FAILED, got %s", edge.Status)
	}
}

func TestManager_RevalidationDemotes(t *testing.T) {
	mgr, edges, runs := newTestManager()
	ctx := context.Background()

	rec, _ := mgr.Register(ctx, testDefinition())
	_, _ = mgr.ApplyVerdict(ctx, verdictFor(rec.EdgeID, domain.ClassificationApproved))

	// A later run on fresh data fails; the edge demotes but the old
	// run survives untouched.
	if _, err := mgr.ApplyVerdict(ctx, verdictFor(rec.EdgeID, domain.ClassificationRejected)); err != nil {
		t.Fatalf("Second ApplyVerdict failed: %v", err)
	}

	edge, _ := edges.GetByID(ctx, rec.EdgeID)
	if edge.Status != domain.EdgeTestedFailed {
		t.Errorf("Expected TESTED_FAILED after demotion, got %s", edge.Status)
	}

	history, _ := runs.GetByEdgeID(ctx, rec.EdgeID)
	if len(history) != 2 {
		t.Fatalf("Expected 2 runs in history, got %d", len(history))
	}
	if history[0].Verdict.Classification != domain.ClassificationApproved {
		t.Error("Earlier verdict rewritten")
	}
}

func TestManager_ApplyVerdictSameStatus(t *testing.T) {
	mgr, _, runs := newTestManager()
	ctx := context.Background()

	rec, _ := mgr.Register(ctx, testDefinition())
	_, _ = mgr.ApplyVerdict(ctx, verdictFor(rec.EdgeID, domain.ClassificationRejected))

	// MARGINAL also lands on TESTED_FAILED; still appends a run
	if _, err := mgr.ApplyVerdict(ctx, verdictFor(rec.EdgeID, domain.ClassificationMarginal)); err != nil {
		t.Fatalf("Same-status ApplyVerdict failed: %v", err)
	}

	history, _ := runs.GetByEdgeID(ctx, rec.EdgeID)
	if len(history) != 2 {
		t.Errorf("Expected 2 runs, got %d", len(history))
	}
}

func TestManager_PromoteRequiresValidated(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()

	rec, _ := mgr.Register(ctx, testDefinition())

	err := mgr.Promote(ctx, rec.EdgeID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestManager_PromoteAndRetire(t *testing.T) {
	mgr, edges, _ := newTestManager()
	ctx := context.Background()

	rec, _ := mgr.Register(ctx, testDefinition())
	_, _ = mgr.ApplyVerdict(ctx, verdictFor(rec.EdgeID, domain.ClassificationApproved))

	if err := mgr.Promote(ctx, rec.EdgeID); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	edge, _ := edges.GetByID(ctx, rec.EdgeID)
	if edge.Status != domain.EdgePromoted {
		t.Errorf("Expected PROMOTED, got %s", edge.Status)
	}

	if err := mgr.Retire(ctx, rec.EdgeID); err != nil {
		t.Fatalf("Retire failed: %v", err)
	}
	edge, _ = edges.GetByID(ctx, rec.EdgeID)
	if edge.Status != domain.EdgeRetired {
		t.Errorf("Expected RETIRED, got %s", edge.Status)
	}
}

func TestManager_RetiredIsTerminal(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()

	rec, _ := mgr.Register(ctx, testDefinition())
	_, _ = mgr.ApplyVerdict(ctx, verdictFor(rec.EdgeID, domain.ClassificationApproved))
	_ = mgr.Retire(ctx, rec.EdgeID)

	if _, err := mgr.ApplyVerdict(ctx, verdictFor(rec.EdgeID, domain.ClassificationApproved)); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on retired edge, got %v", err)
	}
	if err := mgr.Promote(ctx, rec.EdgeID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition on retired promote, got %v", err)
	}
}

func TestManager_ApplyVerdictUnknownEdge(t *testing.T) {
	mgr, _, _ := newTestManager()
	ctx := context.Background()

	_, err := mgr.ApplyVerdict(ctx, verdictFor("missing", domain.ClassificationApproved))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
