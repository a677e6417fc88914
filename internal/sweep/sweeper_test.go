package sweep

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/lifecycle"
	"orb-edge-lab/internal/observability"
	"orb-edge-lab/internal/simulate"
	"orb-edge-lab/internal/storage"
	"orb-edge-lab/internal/storage/memory"
	"orb-edge-lab/internal/validate"
)

const minuteMs = int64(60_000)
const dayMs = int64(24 * 60 * minuteMs)

// winningDay builds one session where the opening range is 99.5..100.5,
// minute 585 closes above the range and the next bar tags the target.
func winningDay(day int64) []domain.Bar {
	base := day * dayMs
	var bars []domain.Bar
	for m := 570; m < 585; m++ {
		bars = append(bars, domain.Bar{
			TimestampMs: base + int64(m)*minuteMs,
			Open:        100.0, High: 100.5, Low: 99.5, Close: 100.0,
			Volume: 100,
		})
	}
	bars = append(bars, domain.Bar{
		TimestampMs: base + 585*minuteMs,
		Open:        100.4, High: 101.1, Low: 100.3, Close: 101.0,
		Volume: 100,
	})
	bars = append(bars, domain.Bar{
		TimestampMs: base + 586*minuteMs,
		Open:        101.0, High: 102.5, Low: 100.9, Close: 102.0,
		Volume: 100,
	})
	return bars
}

func mesSpec() domain.InstrumentSpec {
	return domain.InstrumentSpec{
		Symbol:             "MES",
		TickSize:           0.25,
		PointValue:         5.0,
		CommissionPerTrade: 1.24,
		SlippageTicks:      1,
	}
}

func newTestSweeper(t *testing.T, bars *memory.BarStore, workers int) (*Sweeper, *memory.EdgeStore) {
	t.Helper()

	gate, err := validate.NewGate(validate.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}

	edges := memory.NewEdgeStore()
	runs := memory.NewValidationRunStore()

	sweeper := New(Options{
		Runner:    simulate.NewRunner(simulate.RunnerOptions{BarStore: bars}),
		Gate:      gate,
		Lifecycle: lifecycle.NewManager(edges, runs),
		Logger:    zerolog.Nop(),
		Workers:   workers,
	})
	return sweeper, edges
}

func TestSweeper_ApprovesUniformWinner(t *testing.T) {
	bars := memory.NewBarStore()
	ctx := context.Background()

	var all []domain.Bar
	for day := int64(0); day < 40; day++ {
		all = append(all, winningDay(day)...)
	}
	if err := bars.InsertBulk(ctx, "MES", all); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	sweeper, edges := newTestSweeper(t, bars, 2)
	grid := Grid{Instrument: "MES", RangeStartMinute: 570}

	results, summary, err := sweeper.Run(ctx, grid, mesSpec(), 0.5, 0, 40*dayMs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Total != 1 || summary.Approved != 1 {
		t.Fatalf("Expected 1 approved edge, got %+v", summary)
	}
	if results[0].Verdict.SampleSize != 40 {
		t.Errorf("Expected 40 trades, got %d", results[0].Verdict.SampleSize)
	}

	edge, err := edges.GetByID(ctx, results[0].EdgeID)
	if err != nil {
		t.Fatalf("Edge not registered: %v", err)
	}
	if edge.Status != domain.EdgeValidated {
		t.Errorf("Expected VALIDATED, got %s", edge.Status)
	}
}

func TestSweeper_RejectsSmallSample(t *testing.T) {
	bars := memory.NewBarStore()
	ctx := context.Background()

	var all []domain.Bar
	for day := int64(0); day < 5; day++ {
		all = append(all, winningDay(day)...)
	}
	_ = bars.InsertBulk(ctx, "MES", all)

	sweeper, edges := newTestSweeper(t, bars, 2)
	grid := Grid{Instrument: "MES", RangeStartMinute: 570}

	results, summary, err := sweeper.Run(ctx, grid, mesSpec(), 0.5, 0, 5*dayMs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Rejected != 1 {
		t.Fatalf("Expected 1 rejected edge, got %+v", summary)
	}
	if results[0].Verdict.FailureCode != domain.ReasonSampleTooSmall {
		t.Errorf("Expected SAMPLE_TOO_SMALL, got %s", results[0].Verdict.FailureCode)
	}

	edge, _ := edges.GetByID(ctx, results[0].EdgeID)
	if edge.Status != domain.EdgeTestedFailed {
		t.Errorf("Expected TESTED_FAILED, got %s", edge.Status)
	}
}

// casLosingEdgeStore loses every compare-and-set as if a concurrent
// worker moved the edge first.
type casLosingEdgeStore struct {
	*memory.EdgeStore
}

func (s *casLosingEdgeStore) UpdateStatus(context.Context, string, domain.EdgeStatus, domain.EdgeStatus) error {
	return storage.ErrStatusConflict
}

func TestSweeper_CountsStatusConflicts(t *testing.T) {
	bars := memory.NewBarStore()
	ctx := context.Background()

	var all []domain.Bar
	for day := int64(0); day < 40; day++ {
		all = append(all, winningDay(day)...)
	}
	if err := bars.InsertBulk(ctx, "MES", all); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	gate, err := validate.NewGate(validate.DefaultThresholds())
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	m := observability.NewMetrics("sweep_test")
	edges := &casLosingEdgeStore{EdgeStore: memory.NewEdgeStore()}
	sweeper := New(Options{
		Runner:    simulate.NewRunner(simulate.RunnerOptions{BarStore: bars}),
		Gate:      gate,
		Lifecycle: lifecycle.NewManager(edges, memory.NewValidationRunStore()),
		Metrics:   m,
		Logger:    zerolog.Nop(),
		Workers:   1,
	})

	_, summary, err := sweeper.Run(ctx, Grid{Instrument: "MES", RangeStartMinute: 570}, mesSpec(), 0.5, 0, 40*dayMs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Errors != 1 {
		t.Fatalf("expected the conflicted edge to error, got %+v", summary)
	}
	if got := testutil.ToFloat64(m.StatusConflicts); got != 1 {
		t.Errorf("expected 1 recorded status conflict, got %v", got)
	}
}

func TestSweeper_ResultsSortedByEdgeID(t *testing.T) {
	bars := memory.NewBarStore()
	ctx := context.Background()

	var all []domain.Bar
	for day := int64(0); day < 3; day++ {
		all = append(all, winningDay(day)...)
	}
	_ = bars.InsertBulk(ctx, "MES", all)

	sweeper, _ := newTestSweeper(t, bars, 4)
	grid := Grid{
		Instrument:       "MES",
		RangeStartMinute: 570,
		StopFractions:    []float64{0.25, 0.5, 0.75, 1.0},
		RewardRisks:      []float64{1.0, 1.5, 2.0},
	}

	results, summary, err := sweeper.Run(ctx, grid, mesSpec(), 0.5, 0, 3*dayMs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Total != 12 {
		t.Fatalf("Expected 12 results, got %d", summary.Total)
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].EdgeID >= results[i].EdgeID {
			t.Fatalf("Results not sorted at index %d", i)
		}
	}
}

func TestSweeper_CanceledContext(t *testing.T) {
	bars := memory.NewBarStore()
	sweeper, _ := newTestSweeper(t, bars, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	grid := Grid{
		Instrument:       "MES",
		RangeStartMinute: 570,
		StopFractions:    []float64{0.25, 0.5, 0.75, 1.0},
	}

	_, summary, err := sweeper.Run(ctx, grid, mesSpec(), 0.5, 0, dayMs)
	if err == nil {
		t.Fatal("Expected context error")
	}
	if summary.Total > 4 {
		t.Errorf("Expected early stop, evaluated %d", summary.Total)
	}
}
