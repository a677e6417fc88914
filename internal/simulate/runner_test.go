package simulate

import (
	"context"
	"errors"
	"testing"
	"time"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/storage/memory"
)

func dayBar(day time.Time, minute int, high, low, close float64) domain.Bar {
	return domain.Bar{
		TimestampMs: day.Add(time.Duration(minute) * time.Minute).UnixMilli(),
		Open:        close,
		High:        high,
		Low:         low,
		Close:       close,
		Volume:      100,
	}
}

// winDay yields a range of size 1.0 at [99.50, 100.50], an up breakout
// at 101.00, and a target run on the next bar.
func winDay(day time.Time) []domain.Bar {
	bars := make([]domain.Bar, 0, 17)
	for m := 570; m < 585; m++ {
		bars = append(bars, dayBar(day, m, 100.50, 99.50, 100.00))
	}
	return append(bars,
		dayBar(day, 585, 101.20, 100.60, 101.00),
		dayBar(day, 586, 102.00, 100.80, 101.90),
	)
}

// quietDay yields a range but no breakout.
func quietDay(day time.Time) []domain.Bar {
	bars := make([]domain.Bar, 0, 16)
	for m := 570; m < 585; m++ {
		bars = append(bars, dayBar(day, m, 100.50, 99.50, 100.00))
	}
	return append(bars, dayBar(day, 585, 100.40, 99.60, 100.10))
}

// hangingDay yields a breakout that never resolves.
func hangingDay(day time.Time) []domain.Bar {
	bars := make([]domain.Bar, 0, 17)
	for m := 570; m < 585; m++ {
		bars = append(bars, dayBar(day, m, 100.50, 99.50, 100.00))
	}
	return append(bars,
		dayBar(day, 585, 101.20, 100.60, 101.00),
		dayBar(day, 586, 101.40, 100.70, 101.10),
	)
}

func seedBars(t *testing.T, store *memory.BarStore, bars []domain.Bar) {
	t.Helper()
	if err := store.InsertBulk(context.Background(), "MES", bars); err != nil {
		t.Fatalf("seed bars: %v", err)
	}
}

var day0 = time.Date(2023, 3, 6, 0, 0, 0, 0, time.UTC)

func window(days int) (int64, int64) {
	return day0.UnixMilli(), day0.Add(time.Duration(days) * 24 * time.Hour).UnixMilli()
}

func TestBuildSample_MixedDays(t *testing.T) {
	store := memory.NewBarStore()
	var all []domain.Bar
	all = append(all, winDay(day0)...)
	all = append(all, quietDay(day0.Add(24*time.Hour))...)
	all = append(all, winDay(day0.Add(48*time.Hour))...)
	seedBars(t, store, all)

	runner := NewRunner(RunnerOptions{BarStore: store})
	startMs, endMs := window(3)

	sample, stats, err := runner.BuildSample(context.Background(), testDef(), mesSpec(), 0.20, startMs, endMs)
	if err != nil {
		t.Fatalf("BuildSample: %v", err)
	}

	if sample.Size() != 2 {
		t.Errorf("expected 2 trades, got %d", sample.Size())
	}
	if stats.DaysTotal != 3 {
		t.Errorf("expected 3 days, got %d", stats.DaysTotal)
	}
	if stats.Skips[domain.SkipNoBreakout] != 1 {
		t.Errorf("expected 1 NO_BREAKOUT skip, got %d", stats.Skips[domain.SkipNoBreakout])
	}
}

func TestBuildSample_NoOutcomePersistedButExcluded(t *testing.T) {
	barStore := memory.NewBarStore()
	tradeStore := memory.NewTradeStore()
	var all []domain.Bar
	all = append(all, winDay(day0)...)
	all = append(all, hangingDay(day0.Add(24*time.Hour))...)
	seedBars(t, barStore, all)

	runner := NewRunner(RunnerOptions{BarStore: barStore, TradeStore: tradeStore})
	startMs, endMs := window(2)

	sample, stats, err := runner.BuildSample(context.Background(), testDef(), mesSpec(), 0.20, startMs, endMs)
	if err != nil {
		t.Fatalf("BuildSample: %v", err)
	}

	if sample.Size() != 1 {
		t.Errorf("expected 1 trade in the sample, got %d", sample.Size())
	}
	if stats.Skips[domain.OutcomeNoOutcome] != 1 {
		t.Errorf("expected 1 NO_OUTCOME exclusion, got %d", stats.Skips[domain.OutcomeNoOutcome])
	}

	// The unresolved trade still reaches the store for the record.
	persisted, err := tradeStore.GetByEdgeID(context.Background(), sample.EdgeID)
	if err != nil {
		t.Fatalf("GetByEdgeID: %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("expected 2 persisted trades, got %d", len(persisted))
	}
	outcomes := map[string]int{}
	for _, tr := range persisted {
		outcomes[tr.Outcome]++
	}
	if outcomes[domain.OutcomeNoOutcome] != 1 || outcomes[domain.OutcomeWin] != 1 {
		t.Errorf("unexpected persisted outcomes: %v", outcomes)
	}
}

func TestBuildSample_CountsFrictionFlags(t *testing.T) {
	store := memory.NewBarStore()
	var all []domain.Bar
	all = append(all, winDay(day0)...)
	all = append(all, winDay(day0.Add(24*time.Hour))...)
	seedBars(t, store, all)

	runner := NewRunner(RunnerOptions{BarStore: store})
	startMs, endMs := window(2)

	// Friction on these trades is 1.24/(0.75*5) = 0.3307, so a 0.20
	// ceiling flags both wins and a 0.40 ceiling flags neither.
	_, tight, err := runner.BuildSample(context.Background(), testDef(), mesSpec(), 0.20, startMs, endMs)
	if err != nil {
		t.Fatalf("BuildSample: %v", err)
	}
	if tight.FrictionFlags != 2 {
		t.Errorf("expected 2 flagged trades under ceiling 0.20, got %d", tight.FrictionFlags)
	}

	_, loose, err := runner.BuildSample(context.Background(), testDef(), mesSpec(), 0.40, startMs, endMs)
	if err != nil {
		t.Fatalf("BuildSample: %v", err)
	}
	if loose.FrictionFlags != 0 {
		t.Errorf("expected no flagged trades under ceiling 0.40, got %d", loose.FrictionFlags)
	}
}

func TestBuildSample_Deterministic(t *testing.T) {
	store := memory.NewBarStore()
	var all []domain.Bar
	for d := 0; d < 5; d++ {
		all = append(all, winDay(day0.Add(time.Duration(d)*24*time.Hour))...)
	}
	seedBars(t, store, all)

	runner := NewRunner(RunnerOptions{BarStore: store})
	startMs, endMs := window(5)

	a, _, err := runner.BuildSample(context.Background(), testDef(), mesSpec(), 0.20, startMs, endMs)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, _, err := runner.BuildSample(context.Background(), testDef(), mesSpec(), 0.20, startMs, endMs)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if a.EdgeID != b.EdgeID || a.Size() != b.Size() {
		t.Fatalf("runs disagree: %s/%d vs %s/%d", a.EdgeID, a.Size(), b.EdgeID, b.Size())
	}
	for i := range a.Trades {
		if *a.Trades[i] != *b.Trades[i] {
			t.Errorf("trade %d differs between runs", i)
		}
	}
}

func TestBuildSample_PriorSessionFilter(t *testing.T) {
	store := memory.NewBarStore()
	var all []domain.Bar
	all = append(all, winDay(day0)...) // closes above its open: UP session
	all = append(all, winDay(day0.Add(24*time.Hour))...)
	seedBars(t, store, all)

	down := domain.SessionTypeDown
	def := testDef()
	def.Filters = []domain.FilterConfig{
		{FilterType: domain.FilterPriorSessionType, PriorSessionType: &down},
	}

	runner := NewRunner(RunnerOptions{BarStore: store})
	startMs, endMs := window(2)

	sample, stats, err := runner.BuildSample(context.Background(), def, mesSpec(), 0.20, startMs, endMs)
	if err != nil {
		t.Fatalf("BuildSample: %v", err)
	}

	// Day 1 has no prior session (empty never matches DOWN) and day 2's
	// prior session is UP, so every day is filtered out.
	if sample.Size() != 0 {
		t.Errorf("expected an empty sample, got %d trades", sample.Size())
	}
	if stats.Skips[domain.SkipFiltered] != 2 {
		t.Errorf("expected 2 FILTERED skips, got %d", stats.Skips[domain.SkipFiltered])
	}
}

func TestBuildSample_InvalidDefinition(t *testing.T) {
	def := testDef()
	def.StopFraction = 0

	runner := NewRunner(RunnerOptions{BarStore: memory.NewBarStore()})
	startMs, endMs := window(1)

	_, _, err := runner.BuildSample(context.Background(), def, mesSpec(), 0.20, startMs, endMs)
	if !errors.Is(err, domain.ErrInvalidDefinition) {
		t.Errorf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestBuildSample_EmptyRange(t *testing.T) {
	runner := NewRunner(RunnerOptions{BarStore: memory.NewBarStore()})
	startMs, endMs := window(1)

	sample, stats, err := runner.BuildSample(context.Background(), testDef(), mesSpec(), 0.20, startMs, endMs)
	if err != nil {
		t.Fatalf("BuildSample: %v", err)
	}
	if sample.Size() != 0 || stats.DaysTotal != 0 {
		t.Errorf("expected an empty sample over no bars, got %d trades / %d days", sample.Size(), stats.DaysTotal)
	}
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
