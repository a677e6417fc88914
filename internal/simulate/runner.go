package simulate

import (
	"context"
	"sort"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/execution"
	"orb-edge-lab/internal/idhash"
	"orb-edge-lab/internal/openrange"
	"orb-edge-lab/internal/storage"
)

// volatilityLookback is the trailing window, in trading days, used to
// compute the median-range volatility reference for day filters.
const volatilityLookback = 20

// Runner builds a Sample for one strategy definition over a date range.
type Runner struct {
	barStore   storage.BarStore
	tradeStore storage.TradeStore // optional; nil disables persistence
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	BarStore   storage.BarStore
	TradeStore storage.TradeStore
}

// NewRunner creates a sample runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		barStore:   opts.BarStore,
		tradeStore: opts.TradeStore,
	}
}

// SampleStats counts how each trading day in the range was used.
// Exclusions are recorded by reason so no day is silently dropped.
type SampleStats struct {
	DaysTotal     int
	Trades        int
	FrictionFlags int // sampled trades whose friction ratio exceeded the ceiling
	Skips         map[string]int
}

// BuildSample replays every trading day in [startMs, endMs] against
// the definition and returns the resolved sample. Bars are loaded once
// up front; the replay itself does no I/O. The same inputs always
// produce an identical sample.
func (r *Runner) BuildSample(
	ctx context.Context,
	def *domain.StrategyDefinition,
	spec domain.InstrumentSpec,
	frictionCeiling float64,
	startMs, endMs int64,
) (*domain.Sample, *SampleStats, error) {
	if err := def.Validate(); err != nil {
		return nil, nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	bars, err := r.barStore.GetByTimeRange(ctx, def.Instrument, startMs, endMs)
	if err != nil {
		return nil, nil, err
	}

	edgeID := idhash.ComputeEdgeID(def)
	costs := execution.NewCostModel(spec, frictionCeiling)
	days := groupByDay(bars)

	sample := &domain.Sample{EdgeID: edgeID}
	stats := &SampleStats{DaysTotal: len(days), Skips: make(map[string]int)}
	var persisted []*domain.SimulatedTrade

	var rangeHistory []float64
	priorSession := ""

	for _, dayBars := range days {
		dayCtx, hasRange := buildDayContext(dayBars, def, rangeHistory, priorSession)
		priorSession = sessionType(dayBars)

		if !hasRange {
			stats.Skips[domain.SkipNoRange]++
			continue
		}
		rangeHistory = append(rangeHistory, dayCtx.Range.Size())

		if !passesFilters(def, dayCtx) {
			stats.Skips[domain.SkipFiltered]++
			continue
		}

		res := SimulateDay(dayBars, def, costs, edgeID)
		if res.Trade != nil {
			persisted = append(persisted, res.Trade)
		}
		if res.Trade == nil || res.SkipReason != "" {
			// NO_OUTCOME trades are recorded above but stay out of
			// the sample; they must not dilute expectancy.
			stats.Skips[res.SkipReason]++
			continue
		}

		sample.Trades = append(sample.Trades, res.Trade)
		if res.Trade.FrictionFlag {
			stats.FrictionFlags++
		}
	}
	stats.Trades = len(sample.Trades)

	if r.tradeStore != nil && len(persisted) > 0 {
		if err := r.tradeStore.InsertBulk(ctx, persisted); err != nil {
			return nil, nil, err
		}
	}

	return sample, stats, nil
}

// groupByDay splits an ordered bar series into per-day slices,
// preserving chronological order of both days and bars.
func groupByDay(bars []domain.Bar) [][]domain.Bar {
	if len(bars) == 0 {
		return nil
	}

	byDay := make(map[int64][]domain.Bar)
	var keys []int64
	for _, b := range bars {
		k := b.DayIndex()
		if _, seen := byDay[k]; !seen {
			keys = append(keys, k)
		}
		byDay[k] = append(byDay[k], b)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([][]domain.Bar, 0, len(keys))
	for _, k := range keys {
		day := byDay[k]
		sort.Slice(day, func(i, j int) bool { return day[i].TimestampMs < day[j].TimestampMs })
		out = append(out, day)
	}
	return out
}

// buildDayContext assembles the filter context for one day. The
// volatility reference uses only prior days' ranges.
func buildDayContext(
	dayBars []domain.Bar,
	def *domain.StrategyDefinition,
	rangeHistory []float64,
	priorSession string,
) (DayContext, bool) {
	rng, ok := openrange.Build(dayBars, def)
	if !ok {
		return DayContext{}, false
	}

	return DayContext{
		Day:                 rng.Day,
		Range:               rng,
		PriorSessionType:    priorSession,
		TrailingMedianRange: trailingMedian(rangeHistory, volatilityLookback),
	}, true
}

// sessionType classifies a day's open-to-close move.
func sessionType(dayBars []domain.Bar) string {
	if len(dayBars) == 0 {
		return ""
	}
	open := dayBars[0].Open
	last := dayBars[len(dayBars)-1].Close
	if last >= open {
		return domain.SessionTypeUp
	}
	return domain.SessionTypeDown
}

// trailingMedian returns the median of the last n values, or 0 when
// the history is empty.
func trailingMedian(history []float64, n int) float64 {
	if len(history) == 0 {
		return 0
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	vals := make([]float64, len(history))
	copy(vals, history)
	sort.Float64s(vals)

	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}
