// Package sweep evaluates a grid of strategy definitions concurrently.
// Each candidate runs the full pipeline: sample build, validation gate,
// lifecycle transition.
package sweep

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/idhash"
	"orb-edge-lab/internal/lifecycle"
	"orb-edge-lab/internal/observability"
	"orb-edge-lab/internal/simulate"
	"orb-edge-lab/internal/storage"
	"orb-edge-lab/internal/validate"
)

// Sweeper fans a grid of definitions out over a worker pool.
type Sweeper struct {
	runner    *simulate.Runner
	gate      *validate.Gate
	lifecycle *lifecycle.Manager
	metrics   *observability.Metrics // optional; nil disables instrumentation
	log       zerolog.Logger
	workers   int
}

// Options contains configuration for creating a Sweeper.
type Options struct {
	Runner    *simulate.Runner
	Gate      *validate.Gate
	Lifecycle *lifecycle.Manager
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
	Workers   int
}

// New creates a sweeper. Workers defaults to 4 when unset.
func New(opts Options) *Sweeper {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Sweeper{
		runner:    opts.Runner,
		gate:      opts.Gate,
		lifecycle: opts.Lifecycle,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		workers:   workers,
	}
}

// EdgeResult is the outcome of evaluating one grid cell.
type EdgeResult struct {
	EdgeID     string
	Definition *domain.StrategyDefinition
	Verdict    *domain.ValidationVerdict
	Stats      *simulate.SampleStats
	Err        error
}

// Summary aggregates a sweep's verdict counts.
type Summary struct {
	Total    int
	Approved int
	Marginal int
	Rejected int
	Errors   int
}

// Run expands the grid and evaluates every definition. Results come
// back sorted by edge id, so repeated sweeps over the same grid are
// directly comparable. A canceled context stops scheduling new cells;
// cells already in flight finish.
func (s *Sweeper) Run(
	ctx context.Context,
	grid Grid,
	spec domain.InstrumentSpec,
	frictionCeiling float64,
	startMs, endMs int64,
) ([]EdgeResult, Summary, error) {
	defs := grid.Expand()
	started := time.Now()

	s.log.Info().
		Int("candidates", len(defs)).
		Int("workers", s.workers).
		Str("instrument", grid.Instrument).
		Msg("sweep started")

	jobs := make(chan *domain.StrategyDefinition)
	results := make(chan EdgeResult)

	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			for def := range jobs {
				results <- s.evaluate(ctx, def, spec, frictionCeiling, startMs, endMs)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, def := range defs {
			select {
			case jobs <- def:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []EdgeResult
	var summary Summary
	for res := range results {
		summary.Total++
		switch {
		case res.Err != nil:
			summary.Errors++
			if s.metrics != nil {
				s.metrics.SweepErrors.Inc()
			}
			s.log.Error().Err(res.Err).Str("edge_id", res.EdgeID).Msg("edge evaluation failed")
		case res.Verdict.Classification == domain.ClassificationApproved:
			summary.Approved++
		case res.Verdict.Classification == domain.ClassificationMarginal:
			summary.Marginal++
		default:
			summary.Rejected++
		}
		out = append(out, res)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EdgeID < out[j].EdgeID })

	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(started).Seconds())
	}
	s.log.Info().
		Int("total", summary.Total).
		Int("approved", summary.Approved).
		Int("marginal", summary.Marginal).
		Int("rejected", summary.Rejected).
		Int("errors", summary.Errors).
		Dur("elapsed", time.Since(started)).
		Msg("sweep finished")

	return out, summary, ctx.Err()
}

// evaluate runs one definition through the full pipeline.
func (s *Sweeper) evaluate(
	ctx context.Context,
	def *domain.StrategyDefinition,
	spec domain.InstrumentSpec,
	frictionCeiling float64,
	startMs, endMs int64,
) EdgeResult {
	started := time.Now()
	edgeID := idhash.ComputeEdgeID(def)
	res := EdgeResult{EdgeID: edgeID, Definition: def}

	if s.lifecycle != nil {
		if _, err := s.lifecycle.Register(ctx, def); err != nil {
			res.Err = err
			return res
		}
	}

	sample, stats, err := s.runner.BuildSample(ctx, def, spec, frictionCeiling, startMs, endMs)
	if err != nil {
		res.Err = err
		return res
	}
	res.Stats = stats
	if s.metrics != nil {
		s.metrics.SweepEdgesTotal.Inc()
		s.metrics.RecordSample(stats.Trades, stats.FrictionFlags, stats.Skips)
	}

	verdict := s.gate.Run(sample)
	res.Verdict = verdict
	if s.metrics != nil {
		s.metrics.RecordVerdict(string(verdict.Classification), failedPhases(verdict))
		s.metrics.EdgeEvalDuration.Observe(time.Since(started).Seconds())
	}

	if s.lifecycle != nil {
		run, err := s.lifecycle.ApplyVerdict(ctx, verdict)
		if err != nil {
			if s.metrics != nil && errors.Is(err, storage.ErrStatusConflict) {
				s.metrics.StatusConflicts.Inc()
			}
			res.Err = err
			return res
		}
		if s.metrics != nil && run.FromStatus != run.ToStatus {
			s.metrics.RecordTransition(string(run.FromStatus), string(run.ToStatus))
		}
	}

	s.log.Debug().
		Str("edge_id", edgeID).
		Str("classification", string(verdict.Classification)).
		Int("sample_size", verdict.SampleSize).
		Float64("expectancy", verdict.Expectancy).
		Msg("edge evaluated")

	return res
}

// failedPhases lists phases that recorded a hard FAIL.
func failedPhases(v *domain.ValidationVerdict) []string {
	var out []string
	for _, p := range v.Phases {
		if p.Status == domain.PhaseFail {
			out = append(out, p.Phase)
		}
	}
	return out
}
