// Package reporting renders sweep results as Markdown and CSV.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/metrics"
	"orb-edge-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	edgeStore  storage.EdgeStore
	runStore   storage.ValidationRunStore
	tradeStore storage.TradeStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	edgeStore storage.EdgeStore,
	runStore storage.ValidationRunStore,
	tradeStore storage.TradeStore,
) *Generator {
	return &Generator{
		edgeStore:  edgeStore,
		runStore:   runStore,
		tradeStore: tradeStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// allStatuses in report order.
var allStatuses = []domain.EdgeStatus{
	domain.EdgePromoted,
	domain.EdgeValidated,
	domain.EdgeNeverTested,
	domain.EdgeTestedFailed,
	domain.EdgeRetired,
}

// classRank orders rows: approved edges first, unvalidated last.
var classRank = map[string]int{
	string(domain.ClassificationApproved): 0,
	string(domain.ClassificationMarginal): 1,
	string(domain.ClassificationRejected): 2,
	"":                                    3,
}

// Generate builds the full report from storage.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	report := &Report{
		GeneratedAt:   g.now(),
		StatusCounts:  make(map[string]int),
		VerdictCounts: make(map[string]int),
	}

	for _, status := range allStatuses {
		edges, err := g.edgeStore.GetByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("load edges with status %s: %w", status, err)
		}
		report.StatusCounts[string(status)] = len(edges)
		report.TotalEdges += len(edges)

		for _, edge := range edges {
			row, err := g.buildRow(ctx, edge)
			if err != nil {
				return nil, err
			}
			if row.Classification != "" {
				report.VerdictCounts[row.Classification]++
			}
			report.Edges = append(report.Edges, row)
		}
	}

	sort.Slice(report.Edges, func(i, j int) bool {
		a, b := report.Edges[i], report.Edges[j]
		if classRank[a.Classification] != classRank[b.Classification] {
			return classRank[a.Classification] < classRank[b.Classification]
		}
		if a.Expectancy != b.Expectancy {
			return a.Expectancy > b.Expectancy
		}
		return a.EdgeID < b.EdgeID
	})

	return report, nil
}

// buildRow assembles one edge's report row from its latest run and
// stored trades.
func (g *Generator) buildRow(ctx context.Context, edge *domain.EdgeRecord) (EdgeRow, error) {
	row := EdgeRow{
		EdgeID:     edge.EdgeID,
		Instrument: edge.Definition.Instrument,
		Definition: describeDefinition(&edge.Definition),
		Status:     string(edge.Status),
	}

	runs, err := g.runStore.GetByEdgeID(ctx, edge.EdgeID)
	if err != nil {
		return EdgeRow{}, fmt.Errorf("load runs for edge %s: %w", edge.EdgeID, err)
	}
	if len(runs) > 0 {
		latest := runs[len(runs)-1].Verdict
		row.Classification = string(latest.Classification)
		row.FailureCode = latest.FailureCode
		row.SampleSize = latest.SampleSize
		row.Expectancy = latest.Expectancy
		row.StressedMean50 = latest.StressedMean50
		row.Retention = latest.Retention
	}

	trades, err := g.tradeStore.GetByEdgeID(ctx, edge.EdgeID)
	if err != nil {
		return EdgeRow{}, fmt.Errorf("load trades for edge %s: %w", edge.EdgeID, err)
	}

	var returns []float64
	wins := 0
	for _, t := range trades {
		if t.Outcome == domain.OutcomeNoOutcome {
			continue
		}
		returns = append(returns, t.RealR)
		if t.Outcome == domain.OutcomeWin {
			wins++
		}
		if t.FrictionFlag {
			row.FrictionFlags++
		}
	}
	if len(returns) > 0 {
		row.WinRate = float64(wins) / float64(len(returns))
		row.MaxDrawdown = metrics.MaxDrawdown(returns)
		row.MaxConsecutive = metrics.MaxConsecutiveLosses(returns)
	}

	return row, nil
}

// describeDefinition renders a compact parameter summary, e.g.
// "570+15m BOTH CLOSE_THROUGH stop=0.50 rr=1.5 conf=1".
func describeDefinition(def *domain.StrategyDefinition) string {
	s := fmt.Sprintf("%d+%dm %s %s stop=%.2f rr=%.1f conf=%d",
		def.RangeStartMinute, def.RangeDurationMin,
		def.Direction, def.EntryRule,
		def.StopFraction, def.RewardRisk, def.ConfirmationBars)
	if len(def.Filters) > 0 {
		s += fmt.Sprintf(" filters=%d", len(def.Filters))
	}
	return s
}
