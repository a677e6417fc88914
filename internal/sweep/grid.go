package sweep

import (
	"orb-edge-lab/internal/domain"
)

// Grid describes the parameter space of a sweep. Every axis with
// multiple values multiplies the number of candidate definitions; empty
// axes fall back to a single default.
type Grid struct {
	Instrument        string
	RangeStartMinute  int
	RangeDurationsMin []int
	Directions        []domain.Direction
	EntryRules        []domain.EntryRule
	StopFractions     []float64
	RewardRisks       []float64
	ConfirmationBars  []int
	Filters           [][]domain.FilterConfig // each entry is one filter set, nil allowed
}

// Expand enumerates every definition in the grid, in a deterministic
// order. Invalid combinations are not filtered here; callers validate
// each definition before running it.
func (g Grid) Expand() []*domain.StrategyDefinition {
	durations := g.RangeDurationsMin
	if len(durations) == 0 {
		durations = []int{15}
	}
	directions := g.Directions
	if len(directions) == 0 {
		directions = []domain.Direction{domain.DirectionBoth}
	}
	rules := g.EntryRules
	if len(rules) == 0 {
		rules = []domain.EntryRule{domain.EntryRuleCloseThrough}
	}
	stops := g.StopFractions
	if len(stops) == 0 {
		stops = []float64{0.5}
	}
	rewards := g.RewardRisks
	if len(rewards) == 0 {
		rewards = []float64{1.5}
	}
	confirmations := g.ConfirmationBars
	if len(confirmations) == 0 {
		confirmations = []int{1}
	}
	filterSets := g.Filters
	if len(filterSets) == 0 {
		filterSets = [][]domain.FilterConfig{nil}
	}

	var defs []*domain.StrategyDefinition
	for _, dur := range durations {
		for _, dir := range directions {
			for _, rule := range rules {
				for _, stop := range stops {
					for _, rr := range rewards {
						for _, conf := range confirmations {
							for _, filters := range filterSets {
								defs = append(defs, &domain.StrategyDefinition{
									Instrument:       g.Instrument,
									RangeStartMinute: g.RangeStartMinute,
									RangeDurationMin: dur,
									Direction:        dir,
									EntryRule:        rule,
									StopFraction:     stop,
									RewardRisk:       rr,
									ConfirmationBars: conf,
									Filters:          filters,
								})
							}
						}
					}
				}
			}
		}
	}
	return defs
}
