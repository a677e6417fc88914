// Package simulate replays trading days against a strategy definition.
//
// The day simulator is a pure function of the bar series and the
// definition: no external state, no I/O, fully deterministic and
// replayable.
package simulate

import (
	"orb-edge-lab/internal/breakout"
	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/execution"
	"orb-edge-lab/internal/idhash"
	"orb-edge-lab/internal/openrange"
)

// DayResult is the outcome of simulating one trading day.
type DayResult struct {
	Trade      *domain.SimulatedTrade // nil when the day is skipped
	SkipReason string                 // set when Trade is nil or excluded
}

// SimulateDay runs the state machine for one trading day:
//
//	AWAITING_ENTRY -> OPEN -> {WIN, LOSS, NO_OUTCOME}
//
// Days without a range, without a breakout, with non-positive risk, or
// whose target cannot cover execution costs contribute no trade; the
// reason is recorded so exclusions are never silent. NO_OUTCOME trades are returned with the skip reason set so
// callers exclude them from the sample rather than zero-filling them.
func SimulateDay(dayBars []domain.Bar, def *domain.StrategyDefinition, costs *execution.CostModel, edgeID string) DayResult {
	rng, ok := openrange.Build(dayBars, def)
	if !ok {
		return DayResult{SkipReason: domain.SkipNoRange}
	}

	sig := breakout.Detect(dayBars, rng, def)
	if sig.Direction == domain.BreakoutNone {
		return DayResult{SkipReason: domain.SkipNoBreakout}
	}

	entry := entryPrice(dayBars[sig.SignalBarIndex], rng, sig.Direction, def.EntryRule)
	stopDist := rng.Size() * def.StopFraction
	if stopDist <= 0 {
		// Degenerate range: stop would sit on or beyond the entry.
		return DayResult{SkipReason: domain.SkipRiskTooSmall}
	}
	if !costs.CoversCosts(stopDist * def.RewardRisk) {
		// The target cannot outrun slippage plus commission, so even
		// a filled target loses money. Excluded up front; otherwise a
		// WIN would carry a negative real return-multiple.
		return DayResult{SkipReason: domain.SkipTargetInsideFriction}
	}

	sign := 1.0
	if sig.Direction == domain.BreakoutDown {
		sign = -1.0
	}

	trade := &domain.SimulatedTrade{
		TradeID:        idhash.ComputeTradeID(edgeID, sig.Day, string(sig.Direction), sig.SignalBarIndex),
		EdgeID:         edgeID,
		Day:            sig.Day,
		Direction:      sig.Direction,
		RangeSize:      rng.Size(),
		EntryIdealized: entry,
		StopPrice:      entry - sign*stopDist,
		TargetPrice:    entry + sign*stopDist*def.RewardRisk,
		Outcome:        domain.OutcomeNoOutcome,
	}

	// Walk forward from the bar after entry. Stop is checked before
	// target on every bar: when both levels fall inside one bar's
	// range the intrabar sequencing is unknown, so stop-first is the
	// canonical conservative policy.
	for i := sig.SignalBarIndex + 1; i < len(dayBars); i++ {
		b := dayBars[i]
		trade.BarsToResolution = i - sig.SignalBarIndex

		if stopTouched(b, trade.StopPrice, sig.Direction) {
			trade.Outcome = domain.OutcomeLoss
			break
		}
		if targetTouched(b, trade.TargetPrice, sig.Direction) {
			trade.Outcome = domain.OutcomeWin
			break
		}
	}

	if trade.Outcome == domain.OutcomeNoOutcome {
		// Scan window exhausted with neither level touched. The trade
		// is excluded from the expectancy sample; folding it into a 0R
		// breakeven would silently inflate apparent expectancy.
		return DayResult{Trade: trade, SkipReason: domain.OutcomeNoOutcome}
	}

	costs.Apply(trade)
	return DayResult{Trade: trade}
}

// entryPrice returns the idealized entry for the signal bar.
func entryPrice(signalBar domain.Bar, rng domain.OpeningRange, dir domain.BreakoutDirection, rule domain.EntryRule) float64 {
	if rule == domain.EntryRuleRangeTouch {
		if dir == domain.BreakoutUp {
			return rng.High
		}
		return rng.Low
	}
	return signalBar.Close
}

func stopTouched(b domain.Bar, stop float64, dir domain.BreakoutDirection) bool {
	if dir == domain.BreakoutUp {
		return b.Low <= stop
	}
	return b.High >= stop
}

func targetTouched(b domain.Bar, target float64, dir domain.BreakoutDirection) bool {
	if dir == domain.BreakoutUp {
		return b.High >= target
	}
	return b.Low <= target
}
