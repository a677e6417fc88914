// Package breakout finds the first qualifying range break of a day.
package breakout

import (
	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/openrange"
)

// Detect scans bars strictly after the range window, in chronological
// order, and returns the first qualifying breakout signal. The
// detector never inspects bars after the declared signal bar, so its
// decision for a day is invariant to anything that happens later.
//
// CLOSE_THROUGH: a breakout is declared on a close beyond the range
// boundary. RANGE_TOUCH: a high/low touch of a boundary qualifies; a
// bar whose range straddles both boundaries is resolved by the
// direction of its close, and a bar closing back inside the range does
// not count. ConfirmationBars=N requires N consecutive qualifying
// closes beyond the same boundary; the signal is declared on the Nth.
func Detect(dayBars []domain.Bar, rng domain.OpeningRange, def *domain.StrategyDefinition) domain.BreakoutSignal {
	none := domain.BreakoutSignal{Day: rng.Day, Direction: domain.BreakoutNone, SignalBarIndex: -1}

	start := openrange.ScanStart(dayBars, def)

	// Confirmation is always judged on closes beyond the boundary,
	// even when the entry rule is RANGE_TOUCH.
	rule := def.EntryRule
	if def.ConfirmationBars > 1 {
		rule = domain.EntryRuleCloseThrough
	}

	streakDir := domain.BreakoutNone
	streak := 0

	for i := start; i < len(dayBars); i++ {
		dir := barDirection(dayBars[i], rng, rule)

		if dir == domain.BreakoutNone || !directionAllowed(dir, def.Direction) {
			streakDir = domain.BreakoutNone
			streak = 0
			continue
		}

		if dir != streakDir {
			streakDir = dir
			streak = 0
		}
		streak++

		if streak >= def.ConfirmationBars {
			return domain.BreakoutSignal{Day: rng.Day, Direction: dir, SignalBarIndex: i}
		}
	}

	return none
}

// barDirection classifies one bar against the range boundaries.
func barDirection(b domain.Bar, rng domain.OpeningRange, rule domain.EntryRule) domain.BreakoutDirection {
	switch rule {
	case domain.EntryRuleCloseThrough:
		if b.Close > rng.High {
			return domain.BreakoutUp
		}
		if b.Close < rng.Low {
			return domain.BreakoutDown
		}
		return domain.BreakoutNone

	case domain.EntryRuleRangeTouch:
		touchedHigh := b.High > rng.High
		touchedLow := b.Low < rng.Low

		switch {
		case touchedHigh && touchedLow:
			// Straddling bar: resolve by direction of close. A close
			// back inside the range does not count.
			if b.Close > rng.High {
				return domain.BreakoutUp
			}
			if b.Close < rng.Low {
				return domain.BreakoutDown
			}
			return domain.BreakoutNone
		case touchedHigh:
			if b.Close > rng.Low {
				return domain.BreakoutUp
			}
			return domain.BreakoutNone
		case touchedLow:
			if b.Close < rng.High {
				return domain.BreakoutDown
			}
			return domain.BreakoutNone
		default:
			return domain.BreakoutNone
		}
	}

	return domain.BreakoutNone
}

// directionAllowed applies the definition's direction filter.
func directionAllowed(dir domain.BreakoutDirection, filter domain.Direction) bool {
	switch filter {
	case domain.DirectionLong:
		return dir == domain.BreakoutUp
	case domain.DirectionShort:
		return dir == domain.BreakoutDown
	case domain.DirectionBoth:
		return true
	}
	return false
}
