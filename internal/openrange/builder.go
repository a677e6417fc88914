// Package openrange computes the opening range of a trading day.
package openrange

import "orb-edge-lab/internal/domain"

// Build computes the high/low over bars strictly inside the
// definition's range window [start, start+duration). Bars outside the
// window are never inspected, so the range is fixed the moment the
// window closes.
//
// Returns ok=false when no bars fall in the window; sparse or holiday
// days are expected and the day simply yields no range.
func Build(dayBars []domain.Bar, def *domain.StrategyDefinition) (domain.OpeningRange, bool) {
	start := def.RangeStartMinute
	end := def.RangeStartMinute + def.RangeDurationMin

	var rng domain.OpeningRange
	found := false

	for _, b := range dayBars {
		m := b.MinuteOfDay()
		if m < start || m >= end {
			continue
		}
		if !found {
			rng = domain.OpeningRange{Day: b.Day(), High: b.High, Low: b.Low}
			found = true
			continue
		}
		if b.High > rng.High {
			rng.High = b.High
		}
		if b.Low < rng.Low {
			rng.Low = b.Low
		}
	}

	return rng, found
}

// ScanStart returns the index of the first bar strictly after the
// range window, or len(dayBars) when every bar is inside or before it.
func ScanStart(dayBars []domain.Bar, def *domain.StrategyDefinition) int {
	end := def.RangeStartMinute + def.RangeDurationMin
	for i, b := range dayBars {
		if b.MinuteOfDay() >= end {
			return i
		}
	}
	return len(dayBars)
}
