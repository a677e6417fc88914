package simulate

import "orb-edge-lab/internal/domain"

// DayContext carries the per-day facts a filter may consult. It is
// assembled by the runner from data available before the range window
// closes, so filters cannot introduce lookahead.
type DayContext struct {
	Day   string
	Range domain.OpeningRange

	// PriorSessionType is UP or DOWN from the previous trading day's
	// open-to-close move, or empty when no prior day exists.
	PriorSessionType string

	// TrailingMedianRange is the median opening-range size over the
	// trailing lookback window, or 0 when not enough history exists.
	TrailingMedianRange float64
}

// applies evaluates one tagged filter against a day context. Unknown
// filter types never match; definitions are validated before they get
// here, so that branch is a safety net, not a code path.
func applies(f domain.FilterConfig, ctx DayContext) bool {
	switch f.FilterType {
	case domain.FilterRangeSize:
		if ctx.TrailingMedianRange <= 0 {
			// No volatility reference yet; let the day through rather
			// than silently shrinking the sample's early history.
			return true
		}
		ratio := ctx.Range.Size() / ctx.TrailingMedianRange
		if f.MinRangeRatio != nil && ratio < *f.MinRangeRatio {
			return false
		}
		if f.MaxRangeRatio != nil && ratio > *f.MaxRangeRatio {
			return false
		}
		return true

	case domain.FilterPriorSessionType:
		want := *f.PriorSessionType
		if want == domain.SessionTypeAny {
			return true
		}
		return ctx.PriorSessionType == want

	case domain.FilterRegime:
		if ctx.TrailingMedianRange <= 0 {
			return true
		}
		if *f.RegimeHalf == domain.RegimeLow {
			return ctx.Range.Size() < ctx.TrailingMedianRange
		}
		return ctx.Range.Size() >= ctx.TrailingMedianRange
	}

	return false
}

// passesFilters evaluates every filter on the definition; all must match.
func passesFilters(def *domain.StrategyDefinition, ctx DayContext) bool {
	for _, f := range def.Filters {
		if !applies(f, ctx) {
			return false
		}
	}
	return true
}
