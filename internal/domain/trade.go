package domain

// SimulatedTrade is the resolved outcome of one trading day's breakout.
// Created by the simulator, read-only afterward.
type SimulatedTrade struct {
	TradeID string // deterministic hash
	EdgeID  string // owning strategy definition
	Day     string // YYYY-MM-DD, UTC

	Direction BreakoutDirection
	RangeSize float64 // opening-range size, the day's volatility proxy

	// Prices
	EntryIdealized float64 // boundary/close entry with zero slippage
	EntryReal      float64 // realistic fill after slippage offset
	StopPrice      float64
	TargetPrice    float64

	// Resolution
	Outcome          string // WIN | LOSS | NO_OUTCOME
	BarsToResolution int

	// Return multiples
	CanonicalR    float64
	RealR         float64
	FrictionRatio float64 // friction currency / risk currency
	FrictionFlag  bool    // friction ratio above configured ceiling
}

// Outcome constants. NoOutcome is a first-class tri-state value: such
// trades are excluded from the expectancy sample, never folded into a
// 0R breakeven.
const (
	OutcomeWin       = "WIN"
	OutcomeLoss      = "LOSS"
	OutcomeNoOutcome = "NO_OUTCOME"
)

// Skip reason codes for days excluded before a trade opens.
const (
	SkipNoRange      = "NO_RANGE"       // no bars inside the range window
	SkipNoBreakout   = "NO_BREAKOUT"    // scan window ended without a signal
	SkipRiskTooSmall = "RISK_TOO_SMALL" // stop distance computed <= 0
	SkipFiltered     = "FILTERED"       // excluded by a day filter

	// SkipTargetInsideFriction marks days whose target sits so close
	// to entry that slippage and commission would swallow the whole
	// win. Opening such a trade would record a WIN with a negative
	// real return-multiple.
	SkipTargetInsideFriction = "TARGET_INSIDE_FRICTION"
)

// Sample is an ordered collection of resolved trades for one strategy
// definition over a date range. NO_OUTCOME trades are excluded before
// a Sample is formed; the validation gate consumes Samples only.
type Sample struct {
	EdgeID string
	Trades []*SimulatedTrade
}

// Size returns the number of trades in the sample.
func (s *Sample) Size() int {
	return len(s.Trades)
}

// RealReturns returns the real return-multiples in sample order.
func (s *Sample) RealReturns() []float64 {
	out := make([]float64, len(s.Trades))
	for i, t := range s.Trades {
		out[i] = t.RealR
	}
	return out
}
