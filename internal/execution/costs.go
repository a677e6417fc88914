// Package execution converts idealized fills into realistic ones and
// derives canonical and real return-multiples.
package execution

import (
	"math"

	"orb-edge-lab/internal/domain"
)

// CostModel prices a trade under an instrument's cost assumptions.
// All parameters come from the InstrumentSpec; nothing is hard-coded,
// so models are swappable per instrument and sweeps can run many
// models concurrently without interference.
type CostModel struct {
	spec            domain.InstrumentSpec
	frictionCeiling float64 // flag trades whose friction ratio exceeds this
}

// NewCostModel creates a cost model for one instrument.
func NewCostModel(spec domain.InstrumentSpec, frictionCeiling float64) *CostModel {
	return &CostModel{spec: spec, frictionCeiling: frictionCeiling}
}

// CoversCosts reports whether a win at the given target distance pays
// for its own execution costs. Slippage shrinks the real target
// distance and commission comes off the remaining payoff; when the
// combination leaves nothing, a filled target still loses money. Such
// brackets are excluded before a position opens, which keeps the sign
// of the real return-multiple aligned with the outcome: every WIN has
// real R > 0 and every LOSS has real R < 0.
func (m *CostModel) CoversCosts(targetDist float64) bool {
	targetReal := targetDist - m.spec.SlippagePoints()
	return targetReal*m.spec.PointValue > m.spec.CommissionPerTrade
}

// Apply fills the trade's EntryReal, CanonicalR, RealR, FrictionRatio
// and FrictionFlag from its resolved geometry. The trade must already
// carry EntryIdealized, StopPrice, TargetPrice, Direction and Outcome.
// NO_OUTCOME trades are left untouched; they never enter a sample.
func (m *CostModel) Apply(t *domain.SimulatedTrade) {
	if t.Outcome == domain.OutcomeNoOutcome {
		return
	}

	sign := directionSign(t.Direction)
	stopDist := math.Abs(t.EntryIdealized - t.StopPrice)
	targetDist := math.Abs(t.TargetPrice - t.EntryIdealized)
	slip := m.spec.SlippagePoints()

	// Canonical R: idealized boundary entry, zero slippage in the
	// fill; spread/slippage is lumped into the friction term instead.
	riskCurrency := stopDist * m.spec.PointValue
	canonicalFriction := (m.spec.CommissionPerTrade + slip*m.spec.PointValue) / riskCurrency
	switch t.Outcome {
	case domain.OutcomeWin:
		t.CanonicalR = targetDist/stopDist - canonicalFriction
	case domain.OutcomeLoss:
		t.CanonicalR = -1 - canonicalFriction
	}

	// Real R: the fill moves against the trade by the slippage offset,
	// widening effective risk and shrinking the target distance. The
	// slippage lives in the fill price here, so real friction carries
	// commission only.
	t.EntryReal = t.EntryIdealized + sign*slip
	riskReal := stopDist + slip
	targetReal := targetDist - slip
	riskRealCurrency := riskReal * m.spec.PointValue

	t.FrictionRatio = m.spec.CommissionPerTrade / riskRealCurrency
	t.FrictionFlag = t.FrictionRatio > m.frictionCeiling

	switch t.Outcome {
	case domain.OutcomeWin:
		t.RealR = targetReal/riskReal - t.FrictionRatio
	case domain.OutcomeLoss:
		t.RealR = -1 - t.FrictionRatio
	}
}

// StressedRealR recomputes a trade's real return-multiple with its
// friction inflated by the given multiplier (0.25 = +25%). Monotonic:
// a larger multiplier never increases the result.
func StressedRealR(t *domain.SimulatedTrade, multiplier float64) float64 {
	return t.RealR - t.FrictionRatio*multiplier
}

func directionSign(d domain.BreakoutDirection) float64 {
	if d == domain.BreakoutDown {
		return -1
	}
	return 1
}
