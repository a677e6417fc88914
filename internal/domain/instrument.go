package domain

import "fmt"

// InstrumentSpec carries the contract terms and cost assumptions for
// one instrument. It is passed explicitly into every component that
// needs it; nothing in the simulation reads process-wide state.
type InstrumentSpec struct {
	Symbol             string
	TickSize           float64 // minimum price increment
	PointValue         float64 // currency value of one full point
	CommissionPerTrade float64 // round-turn commission, currency
	SlippageTicks      float64 // assumed entry slippage, in ticks
}

// Validate checks the spec's structural invariants.
func (s *InstrumentSpec) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("%w: instrument symbol is required", ErrInvalidDefinition)
	}
	if s.TickSize <= 0 {
		return fmt.Errorf("%w: tick size must be positive", ErrInvalidDefinition)
	}
	if s.PointValue <= 0 {
		return fmt.Errorf("%w: point value must be positive", ErrInvalidDefinition)
	}
	if s.CommissionPerTrade < 0 {
		return fmt.Errorf("%w: commission cannot be negative", ErrInvalidDefinition)
	}
	if s.SlippageTicks < 0 {
		return fmt.Errorf("%w: slippage ticks cannot be negative", ErrInvalidDefinition)
	}
	return nil
}

// SlippagePoints returns the assumed slippage in price points.
func (s *InstrumentSpec) SlippagePoints() float64 {
	return s.SlippageTicks * s.TickSize
}
