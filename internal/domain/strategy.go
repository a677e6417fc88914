package domain

import (
	"errors"
	"fmt"
)

// Direction filter for a strategy definition.
type Direction string

// Direction constants.
const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionBoth  Direction = "BOTH"
)

// EntryRule selects how a breakout signal is recognized.
// The two variants exist because close-through and touch semantics
// produce different samples; callers must pick one explicitly.
type EntryRule string

// Entry rule constants.
const (
	// EntryRuleCloseThrough declares a breakout on the first close
	// beyond the range boundary; entry is the signal bar's close.
	EntryRuleCloseThrough EntryRule = "CLOSE_THROUGH"

	// EntryRuleRangeTouch declares a breakout on the first high/low
	// touch of the boundary; entry is the boundary price itself.
	EntryRuleRangeTouch EntryRule = "RANGE_TOUCH"
)

// Filter type constants. Filters form a closed set of tagged variants;
// new filters are added by extending this set, never by injecting code.
const (
	FilterRangeSize        = "RANGE_SIZE"
	FilterPriorSessionType = "PRIOR_SESSION_TYPE"
	FilterRegime           = "REGIME"
)

// Prior session type constants for FilterPriorSessionType.
const (
	SessionTypeUp   = "UP"
	SessionTypeDown = "DOWN"
	SessionTypeAny  = "ANY"
)

// Regime half constants shared by FilterRegime and the validation gate.
const (
	RegimeLow  = "LOW"
	RegimeHigh = "HIGH"
)

// FilterConfig is one tagged day filter on a strategy definition.
// Only the parameters of the tagged type are set.
type FilterConfig struct {
	FilterType string

	// RANGE_SIZE parameters: range size relative to the trailing
	// median range (volatility reference).
	MinRangeRatio *float64
	MaxRangeRatio *float64

	// PRIOR_SESSION_TYPE parameter.
	PriorSessionType *string

	// REGIME parameter: trade only days whose range is below (LOW)
	// or at/above (HIGH) the trailing median range.
	RegimeHalf *string
}

// StrategyDefinition describes one opening-range breakout candidate.
// Immutable once created; identified by a deterministic content hash
// of its fields (see idhash.ComputeEdgeID).
type StrategyDefinition struct {
	Instrument string

	// Opening range window, minutes from UTC midnight.
	RangeStartMinute int
	RangeDurationMin int

	Direction        Direction
	EntryRule        EntryRule
	StopFraction     float64 // fraction of range size, 0 < f <= 1
	RewardRisk       float64 // target distance as multiple of stop distance, > 0
	ConfirmationBars int     // consecutive closes beyond the boundary, >= 1

	Filters []FilterConfig
}

// ErrInvalidDefinition is returned for structurally invalid definitions.
var ErrInvalidDefinition = errors.New("invalid strategy definition")

// Validate checks the definition's structural invariants.
func (d *StrategyDefinition) Validate() error {
	if d.Instrument == "" {
		return fmt.Errorf("%w: instrument is required", ErrInvalidDefinition)
	}
	if d.RangeStartMinute < 0 || d.RangeStartMinute >= 24*60 {
		return fmt.Errorf("%w: range start minute %d out of day", ErrInvalidDefinition, d.RangeStartMinute)
	}
	if d.RangeDurationMin <= 0 {
		return fmt.Errorf("%w: range duration must be positive", ErrInvalidDefinition)
	}
	switch d.Direction {
	case DirectionLong, DirectionShort, DirectionBoth:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidDefinition, d.Direction)
	}
	switch d.EntryRule {
	case EntryRuleCloseThrough, EntryRuleRangeTouch:
	default:
		return fmt.Errorf("%w: unknown entry rule %q", ErrInvalidDefinition, d.EntryRule)
	}
	if d.StopFraction <= 0 || d.StopFraction > 1 {
		return fmt.Errorf("%w: stop fraction %v outside (0, 1]", ErrInvalidDefinition, d.StopFraction)
	}
	if d.RewardRisk <= 0 {
		return fmt.Errorf("%w: reward:risk %v must be positive", ErrInvalidDefinition, d.RewardRisk)
	}
	if d.ConfirmationBars < 1 {
		return fmt.Errorf("%w: confirmation bars %d must be >= 1", ErrInvalidDefinition, d.ConfirmationBars)
	}
	for i := range d.Filters {
		if err := d.Filters[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the filter carries exactly the parameters of
// its tagged type.
func (f *FilterConfig) Validate() error {
	switch f.FilterType {
	case FilterRangeSize:
		if f.MinRangeRatio == nil && f.MaxRangeRatio == nil {
			return fmt.Errorf("%w: RANGE_SIZE filter needs min or max ratio", ErrInvalidDefinition)
		}
	case FilterPriorSessionType:
		if f.PriorSessionType == nil {
			return fmt.Errorf("%w: PRIOR_SESSION_TYPE filter needs a session type", ErrInvalidDefinition)
		}
		switch *f.PriorSessionType {
		case SessionTypeUp, SessionTypeDown, SessionTypeAny:
		default:
			return fmt.Errorf("%w: unknown prior session type %q", ErrInvalidDefinition, *f.PriorSessionType)
		}
	case FilterRegime:
		if f.RegimeHalf == nil {
			return fmt.Errorf("%w: REGIME filter needs a half", ErrInvalidDefinition)
		}
		switch *f.RegimeHalf {
		case RegimeLow, RegimeHigh:
		default:
			return fmt.Errorf("%w: unknown regime half %q", ErrInvalidDefinition, *f.RegimeHalf)
		}
	default:
		return fmt.Errorf("%w: unknown filter type %q", ErrInvalidDefinition, f.FilterType)
	}
	return nil
}
