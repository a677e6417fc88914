package validate

import (
	"errors"
	"fmt"
)

// Thresholds parameterizes every gate phase. All values are explicit:
// the gate holds no process-wide defaults, so concurrent sweeps can
// run different threshold sets without interference.
type Thresholds struct {
	// Phase 1: minimum trade count for a sample to be judged at all.
	MinSampleSize int

	// Phase 2: minimum mean real return-multiple.
	MinExpectancy float64

	// Phase 3: friction inflation levels. A candidate must survive
	// StressSevere to be fully approved and StressMild to be marginal.
	StressMild   float64
	StressSevere float64

	// Phase 4: minimum trades for a calendar-year sub-period to be judged.
	MinSubPeriodTrades int

	// Phase 5: chronological train fraction in (0, 1).
	WalkForwardSplit float64
}

// DefaultThresholds returns the standard gate configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSampleSize:      30,
		MinExpectancy:      0.15,
		StressMild:         0.25,
		StressSevere:       0.50,
		MinSubPeriodTrades: 10,
		WalkForwardSplit:   0.7,
	}
}

// ErrInvalidThresholds is returned for structurally invalid thresholds.
var ErrInvalidThresholds = errors.New("invalid gate thresholds")

// Validate checks the thresholds' structural invariants.
func (t Thresholds) Validate() error {
	if t.MinSampleSize < 1 {
		return fmt.Errorf("%w: min sample size must be >= 1", ErrInvalidThresholds)
	}
	if t.StressMild <= 0 || t.StressSevere <= t.StressMild {
		return fmt.Errorf("%w: stress levels must satisfy 0 < mild < severe", ErrInvalidThresholds)
	}
	if t.WalkForwardSplit <= 0 || t.WalkForwardSplit >= 1 {
		return fmt.Errorf("%w: walk-forward split %v outside (0, 1)", ErrInvalidThresholds, t.WalkForwardSplit)
	}
	if t.MinSubPeriodTrades < 1 {
		return fmt.Errorf("%w: min sub-period trades must be >= 1", ErrInvalidThresholds)
	}
	return nil
}
