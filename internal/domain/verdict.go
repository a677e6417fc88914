package domain

// Classification is the final outcome of a validation run.
type Classification string

// Classification constants.
const (
	ClassificationApproved Classification = "APPROVED"
	ClassificationMarginal Classification = "MARGINAL"
	ClassificationRejected Classification = "REJECTED"
)

// PhaseStatus is the recorded result of one gate phase. A phase is
// reported NotEvaluated when an earlier hard rejection short-circuited
// the pipeline; it is never reported as a pass it did not execute.
type PhaseStatus string

// Phase status constants.
const (
	PhasePass         PhaseStatus = "PASS"
	PhaseFail         PhaseStatus = "FAIL"
	PhaseWarn         PhaseStatus = "WARN"
	PhaseNotEvaluated PhaseStatus = "NOT_EVALUATED"
)

// Gate phase names, in pipeline order.
const (
	PhaseSampleSize  = "sample_size"
	PhaseExpectancy  = "expectancy"
	PhaseCostStress  = "cost_stress"
	PhaseTemporal    = "temporal"
	PhaseWalkForward = "walk_forward"
	PhaseRegime      = "regime"
)

// Machine-readable rejection and warning codes.
const (
	ReasonSampleTooSmall      = "SAMPLE_TOO_SMALL"
	ReasonExpectancyBelowMin  = "EXPECTANCY_BELOW_MIN"
	ReasonFailsCostStress     = "FAILS_COST_STRESS"
	ReasonMarginalCostStress  = "MARGINAL_COST_STRESS"
	ReasonNegativeSubPeriod   = "NEGATIVE_SUBPERIOD"
	ReasonWalkForwardNegative = "WALK_FORWARD_NEGATIVE"
	ReasonNegativeRegimeHalf  = "NEGATIVE_REGIME_HALF"
)

// PhaseResult records the execution of one gate phase.
type PhaseResult struct {
	Phase  string
	Status PhaseStatus
	Code   string // machine-readable reason, empty on a clean pass
	Detail string // human-readable explanation
}

// ValidationVerdict is the immutable product of one validation run.
type ValidationVerdict struct {
	EdgeID         string
	Classification Classification
	Phases         []PhaseResult
	FailureCode    string // first hard-rejection code, empty unless REJECTED

	// Diagnostics
	SampleSize      int
	Expectancy      float64 // mean real R
	StressedMean25  float64
	StressedMean50  float64
	TrainExpectancy float64
	TestExpectancy  float64
	Retention       *float64 // test/train expectancy; nil when train is zero
}
