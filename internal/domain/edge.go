package domain

// EdgeStatus is the lifecycle state of a candidate strategy.
type EdgeStatus string

// Edge status constants.
const (
	EdgeNeverTested  EdgeStatus = "NEVER_TESTED"
	EdgeTestedFailed EdgeStatus = "TESTED_FAILED"
	EdgeValidated    EdgeStatus = "VALIDATED"
	EdgePromoted     EdgeStatus = "PROMOTED"
	EdgeRetired      EdgeStatus = "RETIRED"
)

// EdgeRecord is the persistent identity of a strategy definition.
// Status changes only through the lifecycle transition table; every
// change is backed by an immutable ValidationRun.
type EdgeRecord struct {
	EdgeID     string // content hash of the definition
	Definition StrategyDefinition
	Status     EdgeStatus
	CreatedAt  int64 // UTC epoch ms
	UpdatedAt  int64 // UTC epoch ms
}

// ValidationRun links an edge to the verdict that moved it. Runs are
// append-only; re-validation creates a new run rather than rewriting
// an old verdict.
type ValidationRun struct {
	RunID      string
	EdgeID     string
	Verdict    *ValidationVerdict
	FromStatus EdgeStatus
	ToStatus   EdgeStatus
	RanAt      int64 // UTC epoch ms
}
