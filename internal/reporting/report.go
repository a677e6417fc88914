package reporting

import "time"

// Report is the sweep outcome summary across all known edges.
type Report struct {
	GeneratedAt time.Time

	TotalEdges    int
	StatusCounts  map[string]int
	VerdictCounts map[string]int

	// One row per edge, sorted by classification strength then edge id.
	Edges []EdgeRow
}

// EdgeRow is one edge's latest state for the report tables.
type EdgeRow struct {
	EdgeID     string
	Instrument string
	Definition string // compact human-readable parameter summary
	Status     string

	// Latest validation run, zero-valued when never run.
	Classification string
	FailureCode    string
	SampleSize     int
	Expectancy     float64
	StressedMean50 float64
	Retention      *float64

	// Trade-level statistics from the stored sample.
	WinRate        float64
	MaxDrawdown    float64
	MaxConsecutive int
	FrictionFlags  int
}
