package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"orb-edge-lab/internal/domain"
)

// ComputeEdgeID computes a deterministic edge id for a strategy
// definition using SHA256 over a canonical field string. Definitions
// are content-addressed: the same fields always hash to the same id.
// Returns hex-encoded hash (64 characters).
func ComputeEdgeID(def *domain.StrategyDefinition) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s|%d|%d|%s|%s|%.10f|%.10f|%d",
		def.Instrument,
		def.RangeStartMinute,
		def.RangeDurationMin,
		string(def.Direction),
		string(def.EntryRule),
		def.StopFraction,
		def.RewardRisk,
		def.ConfirmationBars,
	)

	// Filters contribute in declaration order; a definition with
	// reordered filters is a different definition.
	for _, f := range def.Filters {
		fmt.Fprintf(&b, "|%s:%s:%s:%s:%s",
			f.FilterType,
			floatField(f.MinRangeRatio),
			floatField(f.MaxRangeRatio),
			stringField(f.PriorSessionType),
			stringField(f.RegimeHalf),
		)
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.10f", *v)
}

func stringField(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
