// Package validate implements the phased survivability pipeline that
// decides whether a backtested edge is safe to promote.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"orb-edge-lab/internal/domain"
	"orb-edge-lab/internal/execution"
	"orb-edge-lab/internal/metrics"
)

// Gate runs a sample through the seven-phase validation pipeline.
type Gate struct {
	thresholds Thresholds
}

// NewGate creates a gate with validated thresholds.
func NewGate(t Thresholds) (*Gate, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Gate{thresholds: t}, nil
}

// phaseOrder lists every phase in pipeline order so short-circuited
// runs still report the skipped phases as NOT_EVALUATED.
var phaseOrder = []string{
	domain.PhaseSampleSize,
	domain.PhaseExpectancy,
	domain.PhaseCostStress,
	domain.PhaseTemporal,
	domain.PhaseWalkForward,
	domain.PhaseRegime,
}

// Run evaluates the sample and produces an immutable verdict. Hard
// rejections short-circuit: later phases are skipped but reported as
// NOT_EVALUATED, so the audit trail never shows a pass that did not
// execute.
func (g *Gate) Run(sample *domain.Sample) *domain.ValidationVerdict {
	t := g.thresholds
	v := &domain.ValidationVerdict{
		EdgeID:     sample.EdgeID,
		SampleSize: sample.Size(),
	}

	record := func(phase string, status domain.PhaseStatus, code, detail string) {
		v.Phases = append(v.Phases, domain.PhaseResult{
			Phase: phase, Status: status, Code: code, Detail: detail,
		})
	}
	reject := func(afterPhase, code string) *domain.ValidationVerdict {
		v.Classification = domain.ClassificationRejected
		v.FailureCode = code
		skipRemaining(v, afterPhase)
		return v
	}

	// Phase 1: sample size.
	n := sample.Size()
	if n < t.MinSampleSize {
		record(domain.PhaseSampleSize, domain.PhaseFail, domain.ReasonSampleTooSmall,
			fmt.Sprintf("%d trades, need >= %d", n, t.MinSampleSize))
		return reject(domain.PhaseSampleSize, domain.ReasonSampleTooSmall)
	}
	record(domain.PhaseSampleSize, domain.PhasePass, "",
		fmt.Sprintf("%d trades >= %d", n, t.MinSampleSize))

	// Phase 2: expectancy.
	returns := sample.RealReturns()
	v.Expectancy = metrics.Mean(returns)
	if v.Expectancy < t.MinExpectancy {
		record(domain.PhaseExpectancy, domain.PhaseFail, domain.ReasonExpectancyBelowMin,
			fmt.Sprintf("mean real R %.4f < %.4f", v.Expectancy, t.MinExpectancy))
		return reject(domain.PhaseExpectancy, domain.ReasonExpectancyBelowMin)
	}
	record(domain.PhaseExpectancy, domain.PhasePass, "",
		fmt.Sprintf("mean real R %.4f >= %.4f", v.Expectancy, t.MinExpectancy))

	// Phase 3: cost stress. Friction is inflated per trade, not on the
	// sample mean, because friction ratios vary trade to trade.
	v.StressedMean25 = stressedMean(sample, t.StressMild)
	v.StressedMean50 = stressedMean(sample, t.StressSevere)
	severePass := v.StressedMean50 >= t.MinExpectancy
	mildPass := v.StressedMean25 >= t.MinExpectancy

	switch {
	case severePass:
		record(domain.PhaseCostStress, domain.PhasePass, "",
			fmt.Sprintf("stressed mean %.4f (+%d%%) and %.4f (+%d%%) >= %.4f",
				v.StressedMean25, pct(t.StressMild), v.StressedMean50, pct(t.StressSevere), t.MinExpectancy))
	case mildPass:
		record(domain.PhaseCostStress, domain.PhaseWarn, domain.ReasonMarginalCostStress,
			fmt.Sprintf("survives +%d%% (%.4f) but not +%d%% (%.4f < %.4f)",
				pct(t.StressMild), v.StressedMean25, pct(t.StressSevere), v.StressedMean50, t.MinExpectancy))
	default:
		record(domain.PhaseCostStress, domain.PhaseFail, domain.ReasonFailsCostStress,
			fmt.Sprintf("stressed mean %.4f at +%d%% < %.4f",
				v.StressedMean25, pct(t.StressMild), t.MinExpectancy))
		return reject(domain.PhaseCostStress, domain.ReasonFailsCostStress)
	}

	// Phase 4: temporal split by calendar year. Warns, never rejects.
	if negYears := negativeYears(sample, t.MinSubPeriodTrades); len(negYears) > 0 {
		record(domain.PhaseTemporal, domain.PhaseWarn, domain.ReasonNegativeSubPeriod,
			fmt.Sprintf("negative expectancy in %s", strings.Join(negYears, ", ")))
	} else {
		record(domain.PhaseTemporal, domain.PhasePass, "", "no qualifying sub-period negative")
	}

	// Phase 5: walk-forward. A negative out-of-sample slice signals
	// overfitting and is a hard rejection.
	trainMean, testMean, retention := walkForward(returns, t.WalkForwardSplit)
	v.TrainExpectancy = trainMean
	v.TestExpectancy = testMean
	v.Retention = retention
	if testMean < 0 {
		record(domain.PhaseWalkForward, domain.PhaseFail, domain.ReasonWalkForwardNegative,
			fmt.Sprintf("test expectancy %.4f < 0 (train %.4f)", testMean, trainMean))
		return reject(domain.PhaseWalkForward, domain.ReasonWalkForwardNegative)
	}
	record(domain.PhaseWalkForward, domain.PhasePass, "",
		fmt.Sprintf("test expectancy %.4f, %s", testMean, retentionDetail(retention)))

	// Phase 6: regime split by median range size. Warns, never rejects.
	if halves := negativeRegimeHalves(sample); len(halves) > 0 {
		record(domain.PhaseRegime, domain.PhaseWarn, domain.ReasonNegativeRegimeHalf,
			fmt.Sprintf("negative expectancy in %s volatility half", strings.Join(halves, " and ")))
	} else {
		record(domain.PhaseRegime, domain.PhasePass, "", "both volatility halves non-negative")
	}

	// Phase 7: final classification.
	if severePass {
		v.Classification = domain.ClassificationApproved
	} else {
		v.Classification = domain.ClassificationMarginal
	}
	return v
}

// skipRemaining appends NOT_EVALUATED results for every phase after
// the one that fired the rejection.
func skipRemaining(v *domain.ValidationVerdict, afterPhase string) {
	seen := false
	for _, phase := range phaseOrder {
		if phase == afterPhase {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		v.Phases = append(v.Phases, domain.PhaseResult{
			Phase:  phase,
			Status: domain.PhaseNotEvaluated,
			Detail: "skipped after " + afterPhase + " rejection",
		})
	}
}

// stressedMean recomputes the sample mean with friction inflated per trade.
func stressedMean(sample *domain.Sample, multiplier float64) float64 {
	stressed := make([]float64, len(sample.Trades))
	for i, t := range sample.Trades {
		stressed[i] = execution.StressedRealR(t, multiplier)
	}
	return metrics.Mean(stressed)
}

// negativeYears returns the calendar years, sorted, whose sub-samples
// have at least minTrades trades and negative mean real R.
func negativeYears(sample *domain.Sample, minTrades int) []string {
	byYear := make(map[string][]float64)
	for _, t := range sample.Trades {
		year := t.Day[:4]
		byYear[year] = append(byYear[year], t.RealR)
	}

	var neg []string
	for year, returns := range byYear {
		if len(returns) >= minTrades && metrics.Mean(returns) < 0 {
			neg = append(neg, year)
		}
	}
	sort.Strings(neg)
	return neg
}

// walkForward splits returns chronologically into train/test slices
// and computes both expectancies. Retention is nil when the train
// expectancy is zero: the ratio is undefined there and must not be
// fabricated by a divide.
func walkForward(returns []float64, split float64) (trainMean, testMean float64, retention *float64) {
	cut := int(float64(len(returns)) * split)
	if cut < 1 {
		cut = 1
	}
	if cut >= len(returns) {
		cut = len(returns) - 1
	}

	trainMean = metrics.Mean(returns[:cut])
	testMean = metrics.Mean(returns[cut:])
	if trainMean != 0 {
		r := testMean / trainMean
		retention = &r
	}
	return trainMean, testMean, retention
}

func retentionDetail(retention *float64) string {
	if retention == nil {
		return "retention not computable (train expectancy zero)"
	}
	return fmt.Sprintf("retention %.2f", *retention)
}

// negativeRegimeHalves splits the sample at the median range size and
// returns the halves ("LOW", "HIGH") with negative mean real R.
func negativeRegimeHalves(sample *domain.Sample) []string {
	sizes := make([]float64, len(sample.Trades))
	for i, t := range sample.Trades {
		sizes[i] = t.RangeSize
	}
	median := metrics.Median(sizes)

	var low, high []float64
	for _, t := range sample.Trades {
		if t.RangeSize < median {
			low = append(low, t.RealR)
		} else {
			high = append(high, t.RealR)
		}
	}

	var neg []string
	if len(low) > 0 && metrics.Mean(low) < 0 {
		neg = append(neg, domain.RegimeLow)
	}
	if len(high) > 0 && metrics.Mean(high) < 0 {
		neg = append(neg, domain.RegimeHigh)
	}
	return neg
}

func pct(multiplier float64) int {
	return int(multiplier*100 + 0.5)
}
