// Package metrics computes sample statistics over return-multiples.
package metrics

import (
	"math"
	"sort"
)

// Mean calculates the arithmetic mean of returns.
func Mean(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns))
}

// Stddev calculates the sample standard deviation (n-1 denominator).
func Stddev(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	mean := Mean(returns)
	sumSq := 0.0
	for _, r := range returns {
		diff := r - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Percentile uses linear interpolation over a copy of the input.
// p is the percentile as a fraction (0.50 = median).
func Percentile(returns []float64, p float64) float64 {
	n := len(returns)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return returns[0]
	}

	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Median is the 50th percentile.
func Median(returns []float64) float64 {
	return Percentile(returns, 0.50)
}

// MaxDrawdown calculates the worst peak-to-trough move on cumulative
// returns. Returns must be in chronological order.
func MaxDrawdown(returns []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// MaxConsecutiveLosses finds the longest streak of returns <= 0.
// Returns must be in chronological order.
func MaxConsecutiveLosses(returns []float64) int {
	maxStreak := 0
	streak := 0

	for _, r := range returns {
		if r <= 0 {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return maxStreak
}
