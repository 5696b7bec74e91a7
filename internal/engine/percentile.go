package engine

import (
	"math"
	"sort"
)

// percentile computes the p-th percentile (p in [0,1]) of values using
// linear interpolation between closest ranks. Returns NaN for empty input.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	frac := rank - float64(lower)
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// quartiles returns the 25th and 75th percentiles of values.
func quartiles(values []float64) (q1, q3 float64) {
	return percentile(values, 0.25), percentile(values, 0.75)
}
