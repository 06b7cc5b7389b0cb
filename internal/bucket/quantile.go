package bucket

import (
	"math"
	"slices"
)

// quantile returns the q-th quantile of sorted using linear interpolation
// between closest ranks. sorted must be ascending; q is clamped to [0, 1].
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	q = math.Max(0, math.Min(1, q))
	return interpolate(sorted, q*float64(len(sorted)-1))
}

// interpolate reads sorted at the fractional rank pos.
func interpolate(sorted []float64, pos float64) float64 {
	n := len(sorted)
	lo := int(math.Floor(pos))
	switch {
	case pos <= 0:
		return sorted[0]
	case lo >= n-1:
		return sorted[n-1]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// cutPoints returns the k+1 equal-frequency edges of values. Positions are
// computed as i*(n-1)/k so integer-spaced inputs land on exact ranks.
func cutPoints(values []float64, k int) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	edges := make([]float64, k+1)
	for i := 0; i <= k; i++ {
		edges[i] = interpolate(sorted, float64(i*(len(sorted)-1))/float64(k))
	}
	return edges
}
