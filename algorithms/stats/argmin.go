package stats

import "math"

// ArgMins returns the smallest non-NaN value and every index holding it, in ascending
// order. When all values are NaN (or there are none) it returns NaN and nil.
func ArgMins(values []float64) (float64, []int) {
	best := math.NaN()
	var indices []int

	for i, v := range values {
		switch {
		case math.IsNaN(v):
			continue
		case math.IsNaN(best) || v < best:
			best = v
			indices = append(indices[:0], i)
		case v == best:
			indices = append(indices, i)
		}
	}
	return best, indices
}
