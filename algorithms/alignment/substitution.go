package alignment

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/melodia/algorithms/stats"
	"gonum.org/v1/gonum/floats"
)

// SubstitutionFunc scores pairing query element a with target element b. Positive values
// reward the pairing, negative values penalize it.
type SubstitutionFunc func(a, b []float64) float64

// Identity scores +1 when both elements are equal in every dimension and -1 otherwise.
func Identity(a, b []float64) float64 {
	if floats.Equal(a, b) {
		return 1.0
	}
	return -1.0
}

// PitchDifference scores 2 - |a-b| on the first dimension, so unisons score 2 and
// pairs more than two semitones apart are penalized.
func PitchDifference(a, b []float64) float64 {
	return 2.0 - math.Abs(a[0]-b[0])
}

// WeightedDistance returns a scorer of 1 - standardized Euclidean distance, weighting
// every dimension by the inverse of its variance. The variances must be positive, one
// per feature dimension.
func WeightedDistance(variances []float64) (SubstitutionFunc, error) {
	if len(variances) == 0 {
		return nil, fmt.Errorf("%w: no variances given", ErrVarianceMismatch)
	}
	for i, v := range variances {
		if !(v > 0) {
			return nil, fmt.Errorf("%w: variance %d is %v, must be positive", ErrVarianceMismatch, i, v)
		}
	}

	weights := append([]float64(nil), variances...)
	return func(a, b []float64) float64 {
		if len(a) != len(weights) || len(b) != len(weights) {
			return math.NaN()
		}
		return 1.0 - stats.StandardizedEuclidean(a, b, weights)
	}, nil
}
