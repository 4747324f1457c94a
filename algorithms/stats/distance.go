package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DistanceFunction is a function type for computing distance between two equal-length sequences
type DistanceFunction func(a, b []float64) float64

// Metric identifies one of the window distance measures
type Metric int

const (
	Hamming Metric = iota
	CityBlock
	Euclidean
	Correlation
)

// Metrics lists every window measure in reporting order
var Metrics = []Metric{Hamming, CityBlock, Euclidean, Correlation}

// String returns the short measure name used in match results
func (m Metric) String() string {
	switch m {
	case Hamming:
		return "hamming"
	case CityBlock:
		return "city"
	case Euclidean:
		return "euclid"
	case Correlation:
		return "cor"
	default:
		return "unknown"
	}
}

// GetDistanceFunction returns the distance function for the given metric
func GetDistanceFunction(metric Metric) (DistanceFunction, error) {
	switch metric {
	case Hamming:
		return HammingDistance, nil
	case CityBlock:
		return CityBlockDistance, nil
	case Euclidean:
		return EuclideanDistance, nil
	case Correlation:
		return CorrelationDistance, nil
	default:
		return nil, fmt.Errorf("unsupported distance metric: %d", metric)
	}
}

// HammingDistance returns the fraction of positions at which a and b differ
func HammingDistance(a, b []float64) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	mismatches := 0
	for i := range a {
		if a[i] != b[i] {
			mismatches++
		}
	}
	return float64(mismatches) / float64(len(a))
}

// CityBlockDistance returns the L1 distance divided by the sequence length
func CityBlockDistance(a, b []float64) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	return floats.Distance(a, b, 1) / float64(len(a))
}

// EuclideanDistance returns the L2 distance divided by the sequence length
func EuclideanDistance(a, b []float64) float64 {
	if len(a) == 0 {
		return math.NaN()
	}
	return floats.Distance(a, b, 2) / float64(len(a))
}

// CorrelationDistance returns 1 - Pearson correlation. It is NaN when either sequence
// is shorter than two elements or constant, since the correlation is undefined there.
func CorrelationDistance(a, b []float64) float64 {
	if len(a) < 2 || isConstant(a) || isConstant(b) {
		return math.NaN()
	}
	return 1.0 - stat.Correlation(a, b, nil)
}

// StandardizedEuclidean returns sqrt(sum((a_i-b_i)^2 / v_i)). Variances must match the
// sequence length and be positive.
func StandardizedEuclidean(a, b, variances []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff / variances[i]
	}
	return math.Sqrt(sum)
}

func isConstant(values []float64) bool {
	return floats.Max(values) == floats.Min(values)
}
