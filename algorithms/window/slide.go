// Package window scans a short query curve across a longer target curve and reports,
// for each distance measure, the offsets at which the query fits best.
package window

import (
	"errors"
	"math"

	"github.com/RyanBlaney/melodia/algorithms/stats"
)

// ErrEmptySequence is returned when either curve has no elements.
var ErrEmptySequence = errors.New("window: input sequences must be non-empty")

// Best is the minimum distance of one measure and every offset attaining it.
// Offsets is empty when no window had a defined distance.
type Best struct {
	Metric   stats.Metric
	Distance float64
	Offsets  []int
}

// Found reports whether the measure produced at least one match.
func (b Best) Found() bool {
	return len(b.Offsets) > 0
}

// Result is the outcome of one scan.
type Result struct {
	// Width is the number of query elements compared per window. It is shorter than the
	// query when the query had to be truncated to the target length.
	Width   int
	Windows int
	Best    []Best
}

// Slide compares query against every window of target with the same width, for each
// metric. A query longer than the target is truncated to the target length.
func Slide(query, target []float64, metrics []stats.Metric) (*Result, error) {
	if len(query) == 0 || len(target) == 0 {
		return nil, ErrEmptySequence
	}

	if len(query) > len(target) {
		query = query[:len(target)]
	}
	width := len(query)
	windows := len(target) - width + 1

	result := &Result{
		Width:   width,
		Windows: windows,
		Best:    make([]Best, 0, len(metrics)),
	}

	distances := make([]float64, windows)
	for _, metric := range metrics {
		distanceFunc, err := stats.GetDistanceFunction(metric)
		if err != nil {
			return nil, err
		}

		for offset := range windows {
			distances[offset] = distanceFunc(query, target[offset:offset+width])
		}

		distance, offsets := stats.ArgMins(distances)
		if len(offsets) == 0 {
			distance = math.NaN()
		}
		result.Best = append(result.Best, Best{
			Metric:   metric,
			Distance: distance,
			Offsets:  offsets,
		})
	}
	return result, nil
}
