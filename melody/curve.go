package melody

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Curve is an ordered projection of one or more features over a symbol sequence.
// Values holds one row per curve element and one column per feature. Notes maps each
// element back to the index of the symbol it was sampled from, which is how curve
// offsets are turned back into onsets.
type Curve struct {
	Features []Feature
	Values   [][]float64
	Notes    []int
}

// Len returns the number of curve elements.
func (c Curve) Len() int {
	return len(c.Values)
}

// Dims returns the number of features per element.
func (c Curve) Dims() int {
	return len(c.Features)
}

// Column returns the k-th feature as a flat sequence.
func (c Curve) Column(k int) []float64 {
	out := make([]float64, len(c.Values))
	for i, row := range c.Values {
		out[i] = row[k]
	}
	return out
}

// Slice returns elements [i, j) sharing the underlying rows.
func (c Curve) Slice(i, j int) Curve {
	return Curve{
		Features: c.Features,
		Values:   c.Values[i:j],
		Notes:    c.Notes[i:j],
	}
}

// IsDurationWeighted reports whether scaling selects a resampled curve. Zero and one
// both mean native note-per-element curves.
func IsDurationWeighted(scaling float64) bool {
	return scaling > 0 && scaling != 1
}

// Extract projects symbols onto features. With a duration-weighting scaling factor every
// note is repeated round(ioi*scaling) times, so scaling is the number of samples per
// time unit. Leading elements with an undefined value are dropped; an undefined value
// anywhere after that yields ErrUndefinedValue.
func Extract(symbols []Symbol, features []Feature, scaling float64) (Curve, error) {
	if len(features) == 0 {
		return Curve{}, ErrNoFeatures
	}
	for _, f := range features {
		if !slices.Contains(knownFeatures, f) {
			return Curve{}, fmt.Errorf("%w: %q", ErrUnknownFeature, f)
		}
	}

	weighted := IsDurationWeighted(scaling)
	curve := Curve{
		Features: features,
		Values:   make([][]float64, 0, len(symbols)),
		Notes:    make([]int, 0, len(symbols)),
	}

	for i, s := range symbols {
		row := make([]float64, len(features))
		for k, f := range features {
			row[k], _ = s.Value(f)
		}

		repeat := 1
		if weighted {
			repeat = int(math.Round(s.IOI * scaling))
		}
		for range repeat {
			curve.Values = append(curve.Values, row)
			curve.Notes = append(curve.Notes, i)
		}
	}

	start := 0
	for start < len(curve.Values) && floats.HasNaN(curve.Values[start]) {
		start++
	}
	curve = curve.Slice(start, len(curve.Values))

	for i, row := range curve.Values {
		if floats.HasNaN(row) {
			return Curve{}, fmt.Errorf("%w: element %d (note %d)", ErrUndefinedValue, i, curve.Notes[i])
		}
	}
	return curve, nil
}

// Points returns (onset, value) pairs for feature f, skipping notes whose value
// is undefined. The second return holds the symbol index of each point.
func Points(symbols []Symbol, f Feature) ([][2]float64, []int) {
	points := make([][2]float64, 0, len(symbols))
	notes := make([]int, 0, len(symbols))
	for i, s := range symbols {
		v, ok := s.Value(f)
		if !ok {
			continue
		}
		points = append(points, [2]float64{s.Onset, v})
		notes = append(notes, i)
	}
	return points, notes
}
