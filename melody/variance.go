package melody

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// FeatureVariances returns the sample variance of each feature over every defined value
// in the corpus, for use by the weighted multi-dimensional substitution scorer.
func FeatureVariances(melodies []Melody, features []Feature) ([]float64, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}

	variances := make([]float64, len(features))
	for k, f := range features {
		if _, err := ParseFeature(string(f)); err != nil {
			return nil, err
		}

		var values []float64
		for _, m := range melodies {
			for _, s := range m.Symbols {
				if v, ok := s.Value(f); ok {
					values = append(values, v)
				}
			}
		}
		if len(values) < 2 {
			return nil, fmt.Errorf("melody: feature %q has %d defined values, need at least 2 for a variance", f, len(values))
		}
		variances[k] = stat.Variance(values, nil)
	}
	return variances, nil
}
