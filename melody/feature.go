package melody

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownFeature is returned for a feature name the extractor does not know.
	ErrUnknownFeature = errors.New("melody: unknown feature")

	// ErrUndefinedValue is returned when a curve has an undefined value past its leading element.
	ErrUndefinedValue = errors.New("melody: undefined feature value")

	// ErrNoFeatures is returned when a curve is requested without any feature.
	ErrNoFeatures = errors.New("melody: no features selected")
)

// Feature names one per-note feature of a Symbol.
type Feature string

const (
	FeaturePitch          Feature = "pitch"
	FeaturePitchInterval  Feature = "pitch_interval"
	FeatureOnset          Feature = "onset"
	FeatureIOI            Feature = "ioi"
	FeatureIOIRatio       Feature = "ioi_ratio"
	FeatureScaleDegree    Feature = "scale_degree"
	FeatureMetricWeight   Feature = "metric_weight"
	FeaturePhrasePosition Feature = "phrase_position"
)

var knownFeatures = []Feature{
	FeaturePitch,
	FeaturePitchInterval,
	FeatureOnset,
	FeatureIOI,
	FeatureIOIRatio,
	FeatureScaleDegree,
	FeatureMetricWeight,
	FeaturePhrasePosition,
}

// ParseFeature resolves a feature name. "ioiR" and "phrasePosition" are accepted as aliases.
func ParseFeature(name string) (Feature, error) {
	switch strings.TrimSpace(name) {
	case "ioiR":
		return FeatureIOIRatio, nil
	case "phrasePosition":
		return FeaturePhrasePosition, nil
	}
	f := Feature(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range knownFeatures {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFeature, name)
}

// ParseFeatures resolves an ordered list of feature names.
func ParseFeatures(names []string) ([]Feature, error) {
	if len(names) == 0 {
		return nil, ErrNoFeatures
	}
	out := make([]Feature, len(names))
	for i, name := range names {
		f, err := ParseFeature(name)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Value returns the symbol's value for f and whether it is defined.
func (s Symbol) Value(f Feature) (float64, bool) {
	switch f {
	case FeaturePitch:
		return s.Pitch, true
	case FeatureOnset:
		return s.Onset, true
	case FeatureIOI:
		return s.IOI, true
	case FeaturePhrasePosition:
		return s.PhrasePosition, true
	case FeaturePitchInterval:
		return optional(s.PitchInterval)
	case FeatureIOIRatio:
		return optional(s.IOIRatio)
	case FeatureScaleDegree:
		return optional(s.ScaleDegree)
	case FeatureMetricWeight:
		return optional(s.MetricWeight)
	default:
		return math.NaN(), false
	}
}

func optional(p *float64) (float64, bool) {
	if p == nil {
		return math.NaN(), false
	}
	return *p, true
}
