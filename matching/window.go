package matching

import (
	"fmt"

	"github.com/RyanBlaney/melodia/algorithms/stats"
	"github.com/RyanBlaney/melodia/algorithms/window"
	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/melody"
)

// WindowMatcher slides the query curve over the melody curve and reports the best offsets
// under every distance measure.
type WindowMatcher struct {
	feature   melody.Feature
	scaling   float64
	positions bool
	metrics   []stats.Metric
	logger    logging.Logger
}

// NewWindowMatcher scans feature curves with all four distance measures.
func NewWindowMatcher(feature melody.Feature, scaling float64, positions bool) *WindowMatcher {
	return &WindowMatcher{
		feature:   feature,
		scaling:   scaling,
		positions: positions,
		metrics:   stats.Metrics,
		logger: logging.WithFields(logging.Fields{
			"component": "window_matcher",
			"feature":   feature,
		}),
	}
}

func (m *WindowMatcher) Kind() Kind { return SlidingWindow }

func (m *WindowMatcher) Match(seg melody.Segment, mel melody.Melody) (*MatchResult, error) {
	logger := m.logger.WithFields(logging.Fields{
		"function": "Match",
		"query":    seg.Filename,
		"segment":  seg.SegmentID,
		"melody":   mel.Filename,
	})

	features := []melody.Feature{m.feature}
	query, err := melody.Extract(seg.Symbols, features, m.scaling)
	if err != nil {
		return nil, fmt.Errorf("query curve: %w", err)
	}
	target, err := melody.Extract(mel.Symbols, features, m.scaling)
	if err != nil {
		return nil, fmt.Errorf("melody curve: %w", err)
	}
	if query.Len() == 0 || target.Len() == 0 {
		logger.Warn("Skipping pair with an empty curve")
		return nil, nil
	}

	scan, err := window.Slide(query.Column(0), target.Column(0), m.metrics)
	if err != nil {
		return nil, err
	}

	payload := &WindowMatches{
		Width:    scan.Width,
		Measures: make([]WindowMatch, 0, len(scan.Best)),
	}
	for _, best := range scan.Best {
		wm := WindowMatch{
			Measure:  best.Metric.String(),
			Distance: best.Distance,
			Offsets:  best.Offsets,
		}
		if m.positions {
			for _, offset := range best.Offsets {
				wm.Spans = append(wm.Spans, *spanOf(mel, target, offset, scan.Width))
			}
		}
		payload.Measures = append(payload.Measures, wm)
	}

	logger.Debug("Scanned melody", logging.Fields{"windows": scan.Windows})
	return newResult(seg, mel, noteCount(query.Slice(0, scan.Width)), payload), nil
}
