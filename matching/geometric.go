package matching

import (
	"github.com/RyanBlaney/melodia/algorithms/geometric"
	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/melody"
)

// GeometricMatcher finds maximal translatable patterns of the query's (onset, value) points
// in the melody's points.
type GeometricMatcher struct {
	feature   melody.Feature
	positions bool
	logger    logging.Logger
}

// NewGeometricMatcher pairs onsets with feature values; pitch is the usual choice.
func NewGeometricMatcher(feature melody.Feature, positions bool) *GeometricMatcher {
	return &GeometricMatcher{
		feature:   feature,
		positions: positions,
		logger: logging.WithFields(logging.Fields{
			"component": "geometric_matcher",
			"feature":   feature,
		}),
	}
}

func (m *GeometricMatcher) Kind() Kind { return Geometric }

func (m *GeometricMatcher) Match(seg melody.Segment, mel melody.Melody) (*MatchResult, error) {
	logger := m.logger.WithFields(logging.Fields{
		"function": "Match",
		"query":    seg.Filename,
		"segment":  seg.SegmentID,
		"melody":   mel.Filename,
	})

	query := geometric.Relative(m.points(seg.Symbols))
	target := m.points(mel.Symbols)
	if len(query) == 0 || len(target) == 0 {
		logger.Warn("Skipping pair without defined points")
		return nil, nil
	}

	if !m.positions {
		size, _, err := geometric.MaximalTranslatablePatterns(query, target)
		if err != nil {
			return nil, err
		}
		payload := &GeometricMatches{
			Size:       size,
			Similarity: float64(size) / float64(len(query)),
		}
		return newResult(seg, mel, len(query), payload), nil
	}

	found, err := geometric.Match(query, target)
	if err != nil {
		return nil, err
	}
	if len(found.Patterns) == 0 {
		logger.Debug("Every pattern runs past the melody end", logging.Fields{"dropped": found.Dropped})
		return nil, nil
	}

	payload := &GeometricMatches{
		Size:       found.Size,
		Similarity: found.Similarity,
		Patterns:   make([]PatternMatch, 0, len(found.Patterns)),
	}
	for _, p := range found.Patterns {
		payload.Patterns = append(payload.Patterns, PatternMatch{
			Vector: p.Vector,
			Span: &Span{
				Start: mel.CorrectOnset(p.Start),
				End:   mel.CorrectOnset(p.End),
			},
		})
	}

	logger.Debug("Found translatable patterns", logging.Fields{
		"size":    found.Size,
		"ties":    len(found.Patterns),
		"dropped": found.Dropped,
	})
	return newResult(seg, mel, len(query), payload), nil
}

func (m *GeometricMatcher) points(symbols []melody.Symbol) []geometric.Point {
	raw, _ := melody.Points(symbols, m.feature)
	out := make([]geometric.Point, len(raw))
	for i, p := range raw {
		out[i] = geometric.Point{Onset: p[0], Value: p[1]}
	}
	return out
}
