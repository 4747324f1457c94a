package matching

import (
	"fmt"

	"github.com/RyanBlaney/melodia/algorithms/alignment"
	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/melody"
)

// AlignmentMatcher locally aligns the query curve with the melody curve.
type AlignmentMatcher struct {
	features []melody.Feature
	scaling  float64
	opts     alignment.Options
	logger   logging.Logger
}

// NewAlignmentMatcher aligns curves of one or more features. Positions are recovered when
// opts.Traceback is set.
func NewAlignmentMatcher(features []melody.Feature, scaling float64, opts alignment.Options) *AlignmentMatcher {
	return &AlignmentMatcher{
		features: features,
		scaling:  scaling,
		opts:     opts,
		logger: logging.WithFields(logging.Fields{
			"component": "alignment_matcher",
			"features":  features,
		}),
	}
}

func (m *AlignmentMatcher) Kind() Kind { return LocalAlignment }

func (m *AlignmentMatcher) Match(seg melody.Segment, mel melody.Melody) (*MatchResult, error) {
	logger := m.logger.WithFields(logging.Fields{
		"function": "Match",
		"query":    seg.Filename,
		"segment":  seg.SegmentID,
		"melody":   mel.Filename,
	})

	query, err := melody.Extract(seg.Symbols, m.features, m.scaling)
	if err != nil {
		return nil, fmt.Errorf("query curve: %w", err)
	}
	target, err := melody.Extract(mel.Symbols, m.features, m.scaling)
	if err != nil {
		return nil, fmt.Errorf("melody curve: %w", err)
	}
	if query.Len() == 0 || target.Len() == 0 {
		logger.Warn("Skipping pair with an empty curve")
		return nil, nil
	}

	aligned, err := alignment.Align(query.Values, target.Values, m.opts)
	if err != nil {
		return nil, err
	}

	payload := &AlignmentMatches{
		Score:      aligned.Score,
		Similarity: aligned.Similarity,
		Matches:    make([]AlignedMatch, 0, len(aligned.Matches)),
	}
	for _, am := range aligned.Matches {
		payload.Matches = append(payload.Matches, AlignedMatch{
			Offset: am.Start,
			Length: am.Length,
			Span:   spanOf(mel, target, am.Start, am.Length),
		})
	}

	logger.Debug("Aligned melody", logging.Fields{
		"similarity": aligned.Similarity,
		"ties":       len(aligned.Matches),
	})
	return newResult(seg, mel, noteCount(query), payload), nil
}
