// Package matching finds occurrences of query segments in the melodies of their tune family,
// with one of three matchers: a sliding window of distance measures, local alignment, or
// maximal translatable patterns.
package matching

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/melodia/algorithms/alignment"
	"github.com/RyanBlaney/melodia/config"
	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/melody"
)

// ErrUnknownMatcher is returned for a matcher or scorer name that is not supported.
var ErrUnknownMatcher = errors.New("matching: unknown matcher")

// Matcher compares one query segment with one melody. A nil result with a nil error means
// the pair has nothing to compare (e.g. an empty curve) and is skipped.
type Matcher interface {
	Kind() Kind
	Match(seg melody.Segment, mel melody.Melody) (*MatchResult, error)
}

// PairError wraps a failure of one (segment, melody) pair.
type PairError struct {
	TuneFamilyID   string
	QueryFilename  string
	QuerySegmentID int
	MatchFilename  string
	Err            error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("matching %s segment %d of %s against %s: %v",
		e.TuneFamilyID, e.QuerySegmentID, e.QueryFilename, e.MatchFilename, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}

// NewMatcher builds the matcher a validated configuration selects.
func NewMatcher(cfg *config.Config) (Matcher, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "matcher_factory",
		"function":  "NewMatcher",
		"matcher":   cfg.Matcher,
	})

	features, err := cfg.ParsedFeatures()
	if err != nil {
		return nil, err
	}

	kind, err := ParseKind(string(cfg.Matcher))
	if err != nil {
		return nil, err
	}

	switch kind {
	case SlidingWindow:
		logger.Debug("Creating sliding window matcher")
		return NewWindowMatcher(features[0], cfg.Scaling, cfg.ReturnPositions), nil

	case Geometric:
		logger.Debug("Creating geometric matcher")
		return NewGeometricMatcher(features[0], cfg.ReturnPositions), nil

	default:
		opts, err := alignmentOptions(cfg.Alignment)
		if err != nil {
			return nil, err
		}
		opts.Traceback = cfg.ReturnPositions
		logger.Debug("Creating local alignment matcher")
		return NewAlignmentMatcher(features, cfg.Scaling, opts), nil
	}
}

func alignmentOptions(ac config.AlignmentConfig) (alignment.Options, error) {
	opts := alignment.Options{
		InsertionWeight: ac.InsertionWeight,
		DeletionWeight:  ac.DeletionWeight,
		MaxTies:         ac.MaxTies,
	}

	switch ac.Substitution {
	case config.SubstitutionIdentity, "":
		opts.Substitution = alignment.Identity
	case config.SubstitutionPitchDifference:
		opts.Substitution = alignment.PitchDifference
	case config.SubstitutionWeighted:
		score, err := alignment.WeightedDistance(ac.Variances)
		if err != nil {
			return opts, err
		}
		opts.Substitution = score
	default:
		return opts, fmt.Errorf("%w: substitution %q", ErrUnknownMatcher, ac.Substitution)
	}
	return opts, nil
}

func newResult(seg melody.Segment, mel melody.Melody, queryLength int, payload Payload) *MatchResult {
	return &MatchResult{
		TuneFamilyID:   mel.TuneFamilyID,
		QueryFilename:  seg.Filename,
		QuerySegmentID: seg.SegmentID,
		MatchFilename:  mel.Filename,
		QueryLength:    queryLength,
		Payload:        payload,
	}
}

// spanOf maps curve elements [offset, offset+length) back to the onsets of their source
// notes in mel. It returns nil for an empty range.
func spanOf(mel melody.Melody, curve melody.Curve, offset, length int) *Span {
	if length <= 0 {
		return nil
	}
	first := curve.Notes[offset]
	last := curve.Notes[offset+length-1]
	return &Span{
		Start: mel.CorrectOnset(mel.Symbols[first].Onset),
		End:   mel.CorrectOnset(mel.Symbols[last].Onset),
	}
}

// noteCount returns how many distinct notes a curve was sampled from.
func noteCount(curve melody.Curve) int {
	count := 0
	for i, n := range curve.Notes {
		if i == 0 || n != curve.Notes[i-1] {
			count++
		}
	}
	return count
}
