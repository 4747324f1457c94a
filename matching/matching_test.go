package matching_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/RyanBlaney/melodia/algorithms/alignment"
	"github.com/RyanBlaney/melodia/algorithms/geometric"
	"github.com/RyanBlaney/melodia/config"
	"github.com/RyanBlaney/melodia/matching"
	"github.com/RyanBlaney/melodia/melody"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tune builds a melody with unit inter-onset intervals starting at onset 0.
func tune(family, name string, pitches ...float64) melody.Melody {
	symbols := make([]melody.Symbol, len(pitches))
	for i, p := range pitches {
		symbols[i] = melody.Symbol{
			Pitch:     p,
			Onset:     float64(i),
			IOI:       1,
			PhraseID:  i / 3,
			NoteIndex: i,
		}
		if i > 0 {
			symbols[i].PitchInterval = melody.Float(p - pitches[i-1])
		}
	}
	return melody.Melody{TuneFamilyID: family, Filename: name, Symbols: symbols}
}

func segmentOf(m melody.Melody, id, from, to int) melody.Segment {
	return melody.Segment{
		TuneFamilyID: m.TuneFamilyID,
		Filename:     m.Filename,
		SegmentID:    id,
		Symbols:      m.Symbols[from:to],
	}
}

func TestAlignmentMatcher_SelfMatch(t *testing.T) {
	mel := tune("F", "a.krn", 55, 60, 62, 64, 70)
	seg := segmentOf(mel, 0, 1, 4)

	m := matching.NewAlignmentMatcher([]melody.Feature{melody.FeaturePitch}, 1, alignment.DefaultOptions())
	res, err := m.Match(seg, mel)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, matching.LocalAlignment, res.Kind())
	assert.Equal(t, 3, res.QueryLength)

	payload, ok := res.Payload.(*matching.AlignmentMatches)
	require.True(t, ok)
	assert.Equal(t, 1.0, payload.Similarity)
	require.Len(t, payload.Matches, 1)
	assert.Equal(t, 1, payload.Matches[0].Offset)
	assert.Equal(t, 3, payload.Matches[0].Length)
	assert.Equal(t, &matching.Span{Start: 1, End: 3}, payload.Matches[0].Span)
}

func TestAlignmentMatcher_DurationWeightedPositions(t *testing.T) {
	mel := tune("F", "a.krn", 55, 60, 62, 64, 70)
	seg := segmentOf(mel, 0, 1, 4)

	m := matching.NewAlignmentMatcher([]melody.Feature{melody.FeaturePitch}, 2, alignment.DefaultOptions())
	res, err := m.Match(seg, mel)
	require.NoError(t, err)

	payload := res.Payload.(*matching.AlignmentMatches)
	assert.Equal(t, 1.0, payload.Similarity)
	require.NotEmpty(t, payload.Matches)
	assert.Equal(t, 2, payload.Matches[0].Offset)
	assert.Equal(t, 6, payload.Matches[0].Length)
	// curve offsets map back to note onsets, not to sample indices
	assert.Equal(t, &matching.Span{Start: 1, End: 3}, payload.Matches[0].Span)
	assert.Equal(t, 3, res.QueryLength)
}

func TestAlignmentMatcher_CorrectsStretchedOnsets(t *testing.T) {
	mel := tune("F", "a.krn", 55, 60, 62, 64, 70)
	for i := range mel.Symbols {
		mel.Symbols[i].Onset *= 2
	}
	mel.OnsetsMultipliedBy = 2
	seg := segmentOf(mel, 0, 1, 4)

	m := matching.NewAlignmentMatcher([]melody.Feature{melody.FeaturePitch}, 1, alignment.DefaultOptions())
	res, err := m.Match(seg, mel)
	require.NoError(t, err)

	payload := res.Payload.(*matching.AlignmentMatches)
	require.Len(t, payload.Matches, 1)
	assert.Equal(t, &matching.Span{Start: 1, End: 3}, payload.Matches[0].Span)
}

func TestAlignmentMatcher_WithoutPositions(t *testing.T) {
	mel := tune("F", "a.krn", 55, 60, 62, 64, 70)
	opts := alignment.DefaultOptions()
	opts.Traceback = false

	m := matching.NewAlignmentMatcher([]melody.Feature{melody.FeaturePitch}, 1, opts)
	res, err := m.Match(segmentOf(mel, 0, 1, 4), mel)
	require.NoError(t, err)

	entries := res.Payload.Entries()
	require.Len(t, entries[matching.MeasureLocalAlign], 1)
	assert.Equal(t, 1.0, entries[matching.MeasureLocalAlign][0].Similarity)
	assert.Nil(t, entries[matching.MeasureLocalAlign][0].Span)
}

func TestAlignmentMatcher_TrimsUndefinedLead(t *testing.T) {
	mel := tune("F", "a.krn", 60, 62, 64, 65)
	seg := segmentOf(mel, 0, 0, 3)

	m := matching.NewAlignmentMatcher([]melody.Feature{melody.FeaturePitchInterval}, 1, alignment.DefaultOptions())
	res, err := m.Match(seg, mel)
	require.NoError(t, err)

	payload := res.Payload.(*matching.AlignmentMatches)
	assert.Equal(t, 1.0, payload.Similarity)
	require.Len(t, payload.Matches, 1)
	assert.Equal(t, &matching.Span{Start: 1, End: 2}, payload.Matches[0].Span)
	assert.Equal(t, 2, res.QueryLength)
}

func TestWindowMatcher_SelfMatch(t *testing.T) {
	mel := tune("F", "a.krn", 55, 60, 62, 64, 70)
	seg := segmentOf(mel, 0, 1, 4)

	m := matching.NewWindowMatcher(melody.FeaturePitch, 1, true)
	res, err := m.Match(seg, mel)
	require.NoError(t, err)
	assert.Equal(t, matching.SlidingWindow, res.Kind())

	payload := res.Payload.(*matching.WindowMatches)
	assert.Equal(t, 3, payload.Width)
	require.Len(t, payload.Measures, 4)
	for _, wm := range payload.Measures {
		assert.InDelta(t, 0.0, wm.Distance, 1e-9, wm.Measure)
		assert.Equal(t, []int{1}, wm.Offsets, wm.Measure)
		assert.Equal(t, []matching.Span{{Start: 1, End: 3}}, wm.Spans, wm.Measure)
	}

	entries := res.Payload.Entries()
	assert.Len(t, entries, 4)
	assert.Contains(t, entries, "hamming")
	assert.Contains(t, entries, "cor")
}

func TestGeometricMatcher_TranslatedOccurrence(t *testing.T) {
	seg := melody.Segment{
		TuneFamilyID: "F",
		Filename:     "q.krn",
		Symbols: []melody.Symbol{
			{Pitch: 60, Onset: 0, IOI: 1},
			{Pitch: 62, Onset: 1, IOI: 1},
		},
	}
	mel := melody.Melody{
		TuneFamilyID: "F",
		Filename:     "m.krn",
		Symbols: []melody.Symbol{
			{Pitch: 60, Onset: 5, IOI: 1},
			{Pitch: 62, Onset: 6, IOI: 4},
			{Pitch: 70, Onset: 10, IOI: 1},
		},
	}

	m := matching.NewGeometricMatcher(melody.FeaturePitch, true)
	res, err := m.Match(seg, mel)
	require.NoError(t, err)
	assert.Equal(t, matching.Geometric, res.Kind())

	payload := res.Payload.(*matching.GeometricMatches)
	assert.Equal(t, 2, payload.Size)
	assert.Equal(t, 1.0, payload.Similarity)
	require.Len(t, payload.Patterns, 1)
	assert.Equal(t, geometric.Vector{Onset: 5, Value: 0}, payload.Patterns[0].Vector)
	assert.Equal(t, &matching.Span{Start: 5, End: 6}, payload.Patterns[0].Span)
}

func TestGeometricMatcher_SelfMatch(t *testing.T) {
	mel := tune("F", "a.krn", 55, 60, 62, 64, 70, 60)
	seg := segmentOf(mel, 1, 3, 6)

	res, err := matching.NewGeometricMatcher(melody.FeaturePitch, false).Match(seg, mel)
	require.NoError(t, err)

	payload := res.Payload.(*matching.GeometricMatches)
	assert.Equal(t, 3, payload.Size)
	assert.Equal(t, 1.0, payload.Similarity)
	assert.Empty(t, payload.Patterns)
}

func TestMatchers_SkipEmptyCurves(t *testing.T) {
	mel := tune("F", "a.krn", 60, 62)
	empty := melody.Segment{TuneFamilyID: "F", Filename: "a.krn"}

	matchers := []matching.Matcher{
		matching.NewWindowMatcher(melody.FeaturePitch, 1, true),
		matching.NewAlignmentMatcher([]melody.Feature{melody.FeaturePitch}, 1, alignment.DefaultOptions()),
		matching.NewGeometricMatcher(melody.FeaturePitch, true),
	}
	for _, m := range matchers {
		res, err := m.Match(empty, mel)
		assert.NoError(t, err, m.Kind().String())
		assert.Nil(t, res, m.Kind().String())
	}
}

func TestNewMatcher(t *testing.T) {
	cfg := config.Default()
	m, err := matching.NewMatcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, matching.LocalAlignment, m.Kind())

	cfg.Matcher = config.MatcherSlidingWindow
	m, err = matching.NewMatcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, matching.SlidingWindow, m.Kind())

	cfg.Matcher = config.MatcherGeometric
	m, err = matching.NewMatcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, matching.Geometric, m.Kind())

	cfg.Matcher = "dtw"
	_, err = matching.NewMatcher(cfg)
	assert.ErrorIs(t, err, matching.ErrUnknownMatcher)

	cfg = config.Default()
	cfg.Alignment.Substitution = config.SubstitutionWeighted
	_, err = matching.NewMatcher(cfg)
	assert.ErrorIs(t, err, alignment.ErrVarianceMismatch)

	cfg.Alignment.Variances = []float64{4}
	_, err = matching.NewMatcher(cfg)
	assert.NoError(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := matching.ParseKind("geometric")
	require.NoError(t, err)
	assert.Equal(t, matching.Geometric, k)

	_, err = matching.ParseKind("siam")
	assert.ErrorIs(t, err, matching.ErrUnknownMatcher)
}

func TestMatchResult_MarshalJSON(t *testing.T) {
	mel := tune("F", "a.krn", 55, 60, 62, 64, 70)
	m := matching.NewAlignmentMatcher([]melody.Feature{melody.FeaturePitch}, 1, alignment.DefaultOptions())
	res, err := m.Match(segmentOf(mel, 2, 1, 4), mel)
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded struct {
		TuneFamilyID   string `json:"tunefamily_id"`
		QuerySegmentID int    `json:"query_segment_id"`
		QueryLength    int    `json:"query_length"`
		Kind           string `json:"kind"`
		Matches        map[string][]map[string]float64
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "F", decoded.TuneFamilyID)
	assert.Equal(t, 2, decoded.QuerySegmentID)
	assert.Equal(t, 3, decoded.QueryLength)
	assert.Equal(t, "local_alignment", decoded.Kind)
	assert.Equal(t, []map[string]float64{{
		"similarity":        1,
		"match_start_onset": 1,
		"match_end_onset":   3,
	}}, decoded.Matches["local_align"])
}

type pairKey struct {
	Family, Query, Match string
}

func TestOrchestrator_StaysInsideTuneFamilies(t *testing.T) {
	a1 := tune("A", "a1.krn", 60, 62, 64, 65, 67, 69)
	a2 := tune("A", "a2.krn", 60, 62, 64, 60, 62, 64)
	b1 := tune("B", "b1.krn", 50, 52, 53)
	melodies := []melody.Melody{b1, a1, a2}
	segments := append(melody.PhrasesOf([]melody.Melody{a1}), melody.PhrasesOf([]melody.Melody{b1})...)
	require.Len(t, segments, 3)

	var calls atomic.Int64
	o := matching.NewOrchestrator(
		matching.NewAlignmentMatcher([]melody.Feature{melody.FeaturePitch}, 1, alignment.DefaultOptions()),
		matching.WithWorkers(3),
		matching.WithProgress(func(done, total int) {
			calls.Add(1)
			assert.Equal(t, 5, total)
			assert.LessOrEqual(t, done, total)
		}),
	)

	results, err := o.Run(context.Background(), melodies, segments)
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, int64(5), calls.Load())

	got := make([]pairKey, len(results))
	for i, r := range results {
		got[i] = pairKey{r.TuneFamilyID, r.QueryFilename, r.MatchFilename}
	}
	assert.ElementsMatch(t, []pairKey{
		{"A", "a1.krn", "a1.krn"},
		{"A", "a1.krn", "a1.krn"},
		{"A", "a1.krn", "a2.krn"},
		{"A", "a1.krn", "a2.krn"},
		{"B", "b1.krn", "b1.krn"},
	}, got)

	for _, r := range results {
		if r.QueryFilename == r.MatchFilename {
			assert.Equal(t, 1.0, r.Payload.(*matching.AlignmentMatches).Similarity)
		}
	}
}

func TestOrchestrator_CollectsPairErrors(t *testing.T) {
	good := tune("A", "good.krn", 60, 62, 64, 65)
	bad := tune("A", "bad.krn", 60, 62, 64, 65)
	bad.Symbols[2].PitchInterval = nil
	segments := []melody.Segment{segmentOf(good, 0, 0, 3)}

	matcher := matching.NewAlignmentMatcher([]melody.Feature{melody.FeaturePitchInterval}, 1, alignment.DefaultOptions())

	results, err := matching.NewOrchestrator(matcher, matching.WithWorkers(2)).
		Run(context.Background(), []melody.Melody{good, bad}, segments)
	require.Error(t, err)
	assert.ErrorIs(t, err, melody.ErrUndefinedValue)

	var pe *matching.PairError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bad.krn", pe.MatchFilename)
	assert.Equal(t, "good.krn", pe.QueryFilename)

	require.Len(t, results, 1)
	assert.Equal(t, "good.krn", results[0].MatchFilename)

	results, err = matching.NewOrchestrator(matcher, matching.WithFailFast(true)).
		Run(context.Background(), []melody.Melody{good, bad}, segments)
	assert.Nil(t, results)
	require.True(t, errors.As(err, &pe))
}

func TestOrchestrator_Cancelled(t *testing.T) {
	mel := tune("A", "a.krn", 60, 62, 64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := matching.NewOrchestrator(matching.NewGeometricMatcher(melody.FeaturePitch, true))
	_, err := o.Run(ctx, []melody.Melody{mel}, melody.Phrases(mel))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrchestrator_EmptyCorpus(t *testing.T) {
	o := matching.NewOrchestrator(matching.NewWindowMatcher(melody.FeaturePitch, 1, false))
	results, err := o.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
