package corpus_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RyanBlaney/melodia/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoTunes = `{
  "melodies": [
    {"tunefamily_id": "NLB1", "filename": "a.krn", "symbols": [
      {"pitch": 60, "onset": 0, "ioi": 1, "phrase_id": 0},
      {"pitch": 62, "pitch_interval": 2, "onset": 1, "ioi": 1, "phrase_id": 0},
      {"pitch": 64, "pitch_interval": 2, "onset": 2, "ioi": 2, "phrase_id": 1}
    ]},
    {"tunefamily_id": "NLB1", "filename": "b.krn", "onsets_multiplied_by": 2, "symbols": [
      {"pitch": 60, "onset": 0, "ioi": 2, "phrase_id": 0}
    ]}
  ]
}`

func TestRead(t *testing.T) {
	c, err := corpus.Read(strings.NewReader(twoTunes))
	require.NoError(t, err)
	require.Len(t, c.Melodies, 2)

	a := c.Melodies[0]
	assert.Equal(t, "NLB1", a.TuneFamilyID)
	assert.Nil(t, a.Symbols[0].PitchInterval)
	require.NotNil(t, a.Symbols[1].PitchInterval)
	assert.Equal(t, 2.0, *a.Symbols[1].PitchInterval)
	assert.Equal(t, 2.0, c.Melodies[1].OnsetsMultipliedBy)

	segments := c.QuerySegments()
	require.Len(t, segments, 3)
	assert.Equal(t, "a.krn", segments[0].Filename)
	assert.Equal(t, 0, segments[0].SegmentID)
	assert.Len(t, segments[0].Symbols, 2)
	assert.Equal(t, 1, segments[1].SegmentID)
}

func TestRead_KeepsStoredSegments(t *testing.T) {
	body := `{
	  "melodies": [{"tunefamily_id": "F", "filename": "a.krn", "symbols": [{"pitch": 60}]}],
	  "segments": [{"tunefamily_id": "F", "filename": "a.krn", "segment_id": 7, "symbols": [{"pitch": 60}]}]
	}`
	c, err := corpus.Read(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, c.QuerySegments(), 1)
	assert.Equal(t, 7, c.QuerySegments()[0].SegmentID)
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no melodies", `{"melodies": []}`},
		{"no family", `{"melodies": [{"filename": "a.krn"}]}`},
		{"onsets go back", `{"melodies": [{"tunefamily_id": "F", "filename": "a.krn",
		  "symbols": [{"onset": 2}, {"onset": 1}]}]}`},
		{"duplicate onset", `{"melodies": [{"tunefamily_id": "F", "filename": "a.krn",
		  "symbols": [{"pitch": 60, "onset": 1}, {"pitch": 62, "onset": 1}]}]}`},
		{"segment without file", `{"melodies": [{"tunefamily_id": "F", "filename": "a.krn"}],
		  "segments": [{"tunefamily_id": "F"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := corpus.Read(strings.NewReader(tt.body))
			assert.ErrorIs(t, err, corpus.ErrInvalidCorpus)
		})
	}

	_, err := corpus.Read(strings.NewReader(`{"melodies": [`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(twoTunes), 0o644))

	c, err := corpus.Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Melodies, 2)

	_, err = corpus.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
