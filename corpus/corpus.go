// Package corpus reads melody collections from JSON files.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/melody"
)

// ErrInvalidCorpus is wrapped by every structural problem found while loading.
var ErrInvalidCorpus = errors.New("corpus: invalid corpus")

// Corpus is the on-disk layout: melodies plus optional query segments.
type Corpus struct {
	Melodies []melody.Melody  `json:"melodies"`
	Segments []melody.Segment `json:"segments,omitempty"`
}

// Load reads and checks a corpus file.
func Load(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}

	logging.WithFields(logging.Fields{
		"component": "corpus",
		"function":  "Load",
		"path":      path,
	}).Info("Loaded corpus", logging.Fields{
		"melodies": len(c.Melodies),
		"segments": len(c.Segments),
	})
	return c, nil
}

// Read decodes and checks a corpus.
func Read(r io.Reader) (*Corpus, error) {
	var c Corpus
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate requires identified melodies and segments with strictly increasing onsets.
func (c *Corpus) Validate() error {
	if len(c.Melodies) == 0 {
		return fmt.Errorf("%w: no melodies", ErrInvalidCorpus)
	}
	for i, m := range c.Melodies {
		if m.TuneFamilyID == "" || m.Filename == "" {
			return fmt.Errorf("%w: melody %d lacks a tune family or filename", ErrInvalidCorpus, i)
		}
		if err := checkOnsets(m.Symbols); err != nil {
			return fmt.Errorf("%w: melody %s: %w", ErrInvalidCorpus, m.Filename, err)
		}
	}
	for i, s := range c.Segments {
		if s.TuneFamilyID == "" || s.Filename == "" {
			return fmt.Errorf("%w: segment %d lacks a tune family or filename", ErrInvalidCorpus, i)
		}
		if err := checkOnsets(s.Symbols); err != nil {
			return fmt.Errorf("%w: segment %s/%d: %w", ErrInvalidCorpus, s.Filename, s.SegmentID, err)
		}
	}
	return nil
}

// QuerySegments returns the stored segments, or the phrases of every melody when the file
// holds none.
func (c *Corpus) QuerySegments() []melody.Segment {
	if len(c.Segments) > 0 {
		return c.Segments
	}
	return melody.PhrasesOf(c.Melodies)
}

func checkOnsets(symbols []melody.Symbol) error {
	for i := 1; i < len(symbols); i++ {
		if symbols[i].Onset <= symbols[i-1].Onset {
			return fmt.Errorf("onset of note %d does not follow note %d", i, i-1)
		}
	}
	return nil
}
