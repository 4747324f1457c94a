package matching

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/RyanBlaney/melodia/algorithms/geometric"
)

// Kind selects one of the three matchers.
type Kind int

const (
	SlidingWindow Kind = iota
	LocalAlignment
	Geometric
)

func (k Kind) String() string {
	switch k {
	case SlidingWindow:
		return "sliding_window"
	case LocalAlignment:
		return "local_alignment"
	case Geometric:
		return "geometric"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a matcher name to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range []Kind{SlidingWindow, LocalAlignment, Geometric} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMatcher, name)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Measure names reported in result entries.
const (
	MeasureLocalAlign = "local_align"
	MeasureSIAM       = "siam"
)

// Span is a match position in the melody's own onset units.
type Span struct {
	Start float64 `json:"match_start_onset"`
	End   float64 `json:"match_end_onset"`
}

// Entry is one reported occurrence of a measure. Span is nil when positions were not
// requested.
type Entry struct {
	Similarity float64 `json:"similarity"`
	*Span
}

// Payload is the matcher-specific part of a MatchResult. The concrete type follows the Kind:
// *WindowMatches, *AlignmentMatches or *GeometricMatches.
type Payload interface {
	Kind() Kind
	// Entries flattens the payload into reported occurrences per measure name.
	Entries() map[string][]Entry
	payload()
}

// WindowMatch is the best fit of the query under one distance measure.
type WindowMatch struct {
	Measure  string
	Distance float64
	Offsets  []int
	Spans    []Span
}

// WindowMatches is the sliding-window payload. Similarity values are distances: lower is better.
type WindowMatches struct {
	Width    int
	Measures []WindowMatch
}

func (*WindowMatches) Kind() Kind { return SlidingWindow }
func (*WindowMatches) payload()   {}

func (w *WindowMatches) Entries() map[string][]Entry {
	out := make(map[string][]Entry, len(w.Measures))
	for _, m := range w.Measures {
		if len(m.Offsets) == 0 {
			continue
		}
		if len(m.Spans) == 0 {
			out[m.Measure] = []Entry{{Similarity: m.Distance}}
			continue
		}
		for i := range m.Spans {
			out[m.Measure] = append(out[m.Measure], Entry{Similarity: m.Distance, Span: &m.Spans[i]})
		}
	}
	return out
}

// AlignedMatch is one traced local alignment. Offset and Length index the melody curve.
type AlignedMatch struct {
	Offset int
	Length int
	Span   *Span
}

// AlignmentMatches is the local-alignment payload.
type AlignmentMatches struct {
	Score      float64
	Similarity float64
	Matches    []AlignedMatch
}

func (*AlignmentMatches) Kind() Kind { return LocalAlignment }
func (*AlignmentMatches) payload()   {}

func (a *AlignmentMatches) Entries() map[string][]Entry {
	if len(a.Matches) == 0 {
		return map[string][]Entry{MeasureLocalAlign: {{Similarity: a.Similarity}}}
	}
	entries := make([]Entry, len(a.Matches))
	for i, m := range a.Matches {
		entries[i] = Entry{Similarity: a.Similarity, Span: m.Span}
	}
	return map[string][]Entry{MeasureLocalAlign: entries}
}

// PatternMatch is one maximal translatable pattern of the query in the melody.
type PatternMatch struct {
	Vector geometric.Vector
	Span   *Span
}

// GeometricMatches is the translation-vector payload.
type GeometricMatches struct {
	Size       int
	Similarity float64
	Patterns   []PatternMatch
}

func (*GeometricMatches) Kind() Kind { return Geometric }
func (*GeometricMatches) payload()   {}

func (g *GeometricMatches) Entries() map[string][]Entry {
	if len(g.Patterns) == 0 {
		return map[string][]Entry{MeasureSIAM: {{Similarity: g.Similarity}}}
	}
	entries := make([]Entry, len(g.Patterns))
	for i, p := range g.Patterns {
		entries[i] = Entry{Similarity: g.Similarity, Span: p.Span}
	}
	return map[string][]Entry{MeasureSIAM: entries}
}

// MatchResult is the outcome of matching one segment against one melody of its family.
type MatchResult struct {
	TuneFamilyID   string
	QueryFilename  string
	QuerySegmentID int
	MatchFilename  string
	// QueryLength is the number of query notes the matcher compared.
	QueryLength int
	Payload     Payload
}

// Kind reports which matcher produced the result.
func (r *MatchResult) Kind() Kind {
	return r.Payload.Kind()
}

type resultJSON struct {
	TuneFamilyID   string             `json:"tunefamily_id"`
	QueryFilename  string             `json:"query_filename"`
	QuerySegmentID int                `json:"query_segment_id"`
	MatchFilename  string             `json:"match_filename"`
	QueryLength    int                `json:"query_length"`
	Kind           Kind               `json:"kind"`
	Matches        map[string][]Entry `json:"matches"`
}

// MarshalJSON writes the result with its entries keyed by measure name. A non-finite
// similarity is an error.
func (r *MatchResult) MarshalJSON() ([]byte, error) {
	matches := r.Payload.Entries()
	for _, entries := range matches {
		for i := range entries {
			if math.IsNaN(entries[i].Similarity) || math.IsInf(entries[i].Similarity, 0) {
				return nil, fmt.Errorf("matching: result for %s has a non-finite similarity", r.QueryFilename)
			}
		}
	}
	return json.Marshal(resultJSON{
		TuneFamilyID:   r.TuneFamilyID,
		QueryFilename:  r.QueryFilename,
		QuerySegmentID: r.QuerySegmentID,
		MatchFilename:  r.MatchFilename,
		QueryLength:    r.QueryLength,
		Kind:           r.Kind(),
		Matches:        matches,
	})
}
