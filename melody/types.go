// Package melody holds the symbolic records the matching engine consumes: per-note Symbols,
// whole Melodies, query Segments cut from them, and the projections of those records into
// numeric feature curves.
package melody

// Symbol is one note's feature record. Optional features are nil when undefined, e.g. the
// pitch interval and ioi ratio of a melody's first note.
type Symbol struct {
	Pitch          float64  `json:"pitch"`
	PitchInterval  *float64 `json:"pitch_interval,omitempty"`
	Onset          float64  `json:"onset"`
	IOI            float64  `json:"ioi"`
	IOIRatio       *float64 `json:"ioi_ratio,omitempty"`
	ScaleDegree    *float64 `json:"scale_degree,omitempty"`
	MetricWeight   *float64 `json:"metric_weight,omitempty"`
	PhraseID       int      `json:"phrase_id"`
	PhrasePosition float64  `json:"phrase_position"`
	NoteIndex      int      `json:"note_index"`
}

// Melody is one performance of a tune, with its notes in onset order.
type Melody struct {
	TuneFamilyID string   `json:"tunefamily_id"`
	Filename     string   `json:"filename"`
	Symbols      []Symbol `json:"symbols"`

	// OnsetsMultipliedBy is set when a normalization step stretched the timeline;
	// reported onsets are divided by it. Zero means no correction.
	OnsetsMultipliedBy float64 `json:"onsets_multiplied_by,omitempty"`
}

// Segment is a query phrase: contiguous symbols of one melody sharing a phrase id.
type Segment struct {
	TuneFamilyID string   `json:"tunefamily_id"`
	Filename     string   `json:"filename"`
	SegmentID    int      `json:"segment_id"`
	Symbols      []Symbol `json:"symbols"`
}

// CorrectOnset undoes the melody's timeline stretch, if any.
func (m Melody) CorrectOnset(onset float64) float64 {
	if m.OnsetsMultipliedBy > 0 {
		return onset / m.OnsetsMultipliedBy
	}
	return onset
}

// Clone returns a deep copy whose symbols can be modified freely.
func (m Melody) Clone() Melody {
	out := m
	out.Symbols = cloneSymbols(m.Symbols)
	return out
}

func cloneSymbols(in []Symbol) []Symbol {
	out := make([]Symbol, len(in))
	for i, s := range in {
		out[i] = s
		out[i].PitchInterval = cloneFloat(s.PitchInterval)
		out[i].IOIRatio = cloneFloat(s.IOIRatio)
		out[i].ScaleDegree = cloneFloat(s.ScaleDegree)
		out[i].MetricWeight = cloneFloat(s.MetricWeight)
	}
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v, for building optional fields.
func Float(v float64) *float64 {
	return &v
}
