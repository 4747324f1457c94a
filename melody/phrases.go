package melody

// Phrases cuts a melody into one segment per phrase id, in order of first appearance.
// The segment id is the phrase id.
func Phrases(m Melody) []Segment {
	var segments []Segment
	position := make(map[int]int)

	for _, s := range m.Symbols {
		idx, ok := position[s.PhraseID]
		if !ok {
			idx = len(segments)
			position[s.PhraseID] = idx
			segments = append(segments, Segment{
				TuneFamilyID: m.TuneFamilyID,
				Filename:     m.Filename,
				SegmentID:    s.PhraseID,
			})
		}
		segments[idx].Symbols = append(segments[idx].Symbols, s)
	}

	for i := range segments {
		segments[i].Symbols = cloneSymbols(segments[i].Symbols)
	}
	return segments
}

// PhrasesOf applies Phrases to every melody.
func PhrasesOf(melodies []Melody) []Segment {
	var out []Segment
	for _, m := range melodies {
		out = append(out, Phrases(m)...)
	}
	return out
}
