package melody

import "math"

// HistogramBins is the number of semitone bins in a pitch histogram.
const HistogramBins = 120

// PitchHistogram is a duration-weighted distribution of a melody's pitches over
// semitone bins 0..119. Each bin holds the share of total duration spent on that pitch.
func PitchHistogram(symbols []Symbol) [HistogramBins]float64 {
	var hist [HistogramBins]float64

	total := 0.0
	for _, s := range symbols {
		total += s.IOI
	}
	if total <= 0 {
		return hist
	}

	for _, s := range symbols {
		bin := int(math.Round(s.Pitch))
		if bin < 0 || bin >= HistogramBins {
			continue
		}
		hist[bin] += s.IOI / total
	}
	return hist
}

// PitchShift returns the transposition in semitones that, applied to the melody behind
// other, maximizes the intersection of its histogram with ref. Ties go to the lowest shift.
// Histograms that never overlap yield 0, not the lowest shift tried.
func PitchShift(ref, other [HistogramBins]float64) int {
	bestShift := 0
	best := math.Inf(-1)

	for shift := -HistogramBins; shift < HistogramBins; shift++ {
		intersection := 0.0
		for j, v := range other {
			k := j + shift
			if k < 0 || k >= HistogramBins {
				continue
			}
			intersection += math.Min(ref[k], v)
		}
		if intersection > best {
			best = intersection
			bestShift = shift
		}
	}
	// disjoint histograms carry no transposition evidence
	if best <= 0 {
		return 0
	}
	return bestShift
}

// PitchShifts returns, per melody filename, the transposition that AdjustPitches applies.
// The first melody of each tune family is the reference and gets 0.
func PitchShifts(melodies []Melody) map[string]int {
	shifts := make(map[string]int, len(melodies))
	refs := make(map[string][HistogramBins]float64)

	for _, m := range melodies {
		ref, ok := refs[m.TuneFamilyID]
		if !ok {
			refs[m.TuneFamilyID] = PitchHistogram(m.Symbols)
			shifts[m.Filename] = 0
			continue
		}
		shifts[m.Filename] = PitchShift(ref, PitchHistogram(m.Symbols))
	}
	return shifts
}

// AdjustPitches transposes every melody of a tune family onto the first melody of that
// family, as ordered in the input. It returns new melodies and leaves the input untouched.
func AdjustPitches(melodies []Melody) []Melody {
	shifts := PitchShifts(melodies)
	out := make([]Melody, len(melodies))
	for i, m := range melodies {
		out[i] = m.Clone()
		transpose(out[i].Symbols, shifts[m.Filename])
	}
	return out
}

// AdjustSegments applies the shift of each segment's source melody, so queries stay in the
// key of the melodies they were cut from. Segments of unknown files are copied unchanged.
func AdjustSegments(segments []Segment, shifts map[string]int) []Segment {
	out := make([]Segment, len(segments))
	for i, s := range segments {
		out[i] = s
		out[i].Symbols = cloneSymbols(s.Symbols)
		transpose(out[i].Symbols, shifts[s.Filename])
	}
	return out
}

func transpose(symbols []Symbol, shift int) {
	if shift == 0 {
		return
	}
	for i := range symbols {
		symbols[i].Pitch += float64(shift)
	}
}
