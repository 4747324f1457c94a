package melody

import "sort"

// Family groups the melodies and query segments of one tune family.
type Family struct {
	ID       string
	Melodies []Melody
	Segments []Segment
}

// Pairs returns the number of (segment, melody) pairs matched within the family.
func (f Family) Pairs() int {
	return len(f.Melodies) * len(f.Segments)
}

// PartitionByFamily splits both collections by tune family id. Families are returned in
// id order; input order is kept inside each family. A family present in only one of the
// collections is still returned, with an empty side.
func PartitionByFamily(melodies []Melody, segments []Segment) []Family {
	index := make(map[string]*Family)
	get := func(id string) *Family {
		f, ok := index[id]
		if !ok {
			f = &Family{ID: id}
			index[id] = f
		}
		return f
	}

	for _, m := range melodies {
		f := get(m.TuneFamilyID)
		f.Melodies = append(f.Melodies, m)
	}
	for _, s := range segments {
		f := get(s.TuneFamilyID)
		f.Segments = append(f.Segments, s)
	}

	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	families := make([]Family, 0, len(ids))
	for _, id := range ids {
		families = append(families, *index[id])
	}
	return families
}
