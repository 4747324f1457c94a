// Package geometric finds pattern occurrences as translation vectors between point sets
// in the (onset, value) plane.
package geometric

import (
	"errors"
	"sort"
)

// ErrEmptyPointSet indicates a query or target without points.
var ErrEmptyPointSet = errors.New("geometric: point sets must be non-empty")

// Point is one note in the (onset, value) plane.
type Point struct {
	Onset float64
	Value float64
}

// Vector translates a query point onto a target point. Vectors are grouped by exact equality.
type Vector struct {
	Onset float64
	Value float64
}

// Add translates p by v.
func (p Point) Add(v Vector) Point {
	return Point{Onset: p.Onset + v.Onset, Value: p.Value + v.Value}
}

// Pattern is a maximal translatable pattern: the query points that map onto target points
// under one vector.
type Pattern struct {
	Vector Vector
	// Query holds the indices of the member query points in input order.
	Query []int
	// Start and End are the earliest and latest translated onsets of the members.
	Start float64
	End   float64
}

// Size is the pattern cardinality.
func (p Pattern) Size() int {
	return len(p.Query)
}

// Result is the outcome of Match.
type Result struct {
	// Size is the cardinality of the largest pattern.
	Size int
	// Similarity is Size divided by the number of query points.
	Similarity float64
	// Patterns holds every vector reaching Size, in first-seen order, minus those whose
	// occurrence runs past the end of the target.
	Patterns []Pattern
	// Dropped counts tied patterns removed by the range check.
	Dropped int
}

// Relative shifts points so the first one sits at onset 0.
func Relative(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	origin := points[0].Onset
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Onset: p.Onset - origin, Value: p.Value}
	}
	return out
}

// MaximalTranslatablePatterns computes every translation vector target-query and returns
// the largest cardinality with all vectors reaching it, in the order each vector was first
// produced (query-major, then target order).
func MaximalTranslatablePatterns(query, target []Point) (int, []Pattern, error) {
	if len(query) == 0 || len(target) == 0 {
		return 0, nil, ErrEmptyPointSet
	}

	members := make(map[Vector][]int, len(query)*len(target))
	order := make([]Vector, 0, len(query)*len(target))
	for qi, q := range query {
		for _, t := range target {
			v := Vector{Onset: t.Onset - q.Onset, Value: t.Value - q.Value}
			if _, seen := members[v]; !seen {
				order = append(order, v)
			}
			members[v] = append(members[v], qi)
		}
	}

	size := 0
	for _, idx := range members {
		size = max(size, len(idx))
	}

	var patterns []Pattern
	for _, v := range order {
		idx := members[v]
		if len(idx) != size {
			continue
		}
		p := Pattern{Vector: v, Query: idx}
		for k, qi := range idx {
			onset := query[qi].Add(v).Onset
			if k == 0 || onset < p.Start {
				p.Start = onset
			}
			if k == 0 || onset > p.End {
				p.End = onset
			}
		}
		patterns = append(patterns, p)
	}
	return size, patterns, nil
}

// Match finds the maximal translatable patterns of query in target and drops every tied
// pattern whose occurrence would extend past the last target point. Target points must be
// ordered by onset.
func Match(query, target []Point) (*Result, error) {
	size, patterns, err := MaximalTranslatablePatterns(query, target)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Size:       size,
		Similarity: float64(size) / float64(len(query)),
	}
	for _, p := range patterns {
		if !fits(p, target) {
			result.Dropped++
			continue
		}
		result.Patterns = append(result.Patterns, p)
	}
	return result, nil
}

// fits reports whether Size target points are available from the first target point at
// or after the pattern start.
func fits(p Pattern, target []Point) bool {
	first := sort.Search(len(target), func(i int) bool {
		return target[i].Onset >= p.Start
	})
	return first+p.Size()-1 <= len(target)-1
}

// CardinalityScore counts the points shared by a and b.
func CardinalityScore(a, b []Point) int {
	set := make(map[Point]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	shared := make(map[Point]struct{})
	for _, p := range b {
		if _, ok := set[p]; ok {
			shared[p] = struct{}{}
		}
	}
	return len(shared)
}
