// Package alignment implements local (Smith-Waterman style) alignment of a query
// sequence against a target sequence of feature vectors, with pluggable substitution
// scoring and traceback of every tied best cell.
//
// Recurrence, for query element i and target element j (both 1-based in the grid):
//
//	score[i][j] = max(0,
//	    score[i][j-1]   + DeletionWeight,
//	    score[i-1][j]   + InsertionWeight,
//	    score[i-1][j-1] + Substitution(query[i-1], target[j-1]))
//
// The step grid records the first branch equal to the chosen value, tested in the
// order delete, insert, substitute. A cell equal to none of them is a boundary.
package alignment

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySequence indicates one or both inputs are empty.
	ErrEmptySequence = errors.New("alignment: input sequences must be non-empty")

	// ErrDimensionMismatch indicates elements with differing feature counts.
	ErrDimensionMismatch = errors.New("alignment: elements must share one dimension")

	// ErrVarianceMismatch indicates unusable variances for the weighted scorer.
	ErrVarianceMismatch = errors.New("alignment: variances do not fit the feature dimensions")

	// ErrInvariantViolation is matched by every *InvariantError.
	ErrInvariantViolation = errors.New("alignment: traceback invariant violated")
)

// DefaultMaxTies bounds how many tied best cells are traced back.
const DefaultMaxTies = 5

// Options configures an alignment.
type Options struct {
	InsertionWeight float64
	DeletionWeight  float64
	Substitution    SubstitutionFunc

	// MaxTies caps the number of tied maximal cells traced back; values below 1
	// fall back to DefaultMaxTies.
	MaxTies int

	// Traceback enables match recovery. Without it only the score is computed.
	Traceback bool
}

// DefaultOptions returns gap weights of -0.5, the identity scorer and traceback on.
func DefaultOptions() Options {
	return Options{
		InsertionWeight: -0.5,
		DeletionWeight:  -0.5,
		Substitution:    Identity,
		MaxTies:         DefaultMaxTies,
		Traceback:       true,
	}
}

// Match is one traced local alignment. Target elements [Start, Start+Length) take part,
// including deleted ones; EndRow/EndCol is the grid cell the traceback started from.
type Match struct {
	Start  int
	Length int
	EndRow int
	EndCol int
}

// Result is the outcome of Align.
type Result struct {
	// Score is the maximal cell value.
	Score float64
	// Similarity is Score divided by the query length.
	Similarity float64
	// Matches holds one traced match per tied maximal cell, row-major, at most MaxTies.
	// It is empty when traceback is off or nothing aligned (Score 0).
	Matches []Match
	// Grid is the filled dynamic-programming state.
	Grid *Grid
}

// Align fills the grid for query against target and traces back the best cells.
func Align(query, target [][]float64, opts Options) (*Result, error) {
	grid, err := Fill(query, target, opts)
	if err != nil {
		return nil, err
	}

	score, cells := grid.Max()
	result := &Result{
		Score:      score,
		Similarity: score / float64(len(query)),
		Grid:       grid,
	}
	if !opts.Traceback || score <= 0 {
		return result, nil
	}

	maxTies := opts.MaxTies
	if maxTies < 1 {
		maxTies = DefaultMaxTies
	}
	if len(cells) > maxTies {
		cells = cells[:maxTies]
	}

	result.Matches = make([]Match, 0, len(cells))
	for _, cell := range cells {
		match, err := grid.Traceback(cell[0], cell[1])
		if err != nil {
			return nil, fmt.Errorf("failed to trace back from cell (%d,%d): %w", cell[0], cell[1], err)
		}
		result.Matches = append(result.Matches, match)
	}
	return result, nil
}

// Fill computes the score and step grids.
func Fill(query, target [][]float64, opts Options) (*Grid, error) {
	if len(query) == 0 || len(target) == 0 {
		return nil, ErrEmptySequence
	}
	if err := checkDims(query, target); err != nil {
		return nil, err
	}

	substitute := opts.Substitution
	if substitute == nil {
		substitute = Identity
	}

	grid := newGrid(len(query)+1, len(target)+1)
	for i := 1; i < grid.Rows; i++ {
		for j := 1; j < grid.Cols; j++ {
			left := grid.Score(i, j-1) + opts.DeletionWeight
			up := grid.Score(i-1, j) + opts.InsertionWeight
			diag := grid.Score(i-1, j-1) + substitute(query[i-1], target[j-1])

			// NaN candidates never win a comparison and so never become a step
			best := 0.0
			for _, candidate := range [3]float64{left, up, diag} {
				if candidate > best {
					best = candidate
				}
			}

			step := StepNone
			switch best {
			case left:
				step = StepDelete
			case up:
				step = StepInsert
			case diag:
				step = StepSubstitute
			}
			grid.set(i, j, best, step)
		}
	}
	return grid, nil
}

// Traceback walks back from cell (row, col) along the recorded steps until it reaches a
// zero cell. Deletions and substitutions extend the match; insertions do not.
func (g *Grid) Traceback(row, col int) (Match, error) {
	match := Match{EndRow: row, EndCol: col}

	for row > 0 && col > 0 && g.Score(row, col) > 0 {
		switch g.Step(row, col) {
		case StepDelete:
			col--
			match.Length++
		case StepInsert:
			row--
		case StepSubstitute:
			row--
			col--
			match.Length++
		default:
			return Match{}, g.invariantError(row, col)
		}
	}

	match.Start = col
	return match, nil
}

func checkDims(query, target [][]float64) error {
	dims := len(query[0])
	for _, seq := range [2][][]float64{query, target} {
		for i, v := range seq {
			if len(v) != dims {
				return fmt.Errorf("%w: element %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dims)
			}
		}
	}
	return nil
}
