package alignment

import "fmt"

// InvariantError reports a positive cell whose recorded step names no recurrence branch.
// The forward pass never produces one; seeing it means the grid was corrupted or the
// scores diverged from the recorded steps.
type InvariantError struct {
	Row   int
	Col   int
	Score float64
	Step  Step

	// Neighbouring cell scores the recurrence draws from.
	Left float64
	Up   float64
	Diag float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf(
		"alignment: cell (%d,%d) score %g has step %s; neighbours left=%g up=%g diag=%g",
		e.Row, e.Col, e.Score, e.Step, e.Left, e.Up, e.Diag,
	)
}

// Is makes errors.Is(err, ErrInvariantViolation) hold.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

func (g *Grid) invariantError(row, col int) *InvariantError {
	return &InvariantError{
		Row:   row,
		Col:   col,
		Score: g.Score(row, col),
		Step:  g.Step(row, col),
		Left:  g.Score(row, col-1),
		Up:    g.Score(row-1, col),
		Diag:  g.Score(row-1, col-1),
	}
}
