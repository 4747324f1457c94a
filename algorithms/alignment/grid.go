package alignment

import "fmt"

// Step records which recurrence branch produced a cell's score.
type Step uint8

const (
	// StepNone marks a cell whose score is the zero floor: a local-alignment boundary.
	StepNone Step = iota
	// StepDelete skips a target element (move left).
	StepDelete
	// StepInsert skips a query element (move up).
	StepInsert
	// StepSubstitute pairs a query element with a target element (move diagonally).
	StepSubstitute
)

func (s Step) String() string {
	switch s {
	case StepNone:
		return "none"
	case StepDelete:
		return "delete"
	case StepInsert:
		return "insert"
	case StepSubstitute:
		return "substitute"
	default:
		return fmt.Sprintf("step(%d)", uint8(s))
	}
}

// Grid is the full dynamic-programming state of one alignment: a row-major score arena
// of (len(query)+1) x (len(target)+1) cells and a parallel step arena. Row 0 and column 0
// are the zero boundary. Both arenas are kept whole because traceback needs every cell.
type Grid struct {
	Rows   int
	Cols   int
	scores []float64
	steps  []Step
}

func newGrid(rows, cols int) *Grid {
	return &Grid{
		Rows:   rows,
		Cols:   cols,
		scores: make([]float64, rows*cols),
		steps:  make([]Step, rows*cols),
	}
}

func (g *Grid) index(i, j int) int {
	if i < 0 || i >= g.Rows || j < 0 || j >= g.Cols {
		panic(fmt.Sprintf("alignment: cell (%d,%d) outside %dx%d grid", i, j, g.Rows, g.Cols))
	}
	return i*g.Cols + j
}

// Score returns the value of cell (i, j).
func (g *Grid) Score(i, j int) float64 {
	return g.scores[g.index(i, j)]
}

// Step returns the branch recorded for cell (i, j).
func (g *Grid) Step(i, j int) Step {
	return g.steps[g.index(i, j)]
}

func (g *Grid) set(i, j int, score float64, step Step) {
	k := g.index(i, j)
	g.scores[k] = score
	g.steps[k] = step
}

// Max returns the largest score in the grid and every cell holding it, row-major.
func (g *Grid) Max() (float64, [][2]int) {
	best := 0.0
	for _, v := range g.scores {
		if v > best {
			best = v
		}
	}

	var cells [][2]int
	for k, v := range g.scores {
		if v == best {
			cells = append(cells, [2]int{k / g.Cols, k % g.Cols})
		}
	}
	return best, cells
}
