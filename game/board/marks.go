package board

import "github.com/zyedidia/generic/mapset"

// Marks is the visited/goal scratch state a pathfinding round writes to.
// *Board implements it with its shared tile flags; Scratch keeps the marks
// private to one searcher so the board stays read-only during a search.
type Marks interface {
	SetVisited(x, y int, visited bool)
	IsVisited(x, y int) bool
	SetGoal(x, y int, goal bool)
	IsGoal(x, y int) bool
	ClearMarks()
}

var (
	_ Marks = (*Board)(nil)
	_ Marks = (*Scratch)(nil)
)

// Scratch is a per-search set of visited and goal cells bound to a board's extent.
// Out-of-bounds marks are dropped and read back as false, matching Board.
type Scratch struct {
	width, height int
	visited       mapset.Set[Cell]
	goals         mapset.Set[Cell]
}

// NewScratch creates empty marks sized to b.
func NewScratch(b *Board) *Scratch {
	return &Scratch{
		width:   b.Width,
		height:  b.Height,
		visited: mapset.New[Cell](),
		goals:   mapset.New[Cell](),
	}
}

func (s *Scratch) inBounds(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

func (s *Scratch) SetVisited(x, y int, visited bool) {
	if !s.inBounds(x, y) {
		return
	}
	if visited {
		s.visited.Put(Cell{x, y})
	} else {
		s.visited.Remove(Cell{x, y})
	}
}

func (s *Scratch) IsVisited(x, y int) bool {
	return s.inBounds(x, y) && s.visited.Has(Cell{x, y})
}

func (s *Scratch) SetGoal(x, y int, goal bool) {
	if !s.inBounds(x, y) {
		return
	}
	if goal {
		s.goals.Put(Cell{x, y})
	} else {
		s.goals.Remove(Cell{x, y})
	}
}

func (s *Scratch) IsGoal(x, y int) bool {
	return s.inBounds(x, y) && s.goals.Has(Cell{x, y})
}

// ClearMarks drops every visited and goal mark.
func (s *Scratch) ClearMarks() {
	s.visited = mapset.New[Cell]()
	s.goals = mapset.New[Cell]()
}

// VisitedCount is the number of cells a search enqueued.
func (s *Scratch) VisitedCount() int {
	return s.visited.Size()
}
