package ai

import (
	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/zyedidia/generic/heap"
	"github.com/zyedidia/generic/queue"
)

// NextMove runs a breadth-first search over the 4-connected walkable grid from
// start toward any cell marked as a goal in marks, and returns the control code
// of the first step. It returns NoAction when start is already a goal or when
// no goal is reachable.
//
// Walkability is read from b; visited marks are written only to marks.
func NextMove(b *board.Board, marks board.Marks, start board.Cell) ControlCode {
	if marks.IsGoal(start.X, start.Y) {
		return NoAction
	}

	type node struct {
		cell board.Cell
		code ControlCode // step taken from prev
		prev *node
	}

	root := &node{cell: start}
	marks.SetVisited(start.X, start.Y, true)
	q := queue.New[*node]()
	q.Enqueue(root)

	for !q.Empty() {
		cur := q.Dequeue()
		if marks.IsGoal(cur.cell.X, cur.cell.Y) {
			// Goal is a direct neighbour of start.
			if cur.prev == root {
				return cur.code
			}
			for cur.prev != root {
				cur = cur.prev
			}
			return cur.code
		}

		for _, s := range steps {
			nx, ny := cur.cell.X+s.dx, cur.cell.Y+s.dy
			if !b.IsWalkable(nx, ny) || marks.IsVisited(nx, ny) {
				continue
			}
			marks.SetVisited(nx, ny, true)
			q.Enqueue(&node{cell: board.Cell{X: nx, Y: ny}, code: s.code, prev: cur})
		}
	}
	return NoAction
}

// FindPath finds the shortest walkable path from `from` to `to` with A*.
// Returns the path excluding the start and including the end, an empty slice
// when from == to, or nil if no path exists.
func FindPath(b *board.Board, from, to board.Cell) []board.Cell {
	if b == nil {
		return nil
	}
	if from == to {
		return []board.Cell{}
	}
	if !b.IsWalkable(to.X, to.Y) {
		return nil
	}

	type node struct {
		cell   board.Cell
		g, f   int
		parent *node
	}

	heuristic := func(a, c board.Cell) int {
		dx := a.X - c.X
		if dx < 0 {
			dx = -dx
		}
		dy := a.Y - c.Y
		if dy < 0 {
			dy = -dy
		}
		return dx + dy
	}

	open := heap.New(func(a, c *node) bool { return a.f < c.f })
	closed := make(map[board.Cell]bool)
	gScore := make(map[board.Cell]int)

	gScore[from] = 0
	open.Push(&node{cell: from, f: heuristic(from, to)})

	for open.Size() > 0 {
		cur, _ := open.Pop()
		if closed[cur.cell] {
			continue
		}
		closed[cur.cell] = true

		if cur.cell == to {
			var path []board.Cell
			for n := cur; n.parent != nil; n = n.parent {
				path = append(path, n.cell)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}

		for _, s := range steps {
			np := board.Cell{X: cur.cell.X + s.dx, Y: cur.cell.Y + s.dy}
			if closed[np] || !b.IsWalkable(np.X, np.Y) {
				continue
			}
			ng := cur.g + 1
			if prev, ok := gScore[np]; !ok || ng < prev {
				gScore[np] = ng
				open.Push(&node{cell: np, g: ng, f: ng + heuristic(np, to), parent: cur})
			}
		}
	}

	return nil
}

// PathCodes converts a path from start into the control codes that walk it.
func PathCodes(start board.Cell, path []board.Cell) []ControlCode {
	codes := make([]ControlCode, 0, len(path))
	prev := start
	for _, c := range path {
		for _, s := range steps {
			if prev.X+s.dx == c.X && prev.Y+s.dy == c.Y {
				codes = append(codes, s.code)
				break
			}
		}
		prev = c
	}
	return codes
}
