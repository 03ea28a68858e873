package collision

import "github.com/nrebei2/lunarhaze/game/entity"

// SpatialGrid buckets objects by shadow position into an n x n grid covering
// the world rectangle [0, width] x [0, height]. It holds references for the
// current frame only and is rebuilt by every AssignCells call.
type SpatialGrid struct {
	n             int
	width, height float64
	cellW, cellH  float64
	cells         [][]*entity.GameObject // cells[cx*n+cy]
}

// NewSpatialGrid creates an n x n grid over a width x height world.
func NewSpatialGrid(n int, width, height float64) *SpatialGrid {
	if n <= 0 {
		n = 1
	}
	return &SpatialGrid{
		n:      n,
		width:  width,
		height: height,
		cellW:  width / float64(n),
		cellH:  height / float64(n),
		cells:  make([][]*entity.GameObject, n*n),
	}
}

// Size returns the number of buckets along each axis.
func (g *SpatialGrid) Size() int { return g.n }

// Clear empties every bucket, keeping the backing arrays.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		clear(g.cells[i])
		g.cells[i] = g.cells[i][:0]
	}
}

// CellOf returns the bucket containing p. ok is false outside the world.
func (g *SpatialGrid) CellOf(p entity.Vec2) (cx, cy int, ok bool) {
	if p.X < 0 || p.X > g.width || p.Y < 0 || p.Y > g.height {
		return 0, 0, false
	}
	cx = int(p.X / g.cellW)
	cy = int(p.Y / g.cellH)
	// The far edge belongs to the last bucket.
	if cx >= g.n {
		cx = g.n - 1
	}
	if cy >= g.n {
		cy = g.n - 1
	}
	return cx, cy, true
}

// active reports whether o takes part in collision this frame.
func active(o *entity.GameObject) bool {
	return o != nil && !o.Destroyed
}

// AssignCells rebuilds the buckets from objects and returns how many were placed.
// Destroyed and out-of-world objects are skipped.
func (g *SpatialGrid) AssignCells(objects []*entity.GameObject) int {
	g.Clear()
	placed := 0
	for _, o := range objects {
		if !active(o) {
			continue
		}
		cx, cy, ok := g.CellOf(o.ShadowPosition())
		if !ok {
			continue
		}
		idx := cx*g.n + cy
		g.cells[idx] = append(g.cells[idx], o)
		placed++
	}
	return placed
}

// Bucket returns the objects in bucket (cx, cy), or nil out of range.
func (g *SpatialGrid) Bucket(cx, cy int) []*entity.GameObject {
	if cx < 0 || cx >= g.n || cy < 0 || cy >= g.n {
		return nil
	}
	return g.cells[cx*g.n+cy]
}
