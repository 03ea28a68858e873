package collision

import (
	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/nrebei2/lunarhaze/game/entity"
	"go.uber.org/zap"
)

const (
	DefaultGridParameter = 36
	DefaultEpsilon       = 0.01
)

// Config tunes the collision pass.
type Config struct {
	GridParameter int
	Epsilon       float64
}

// Stats summarises one ProcessCollisions call.
type Stats struct {
	Objects     int `json:"objects"`
	Bucketed    int `json:"bucketed"`
	PairsTested int `json:"pairs_tested"`
	Collisions  int `json:"collisions"`
	BoundsHits  int `json:"bounds_hits"`
	TileHits    int `json:"tile_hits"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Objects += o.Objects
	s.Bucketed += o.Bucketed
	s.PairsTested += o.PairsTested
	s.Collisions += o.Collisions
	s.BoundsHits += o.BoundsHits
	s.TileHits += o.TileHits
}

// Controller resolves object-object, object-boundary and object-tile
// overlaps for one level. Resolution is fully inelastic: every contact zeroes
// the velocities involved.
type Controller struct {
	board   *board.Board
	grid    *SpatialGrid
	epsilon float64
	logger  *zap.Logger

	// OnPair, when set, observes every candidate pair before it is tested.
	OnPair func(a, b *entity.GameObject)
}

// NewController creates a collision controller over b.
func NewController(b *board.Board, cfg Config, logger *zap.Logger) *Controller {
	if cfg.GridParameter <= 0 {
		cfg.GridParameter = DefaultGridParameter
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		board:   b,
		grid:    NewSpatialGrid(cfg.GridParameter, b.WorldWidth(), b.WorldHeight()),
		epsilon: cfg.Epsilon,
		logger:  logger,
	}
}

// Grid exposes the spatial grid as of the last ProcessCollisions call.
func (c *Controller) Grid() *SpatialGrid { return c.grid }

// ProcessCollisions runs one frame of collision resolution over objects.
// Nil and destroyed entries are skipped.
func (c *Controller) ProcessCollisions(objects []*entity.GameObject) Stats {
	st := Stats{Objects: len(objects)}

	for _, o := range objects {
		if active(o) && c.processBounds(o) {
			st.BoundsHits++
		}
	}

	st.Bucketed = c.grid.AssignCells(objects)

	n := c.grid.Size()
	for cx := 0; cx < n; cx++ {
		for cy := 0; cy < n; cy++ {
			cell := c.grid.Bucket(cx, cy)
			if len(cell) == 0 {
				continue
			}
			for i := 0; i < len(cell); i++ {
				for j := i + 1; j < len(cell); j++ {
					c.testPair(cell[i], cell[j], &st)
				}
			}
			// Only the +x and +y neighbours, so each unordered bucket
			// pair is visited once.
			c.testBuckets(cell, c.grid.Bucket(cx+1, cy), &st)
			c.testBuckets(cell, c.grid.Bucket(cx, cy+1), &st)
		}
	}

	for _, o := range objects {
		if active(o) && c.handleTiles(o) {
			st.TileHits++
		}
	}
	return st
}

func (c *Controller) testBuckets(a, b []*entity.GameObject, st *Stats) {
	for _, oa := range a {
		for _, ob := range b {
			c.testPair(oa, ob, st)
		}
	}
}

func (c *Controller) testPair(a, b *entity.GameObject, st *Stats) {
	st.PairsTested++
	if c.OnPair != nil {
		c.OnPair(a, b)
	}
	if HandleCollision(a, b, c.epsilon) {
		st.Collisions++
	}
}

// HandleCollision separates two overlapping circles. Each is pushed along the
// line between their shadow centres by half the penetration plus epsilon,
// and both velocities are zeroed. It reports whether they overlapped.
func HandleCollision(a, b *entity.GameObject, epsilon float64) bool {
	pa, pb := a.ShadowPosition(), b.ShadowPosition()
	d := pb.Sub(pa)
	dist := d.Len()
	radii := a.Radius + b.Radius
	if dist >= radii {
		return false
	}

	normal := entity.Vec2{X: 1}
	if dist > 0 {
		normal = d.Scale(1 / dist)
	}
	push := (radii-dist)/2 + epsilon

	a.SetShadowPosition(pa.Sub(normal.Scale(push)))
	b.SetShadowPosition(pb.Add(normal.Scale(push)))
	a.Velocity = entity.Vec2{}
	b.Velocity = entity.Vec2{}
	return true
}

// processBounds reflects an object that left the world back inside and stops
// it on that axis.
func (c *Controller) processBounds(o *entity.GameObject) bool {
	p := o.ShadowPosition()
	w, h := c.board.WorldWidth(), c.board.WorldHeight()
	hit := false

	if p.X < 0 {
		p.X = -p.X
		o.Velocity.X = 0
		hit = true
	} else if p.X > w {
		p.X = 2*w - p.X
		o.Velocity.X = 0
		hit = true
	}
	if p.Y < 0 {
		p.Y = -p.Y
		o.Velocity.Y = 0
		hit = true
	} else if p.Y > h {
		p.Y = 2*h - p.Y
		o.Velocity.Y = 0
		hit = true
	}

	if hit {
		o.SetShadowPosition(p)
	}
	return hit
}

// handleTiles pushes an object whose shadow lies on a non-walkable tile away
// from the tile centre.
func (c *Controller) handleTiles(o *entity.GameObject) bool {
	p := o.ShadowPosition()
	cell := c.board.CellAt(p.X, p.Y)
	if !c.board.InBounds(cell.X, cell.Y) || c.board.IsWalkable(cell.X, cell.Y) {
		return false
	}

	cx, cy := c.board.TileCenter(cell.X, cell.Y)
	d := p.Sub(entity.Vec2{X: cx, Y: cy})
	dist := d.Len()
	pen := c.board.TileSize/2 + o.Radius - dist
	if pen <= 0 {
		return false
	}

	normal := entity.Vec2{X: 1}
	if dist > 0 {
		normal = d.Scale(1 / dist)
	}
	o.SetShadowPosition(p.Add(normal.Scale(pen/2 + c.epsilon)))
	o.Velocity = entity.Vec2{}

	c.logger.Debug("object pushed off tile",
		zap.Int("object_id", o.ID),
		zap.Int("tile_x", cell.X), zap.Int("tile_y", cell.Y))
	return true
}
