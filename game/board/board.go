package board

import (
	"math"

	"go.uber.org/zap"
)

// TileType is the terrain kind painted on a tile.
type TileType int

const (
	Grass TileType = iota
	Road
	Dirt
	Floor
	Water
	Wall
)

var tileTypeNames = [...]string{"grass", "road", "dirt", "floor", "water", "wall"}

func (t TileType) String() string {
	if t < 0 || int(t) >= len(tileTypeNames) {
		return "unknown"
	}
	return tileTypeNames[t]
}

// DefaultWalkable reports whether a freshly painted tile of this type can be walked on.
func (t TileType) DefaultWalkable() bool {
	return t != Water && t != Wall
}

// Tile is a single board cell.
// Visited and Goal are pathfinding scratch flags; the rest is level geometry.
type Tile struct {
	Type     TileType
	Walkable bool
	Lit      bool
	Visited  bool
	Goal     bool
}

// Cell is a board coordinate.
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Board is the tile grid of a level with world<->board coordinate mapping.
type Board struct {
	Width    int
	Height   int
	TileSize float64

	// tiles[x*Height+y]
	tiles  []Tile
	logger *zap.Logger
}

// New creates a width x height board of walkable grass tiles.
func New(width, height int, tileSize float64, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Board{
		Width:    width,
		Height:   height,
		TileSize: tileSize,
		tiles:    make([]Tile, width*height),
		logger:   logger,
	}
	for i := range b.tiles {
		b.tiles[i] = Tile{Type: Grass, Walkable: true}
	}
	return b
}

// InBounds reports whether (x, y) is a valid tile coordinate.
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height
}

func (b *Board) index(x, y int) int {
	return x*b.Height + y
}

// TileAt returns the tile at (x, y). ok is false out of bounds.
func (b *Board) TileAt(x, y int) (Tile, bool) {
	if !b.InBounds(x, y) {
		return Tile{}, false
	}
	return b.tiles[b.index(x, y)], true
}

// tile returns a pointer to (x, y) or nil, logging the rejected mutation.
func (b *Board) tile(op string, x, y int) *Tile {
	if !b.InBounds(x, y) {
		b.logger.Error("board: tile out of bounds",
			zap.String("op", op),
			zap.Int("x", x), zap.Int("y", y),
			zap.Int("width", b.Width), zap.Int("height", b.Height))
		return nil
	}
	return &b.tiles[b.index(x, y)]
}

func (b *Board) SetWalkable(x, y int, walkable bool) {
	if t := b.tile("set_walkable", x, y); t != nil {
		t.Walkable = walkable
	}
}

func (b *Board) SetLit(x, y int, lit bool) {
	if t := b.tile("set_lit", x, y); t != nil {
		t.Lit = lit
	}
}

func (b *Board) SetVisited(x, y int, visited bool) {
	if t := b.tile("set_visited", x, y); t != nil {
		t.Visited = visited
	}
}

func (b *Board) SetGoal(x, y int, goal bool) {
	if t := b.tile("set_goal", x, y); t != nil {
		t.Goal = goal
	}
}

// SetType repaints a tile. Walkability is left untouched.
func (b *Board) SetType(x, y int, tt TileType) {
	if t := b.tile("set_type", x, y); t != nil {
		t.Type = tt
	}
}

// The predicates below return false out of bounds so callers never need a
// separate bounds test.

func (b *Board) IsWalkable(x, y int) bool {
	return b.InBounds(x, y) && b.tiles[b.index(x, y)].Walkable
}

func (b *Board) IsLit(x, y int) bool {
	return b.InBounds(x, y) && b.tiles[b.index(x, y)].Lit
}

func (b *Board) IsVisited(x, y int) bool {
	return b.InBounds(x, y) && b.tiles[b.index(x, y)].Visited
}

func (b *Board) IsGoal(x, y int) bool {
	return b.InBounds(x, y) && b.tiles[b.index(x, y)].Goal
}

// ClearMarks resets the visited and goal flags of every tile.
func (b *Board) ClearMarks() {
	for i := range b.tiles {
		b.tiles[i].Visited = false
		b.tiles[i].Goal = false
	}
}

// WorldToBoard converts a world coordinate to a tile index on either axis.
func (b *Board) WorldToBoard(coord float64) int {
	return int(math.Floor(coord / b.TileSize))
}

// BoardToWorld returns the world coordinate of a tile's lower-left corner.
func (b *Board) BoardToWorld(index int) float64 {
	return float64(index) * b.TileSize
}

// CellAt returns the tile under a world position.
func (b *Board) CellAt(wx, wy float64) Cell {
	return Cell{X: b.WorldToBoard(wx), Y: b.WorldToBoard(wy)}
}

// TileCenter returns the world position of the centre of tile (x, y).
func (b *Board) TileCenter(x, y int) (float64, float64) {
	half := b.TileSize / 2
	return b.BoardToWorld(x) + half, b.BoardToWorld(y) + half
}

// WorldWidth is the board width in world units.
func (b *Board) WorldWidth() float64 { return float64(b.Width) * b.TileSize }

// WorldHeight is the board height in world units.
func (b *Board) WorldHeight() float64 { return float64(b.Height) * b.TileSize }
