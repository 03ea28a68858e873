package ai

import (
	"math"

	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/nrebei2/lunarhaze/game/entity"
)

// DetectionMode is the vision policy an enemy currently applies.
type DetectionMode int

const (
	DetectLine DetectionMode = iota
	DetectArea               // reserved
	DetectMoon
)

func (m DetectionMode) String() string {
	switch m {
	case DetectLine:
		return "line"
	case DetectArea:
		return "area"
	case DetectMoon:
		return "moon"
	}
	return "unknown"
}

// Params tunes perception and replanning. Distances are in tiles.
type Params struct {
	DetectDist          float64
	DetectDistMoonlight float64
	ChaseDist           float64
	AttackDist          int
	// AttackWindow is the half-width of the square searched for an attack position.
	AttackWindow      int
	RecomputeInterval int
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		DetectDist:          5,
		DetectDistMoonlight: 8,
		ChaseDist:           10,
		AttackDist:          1,
		AttackWindow:        4,
		RecomputeInterval:   10,
	}
}

// Perception is the snapshot of what an enemy knows about its target on a
// recompute tick. Transition consumes it.
type Perception struct {
	Mode         DetectionMode
	Detected     bool
	CanHitTarget bool
	CanChase     bool
}

// ModeFor picks Moon when the target stands on a lit tile and Line otherwise.
func ModeFor(b *board.Board, target board.Cell) DetectionMode {
	if b.IsLit(target.X, target.Y) {
		return DetectMoon
	}
	return DetectLine
}

// Detects applies the vision policy of mode for an enemy at `from` facing `facing`.
func Detects(mode DetectionMode, facing entity.Facing, from, target board.Cell, p Params) bool {
	dist := cellDist(from, target)
	switch mode {
	case DetectLine:
		return onRay(facing, from, target) && dist <= p.DetectDist
	case DetectMoon:
		return !behind(facing, from, target) && dist <= p.DetectDistMoonlight
	}
	return false
}

// CanHitFrom reports whether a target is orthogonally aligned with `from`
// within attackDist tiles along the shared axis.
func CanHitFrom(from, target board.Cell, attackDist int) bool {
	switch {
	case from.X == target.X:
		return absInt(from.Y-target.Y) <= attackDist
	case from.Y == target.Y:
		return absInt(from.X-target.X) <= attackDist
	}
	return false
}

// onRay reports whether target lies on the half-line from `from` in direction
// facing. The enemy's own cell counts.
func onRay(facing entity.Facing, from, target board.Cell) bool {
	switch facing {
	case entity.North:
		return target.X == from.X && target.Y >= from.Y
	case entity.South:
		return target.X == from.X && target.Y <= from.Y
	case entity.East:
		return target.Y == from.Y && target.X >= from.X
	case entity.West:
		return target.Y == from.Y && target.X <= from.X
	}
	return false
}

// behind reports whether target lies strictly on the ray opposite to facing.
func behind(facing entity.Facing, from, target board.Cell) bool {
	switch facing {
	case entity.North:
		return target.X == from.X && target.Y < from.Y
	case entity.South:
		return target.X == from.X && target.Y > from.Y
	case entity.East:
		return target.Y == from.Y && target.X < from.X
	case entity.West:
		return target.Y == from.Y && target.X > from.X
	}
	return false
}

func cellDist(a, b board.Cell) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
