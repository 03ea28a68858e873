package ai

import (
	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/nrebei2/lunarhaze/game/entity"
	"go.uber.org/zap"
)

// EnemyController drives one enemy: perception, state machine and
// pathfinding. Replanning runs on recompute ticks only; the attack bit is
// evaluated every tick.
type EnemyController struct {
	enemy  *entity.Enemy
	target *entity.Werewolf
	board  *board.Board
	params Params
	marks  *board.Scratch

	state     State
	mode      DetectionMode
	ticks     int
	started   bool
	goal      board.Cell
	move      ControlCode
	action    ControlCode
	patrolIdx int
	searched  int // cells the last replan visited

	logger *zap.Logger
}

// NewEnemyController creates a controller in the Spawn state.
func NewEnemyController(enemy *entity.Enemy, target *entity.Werewolf, b *board.Board, params Params, logger *zap.Logger) *EnemyController {
	if params.RecomputeInterval <= 0 {
		params.RecomputeInterval = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnemyController{
		enemy:  enemy,
		target: target,
		board:  b,
		params: params,
		marks:  board.NewScratch(b),
		state:  StateSpawn,
		mode:   DetectLine,
		logger: logger,
	}
}

// Update advances the controller by one tick and returns the control code for it.
func (c *EnemyController) Update() ControlCode {
	if !c.started || c.isRecomputeTick() {
		c.started = true
		c.recompute()
	}
	c.ticks++

	action := c.move
	if c.state == StateAttack && c.CanHitTarget() {
		action |= Attack
	}
	c.action = action
	return action
}

// isRecomputeTick staggers replanning across enemies by their ID.
func (c *EnemyController) isRecomputeTick() bool {
	return (c.enemy.ID+c.ticks)%c.params.RecomputeInterval == 0
}

func (c *EnemyController) recompute() {
	c.mode = ModeFor(c.board, c.TargetCell())

	prev := c.state
	c.state = Transition(c.state, c.Perceive())
	if c.state != prev {
		c.logger.Debug("enemy state change",
			zap.Int("enemy_id", c.enemy.ID),
			zap.Stringer("from", prev),
			zap.Stringer("to", c.state),
			zap.Stringer("mode", c.mode))
	}

	c.marks.ClearMarks()
	c.goal = c.markGoal()
	c.move = NextMove(c.board, c.marks, c.EnemyCell())
	c.searched = c.marks.VisitedCount()
}

// Perceive evaluates detection, attack reach and chase range against the target.
func (c *EnemyController) Perceive() Perception {
	from, to := c.EnemyCell(), c.TargetCell()
	return Perception{
		Mode:         c.mode,
		Detected:     Detects(c.mode, c.enemy.Facing, from, to, c.params),
		CanHitTarget: CanHitFrom(from, to, c.params.AttackDist),
		CanChase:     c.CanChase(),
	}
}

// markGoal sets the goal mark for the current state and returns it.
func (c *EnemyController) markGoal() board.Cell {
	var (
		goal  board.Cell
		found bool
	)
	switch c.state {
	case StatePatrol:
		goal, found = c.nextWaypoint()
	case StateChase:
		goal, found = c.TargetCell(), true
	case StateAttack:
		goal, found = c.attackPosition()
	}
	if !found {
		goal = c.EnemyCell()
	}
	c.marks.SetGoal(goal.X, goal.Y, true)
	return goal
}

// nextWaypoint returns the current patrol waypoint, advancing past it once reached.
func (c *EnemyController) nextWaypoint() (board.Cell, bool) {
	path := c.enemy.Patrol
	if len(path) == 0 {
		return board.Cell{}, false
	}
	if c.patrolIdx >= len(path) {
		c.patrolIdx = 0
	}
	if path[c.patrolIdx] == c.EnemyCell() {
		c.patrolIdx = (c.patrolIdx + 1) % len(path)
	}
	return path[c.patrolIdx], true
}

// attackPosition scans the window around the target, rows bottom to top and
// columns left to right, for the first walkable cell the target can be hit from.
func (c *EnemyController) attackPosition() (board.Cell, bool) {
	t := c.TargetCell()
	w := c.params.AttackWindow
	for dy := -w; dy <= w; dy++ {
		for dx := -w; dx <= w; dx++ {
			x, y := t.X+dx, t.Y+dy
			if c.board.IsWalkable(x, y) && c.CanHitTargetFrom(x, y) {
				return board.Cell{X: x, Y: y}, true
			}
		}
	}
	return board.Cell{}, false
}

// CanHitTargetFrom reports whether the target could be hit from board cell (x, y).
func (c *EnemyController) CanHitTargetFrom(x, y int) bool {
	return CanHitFrom(board.Cell{X: x, Y: y}, c.TargetCell(), c.params.AttackDist)
}

// CanHitTarget reports whether the target can be hit from the enemy's cell.
func (c *EnemyController) CanHitTarget() bool {
	e := c.EnemyCell()
	return c.CanHitTargetFrom(e.X, e.Y)
}

// CanChase reports whether the target is within chase range.
func (c *EnemyController) CanChase() bool {
	return cellDist(c.EnemyCell(), c.TargetCell()) <= c.params.ChaseDist
}

// EnemyCell is the board cell under the enemy.
func (c *EnemyController) EnemyCell() board.Cell {
	p := c.enemy.Position
	return c.board.CellAt(p.X, p.Y)
}

// TargetCell is the board cell under the target.
func (c *EnemyController) TargetCell() board.Cell {
	p := c.target.Position
	return c.board.CellAt(p.X, p.Y)
}

// Route returns the full path from the enemy to its current goal.
func (c *EnemyController) Route() []board.Cell {
	return FindPath(c.board, c.EnemyCell(), c.goal)
}

// Reset puts the controller back in Spawn, as after level load.
func (c *EnemyController) Reset() {
	c.state = StateSpawn
	c.mode = DetectLine
	c.ticks = 0
	c.started = false
	c.move = NoAction
	c.action = NoAction
	c.patrolIdx = 0
	c.searched = 0
	c.goal = board.Cell{}
	c.marks.ClearMarks()
}

func (c *EnemyController) Enemy() *entity.Enemy { return c.enemy }
func (c *EnemyController) State() State { return c.state }
func (c *EnemyController) DetectionMode() DetectionMode { return c.mode }
func (c *EnemyController) Goal() board.Cell { return c.goal }
func (c *EnemyController) Action() ControlCode { return c.action }
func (c *EnemyController) Tick() int { return c.ticks }

// Searched is how many cells the most recent replan visited.
func (c *EnemyController) Searched() int { return c.searched }
