package ai

import (
	"testing"

	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/nrebei2/lunarhaze/game/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scenario struct {
	b      *board.Board
	enemy  *entity.Enemy
	target *entity.Werewolf
	ctrl   *EnemyController
}

// newScenario puts a north-facing enemy at (5,5) and the target far away on a
// 20x20 open board with unit tiles.
func newScenario(t *testing.T, id, interval int) *scenario {
	t.Helper()
	b := board.New(20, 20, 1, zap.NewNop())
	enemy := &entity.Enemy{GameObject: entity.GameObject{ID: id, Facing: entity.North}}
	target := &entity.Werewolf{}
	s := &scenario{b: b, enemy: enemy, target: target}
	s.placeEnemy(5, 5)
	s.placeTarget(18, 18)

	p := DefaultParams()
	p.RecomputeInterval = interval
	s.ctrl = NewEnemyController(enemy, target, b, p, zap.NewNop())
	return s
}

func (s *scenario) placeEnemy(x, y int) {
	s.enemy.Position = entity.Vec2{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

func (s *scenario) placeTarget(x, y int) {
	s.target.Position = entity.Vec2{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

func (s *scenario) advance(n int) ControlCode {
	var c ControlCode
	for i := 0; i < n; i++ {
		c = s.ctrl.Update()
	}
	return c
}

func TestEnemyController_SpawnLeavesOnFirstTick(t *testing.T) {
	s := newScenario(t, 7, 10)
	assert.Equal(t, StateSpawn, s.ctrl.State())
	s.ctrl.Update()
	assert.Equal(t, StatePatrol, s.ctrl.State())
	assert.Equal(t, 1, s.ctrl.Tick())
}

func TestEnemyController_Scenario(t *testing.T) {
	s := newScenario(t, 0, 1)

	s.ctrl.Update()
	require.Equal(t, StatePatrol, s.ctrl.State())

	s.placeTarget(5, 8)
	code := s.ctrl.Update()
	require.Equal(t, StateChase, s.ctrl.State())
	assert.Equal(t, DetectLine, s.ctrl.DetectionMode())
	assert.Equal(t, board.Cell{X: 5, Y: 8}, s.ctrl.Goal())
	assert.Equal(t, MoveUp, code)

	s.placeTarget(5, 6)
	code = s.ctrl.Update()
	require.Equal(t, StateAttack, s.ctrl.State())
	assert.True(t, code.Has(Attack))
	assert.Equal(t, board.Cell{X: 5, Y: 5}, s.ctrl.Goal(), "first attack cell scanning bottom row first")
	assert.Equal(t, NoAction, code.Movement())

	s.placeTarget(18, 18)
	code = s.ctrl.Update()
	require.Equal(t, StateChase, s.ctrl.State(), "attack disengages through chase")
	assert.False(t, code.Has(Attack))

	s.ctrl.Update()
	assert.Equal(t, StatePatrol, s.ctrl.State())
}

func TestEnemyController_NotDetectedOffAxis(t *testing.T) {
	s := newScenario(t, 0, 1)
	s.ctrl.Update()
	s.placeTarget(7, 6)
	s.ctrl.Update()
	assert.Equal(t, StatePatrol, s.ctrl.State())
	assert.Equal(t, DetectLine, s.ctrl.DetectionMode())
}

func TestEnemyController_MoonlightDetection(t *testing.T) {
	s := newScenario(t, 0, 1)
	s.b.SetLit(7, 6, true)
	s.ctrl.Update()

	s.placeTarget(7, 6)
	s.ctrl.Update()
	assert.Equal(t, DetectMoon, s.ctrl.DetectionMode())
	assert.Equal(t, StateChase, s.ctrl.State())
}

func TestEnemyController_MoonlightBlindBehind(t *testing.T) {
	s := newScenario(t, 0, 1)
	s.b.SetLit(5, 3, true)
	s.ctrl.Update()

	s.placeTarget(5, 3)
	s.ctrl.Update()
	assert.Equal(t, DetectMoon, s.ctrl.DetectionMode())
	assert.Equal(t, StatePatrol, s.ctrl.State())

	s.placeTarget(5, 7)
	s.ctrl.Update()
	assert.Equal(t, DetectLine, s.ctrl.DetectionMode(), "mode follows the target off the lit tile")
	assert.Equal(t, StateChase, s.ctrl.State())
}

func TestEnemyController_ThrottledRecompute(t *testing.T) {
	s := newScenario(t, 3, 10)
	s.ctrl.Update()
	require.Equal(t, StatePatrol, s.ctrl.State())

	s.placeTarget(5, 8)
	s.advance(6) // ticks 1..6
	assert.Equal(t, StatePatrol, s.ctrl.State())

	s.ctrl.Update() // tick 7: (3+7)%10 == 0
	assert.Equal(t, StateChase, s.ctrl.State())
}

func TestEnemyController_StaggeredByID(t *testing.T) {
	a := newScenario(t, 1, 10)
	b := newScenario(t, 2, 10)
	a.ctrl.Update()
	b.ctrl.Update()
	a.placeTarget(5, 8)
	b.placeTarget(5, 8)

	a.advance(8) // ticks 1..8; recompute at 9
	b.advance(8) // recompute at 8
	assert.Equal(t, StatePatrol, a.ctrl.State())
	assert.Equal(t, StateChase, b.ctrl.State())

	a.ctrl.Update()
	assert.Equal(t, StateChase, a.ctrl.State())
}

func TestEnemyController_AttackBitEveryTick(t *testing.T) {
	s := newScenario(t, 0, 10)
	s.ctrl.Update()
	s.placeTarget(5, 6)
	s.advance(10) // recompute at tick 10: patrol -> chase
	require.Equal(t, StateChase, s.ctrl.State())
	code := s.advance(10) // recompute at tick 20: chase -> attack
	require.Equal(t, StateAttack, s.ctrl.State())
	assert.True(t, code.Has(Attack))

	// Between recompute ticks the state is cached but the attack bit is not.
	s.placeTarget(5, 8)
	code = s.ctrl.Update()
	assert.Equal(t, StateAttack, s.ctrl.State())
	assert.False(t, code.Has(Attack))

	s.placeTarget(4, 5)
	code = s.ctrl.Update()
	assert.True(t, code.Has(Attack))
	assert.Equal(t, code, s.ctrl.Action())
}

func TestEnemyController_CachedMoveBetweenRecomputes(t *testing.T) {
	s := newScenario(t, 0, 10)
	s.enemy.Patrol = []board.Cell{{X: 5, Y: 5}, {X: 9, Y: 5}}
	code := s.ctrl.Update()
	assert.Equal(t, board.Cell{X: 9, Y: 5}, s.ctrl.Goal(), "advances past the waypoint it stands on")
	assert.Equal(t, MoveRight, code)

	s.enemy.Patrol = []board.Cell{{X: 5, Y: 1}}
	assert.Equal(t, MoveRight, s.advance(9))
}

func TestEnemyController_FallbackGoalIsOwnCell(t *testing.T) {
	s := newScenario(t, 0, 1)
	assert.Equal(t, NoAction, s.ctrl.Update())
	assert.Equal(t, board.Cell{X: 5, Y: 5}, s.ctrl.Goal())
}

func TestEnemyController_AttackWindowEmpty(t *testing.T) {
	s := newScenario(t, 0, 1)
	s.ctrl.Update()
	s.placeTarget(5, 6)
	s.ctrl.Update()
	s.ctrl.Update()
	require.Equal(t, StateAttack, s.ctrl.State())

	// Block every cell that could hit the target except the target itself.
	for _, c := range []board.Cell{{X: 5, Y: 5}, {X: 5, Y: 7}, {X: 4, Y: 6}, {X: 6, Y: 6}, {X: 5, Y: 6}} {
		s.b.SetWalkable(c.X, c.Y, false)
	}
	s.ctrl.Update()
	assert.Equal(t, s.ctrl.EnemyCell(), s.ctrl.Goal())
}

func TestEnemyController_Route(t *testing.T) {
	s := newScenario(t, 0, 1)
	s.ctrl.Update()
	s.placeTarget(5, 9)
	s.ctrl.Update()
	require.Equal(t, StateChase, s.ctrl.State())
	route := s.ctrl.Route()
	require.Len(t, route, 4)
	assert.Equal(t, board.Cell{X: 5, Y: 9}, route[3])
}

func TestEnemyController_SearchedTracksLastReplan(t *testing.T) {
	s := newScenario(t, 0, 1)
	s.ctrl.Update()
	assert.Zero(t, s.ctrl.Searched(), "spawn plans to its own cell")

	s.placeTarget(5, 9)
	s.ctrl.Update()
	require.Equal(t, StateChase, s.ctrl.State())
	assert.GreaterOrEqual(t, s.ctrl.Searched(), 4)

	s.ctrl.Reset()
	assert.Zero(t, s.ctrl.Searched())
}

func TestEnemyController_Reset(t *testing.T) {
	s := newScenario(t, 0, 1)
	s.ctrl.Update()
	s.placeTarget(5, 8)
	s.ctrl.Update()
	require.Equal(t, StateChase, s.ctrl.State())

	s.ctrl.Reset()
	assert.Equal(t, StateSpawn, s.ctrl.State())
	assert.Zero(t, s.ctrl.Tick())
	assert.Equal(t, NoAction, s.ctrl.Action())
}

func TestEnemyController_SearchDoesNotMarkBoard(t *testing.T) {
	s := newScenario(t, 0, 1)
	s.ctrl.Update()
	s.placeTarget(5, 8)
	s.ctrl.Update()
	assert.False(t, s.b.IsGoal(5, 8))
	assert.False(t, s.b.IsVisited(5, 6))
}
