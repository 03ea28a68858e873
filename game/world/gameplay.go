package world

import (
	"context"
	"errors"

	"github.com/nrebei2/lunarhaze/game/ai"
	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/nrebei2/lunarhaze/game/collision"
	"github.com/nrebei2/lunarhaze/game/entity"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/nrebei2/lunarhaze/resource"
	"go.uber.org/zap"
)

// Settings are the gameplay tunables of one session.
type Settings struct {
	// TickSeconds is the simulated time per Update.
	TickSeconds float64

	StealthTicks    int
	TransitionTicks int

	PlayerHP             int
	PlayerSpeed          float64
	PlayerRadius         float64
	RunMultiplier        float64
	PlayerDamage         int
	PlayerAttackRange    float64
	PlayerAttackCooldown int
	MaxMoonlight         int
	// MoonlightPerBonus is how much moonlight buys one extra point of damage.
	MoonlightPerBonus int

	EnemyHP             int
	EnemySpeed          float64
	EnemyRadius         float64
	EnemyDamage         int
	EnemyAttackCooldown int

	AI        ai.Params
	Collision collision.Config
}

// DefaultSettings returns the stock tuning at 20 ticks per second.
func DefaultSettings() Settings {
	return Settings{
		TickSeconds:          0.05,
		StealthTicks:         1200,
		TransitionTicks:      100,
		PlayerHP:             10,
		PlayerSpeed:          4,
		PlayerRadius:         0.3,
		RunMultiplier:        1.5,
		PlayerDamage:         2,
		PlayerAttackRange:    1.5,
		PlayerAttackCooldown: 10,
		MaxMoonlight:         10,
		MoonlightPerBonus:    2,
		EnemyHP:              5,
		EnemySpeed:           2,
		EnemyRadius:          0.3,
		EnemyDamage:          1,
		EnemyAttackCooldown:  20,
		AI:                   ai.DefaultParams(),
		Collision:            collision.Config{GridParameter: collision.DefaultGridParameter, Epsilon: collision.DefaultEpsilon},
	}
}

// GameplayController sequences one level: input, collision, enemy AI,
// integration, combat, phase and end-of-frame cleanup. It is not safe for
// concurrent use; Room serialises access.
type GameplayController struct {
	level    *resource.Level
	settings Settings
	board    *board.Board
	objects  *entity.Container

	controllers []*ai.EnemyController
	collision   *collision.Controller
	spawner     *Spawner

	phase      Phase
	phaseTicks int
	tick       int
	exited     bool

	lastStats  collision.Stats
	totalStats collision.Stats

	hooks  *hook.HookCenter
	events []Event
	logger *zap.Logger
}

// NewGameplayController builds a session for level and spawns its actors.
func NewGameplayController(level *resource.Level, s Settings, hooks *hook.HookCenter, logger *zap.Logger) *GameplayController {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &GameplayController{
		level:    level,
		settings: s,
		hooks:    hooks,
		logger:   logger,
	}
	g.load()
	return g
}

func (g *GameplayController) load() {
	g.board = g.level.NewBoard(g.logger)
	g.objects = entity.NewContainer()
	g.controllers = nil
	g.collision = collision.NewController(g.board, g.settings.Collision, g.logger)
	g.phase = PhaseStealth
	g.phaseTicks = 0
	g.tick = 0
	g.exited = false
	g.lastStats = collision.Stats{}
	g.totalStats = collision.Stats{}

	spawn := g.level.Data.Player
	cx, cy := g.board.TileCenter(spawn.X, spawn.Y)
	pos := entity.Vec2{X: cx, Y: cy}
	g.objects.SetPlayer(&entity.Werewolf{
		GameObject: entity.GameObject{
			Position: pos,
			Radius:   g.settings.PlayerRadius,
			Speed:    g.settings.PlayerSpeed,
			HP:       g.settings.PlayerHP,
			MaxHP:    g.settings.PlayerHP,
		},
		Spawn: pos,
	})

	g.spawner = NewSpawner(g.level.Data.Enemies, g.logger)
	g.spawner.SpawnAll(g)
}

// Reset restores the level to its spawn state.
func (g *GameplayController) Reset() {
	g.logger.Info("level reset", zap.String("level", g.level.Name()), zap.Int("tick", g.tick))
	g.load()
}

// addEnemy registers an enemy and its controller.
func (g *GameplayController) addEnemy(e *entity.Enemy) *ai.EnemyController {
	g.objects.AddEnemy(e)
	c := ai.NewEnemyController(e, g.objects.Player, g.board, g.settings.AI, g.logger)
	g.controllers = append(g.controllers, c)
	g.emit(Event{Type: hook.OnEnemySpawned, EnemyID: e.ID})
	return c
}

// Update advances the simulation by one tick.
func (g *GameplayController) Update(in entity.Controls) {
	if g.exited {
		return
	}
	if in.Exit {
		g.exited = true
		return
	}
	if in.Reset {
		g.Reset()
		return
	}
	if g.phase.Over() {
		return
	}
	in = in.Clamped()
	player := g.objects.Player

	// Player velocity from input.
	dir := in.Direction()
	speed := player.Speed
	if in.Run {
		speed *= g.settings.RunMultiplier
	}
	player.Velocity = dir.Scale(speed)
	if f, ok := entity.FacingToward(dir.X, dir.Y); ok {
		player.Facing = f
	}

	g.lastStats = g.collision.ProcessCollisions(g.objects.Objects())
	g.totalStats.Add(g.lastStats)

	// Enemy AI, then apply the control codes.
	codes := make([]ai.ControlCode, len(g.controllers))
	for i, c := range g.controllers {
		if c.Enemy().Destroyed {
			continue
		}
		prevState, prevMode := c.State(), c.DetectionMode()
		codes[i] = c.Update()
		if s := c.State(); s != prevState {
			g.emit(Event{Type: hook.OnEnemyStateChange, EnemyID: c.Enemy().ID, From: prevState.String(), To: s.String()})
		}
		if m := c.DetectionMode(); m != prevMode {
			g.emit(Event{Type: hook.OnDetectionModeChange, EnemyID: c.Enemy().ID, From: prevMode.String(), To: m.String()})
		}
	}
	for i, c := range g.controllers {
		e := c.Enemy()
		if e.Destroyed {
			continue
		}
		applyControl(e, codes[i], g.settings.EnemySpeed)
	}

	for _, o := range g.objects.Objects() {
		o.Integrate(g.settings.TickSeconds)
	}

	g.resolveEnemyAttacks(codes)
	if in.Attack {
		g.resolvePlayerAttack()
	}
	g.coolDown()
	if in.Collect {
		g.collectMoonlight()
	}

	g.collectGarbage()
	g.updatePhase()
	g.tick++
	g.phaseTicks++
}

// applyControl turns a control code into enemy velocity and facing.
func applyControl(e *entity.Enemy, code ai.ControlCode, speed float64) {
	dx, dy := code.Movement().Direction()
	e.Velocity = entity.Vec2{X: float64(dx), Y: float64(dy)}.Normalize().Scale(speed)
	if f, ok := entity.FacingToward(float64(dx), float64(dy)); ok {
		e.Facing = f
	}
}

func (g *GameplayController) resolveEnemyAttacks(codes []ai.ControlCode) {
	player := g.objects.Player
	for i, c := range g.controllers {
		e := c.Enemy()
		if e.Destroyed || !codes[i].Has(ai.Attack) || e.AttackCooldown > 0 {
			continue
		}
		d := player.Position.Sub(e.Position)
		if f, ok := entity.FacingToward(d.X, d.Y); ok {
			e.Facing = f
		}
		e.AttackCooldown = g.settings.EnemyAttackCooldown

		dmg := &hook.PlayerDamage{EnemyID: e.ID, Amount: g.settings.EnemyDamage}
		if _, err := g.hooks.Trigger(context.Background(), hook.BeforePlayerDamage, dmg); errors.Is(err, hook.ErrInterrupt) {
			continue
		}
		if dmg.Amount <= 0 {
			continue
		}
		player.Damage(dmg.Amount)
		g.emit(Event{Type: "player_hit", EnemyID: e.ID, Amount: dmg.Amount})
		if player.HP == 0 {
			return
		}
	}
}

// resolvePlayerAttack strikes every enemy in range. Only allowed in battle.
func (g *GameplayController) resolvePlayerAttack() {
	player := g.objects.Player
	if g.phase != PhaseBattle || player.AttackCooldown > 0 {
		return
	}
	player.AttackCooldown = g.settings.PlayerAttackCooldown

	base := g.settings.PlayerDamage
	if g.settings.MoonlightPerBonus > 0 {
		base += player.Moonlight / g.settings.MoonlightPerBonus
	}
	at := player.ShadowPosition()
	for _, e := range g.objects.Enemies() {
		if e.Destroyed || e.ShadowPosition().Dist(at) > g.settings.PlayerAttackRange {
			continue
		}
		dmg := &hook.EnemyDamage{EnemyID: e.ID, Amount: base}
		if _, err := g.hooks.Trigger(context.Background(), hook.BeforeEnemyDamage, dmg); errors.Is(err, hook.ErrInterrupt) {
			continue
		}
		if dmg.Amount <= 0 {
			continue
		}
		g.emit(Event{Type: "enemy_hit", EnemyID: e.ID, Amount: dmg.Amount})
		if e.Damage(dmg.Amount) {
			g.objects.Destroy(e)
			g.emit(Event{Type: hook.OnEnemyDestroyed, EnemyID: e.ID})
		}
	}
}

func (g *GameplayController) coolDown() {
	if p := g.objects.Player; p.AttackCooldown > 0 {
		p.AttackCooldown--
	}
	for _, e := range g.objects.Enemies() {
		if e.AttackCooldown > 0 {
			e.AttackCooldown--
		}
	}
}

// collectMoonlight charges the werewolf while it stands on a lit tile during stealth.
func (g *GameplayController) collectMoonlight() {
	p := g.objects.Player
	if g.phase != PhaseStealth || p.Moonlight >= g.settings.MaxMoonlight {
		return
	}
	sp := p.ShadowPosition()
	cell := g.board.CellAt(sp.X, sp.Y)
	if !g.board.IsLit(cell.X, cell.Y) {
		return
	}
	p.Moonlight++
	g.emit(Event{Type: hook.OnMoonlightCollected, Amount: p.Moonlight})
}

func (g *GameplayController) updatePhase() {
	var next Phase
	switch {
	case g.objects.Player.HP == 0:
		next = PhaseLost
	case g.phase == PhaseBattle && g.objects.AliveEnemies() == 0 && g.spawner.Pending() == 0:
		next = PhaseWon
	default:
		next = nextPhase(g.phase, g.phaseTicks+1, g.settings)
	}
	if next == g.phase {
		return
	}
	g.emit(Event{Type: hook.OnPhaseChange, From: g.phase.String(), To: next.String()})
	g.logger.Info("phase change",
		zap.String("level", g.level.Name()),
		zap.Stringer("from", g.phase),
		zap.Stringer("to", next),
		zap.Int("tick", g.tick))
	g.phase = next
	g.phaseTicks = -1 // incremented at the end of this tick
}

// collectGarbage removes destroyed enemies with their controllers and
// respawns any that are due.
func (g *GameplayController) collectGarbage() {
	removed := g.objects.GarbageCollect()
	if len(removed) > 0 {
		gone := make(map[*entity.Enemy]bool, len(removed))
		for _, e := range removed {
			gone[e] = true
			if !g.phase.Over() {
				g.spawner.Schedule(e.SpawnSlot, g.tick)
			}
		}
		kept := g.controllers[:0]
		for _, c := range g.controllers {
			if !gone[c.Enemy()] {
				kept = append(kept, c)
			}
		}
		for i := len(kept); i < len(g.controllers); i++ {
			g.controllers[i] = nil
		}
		g.controllers = kept
	}
	g.spawner.SpawnDue(g, g.tick)
}

func (g *GameplayController) emit(ev Event) {
	ev.Tick = g.tick
	g.events = append(g.events, ev)
	if g.hooks.Has(ev.Type) {
		_, _ = g.hooks.Trigger(context.Background(), ev.Type, ev)
	}
}

// DrainEvents returns and clears the events recorded since the last call.
func (g *GameplayController) DrainEvents() []Event {
	out := g.events
	g.events = nil
	return out
}

// Controller returns the AI controller of an enemy, or nil.
func (g *GameplayController) Controller(enemyID int) *ai.EnemyController {
	for _, c := range g.controllers {
		if c.Enemy().ID == enemyID {
			return c
		}
	}
	return nil
}

func (g *GameplayController) Board() *board.Board { return g.board }
func (g *GameplayController) Objects() *entity.Container { return g.objects }
func (g *GameplayController) Controllers() []*ai.EnemyController { return g.controllers }
func (g *GameplayController) Phase() Phase { return g.phase }
func (g *GameplayController) Tick() int { return g.tick }
func (g *GameplayController) Exited() bool { return g.exited }
func (g *GameplayController) Level() *resource.Level { return g.level }
