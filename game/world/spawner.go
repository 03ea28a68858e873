package world

import (
	"github.com/nrebei2/lunarhaze/game/entity"
	"github.com/nrebei2/lunarhaze/resource"
	"go.uber.org/zap"
)

// Spawner creates the enemies of a level and brings destroyed ones back
// after their respawn delay.
type Spawner struct {
	points  []resource.SpawnPoint
	left    []int // respawns remaining per point
	pending []respawn
	logger  *zap.Logger
}

type respawn struct {
	slot int
	due  int
}

// NewSpawner creates a Spawner for the level's spawn points.
func NewSpawner(points []resource.SpawnPoint, logger *zap.Logger) *Spawner {
	left := make([]int, len(points))
	for i, p := range points {
		left[i] = p.Respawns
	}
	return &Spawner{points: points, left: left, logger: logger}
}

// SpawnAll spawns one enemy per spawn point (called on level load).
func (sp *Spawner) SpawnAll(g *GameplayController) {
	for i := range sp.points {
		sp.spawn(g, i)
	}
}

func (sp *Spawner) spawn(g *GameplayController, slot int) {
	p := sp.points[slot]
	facing, _ := entity.ParseFacing(p.Facing)
	hp := p.HP
	if hp <= 0 {
		hp = g.settings.EnemyHP
	}
	cx, cy := g.board.TileCenter(p.X, p.Y)
	pos := entity.Vec2{X: cx, Y: cy}
	e := &entity.Enemy{
		GameObject: entity.GameObject{
			Position: pos,
			Radius:   g.settings.EnemyRadius,
			Speed:    g.settings.EnemySpeed,
			Facing:   facing,
			HP:       hp,
			MaxHP:    hp,
		},
		Patrol:    p.Patrol,
		Spawn:     pos,
		SpawnSlot: slot,
	}
	g.addEnemy(e)
}

// Schedule queues a respawn for slot if it has any left.
func (sp *Spawner) Schedule(slot, tick int) {
	if slot < 0 || slot >= len(sp.points) || sp.left[slot] <= 0 {
		return
	}
	sp.left[slot]--
	sp.pending = append(sp.pending, respawn{slot: slot, due: tick + sp.points[slot].RespawnTicks})
}

// SpawnDue spawns every queued enemy whose delay has elapsed.
func (sp *Spawner) SpawnDue(g *GameplayController, tick int) {
	n := 0
	for _, r := range sp.pending {
		if r.due > tick {
			sp.pending[n] = r
			n++
			continue
		}
		sp.spawn(g, r.slot)
		sp.logger.Debug("enemy respawned", zap.Int("slot", r.slot), zap.Int("tick", tick))
	}
	sp.pending = sp.pending[:n]
}

// Pending is the number of queued respawns.
func (sp *Spawner) Pending() int { return len(sp.pending) }
