package world

import (
	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/nrebei2/lunarhaze/game/collision"
	"github.com/nrebei2/lunarhaze/game/entity"
)

// PlayerView is the read-only player state for presentation.
type PlayerView struct {
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Cell      board.Cell `json:"cell"`
	Facing    string     `json:"facing"`
	HP        int        `json:"hp"`
	MaxHP     int        `json:"max_hp"`
	Moonlight int        `json:"moonlight"`
	Lit       bool       `json:"lit"`
}

// EnemyView is the read-only enemy state for presentation (alert icons,
// detection meters).
type EnemyView struct {
	ID     int        `json:"id"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Cell   board.Cell `json:"cell"`
	Facing string     `json:"facing"`
	HP     int        `json:"hp"`
	MaxHP  int        `json:"max_hp"`
	State  string     `json:"state"`
	Mode   string     `json:"detection_mode"`
	Goal   board.Cell `json:"goal"`
	Action string     `json:"action"`

	// Searched is the BFS cost of the last replan, in visited cells.
	Searched int `json:"searched"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	Level      string          `json:"level"`
	Tick       int             `json:"tick"`
	Phase      string          `json:"phase"`
	PhaseTicks int             `json:"phase_ticks"`
	Player     PlayerView      `json:"player"`
	Enemies    []EnemyView     `json:"enemies"`
	Collision  collision.Stats `json:"collision"`
}

// Snapshot captures the current state.
func (g *GameplayController) Snapshot() Snapshot {
	p := g.objects.Player
	snap := Snapshot{
		Level:      g.level.Name(),
		Tick:       g.tick,
		Phase:      g.phase.String(),
		PhaseTicks: g.phaseTicks,
		Player:     g.playerView(p),
		Enemies:    make([]EnemyView, 0, len(g.controllers)),
		Collision:  g.lastStats,
	}
	for _, c := range g.controllers {
		e := c.Enemy()
		if e.Destroyed {
			continue
		}
		snap.Enemies = append(snap.Enemies, EnemyView{
			ID:     e.ID,
			X:      e.Position.X,
			Y:      e.Position.Y,
			Cell:   c.EnemyCell(),
			Facing: e.Facing.String(),
			HP:     e.HP,
			MaxHP:  e.MaxHP,
			State:  c.State().String(),
			Mode:   c.DetectionMode().String(),
			Goal:   c.Goal(),
			Action: c.Action().String(),

			Searched: c.Searched(),
		})
	}
	return snap
}

func (g *GameplayController) playerView(p *entity.Werewolf) PlayerView {
	cell := g.board.CellAt(p.Position.X, p.Position.Y)
	return PlayerView{
		X:         p.Position.X,
		Y:         p.Position.Y,
		Cell:      cell,
		Facing:    p.Facing.String(),
		HP:        p.HP,
		MaxHP:     p.MaxHP,
		Moonlight: p.Moonlight,
		Lit:       g.board.IsLit(cell.X, cell.Y),
	}
}

// TotalCollisionStats is the collision work accumulated since level load.
func (g *GameplayController) TotalCollisionStats() collision.Stats {
	return g.totalStats
}
