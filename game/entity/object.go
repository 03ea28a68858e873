package entity

import "github.com/nrebei2/lunarhaze/game/board"

// Kind tags what a GameObject is.
type Kind int

const (
	KindEnemy Kind = iota
	KindWerewolf
)

func (k Kind) String() string {
	switch k {
	case KindEnemy:
		return "enemy"
	case KindWerewolf:
		return "werewolf"
	}
	return "unknown"
}

// Facing is the cardinal direction an object looks toward.
type Facing int

const (
	North Facing = iota // board +y
	South
	East // board +x
	West
)

func (f Facing) String() string {
	switch f {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	}
	return "unknown"
}

// ParseFacing maps a level-file name to a Facing. An empty name is North.
func ParseFacing(name string) (Facing, bool) {
	switch name {
	case "", "north":
		return North, true
	case "south":
		return South, true
	case "east":
		return East, true
	case "west":
		return West, true
	}
	return North, false
}

// FacingToward picks the dominant axis of (dx, dy). ok is false for a zero vector.
func FacingToward(dx, dy float64) (f Facing, ok bool) {
	if dx == 0 && dy == 0 {
		return North, false
	}
	ax, ay := dx, dy
	if ax < 0 {
		ax = -ax
	}
	if ay < 0 {
		ay = -ay
	}
	if ax > ay {
		if dx > 0 {
			return East, true
		}
		return West, true
	}
	if dy > 0 {
		return North, true
	}
	return South, true
}

// GameObject is the shared state of every simulated body.
// Collision uses the shadow position, which sits ShadowOffset away from the
// render position.
type GameObject struct {
	ID           int
	Kind         Kind
	Position     Vec2
	ShadowOffset Vec2
	Velocity     Vec2
	Radius       float64
	Speed        float64
	Facing       Facing
	HP           int
	MaxHP        int
	Destroyed    bool
}

// ShadowPosition is the collision-relevant position.
func (o *GameObject) ShadowPosition() Vec2 {
	return o.Position.Add(o.ShadowOffset)
}

// SetShadowPosition moves the object so its shadow lands on p.
func (o *GameObject) SetShadowPosition(p Vec2) {
	o.Position = p.Sub(o.ShadowOffset)
}

// Integrate advances the position by velocity over dt seconds.
func (o *GameObject) Integrate(dt float64) {
	o.Position = o.Position.Add(o.Velocity.Scale(dt))
}

// Damage subtracts hp and reports whether the object is now dead.
func (o *GameObject) Damage(hp int) bool {
	o.HP -= hp
	if o.HP < 0 {
		o.HP = 0
	}
	return o.HP == 0
}

// Enemy is a guard that patrols, chases and attacks the werewolf.
type Enemy struct {
	GameObject
	Patrol    []board.Cell
	Spawn     Vec2
	SpawnSlot int // index of the level spawn entry that produced it

	AttackCooldown int // ticks until the next hit may land
}

// Werewolf is the player.
type Werewolf struct {
	GameObject
	Spawn          Vec2
	Moonlight      int
	AttackCooldown int
}
