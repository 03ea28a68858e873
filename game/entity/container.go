package entity

// Container owns the objects of a running level. Other components hold
// non-owning references; removal of destroyed objects is deferred to
// GarbageCollect at the end of the frame.
type Container struct {
	Player  *Werewolf
	enemies []*Enemy
	nextID  int
}

// NewContainer creates an empty container. Enemy IDs start at 1; the player is 0.
func NewContainer() *Container {
	return &Container{nextID: 1}
}

// SetPlayer installs the werewolf.
func (c *Container) SetPlayer(p *Werewolf) {
	p.ID = 0
	p.Kind = KindWerewolf
	c.Player = p
}

// AddEnemy assigns e an ID and starts tracking it.
func (c *Container) AddEnemy(e *Enemy) {
	e.ID = c.nextID
	e.Kind = KindEnemy
	c.nextID++
	c.enemies = append(c.enemies, e)
}

// Enemies returns the tracked enemies, including ones destroyed this frame.
func (c *Container) Enemies() []*Enemy {
	return c.enemies
}

// Enemy returns the enemy with the given ID, or nil.
func (c *Container) Enemy(id int) *Enemy {
	for _, e := range c.enemies {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// AliveEnemies counts enemies that are not marked destroyed.
func (c *Container) AliveEnemies() int {
	n := 0
	for _, e := range c.enemies {
		if !e.Destroyed {
			n++
		}
	}
	return n
}

// Objects returns every active body, player first.
func (c *Container) Objects() []*GameObject {
	out := make([]*GameObject, 0, len(c.enemies)+1)
	if c.Player != nil && !c.Player.Destroyed {
		out = append(out, &c.Player.GameObject)
	}
	for _, e := range c.enemies {
		if !e.Destroyed {
			out = append(out, &e.GameObject)
		}
	}
	return out
}

// Destroy marks an enemy for removal at the end of the frame.
func (c *Container) Destroy(e *Enemy) {
	e.Destroyed = true
}

// GarbageCollect removes destroyed enemies and returns them.
func (c *Container) GarbageCollect() []*Enemy {
	var removed []*Enemy
	n := 0
	for _, e := range c.enemies {
		if e.Destroyed {
			removed = append(removed, e)
			continue
		}
		c.enemies[n] = e
		n++
	}
	for i := n; i < len(c.enemies); i++ {
		c.enemies[i] = nil
	}
	c.enemies = c.enemies[:n]
	return removed
}
