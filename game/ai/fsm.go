package ai

// State is an enemy's behaviour state. Exactly one is active at a time.
type State int

const (
	StateSpawn State = iota
	StatePatrol
	StateChase
	StateAttack

	// Reserved; no transition enters them.
	StateLookAround
	StateReturn
	StateWander
)

var stateNames = [...]string{"spawn", "patrol", "chase", "attack", "look_around", "return", "wander"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Transition applies one step of the behaviour table:
//
//	Spawn  -> Patrol  always
//	Patrol -> Chase   when the target is detected
//	Chase  -> Attack  when the target can be hit
//	Chase  -> Patrol  when the target is out of chase range
//	Attack -> Chase   when the target can no longer be hit
//
// Any other combination keeps the current state. Attack never disengages
// straight to Patrol; it goes through Chase first.
func Transition(s State, p Perception) State {
	switch s {
	case StateSpawn:
		return StatePatrol
	case StatePatrol:
		if p.Detected {
			return StateChase
		}
	case StateChase:
		if p.CanHitTarget {
			return StateAttack
		}
		if !p.CanChase {
			return StatePatrol
		}
	case StateAttack:
		if !p.CanHitTarget {
			return StateChase
		}
	}
	return s
}
