package world

// Phase is the stage of a play session.
type Phase int

const (
	PhaseStealth Phase = iota
	PhaseTransition
	PhaseBattle
	PhaseWon
	PhaseLost
)

var phaseNames = [...]string{"stealth", "transition", "battle", "won", "lost"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Over reports whether the session has ended.
func (p Phase) Over() bool { return p == PhaseWon || p == PhaseLost }

// nextPhase returns the phase after ticks spent in p, or p if it has not run out.
func nextPhase(p Phase, ticks int, s Settings) Phase {
	switch p {
	case PhaseStealth:
		if ticks >= s.StealthTicks {
			return PhaseTransition
		}
	case PhaseTransition:
		if ticks >= s.TransitionTicks {
			return PhaseBattle
		}
	}
	return p
}
