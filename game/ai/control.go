package ai

import "strings"

// ControlCode is the bitmask an EnemyController hands to motion integration.
// Movement and attack are independent bits.
type ControlCode uint8

const (
	NoAction  ControlCode = 0
	MoveLeft  ControlCode = 1 << 0 // board -x
	MoveRight ControlCode = 1 << 1 // board +x
	MoveUp    ControlCode = 1 << 2 // board +y
	MoveDown  ControlCode = 1 << 3 // board -y
	Attack    ControlCode = 1 << 4

	moveMask = MoveLeft | MoveRight | MoveUp | MoveDown
)

// Has reports whether every bit of flag is set.
func (c ControlCode) Has(flag ControlCode) bool {
	return flag != 0 && c&flag == flag
}

// Movement strips the attack bit.
func (c ControlCode) Movement() ControlCode {
	return c & moveMask
}

// Direction returns the board delta requested by the movement bits.
func (c ControlCode) Direction() (dx, dy int) {
	if c.Has(MoveLeft) {
		dx--
	}
	if c.Has(MoveRight) {
		dx++
	}
	if c.Has(MoveUp) {
		dy++
	}
	if c.Has(MoveDown) {
		dy--
	}
	return dx, dy
}

func (c ControlCode) String() string {
	if c == NoAction {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		bit  ControlCode
		name string
	}{
		{MoveLeft, "left"},
		{MoveRight, "right"},
		{MoveUp, "up"},
		{MoveDown, "down"},
		{Attack, "attack"},
	} {
		if c.Has(f.bit) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// step pairs a neighbour offset with the control code that reaches it.
type step struct {
	dx, dy int
	code   ControlCode
}

// BFS expansion order.
var steps = [4]step{
	{-1, 0, MoveLeft},
	{1, 0, MoveRight},
	{0, 1, MoveUp},
	{0, -1, MoveDown},
}
