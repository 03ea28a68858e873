package entity

// Controls is one tick of input from the input layer.
type Controls struct {
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
	Attack     bool    `json:"attack"`
	Collect    bool    `json:"collect"`
	Use        bool    `json:"use"`
	Run        bool    `json:"run"`
	Reset      bool    `json:"reset"`
	Exit       bool    `json:"exit"`
}

// Clamped returns c with both movement scalars limited to [-1, 1].
func (c Controls) Clamped() Controls {
	c.Horizontal = clampUnit(c.Horizontal)
	c.Vertical = clampUnit(c.Vertical)
	return c
}

// Direction is the movement vector requested by the input, never longer than 1.
func (c Controls) Direction() Vec2 {
	d := Vec2{clampUnit(c.Horizontal), clampUnit(c.Vertical)}
	if d.Len() > 1 {
		return d.Normalize()
	}
	return d
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
