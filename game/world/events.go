package world

// Event is a notable thing that happened during a tick. Events are collected
// per tick for the journal and mirrored to the hook center.
type Event struct {
	Tick    int            `json:"tick"`
	Type    string         `json:"type"`
	EnemyID int            `json:"enemy_id,omitempty"`
	From    string         `json:"from,omitempty"`
	To      string         `json:"to,omitempty"`
	Amount  int            `json:"amount,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}
