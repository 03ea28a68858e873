package model

import (
	"time"

	"gorm.io/datatypes"
)

// Encounter is one journalled gameplay event of a session: an enemy state
// change, a detection-mode switch, a hit, a phase change.
type Encounter struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string         `gorm:"index:idx_encounter_session;size:36;not null" json:"session_id"`
	Level     string         `gorm:"size:64;not null" json:"level"`
	Tick      int            `json:"tick"`
	Type      string         `gorm:"size:64;not null" json:"type"`
	EnemyID   int            `json:"enemy_id"`
	FromState string         `gorm:"size:32" json:"from"`
	ToState   string         `gorm:"size:32" json:"to"`
	Amount    int            `json:"amount"`
	Data      datatypes.JSON `json:"data"`
	CreatedAt time.Time      `gorm:"index:idx_encounter_created;autoCreateTime:milli" json:"created_at"`
}

// SessionResult is the outcome of a finished session.
type SessionResult struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"uniqueIndex;size:36;not null" json:"session_id"`
	Level     string    `gorm:"index:idx_result_level;size:64;not null" json:"level"`
	Outcome   string    `gorm:"size:16;not null" json:"outcome"` // won | lost
	Ticks     int       `json:"ticks"`
	CreatedAt time.Time `json:"created_at"`
}
