package model

import (
	"time"

	"gorm.io/datatypes"
)

// Level is a stored level definition. Body holds the level in its JSON form.
type Level struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string         `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Body      datatypes.JSON `gorm:"not null" json:"body"`
	Version   int            `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
