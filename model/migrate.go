package model

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the level, encounter and result tables.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range []interface{}{&Level{}, &Encounter{}, &SessionResult{}} {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}

// PruneEncounters deletes journalled events created before cutoff and
// returns how many rows went. Session results are kept; the leaderboard
// is rebuilt from them.
func PruneEncounters(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Encounter{})
	return res.RowsAffected, res.Error
}
