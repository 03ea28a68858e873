package testutil

import (
	"testing"

	"github.com/nrebei2/lunarhaze/cache"
	"github.com/nrebei2/lunarhaze/config"
	dbadapter "github.com/nrebei2/lunarhaze/db"
	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/nrebei2/lunarhaze/model"
	"github.com/nrebei2/lunarhaze/resource"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory SQLite DB and runs AutoMigrate.
// Every call gets its own database, so it is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: ":memory:",
	}, nil)
	require.NoError(t, err, "SetupTestDB: Open")

	sqlDB, err := db.DB()
	require.NoError(t, err, "SetupTestDB: DB")
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache builds the in-process cache and pubsub.
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	t.Cleanup(func() {
		_ = ps.Close()
		_ = c.Close()
	})
	return c, ps
}

// OpenLevel returns an all-grass w×h level with the player at (1,1) and
// the given enemy spawns.
func OpenLevel(t *testing.T, name string, w, h int, enemies ...resource.SpawnPoint) *resource.Level {
	t.Helper()
	rows := make([]string, h)
	for i := range rows {
		row := make([]byte, w)
		for x := range row {
			row[x] = '.'
		}
		rows[i] = string(row)
	}
	lvl, err := resource.NewLevel(resource.LevelData{
		Name:     name,
		TileSize: 1,
		Rows:     rows,
		Player:   board.Cell{X: 1, Y: 1},
		Enemies:  enemies,
	})
	require.NoError(t, err, "OpenLevel")
	return lvl
}
