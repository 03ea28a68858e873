package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Memory opens a private throwaway database.
const Memory = ":memory:"

// Open opens or creates the database at path, creating its directory.
// File databases run in WAL mode so the journal's batch writer does not
// block level reads. An in-memory database is pinned to a single
// connection, since every new connection to ":memory:" starts empty.
func Open(path string, gl gormlogger.Interface) (*gorm.DB, error) {
	if path == "" {
		path = Memory
	}
	dsn := path
	if path != Memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: %w", err)
			}
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + "_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, err
	}
	if path == Memory {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
