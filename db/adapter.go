package db

import (
	"fmt"

	"github.com/nrebei2/lunarhaze/config"
	dbmysql "github.com/nrebei2/lunarhaze/db/mysql"
	dbsqlite "github.com/nrebei2/lunarhaze/db/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Open connects to the configured backend. SQLite is the default and needs
// no server; MySQL is for deployments that share the journal between hosts.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gl := NewLogger(log, cfg.SlowQuery)
	switch cfg.Mode {
	case ModeSQLite, "":
		return dbsqlite.Open(cfg.SQLitePath, gl)
	case ModeMySQL:
		if cfg.MySQLDSN == "" {
			return nil, fmt.Errorf("db: mysql mode needs database.mysql_dsn")
		}
		return dbmysql.Open(dbmysql.Pool{
			DSN:     cfg.MySQLDSN,
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		}, gl)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
