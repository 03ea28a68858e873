package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// Pool is the DSN plus connection pool sizing.
type Pool struct {
	DSN     string
	MaxOpen int
	MaxIdle int
	MaxLife time.Duration
}

// Open connects and pings so a bad DSN fails before any session starts.
func Open(p Pool, gl gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               p.DSN,
		DefaultStringSize: 191,
	}), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if p.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLife > 0 {
		sqlDB.SetConnMaxLifetime(p.MaxLife)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}
