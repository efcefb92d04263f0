package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bitmax/internal/config"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to Postgres and waits for it to answer a ping, retrying with
// exponential backoff up to cfg.ConnectRetries attempts.
func Open(ctx context.Context, cfg config.DBConfig, log *zap.Logger) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is empty")
	}
	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), gcfg)
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	tries := cfg.ConnectRetries
	if tries == 0 {
		tries = 1
	}
	ping := func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return struct{}{}, sqldb.PingContext(pingCtx)
	}
	_, err = backoff.Retry(ctx, ping,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if log != nil {
				log.Warn("db not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
			}
		}),
	)
	if err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func SetTimezone(db *DB, tz string) error {
	if tz == "" {
		return nil
	}
	return db.Gorm.Exec("SELECT set_config('TimeZone', ?, false)", tz).Error
}
