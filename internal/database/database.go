package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
)

// DB wraps the GORM database instance
type DB struct {
	*gorm.DB
}

// Open connects to the database described by creds and verifies the
// connection with a ping.
func Open(ctx context.Context, creds *config.Credentials, verbose bool) (*DB, error) {
	dialector, err := dialectorFor(creds)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger:                 NewLogger(slog.Default(), verbose),
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w: %w", creds.Redacted(), apperror.ErrPersistence, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if creds.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(creds.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(creds.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, creds.ConnectTimeout)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to reach %s: %w: %w", creds.Redacted(), apperror.ErrPersistence, err)
	}

	slog.Info("database connected", "target", creds.Redacted(), "table", creds.Table)

	wrapped := &DB{DB: db}
	if err := wrapped.Migrate(creds); err != nil {
		wrapped.Close()
		return nil, err
	}

	return wrapped, nil
}

func dialectorFor(creds *config.Credentials) (gorm.Dialector, error) {
	switch creds.Driver {
	case config.DriverSQLServer:
		return sqlserver.Open(creds.DSN()), nil
	case config.DriverPostgres:
		return postgres.Open(creds.DSN()), nil
	case config.DriverSQLite:
		return sqlite.Open(creds.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q: %w", creds.Driver, apperror.ErrConfiguration)
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	slog.Debug("database connection closed")
	return nil
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}
