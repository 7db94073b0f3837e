package database

import (
	"fmt"
	"log/slog"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/config"
	"github.com/ginjaninja78/roster-sync/internal/model"
)

// Migrate creates or extends the member table when SQL_AUTO_MIGRATE is set.
// Existing columns and rows are never dropped.
func (db *DB) Migrate(creds *config.Credentials) error {
	if !creds.AutoMigrate {
		slog.Debug("schema migration disabled", "auto_migrate", false)
		return nil
	}

	slog.Info("migrating member table", "table", creds.Table)
	if err := db.Table(creds.Table).AutoMigrate(&model.Member{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w: %w", creds.Table, apperror.ErrPersistence, err)
	}
	return nil
}
