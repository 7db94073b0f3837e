package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// WithTransaction executes fn within a transaction bound to ctx. Returning an
// error from fn rolls back; returning nil commits.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(*gorm.DB) error) error {
	if fn == nil {
		return errors.New("database: transaction function is nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	return db.WithContext(ctx).Transaction(fn)
}
