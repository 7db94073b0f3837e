// =============================================================================
// Roster Sync - Persistence Gateway
// =============================================================================
//
// Repository is the only component that talks to the member table. Every
// write runs in its own transaction and commits independently, so a failure
// on one member never rolls back another.
//
// CODE ALLOCATION:
//   A member inserted without a code receives max(numeric code) + 1, padded
//   with zeros to the width of the current highest code ("0041" -> "0042").
//   Reading the maximum and inserting happen in the same transaction.
//
// =============================================================================

package roster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/database"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads and writes members in a single table.
type Repository struct {
	db    *gorm.DB
	table string
}

// NewRepository returns a repository over table. An empty table name selects
// model.DefaultTable.
func NewRepository(db *gorm.DB, table string) *Repository {
	if table == "" {
		table = model.DefaultTable
	}
	return &Repository{db: db, table: table}
}

// Table returns the table this repository operates on.
func (r *Repository) Table() string {
	return r.table
}

func (r *Repository) scoped(tx *gorm.DB) *gorm.DB {
	return tx.Table(r.table)
}

func byCode(code string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: model.ColCode}, Value: code}
}

var orderByCode = clause.OrderByColumn{Column: clause.Column{Name: model.ColCode}}

// =============================================================================
// READS
// =============================================================================

// FetchAll returns every member, deactivated ones included, ordered by code.
func (r *Repository) FetchAll(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	err := r.scoped(r.db.WithContext(ctx)).Order(orderByCode).Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("fetch members: %w: %w", apperror.ErrPersistence, err)
	}
	return members, nil
}

// Count returns the number of rows in the table.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.scoped(r.db.WithContext(ctx)).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count members: %w: %w", apperror.ErrPersistence, err)
	}
	return count, nil
}

// ActiveDirectDebit returns active members paying by direct debit, ordered
// by code.
func (r *Repository) ActiveDirectDebit(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	err := r.scoped(r.db.WithContext(ctx)).
		Where(clause.Eq{Column: clause.Column{Name: model.ColDirectDebit}, Value: true}).
		Where(clause.Eq{Column: clause.Column{Name: model.ColIsDeactivated}, Value: false}).
		Order(orderByCode).
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("fetch direct debit members: %w: %w", apperror.ErrPersistence, err)
	}
	return members, nil
}

// =============================================================================
// WRITES
// =============================================================================

// Insert stores a new member. When member.Code is empty the next code is
// allocated and written back onto member.
func (r *Repository) Insert(ctx context.Context, member *model.Member) error {
	err := database.WithTransaction(ctx, r.db, func(tx *gorm.DB) error {
		if strings.TrimSpace(member.Code) == "" {
			code, err := r.nextCode(tx)
			if err != nil {
				return err
			}
			member.Code = code
		}
		return r.scoped(tx).Create(member).Error
	})
	if err != nil {
		return fmt.Errorf("insert member %s: %w: %w", member.Code, apperror.ErrPersistence, err)
	}
	return nil
}

// nextCode computes the next member code from the codes currently stored.
func (r *Repository) nextCode(tx *gorm.DB) (string, error) {
	var codes []string
	if err := r.scoped(tx).Pluck(model.ColCode, &codes).Error; err != nil {
		return "", err
	}
	return NextCode(codes), nil
}

// NextCode returns max(numeric code) + 1, zero-padded to the width of the
// highest code. Non-numeric codes are ignored.
func NextCode(codes []string) string {
	var max int64
	width := 0
	for _, raw := range codes {
		code := strings.TrimSpace(raw)
		n, err := strconv.ParseInt(code, 10, 64)
		if err != nil || n < 0 {
			continue
		}
		if n > max || (n == max && len(code) > width) {
			max = n
			width = len(code)
		}
	}

	next := strconv.FormatInt(max+1, 10)
	if len(next) < width {
		next = strings.Repeat("0", width-len(next)) + next
	}
	return next
}

// Update applies upd to the member with the given code and reactivates it.
//
// RETURNS:
//   - The number of rows changed: 0 when the member does not exist or when
//     every field already holds the new value, 1 otherwise.
func (r *Repository) Update(ctx context.Context, code string, upd model.MemberUpdate) (int64, error) {
	var affected int64
	err := database.WithTransaction(ctx, r.db, func(tx *gorm.DB) error {
		var current model.Member
		err := r.scoped(tx).Where(byCode(code)).Take(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if !upd.Changes(current) {
			return nil
		}

		result := r.scoped(tx).Where(byCode(code)).Updates(upd.Values())
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("update member %s: %w: %w", code, apperror.ErrPersistence, err)
	}
	return affected, nil
}

// Deactivate marks the member as deactivated at the given time.
func (r *Repository) Deactivate(ctx context.Context, code string, at time.Time) error {
	err := database.WithTransaction(ctx, r.db, func(tx *gorm.DB) error {
		result := r.scoped(tx).Where(byCode(code)).Updates(map[string]interface{}{
			model.ColIsDeactivated:    true,
			model.ColDeactivationDate: at,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New("no member with that code")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deactivate member %s: %w: %w", code, apperror.ErrPersistence, err)
	}
	return nil
}
