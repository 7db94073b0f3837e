// =============================================================================
// Roster Sync - Error Taxonomy
// =============================================================================
//
// Sentinel errors shared by every component. Callers wrap them with
// fmt.Errorf("...: %w", ErrX) and test with errors.Is, so the kind of failure
// survives however much context is added on the way up.
//
// KINDS:
//   ErrSourceFile      - spreadsheet missing, unreadable or malformed (fatal)
//   ErrIdentityMissing - a sheet row carries no identity (row skipped)
//   ErrPersistence     - a single database write or read failed
//   ErrConfiguration   - config file or credentials missing / invalid (fatal)
//   ErrBackup          - the pre-run backup could not be written or verified
//
// =============================================================================

package apperror

import "errors"

// DomainError is an error that carries a stable kind identifier.
type DomainError interface {
	error
	Kind() string
}

type sentinel struct {
	kind    string
	message string
}

func (e *sentinel) Error() string {
	return e.message
}

func (e *sentinel) Kind() string {
	return e.kind
}

// NewDomainError creates a sentinel error that can participate in error chains.
func NewDomainError(kind, message string) DomainError {
	return &sentinel{kind: kind, message: message}
}

var (
	ErrSourceFile      = NewDomainError("SOURCE_FILE", "source spreadsheet error")
	ErrIdentityMissing = NewDomainError("IDENTITY_MISSING", "row has no identity")
	ErrPersistence     = NewDomainError("PERSISTENCE", "persistence error")
	ErrConfiguration   = NewDomainError("CONFIGURATION", "configuration error")
	ErrBackup          = NewDomainError("BACKUP", "backup error")
)

// KindOf returns the kind of the first DomainError in err's chain, or "" when
// there is none.
func KindOf(err error) string {
	var domainErr DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind()
	}
	return ""
}
