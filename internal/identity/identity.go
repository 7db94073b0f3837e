// =============================================================================
// Roster Sync - Identity Normalizer
// =============================================================================
//
// Canonicalizes identity strings (national IDs or member codes) so the
// spreadsheet and the database compare equal regardless of formatting:
//
//   " 12345678-z "  ->  "12345678Z"
//   "X 1234567 L"   ->  "X1234567L"
//
// The normalizer is pure and total. An empty or whitespace-only input has no
// identity at all, which callers must handle explicitly.
//
// =============================================================================

package identity

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/model"
)

// Normalize returns the canonical form of raw and whether raw carried an
// identity at all.
//
// PARAMETERS:
//   - raw: The identity as typed into the sheet or stored in the database.
//
// RETURNS:
//   - The trimmed, uppercased value with internal whitespace and hyphens
//     removed.
//   - false when raw is empty or only whitespace.
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	var builder strings.Builder
	builder.Grow(len(trimmed))
	for _, r := range trimmed {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		builder.WriteRune(unicode.ToUpper(r))
	}

	normalized := builder.String()
	if normalized == "" {
		// Input was only hyphens.
		return "", false
	}
	return normalized, true
}

// =============================================================================
// IDENTITY MODE
// =============================================================================

// Mode selects which field identifies a member during reconciliation.
type Mode string

const (
	// ModeNationalID matches on the national ID (NIF). Member codes are
	// assigned by the database for new members.
	ModeNationalID Mode = "nif"

	// ModeCode matches on the member code taken from the sheet.
	ModeCode Mode = "code"
)

// ParseMode validates a mode name from config or flags.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeNationalID, "":
		return ModeNationalID, nil
	case ModeCode:
		return ModeCode, nil
	default:
		return "", fmt.Errorf("unknown identity mode %q (expected \"nif\" or \"code\"): %w",
			value, apperror.ErrConfiguration)
	}
}

// Raw returns the un-normalized identity of a persisted member.
func (m Mode) Raw(member model.Member) string {
	if m == ModeCode {
		return member.Code
	}
	return member.NationalID
}

// RawCandidate returns the un-normalized identity of a sheet row.
func (m Mode) RawCandidate(candidate model.Candidate) string {
	if m == ModeCode {
		return candidate.Code
	}
	return candidate.NationalID
}

// Of normalizes the identity of a persisted member under this mode.
func (m Mode) Of(member model.Member) (string, bool) {
	return Normalize(m.Raw(member))
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}
