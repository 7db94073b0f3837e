// =============================================================================
// Roster Sync - Remittance Validation
// =============================================================================
//
// Validates the members selected for a SEPA direct debit remittance before
// the XML is generated. A member with a fatal error is left out of the
// remittance; warnings are reported but the member is kept.
//
// RULES:
//   - name:  required; more than 70 characters is a warning (truncated in XML)
//   - iban:  required; ISO 13616 structure and mod-97 check digits
//   - bic:   optional (warning when absent); 8 or 11 characters
//   - dues:  must be positive; when zero the configured default is applied
//            with a warning, and with no default the member is rejected
//
// ERROR HANDLING:
//   - Errors are collected, not returned one at a time
//   - Each error carries the member code, field, and offending value
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ginjaninja78/roster-sync/internal/model"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// MaxNameLength is the SEPA limit for party names.
const MaxNameLength = 70

var bicPattern = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation error.
type ValidationError struct {
	// Severity is SeverityError (member excluded) or SeverityWarning.
	Severity string

	// Field is the member field that failed validation.
	Field string

	// Value is the actual value that failed validation.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string

	MemberCode string
	MemberName string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Member %s (%s), Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.MemberCode,
		e.MemberName,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// Valid holds the members that passed, with default dues applied and
	// IBAN/BIC normalized.
	Valid []model.Member

	// Errors contains all validation errors (including warnings).
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	MembersValidated int
	MembersRejected  int
}

// IsValid is true when no member was rejected.
func (r *ValidationResult) IsValid() bool {
	return r.MembersRejected == 0
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// DefaultDues replaces a zero dues amount.
	// Default: 0 (members without dues are rejected)
	DefaultDues float64

	// TreatWarningsAsErrors rejects members that only have warnings.
	// Default: false
	TreatWarningsAsErrors bool
}

// Validator checks members before they are added to a remittance.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with the given default dues.
func NewValidator(defaultDues float64) *Validator {
	return NewValidatorWithOptions(ValidationOptions{DefaultDues: defaultDues})
}

// NewValidatorWithOptions creates a new Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// ValidateMembers validates every member and splits them into accepted
// members and errors.
//
// PARAMETERS:
//   - members: Active direct debit members.
//
// RETURNS:
//   - The validation result. Members keep their input order.
func (v *Validator) ValidateMembers(members []model.Member) *ValidationResult {
	result := &ValidationResult{}

	for _, member := range members {
		result.MembersValidated++

		checked, errs := v.ValidateMember(member)
		rejected := false
		for _, err := range errs {
			if err.Severity == SeverityError || v.options.TreatWarningsAsErrors {
				rejected = true
				result.ErrorCount++
			} else {
				result.WarningCount++
			}
		}
		result.Errors = append(result.Errors, errs...)

		if rejected {
			result.MembersRejected++
			continue
		}
		result.Valid = append(result.Valid, checked)
	}

	return result
}

// ValidateMember validates one member and returns it with IBAN and BIC
// normalized and default dues applied.
func (v *Validator) ValidateMember(member model.Member) (model.Member, []*ValidationError) {
	var errs []*ValidationError
	add := func(severity, field, value, rule, message string) {
		errs = append(errs, &ValidationError{
			Severity:   severity,
			Field:      field,
			Value:      value,
			Rule:       rule,
			Message:    message,
			MemberCode: member.Code,
			MemberName: member.Name,
		})
	}

	// =========================================================================
	// NAME
	// =========================================================================

	member.Name = strings.TrimSpace(member.Name)
	switch {
	case member.Name == "":
		add(SeverityError, "name", "", "required", "Debtor name is empty")
	case utf8.RuneCountInString(member.Name) > MaxNameLength:
		add(SeverityWarning, "name", member.Name, "max_length",
			fmt.Sprintf("Name exceeds %d characters and will be truncated", MaxNameLength))
	}

	// =========================================================================
	// IBAN
	// =========================================================================

	member.IBAN = NormalizeAccount(member.IBAN)
	if member.IBAN == "" {
		add(SeverityError, "iban", "", "required", "IBAN is empty")
	} else if msg := validateIBAN(member.IBAN); msg != "" {
		add(SeverityError, "iban", member.IBAN, "iban", msg)
	}

	// =========================================================================
	// BIC
	// =========================================================================

	member.BIC = NormalizeAccount(member.BIC)
	if member.BIC == "" {
		add(SeverityWarning, "bic", "", "recommended", "BIC is empty")
	} else if !bicPattern.MatchString(member.BIC) {
		add(SeverityError, "bic", member.BIC, "bic", "BIC must be 8 or 11 characters (AAAABBCC or AAAABBCCDDD)")
	}

	// =========================================================================
	// DUES
	// =========================================================================

	switch {
	case member.Dues < 0:
		add(SeverityError, "dues", fmt.Sprintf("%.2f", member.Dues), "positive", "Dues must not be negative")
	case member.Dues == 0 && v.options.DefaultDues > 0:
		member.Dues = v.options.DefaultDues
		add(SeverityWarning, "dues", "0.00", "default", fmt.Sprintf("Dues not set, default %.2f applied", v.options.DefaultDues))
	case member.Dues == 0:
		add(SeverityError, "dues", "0.00", "positive", "Dues not set and no default configured")
	}

	return member, errs
}

// =============================================================================
// ACCOUNT VALIDATORS
// =============================================================================

// NormalizeAccount uppercases an IBAN or BIC and strips spaces.
func NormalizeAccount(value string) string {
	return strings.ToUpper(strings.Join(strings.Fields(value), ""))
}

// ValidIBAN reports whether a normalized IBAN passes the structure and
// check digit tests.
func ValidIBAN(iban string) bool {
	return validateIBAN(iban) == ""
}

// validateIBAN checks an IBAN already normalized by NormalizeAccount.
//
// RETURNS:
//   - An error message if validation fails, empty string if valid.
func validateIBAN(iban string) string {
	if len(iban) < 15 || len(iban) > 34 {
		return fmt.Sprintf("IBAN must be 15 to 34 characters (actual: %d)", len(iban))
	}
	for i, r := range iban {
		switch {
		case i < 2 && (r < 'A' || r > 'Z'):
			return "IBAN must start with a two-letter country code"
		case i >= 2 && i < 4 && (r < '0' || r > '9'):
			return "IBAN check digits must be numeric"
		case (r < 'A' || r > 'Z') && (r < '0' || r > '9'):
			return "IBAN must contain only letters and digits"
		}
	}

	// Move the first four characters to the end and expand letters to
	// numbers (A=10 ... Z=35).
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			fmt.Fprintf(&digits, "%d", r-'A'+10)
		} else {
			digits.WriteRune(r)
		}
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return "IBAN is not numeric after expansion"
	}
	if new(big.Int).Mod(n, big.NewInt(97)).Int64() != 1 {
		return "IBAN check digits are wrong"
	}
	return ""
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
//
// PARAMETERS:
//   - errors: The validation errors to format.
//
// RETURNS:
//   - A formatted string containing all errors.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to a log file.
//
// PARAMETERS:
//   - errors: The validation errors to write.
//   - filePath: The path to the output file.
//
// RETURNS:
//   - An error if writing fails.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create validation log directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create validation log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Roster Sync - Remittance Validation\nGenerated: %s\n\n",
		time.Now().Format("2006-01-02 15:04:05"))
	writer.WriteString(FormatErrors(errors))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush validation log: %w", err)
	}
	return nil
}
