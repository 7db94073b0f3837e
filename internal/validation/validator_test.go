package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIBAN(t *testing.T) {
	tests := []struct {
		iban  string
		valid bool
	}{
		{"ES9121000418450200051332", true},
		{"GB82WEST12345698765432", true},
		{"DE89370400440532013000", true},
		{"ES9121000418450200051333", false},
		{"ES91", false},
		{"1291210004184502000513", false},
		{"ESAB21000418450200051332", false},
		{"ES91210004184502000513_2", false},
	}

	for _, tt := range tests {
		t.Run(tt.iban, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidIBAN(tt.iban))
		})
	}
}

func TestNormalizeAccount(t *testing.T) {
	assert.Equal(t, "ES9121000418450200051332", NormalizeAccount(" es91 2100 0418 4502 0005 1332 "))
	assert.Empty(t, NormalizeAccount("   "))
}

func TestValidateMember(t *testing.T) {
	validator := NewValidator(30)

	t.Run("valid member is normalized", func(t *testing.T) {
		member, errs := validator.ValidateMember(model.Member{
			Code: "0001", Name: " Anna ", IBAN: "es91 2100 0418 4502 0005 1332", BIC: "caixesbbxxx", Dues: 45,
		})

		assert.Empty(t, errs)
		assert.Equal(t, "Anna", member.Name)
		assert.Equal(t, "ES9121000418450200051332", member.IBAN)
		assert.Equal(t, "CAIXESBBXXX", member.BIC)
		assert.Equal(t, 45.0, member.Dues)
	})

	t.Run("default dues and missing BIC are warnings", func(t *testing.T) {
		member, errs := validator.ValidateMember(model.Member{
			Code: "0002", Name: "Biel", IBAN: "DE89370400440532013000",
		})

		require.Len(t, errs, 2)
		for _, err := range errs {
			assert.Equal(t, SeverityWarning, err.Severity)
		}
		assert.Equal(t, 30.0, member.Dues)
	})

	t.Run("bad IBAN and BIC are errors", func(t *testing.T) {
		_, errs := validator.ValidateMember(model.Member{
			Code: "0003", Name: "Carla", IBAN: "ES0000000000000000000000", BIC: "CAIX", Dues: 10,
		})

		require.Len(t, errs, 2)
		assert.Equal(t, "iban", errs[0].Field)
		assert.Equal(t, "bic", errs[1].Field)
		assert.Equal(t, "0003", errs[0].MemberCode)
	})

	t.Run("no dues and no default", func(t *testing.T) {
		_, errs := NewValidator(0).ValidateMember(model.Member{
			Code: "0004", Name: "Dani", IBAN: "DE89370400440532013000", BIC: "DEUTDEFF",
		})

		require.Len(t, errs, 1)
		assert.Equal(t, "dues", errs[0].Field)
		assert.Equal(t, SeverityError, errs[0].Severity)
	})

	t.Run("long name", func(t *testing.T) {
		_, errs := validator.ValidateMember(model.Member{
			Code: "0005", Name: strings.Repeat("n", MaxNameLength+1), IBAN: "DE89370400440532013000", BIC: "DEUTDEFF", Dues: 5,
		})

		require.Len(t, errs, 1)
		assert.Equal(t, "max_length", errs[0].Rule)
	})
}

func TestValidateMembers(t *testing.T) {
	members := []model.Member{
		{Code: "0001", Name: "Anna", IBAN: "ES9121000418450200051332", BIC: "CAIXESBBXXX", Dues: 45},
		{Code: "0002", Name: "", IBAN: "ES9121000418450200051332", Dues: 45},
		{Code: "0003", Name: "Carla", IBAN: "DE89370400440532013000", Dues: 20},
	}

	result := NewValidator(0).ValidateMembers(members)

	assert.False(t, result.IsValid())
	assert.Equal(t, 3, result.MembersValidated)
	assert.Equal(t, 1, result.MembersRejected)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 2, result.WarningCount)
	require.Len(t, result.Valid, 2)
	assert.Equal(t, "0001", result.Valid[0].Code)
	assert.Equal(t, "0003", result.Valid[1].Code)

	strict := NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true}).ValidateMembers(members)
	assert.Len(t, strict.Valid, 1)
}

func TestFormatErrorsAndWriteErrorLog(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	errs := []*ValidationError{{
		Severity: SeverityError, Field: "iban", Value: "ES00", Rule: "iban",
		Message: "IBAN check digits are wrong", MemberCode: "0007", MemberName: "Marta",
	}}
	text := FormatErrors(errs)
	assert.Contains(t, text, "1 error(s)")
	assert.Contains(t, text, "[ERROR] Member 0007 (Marta), Field 'iban'")

	path := filepath.Join(t.TempDir(), "output", "validation.txt")
	require.NoError(t, WriteErrorLog(errs, path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Member 0007")
}
