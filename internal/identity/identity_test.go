package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "already canonical", raw: "12345678Z", want: "12345678Z", wantOK: true},
		{name: "lowercase with spaces", raw: " 12345678z ", want: "12345678Z", wantOK: true},
		{name: "hyphen", raw: "12345678-Z", want: "12345678Z", wantOK: true},
		{name: "internal spaces", raw: "X 1234567 L", want: "X1234567L", wantOK: true},
		{name: "tab", raw: "x\t1234567 l", want: "X1234567L", wantOK: true},
		{name: "empty", raw: "", want: "", wantOK: false},
		{name: "whitespace only", raw: "   \t", want: "", wantOK: false},
		{name: "hyphens only", raw: " - - ", want: "", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Normalize(tc.raw)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize_Equivalence(t *testing.T) {
	inputs := []string{"12345678z", "x-1234567-l", "Y 7654321 G", "0042"}

	for _, s := range inputs {
		base, ok := Normalize(s)
		require.True(t, ok, s)

		variants := []string{
			strings.ToUpper(s),
			" " + s + " ",
			strings.ReplaceAll(s, "-", ""),
		}
		for _, v := range variants {
			got, ok := Normalize(v)
			assert.True(t, ok, v)
			assert.Equal(t, base, got, "variant %q of %q", v, s)
		}
	}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("NIF")
	require.NoError(t, err)
	assert.Equal(t, ModeNationalID, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeNationalID, mode)

	mode, err = ParseMode(" code ")
	require.NoError(t, err)
	assert.Equal(t, ModeCode, mode)

	_, err = ParseMode("email")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConfiguration))
}

func TestMode_Of(t *testing.T) {
	member := model.Member{Code: " 0042 ", NationalID: "12345678-z"}

	got, ok := ModeNationalID.Of(member)
	assert.True(t, ok)
	assert.Equal(t, "12345678Z", got)

	got, ok = ModeCode.Of(member)
	assert.True(t, ok)
	assert.Equal(t, "0042", got)

	candidate := model.Candidate{Code: "7", NationalID: ""}
	assert.Equal(t, "", ModeNationalID.RawCandidate(candidate))
	assert.Equal(t, "7", ModeCode.RawCandidate(candidate))
}
