package xlsxparser

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/config"
	"github.com/ginjaninja78/roster-sync/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var header = []interface{}{
	"Codi", "Nom", "NIF", "Adreça", "CP", "", "Població", "", "Telèfon",
	"Mòbil", "Email", "Pagament", "IBAN", "BIC", "Data alta",
}

// writeWorkbook creates an XLSX file with the given sheet name and rows
// (header included) and returns its path.
func writeWorkbook(t *testing.T, sheet string, rows ...[]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}

	path := filepath.Join(t.TempDir(), "socis.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func memberRow(code interface{}, name, nif string) []interface{} {
	return []interface{}{code, name, nif, "C/ Major 1", 17001, "", "Girona", "", 972000000,
		612345678, "soci@example.com", "Rebut domiciliat", "ES91 2100 0418 4502 0005 1332", "caixesbbxxx", 45000}
}

func TestReadActiveMembers_ParsesRows(t *testing.T) {
	// Given: a sheet with two members
	path := writeWorkbook(t, "Hoja1",
		header,
		memberRow(12, "Anna Puig", "12345678-z"),
		[]interface{}{13, "Pere Roca", "X1234567L", "", "08001", "", "Barcelona", "", "", "", "", "Finestreta", "", "", "2021-06-09"},
	)

	// When: reading in NIF mode
	batch, err := ReadActiveMembers(path, DefaultReadOptions())

	// Then: both candidates are read in order with normalized fields
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 2)
	assert.Zero(t, batch.SkippedNoIdentity)
	assert.Zero(t, batch.DuplicateIdentities)

	anna := batch.Candidates[0]
	assert.Equal(t, 2, anna.Row)
	assert.Equal(t, "12", anna.Code)
	assert.Equal(t, "12345678Z", anna.Identity)
	assert.Equal(t, "12345678Z", anna.NationalID)
	assert.Equal(t, "17001", anna.PostalCode)
	assert.Equal(t, "Girona", anna.City)
	assert.Equal(t, "972000000", anna.Phone)
	assert.Equal(t, "612345678", anna.Mobile)
	assert.True(t, anna.DirectDebit)
	assert.Equal(t, "ES9121000418450200051332", anna.IBAN)
	assert.Equal(t, "CAIXESBBXXX", anna.BIC)
	require.NotNil(t, anna.JoinDate)
	assert.Equal(t, time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC), *anna.JoinDate)

	pere := batch.Candidates[1]
	assert.Equal(t, 3, pere.Row)
	assert.Equal(t, "08001", pere.PostalCode)
	assert.False(t, pere.DirectDebit)
	require.NotNil(t, pere.JoinDate)
	assert.Equal(t, time.Date(2021, time.June, 9, 0, 0, 0, 0, time.UTC), *pere.JoinDate)
}

func TestReadActiveMembers_SkipsMissingIdentityAndEmptyRows(t *testing.T) {
	path := writeWorkbook(t, "Hoja1",
		header,
		memberRow(1, "Sense NIF", "  "),
		[]interface{}{},
		memberRow(2, "Amb NIF", "11111111H"),
	)

	batch, err := ReadActiveMembers(path, DefaultReadOptions())

	require.NoError(t, err)
	require.Len(t, batch.Candidates, 1)
	assert.Equal(t, "11111111H", batch.Candidates[0].Identity)
	assert.Equal(t, 1, batch.SkippedNoIdentity)
	require.Len(t, batch.Issues, 1)
	assert.Equal(t, 2, batch.Issues[0].Row)
}

func TestReadActiveMembers_DuplicateLastWins(t *testing.T) {
	// Given: the same NIF twice with different spelling
	path := writeWorkbook(t, "Hoja1",
		header,
		memberRow(1, "First", "12345678Z"),
		memberRow(2, "Other", "22222222J"),
		memberRow(3, "Second", "12345678-z"),
	)

	batch, err := ReadActiveMembers(path, DefaultReadOptions())

	// Then: the later row wins and keeps its own position
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 2)
	assert.Equal(t, "Other", batch.Candidates[0].Name)
	assert.Equal(t, "Second", batch.Candidates[1].Name)
	assert.Equal(t, 1, batch.DuplicateIdentities)
}

func TestReadActiveMembers_CodeMode(t *testing.T) {
	path := writeWorkbook(t, "Hoja1",
		header,
		memberRow("0007", "Code Seven", ""),
		memberRow("", "No Code", "12345678Z"),
		memberRow("7", "Code Seven Again", ""),
	)

	opts := DefaultReadOptions()
	opts.Mode = identity.ModeCode
	batch, err := ReadActiveMembers(path, opts)

	require.NoError(t, err)
	require.Len(t, batch.Candidates, 2)
	assert.Equal(t, "0007", batch.Candidates[0].Identity)
	assert.Equal(t, "7", batch.Candidates[1].Identity)
	assert.Equal(t, 1, batch.SkippedNoIdentity)
}

func TestReadActiveMembers_SourceErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadActiveMembers(filepath.Join(t.TempDir(), "absent.xlsx"), DefaultReadOptions())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrSourceFile))
	})

	t.Run("missing sheet", func(t *testing.T) {
		path := writeWorkbook(t, "Full1", header)
		_, err := ReadActiveMembers(path, DefaultReadOptions())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrSourceFile))
	})

	t.Run("narrow header", func(t *testing.T) {
		path := writeWorkbook(t, "Hoja1", []interface{}{"Codi", "Nom", "NIF"})
		_, err := ReadActiveMembers(path, DefaultReadOptions())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrSourceFile))
	})

	t.Run("empty sheet", func(t *testing.T) {
		path := writeWorkbook(t, "Hoja1")
		_, err := ReadActiveMembers(path, DefaultReadOptions())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrSourceFile))
	})
}

func TestColumnsFromConfig(t *testing.T) {
	columns, err := ColumnsFromConfig(config.ColumnConfig{JoinDate: "P", Email: "aa"})
	require.NoError(t, err)
	assert.Equal(t, 15, columns.JoinDate)
	assert.Equal(t, 26, columns.Email)
	assert.Equal(t, 2, columns.NationalID)

	_, err = ColumnsFromConfig(config.ColumnConfig{City: "1A"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConfiguration))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, want, *ParseDate("45000"))
	assert.Equal(t, want, *ParseDate("45000.75"))
	assert.Equal(t, want, *ParseDate("2023-03-15"))
	assert.Equal(t, want, *ParseDate("15/03/2023"))
	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("soon"))
	assert.Nil(t, ParseDate("-3"))
}

func TestNormalizePostalCode(t *testing.T) {
	assert.Equal(t, "8001", normalizePostalCode("8001.0"))
	assert.Equal(t, "08001", normalizePostalCode("08001"))
	assert.Equal(t, "", normalizePostalCode(""))
}

func TestIsDirectDebit(t *testing.T) {
	keywords := []string{"domiciliat"}
	codes := []string{"3"}

	assert.True(t, IsDirectDebit("Rebut DOMICILIAT", keywords, codes))
	assert.True(t, IsDirectDebit("3", keywords, codes))
	assert.True(t, IsDirectDebit("3 - banc", keywords, codes))
	assert.False(t, IsDirectDebit("Finestreta", keywords, codes))
	assert.False(t, IsDirectDebit("", keywords, codes))
}
