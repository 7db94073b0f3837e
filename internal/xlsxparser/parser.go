// =============================================================================
// Roster Sync - Spreadsheet Reader
// =============================================================================
//
// This module reads the spreadsheet of currently active members and turns it
// into an ordered batch of candidates for reconciliation.
//
// SHEET STRUCTURE (default layout, header on row 1, data from row 2):
//
//   | A    | B    | C   | D       | E  | F | G     | H | I     | J      | K     | L       | M    | N   | O         |
//   |------|------|-----|---------|----|---|-------|---|-------|--------|-------|---------|------|-----|-----------|
//   | Code | Name | NIF | Address | CP |   | City  |   | Phone | Mobile | Email | Payment | IBAN | BIC | Join date |
//
// Column positions are configurable via the SheetColumns struct or the
// "columns" section of config.yaml (column letters).
//
// ROW RULES:
//   - Fully empty rows are ignored.
//   - Rows without an identity for the active mode are skipped and counted.
//   - When two rows share an identity the later row wins and keeps its own
//     position; the earlier row is dropped and counted as a duplicate.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/config"
	"github.com/ginjaninja78/roster-sync/internal/identity"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// SHEET COLUMN CONFIGURATION
// =============================================================================

// SheetColumns defines which sheet column holds which member field.
// Column indices are 0-based (A=0, B=1, C=2, etc.)
type SheetColumns struct {
	Code          int
	Name          int
	NationalID    int
	Address       int
	PostalCode    int
	City          int
	Phone         int
	Mobile        int
	Email         int
	PaymentMethod int
	IBAN          int
	BIC           int
	JoinDate      int

	// HeaderRow is the row containing column headers (0-based).
	// Default: 0 (Row 1)
	HeaderRow int

	// DataStartRow is the row where data begins (0-based).
	// Default: 1 (Row 2)
	DataStartRow int
}

// DefaultSheetColumns returns the historical sheet layout.
func DefaultSheetColumns() SheetColumns {
	return SheetColumns{
		Code:          0,  // Column A
		Name:          1,  // Column B
		NationalID:    2,  // Column C
		Address:       3,  // Column D
		PostalCode:    4,  // Column E
		City:          6,  // Column G
		Phone:         8,  // Column I
		Mobile:        9,  // Column J
		Email:         10, // Column K
		PaymentMethod: 11, // Column L
		IBAN:          12, // Column M
		BIC:           13, // Column N
		JoinDate:      14, // Column O
		HeaderRow:     0,  // Row 1
		DataStartRow:  1,  // Row 2
	}
}

// ColumnsFromConfig applies column letter overrides on top of the default
// layout.
func ColumnsFromConfig(letters config.ColumnConfig) (SheetColumns, error) {
	columns := DefaultSheetColumns()

	overrides := []struct {
		letter string
		target *int
	}{
		{letters.Code, &columns.Code},
		{letters.Name, &columns.Name},
		{letters.NationalID, &columns.NationalID},
		{letters.Address, &columns.Address},
		{letters.PostalCode, &columns.PostalCode},
		{letters.City, &columns.City},
		{letters.Phone, &columns.Phone},
		{letters.Mobile, &columns.Mobile},
		{letters.Email, &columns.Email},
		{letters.PaymentMethod, &columns.PaymentMethod},
		{letters.IBAN, &columns.IBAN},
		{letters.BIC, &columns.BIC},
		{letters.JoinDate, &columns.JoinDate},
	}

	for _, o := range overrides {
		if strings.TrimSpace(o.letter) == "" {
			continue
		}
		number, err := excelize.ColumnNameToNumber(strings.TrimSpace(o.letter))
		if err != nil {
			return columns, fmt.Errorf("invalid column %q: %w: %w", o.letter, apperror.ErrConfiguration, err)
		}
		*o.target = number - 1
	}

	return columns, nil
}

// maxIndex returns the right-most data column.
func (c SheetColumns) maxIndex() int {
	indices := []int{
		c.Code, c.Name, c.NationalID, c.Address, c.PostalCode, c.City,
		c.Phone, c.Mobile, c.Email, c.PaymentMethod, c.IBAN, c.BIC, c.JoinDate,
	}
	max := 0
	for _, i := range indices {
		if i > max {
			max = i
		}
	}
	return max
}

// =============================================================================
// READ OPTIONS
// =============================================================================

// ReadOptions controls how the sheet is interpreted.
type ReadOptions struct {
	// SheetName is the worksheet to read.
	// Default: "Hoja1"
	SheetName string

	Columns SheetColumns

	// Mode selects the identity field.
	Mode identity.Mode

	// DomiciledKeywords and DomiciledCodes classify the payment method text
	// as direct debit.
	DomiciledKeywords []string
	DomiciledCodes    []string
}

// DefaultReadOptions returns options matching the historical sheet.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		SheetName:         "Hoja1",
		Columns:           DefaultSheetColumns(),
		Mode:              identity.ModeNationalID,
		DomiciledKeywords: []string{"domiciliat"},
		DomiciledCodes:    []string{"3"},
	}
}

// OptionsFromConfig builds read options from the main configuration.
func OptionsFromConfig(cfg *config.MainConfig) (ReadOptions, error) {
	columns, err := ColumnsFromConfig(cfg.Columns)
	if err != nil {
		return ReadOptions{}, err
	}
	return ReadOptions{
		SheetName:         cfg.SheetName,
		Columns:           columns,
		Mode:              cfg.Mode(),
		DomiciledKeywords: cfg.Payment.DomiciledKeywords,
		DomiciledCodes:    cfg.Payment.DomiciledCodes,
	}, nil
}

// =============================================================================
// READER FUNCTIONS
// =============================================================================

// ReadActiveMembers reads the sheet of active members.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//   - opts: Sheet name, layout, identity mode and payment heuristics.
//
// RETURNS:
//   - The batch of candidates in sheet order, with skip and duplicate counts.
//   - An error wrapping apperror.ErrSourceFile if the file cannot be opened,
//     the sheet is missing, or the header row is missing or too narrow.
func ReadActiveMembers(path string, opts ReadOptions) (*model.Batch, error) {
	if opts.SheetName == "" {
		opts.SheetName = DefaultReadOptions().SheetName
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w: %w", path, apperror.ErrSourceFile, err)
	}
	defer f.Close()

	if index, err := f.GetSheetIndex(opts.SheetName); err != nil || index == -1 {
		return nil, fmt.Errorf("sheet %q not found in %s: %w", opts.SheetName, path, apperror.ErrSourceFile)
	}

	// Raw values keep date cells as serial numbers instead of the display
	// format chosen in the workbook.
	rows, err := f.GetRows(opts.SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w: %w", apperror.ErrSourceFile, err)
	}

	columns := opts.Columns
	if columns.HeaderRow >= len(rows) {
		return nil, fmt.Errorf("sheet %q has no header row: %w", opts.SheetName, apperror.ErrSourceFile)
	}
	if header := rows[columns.HeaderRow]; len(header) <= columns.maxIndex() {
		return nil, fmt.Errorf("sheet %q header has %d columns, expected at least %d: %w",
			opts.SheetName, len(header), columns.maxIndex()+1, apperror.ErrSourceFile)
	}

	return buildBatch(rows, opts), nil
}

// buildBatch converts raw rows into candidates, applying the skip and
// duplicate rules.
func buildBatch(rows [][]string, opts ReadOptions) *model.Batch {
	batch := &model.Batch{}

	candidates := make([]model.Candidate, 0, len(rows))
	dropped := make([]bool, 0, len(rows))
	positions := make(map[string]int)

	for i := opts.Columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		rowNumber := i + 1

		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		candidate := parseRow(row, opts)
		candidate.Row = rowNumber

		normalized, ok := identity.Normalize(opts.Mode.RawCandidate(candidate))
		if !ok {
			batch.SkippedNoIdentity++
			batch.Issues = append(batch.Issues, model.RowIssue{
				Row:     rowNumber,
				Message: fmt.Sprintf("%s (%s)", apperror.ErrIdentityMissing.Error(), missingFieldName(opts.Mode)),
			})
			continue
		}

		candidate.Identity = normalized
		if opts.Mode == identity.ModeNationalID {
			candidate.NationalID = normalized
		}

		if previous, seen := positions[normalized]; seen {
			dropped[previous] = true
			batch.DuplicateIdentities++
			batch.Issues = append(batch.Issues, model.RowIssue{
				Row:     candidates[previous].Row,
				Message: fmt.Sprintf("duplicate identity %s, superseded by row %d", normalized, rowNumber),
			})
		}

		positions[normalized] = len(candidates)
		candidates = append(candidates, candidate)
		dropped = append(dropped, false)
	}

	for i, candidate := range candidates {
		if !dropped[i] {
			batch.Candidates = append(batch.Candidates, candidate)
		}
	}

	return batch
}

// parseRow extracts a Candidate from a single row.
func parseRow(row []string, opts ReadOptions) model.Candidate {
	// Helper function to safely get a cell value.
	getCell := func(index int) string {
		if index >= 0 && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	columns := opts.Columns
	payment := getCell(columns.PaymentMethod)

	return model.Candidate{
		Code:          cleanNumber(getCell(columns.Code)),
		Name:          getCell(columns.Name),
		NationalID:    getCell(columns.NationalID),
		Address:       getCell(columns.Address),
		PostalCode:    normalizePostalCode(getCell(columns.PostalCode)),
		City:          getCell(columns.City),
		Phone:         cleanNumber(getCell(columns.Phone)),
		Mobile:        cleanNumber(getCell(columns.Mobile)),
		Email:         getCell(columns.Email),
		PaymentMethod: payment,
		DirectDebit:   IsDirectDebit(payment, opts.DomiciledKeywords, opts.DomiciledCodes),
		IBAN:          strings.ToUpper(strings.ReplaceAll(getCell(columns.IBAN), " ", "")),
		BIC:           strings.ToUpper(getCell(columns.BIC)),
		JoinDate:      ParseDate(getCell(columns.JoinDate)),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func missingFieldName(mode identity.Mode) string {
	if mode == identity.ModeCode {
		return "member code"
	}
	return "national ID"
}

// textDateLayouts are the non-serial date spellings accepted in the join
// date column.
var textDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

// ParseDate converts a join date cell to a UTC calendar date. Serial day
// counts use the 1899-12-30 epoch. Anything unparseable yields nil.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return nil
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		return truncateToDate(t)
	}

	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return truncateToDate(t)
		}
	}

	return nil
}

func truncateToDate(t time.Time) *time.Time {
	y, m, d := t.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &date
}

// normalizePostalCode drops a fractional artifact left by numeric cells,
// e.g. "8001.0" -> "8001".
func normalizePostalCode(value string) string {
	if i := strings.Index(value, "."); i >= 0 {
		return value[:i]
	}
	return value
}

// cleanNumber renders integral numeric cells without a fractional part and
// leaves everything else untouched.
func cleanNumber(value string) string {
	if !strings.ContainsAny(value, ".eE") {
		return value
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1e15 {
		return value
	}
	return strconv.FormatFloat(f, 'f', 0, 64)
}

// IsDirectDebit reports whether the payment method text denotes a direct
// debit: it contains one of the keywords (case-insensitive) or one of the
// codes.
func IsDirectDebit(payment string, keywords, codes []string) bool {
	lower := strings.ToLower(payment)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	for _, code := range codes {
		if code != "" && strings.Contains(payment, code) {
			return true
		}
	}
	return false
}
