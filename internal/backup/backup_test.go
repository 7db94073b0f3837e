package backup

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/ginjaninja78/roster-sync/internal/roster"
	"github.com/ginjaninja78/roster-sync/internal/testutil"
	"github.com/ginjaninja78/roster-sync/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.February, 3, 9, 15, 0, 0, time.UTC)

type failingSource struct{ err error }

func (f failingSource) FetchAll(context.Context) ([]model.Member, error) {
	return nil, f.err
}

func TestWriter_Create(t *testing.T) {
	// Given: a table with an active and a deactivated member
	db := testutil.SetupTestDB(t)
	deactivatedAt := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	testutil.SeedMembers(t, db,
		model.Member{Code: "0001", Name: "Núria, \"la gran\"", NationalID: "12345678Z"},
		model.Member{Code: "0002", Name: "Jordi", IsDeactivated: true, DeactivationDate: &deactivatedAt},
	)
	files := utils.NewFileManager(filepath.Join(t.TempDir(), "backups"), "")
	writer := NewWriter(roster.NewRepository(db, ""), files).WithClock(func() time.Time { return fixedNow })

	// When: creating the backup
	result, err := writer.Create(context.Background())

	// Then: the file holds a BOM, the header and both members
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, filepath.Join(files.BackupDir, "backup_socios_20250203_091500.csv"), result.Path)

	content, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(content, bom))

	records, err := csv.NewReader(bytes.NewReader(content[len(bom):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, model.Columns, records[0])
	assert.Equal(t, "0001", records[1][0])
	assert.Equal(t, "Núria, \"la gran\"", records[1][1])
	assert.Equal(t, "true", records[2][11])
	assert.Equal(t, "2024-06-30", records[2][16])
}

func TestWriter_CreateEmptyTable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	files := utils.NewFileManager(t.TempDir(), "")

	result, err := NewWriter(roster.NewRepository(db, ""), files).Create(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.Rows)
	assert.FileExists(t, result.Path)
}

func TestWriter_CreateSourceFailure(t *testing.T) {
	files := utils.NewFileManager(t.TempDir(), "")

	_, err := NewWriter(failingSource{err: errors.New("timeout")}, files).Create(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBackup))
	assert.Contains(t, err.Error(), "timeout")
}

func TestWriter_CreateUnwritableDirectory(t *testing.T) {
	// A regular file where the backup directory should be.
	blocker := filepath.Join(t.TempDir(), "backups")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	db := testutil.SetupTestDB(t)
	files := utils.NewFileManager(blocker, "")

	_, err := NewWriter(roster.NewRepository(db, ""), files).Create(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBackup))
}

func TestVerify_RejectsDamagedFiles(t *testing.T) {
	dir := t.TempDir()

	noBOM := filepath.Join(dir, "nobom.csv")
	require.NoError(t, os.WriteFile(noBOM, []byte("FAMID\n"), 0o644))
	_, err := Verify(noBOM)
	assert.True(t, errors.Is(err, apperror.ErrBackup))

	wrongHeader := filepath.Join(dir, "header.csv")
	require.NoError(t, os.WriteFile(wrongHeader, append(append([]byte{}, bom...), []byte("a,b\n")...), 0o644))
	_, err = Verify(wrongHeader)
	assert.True(t, errors.Is(err, apperror.ErrBackup))

	_, err = Verify(filepath.Join(dir, "absent.csv"))
	assert.True(t, errors.Is(err, apperror.ErrBackup))
}
