// =============================================================================
// Roster Sync - Backup Writer
// =============================================================================
//
// Snapshots the whole member table (deactivated members included) to a CSV
// file before any change is made, then reads the file back to make sure it
// is complete.
//
// FILE FORMAT:
//   backups/backup_socios_<YYYYMMDD_HHMMSS>.csv
//   UTF-8 with a byte order mark so spreadsheet tools detect the encoding.
//   Header row = model.Columns, one row per member in the same order.
//
// =============================================================================

package backup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/ginjaninja78/roster-sync/pkg/utils"
)

// bom is the UTF-8 byte order mark.
var bom = []byte{0xEF, 0xBB, 0xBF}

// Source supplies the members to back up.
type Source interface {
	FetchAll(ctx context.Context) ([]model.Member, error)
}

// Result describes a verified backup.
type Result struct {
	Path string
	Rows int
}

// Writer creates verified backups.
type Writer struct {
	source Source
	files  *utils.FileManager
	now    func() time.Time
}

// NewWriter returns a writer that stores backups in files.BackupDir.
func NewWriter(source Source, files *utils.FileManager) *Writer {
	return &Writer{source: source, files: files, now: time.Now}
}

// WithClock overrides the clock used for the file name.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Create writes and verifies a backup of every member.
//
// RETURNS:
//   - The backup path and row count.
//   - An error wrapping apperror.ErrBackup if members cannot be read, the
//     file cannot be written, or verification fails.
func (w *Writer) Create(ctx context.Context) (*Result, error) {
	members, err := w.source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read members for backup: %w: %w", apperror.ErrBackup, err)
	}

	if err := w.files.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrBackup, err)
	}

	path := w.files.BackupPath(w.now())
	if err := writeFile(path, members); err != nil {
		return nil, fmt.Errorf("write backup %s: %w: %w", path, apperror.ErrBackup, err)
	}

	rows, err := Verify(path)
	if err != nil {
		return nil, err
	}
	if rows != len(members) {
		return nil, fmt.Errorf("backup %s holds %d rows, expected %d: %w", path, rows, len(members), apperror.ErrBackup)
	}

	slog.Info("backup written", "path", path, "rows", rows)
	return &Result{Path: path, Rows: rows}, nil
}

func writeFile(path string, members []model.Member) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	buffered := bufio.NewWriter(file)
	if _, err := buffered.Write(bom); err != nil {
		return err
	}

	writer := csv.NewWriter(buffered)
	if err := writer.Write(model.Columns); err != nil {
		return err
	}
	for _, member := range members {
		if err := writer.Write(member.Record()); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	if err := buffered.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// Verify reads a backup file back and returns its number of data rows.
func Verify(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open backup %s: %w: %w", path, apperror.ErrBackup, err)
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	prefix, err := buffered.Peek(len(bom))
	if err != nil || !bytes.Equal(prefix, bom) {
		return 0, fmt.Errorf("backup %s has no UTF-8 byte order mark: %w", path, apperror.ErrBackup)
	}
	if _, err := buffered.Discard(len(bom)); err != nil {
		return 0, fmt.Errorf("read backup %s: %w: %w", path, apperror.ErrBackup, err)
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = len(model.Columns)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read backup header %s: %w: %w", path, apperror.ErrBackup, err)
	}
	if !slices.Equal(header, model.Columns) {
		return 0, fmt.Errorf("backup %s header does not match the member columns: %w", path, apperror.ErrBackup)
	}

	rows := 0
	for {
		_, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read backup %s: %w: %w", path, apperror.ErrBackup, err)
		}
		rows++
	}

	return rows, nil
}
