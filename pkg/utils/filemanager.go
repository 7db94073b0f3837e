// =============================================================================
// Roster Sync - File Manager Utility
// =============================================================================
//
// This module provides file management utilities shared by the commands:
//   - Directory management (backup and output directories)
//   - Artifact naming (backups, summaries, error logs, remittances)
//   - Run summary and error log generation
//   - Retention (pruning old backups)
//
// ARTIFACTS:
//   backups/backup_socios_<YYYYMMDD_HHMMSS>.csv   - pre-run member backup
//   output/run_summary_<YYYYMMDD_HHMMSS>.txt      - counters of a run
//   output/error_log_<YYYYMMDD_HHMMSS>.txt        - per-member failures
//   output/remesa_sepa_<YYYYMMDD_HHMMSS>.xml      - SEPA remittance
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the timestamp embedded in artifact names.
const TimestampLayout = "20060102_150405"

// Artifact name formats.
const (
	BackupFileFormat     = "backup_socios_{timestamp}.csv"
	SummaryFileFormat    = "run_summary_{timestamp}.txt"
	ErrorLogFileFormat   = "error_log_{timestamp}.txt"
	RemittanceFileFormat = "remesa_sepa_{timestamp}.xml"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager knows where the tool writes its artifacts.
type FileManager struct {
	// BackupDir receives member backups.
	BackupDir string

	// OutputDir receives summaries, error logs and remittances.
	OutputDir string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(backupDir, outputDir string) *FileManager {
	return &FileManager{
		BackupDir: backupDir,
		OutputDir: outputDir,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.BackupDir, fm.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// BackupPath returns the path of a backup taken at now.
func (fm *FileManager) BackupPath(now time.Time) string {
	return filepath.Join(fm.BackupDir, GenerateFileName(BackupFileFormat, now, nil))
}

// OutputPath returns the path of an output artifact created at now.
func (fm *FileManager) OutputPath(format string, now time.Time) string {
	return filepath.Join(fm.OutputDir, GenerateFileName(format, now, nil))
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateFileName expands a file name format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Date (YYYYMMDD)
//               {time}      - Time (HHMMSS)
//   - now: The time used for the date placeholders.
//   - params: Additional placeholder values, keyed without braces.
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//   format: "backup_socios_{timestamp}.csv"
//   output: "backup_socios_20250115_143022.csv"
func GenerateFileName(format string, now time.Time, params map[string]string) string {
	replacements := map[string]string{
		"{timestamp}": now.Format(TimestampLayout),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}

	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	Source       string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	Identity     string
	Name         string
	Operation    string
}

// WriteErrorLog writes error entries to a log file.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - path: The log file path.
//
// RETURNS:
//   - The path to the error log file, or "" when there was nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, path string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create error log directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Roster Sync - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  Source:         %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Source,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", entry.RowNumber)
		}
		if entry.Identity != "" {
			fmt.Fprintf(writer, "  Identity:       %s\n", entry.Identity)
		}
		if entry.Name != "" {
			fmt.Fprintf(writer, "  Name:           %s\n", entry.Name)
		}
		if entry.Operation != "" {
			fmt.Fprintf(writer, "  Operation:      %s\n", entry.Operation)
		}

		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return path, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a reconciliation run.
type RunSummary struct {
	StartTime  time.Time
	EndTime    time.Time
	SourceFile string
	BackupFile string
	Mode       string

	TotalSheet  int
	TotalBefore int64
	TotalAfter  int64

	Inserted            int
	Updated             int
	Unchanged           int
	Deactivated         int
	SkippedNoIdentity   int
	DuplicateIdentities int
	Errors              int

	// DeactivatedAt is the date stamped on every member deactivated by the run.
	DeactivatedAt time.Time

	DeactivatedMembers []string
	Failures           []string
}

// WriteSummaryLog writes a run summary to a log file.
//
// PARAMETERS:
//   - summary: The run summary.
//   - path: The summary file path.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create summary directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	backup := summary.BackupFile
	if backup == "" {
		backup = "(none)"
	}

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Roster Sync - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Source File:    %s\n"+
		"  Backup File:    %s\n"+
		"  Identity Mode:  %s\n\n"+
		"Statistics:\n"+
		"  Members in sheet:       %d\n"+
		"  Members before:         %d\n"+
		"  Members after:          %d\n"+
		"  Inserted:               %d\n"+
		"  Updated:                %d\n"+
		"  Unchanged:              %d\n"+
		"  Deactivated:            %d\n"+
		"  Skipped (no identity):  %d\n"+
		"  Duplicate identities:   %d\n"+
		"  Errors:                 %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.SourceFile,
		backup,
		summary.Mode,
		summary.TotalSheet,
		summary.TotalBefore,
		summary.TotalAfter,
		summary.Inserted,
		summary.Updated,
		summary.Unchanged,
		summary.Deactivated,
		summary.SkippedNoIdentity,
		summary.DuplicateIdentities,
		summary.Errors)

	if len(summary.DeactivatedMembers) > 0 {
		writer.WriteString("Deactivated Members:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		if !summary.DeactivatedAt.IsZero() {
			fmt.Fprintf(writer, "  Deactivation date: %s\n", summary.DeactivatedAt.Format("2006-01-02 15:04:05"))
		}
		for _, line := range summary.DeactivatedMembers {
			fmt.Fprintf(writer, "  %s\n", line)
		}
		writer.WriteString("\n")
	}

	if len(summary.Failures) > 0 {
		writer.WriteString("Failures:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, line := range summary.Failures {
			fmt.Fprintf(writer, "  %s\n", line)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return path, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a regular file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// PruneOldFiles removes files in dir matching pattern whose modification time
// is older than maxAge. A zero maxAge keeps everything.
//
// RETURNS:
//   - The number of files removed.
//   - An error if listing or removing fails.
func PruneOldFiles(dir, pattern string, maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", path, err)
			}
			removed++
		}
	}

	return removed, nil
}
