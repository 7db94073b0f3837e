// =============================================================================
// Roster Sync - Sync Command
// =============================================================================
//
// COMMAND USAGE:
//   roster sync [flags]
//
// FLAGS:
//   --file       : Spreadsheet of active members (default from config)
//   --env        : Credentials file (default from config)
//   --mode       : Identity used for matching, "nif" or "code"
//   --no-backup  : Skip the pre-run backup
//   --dry-run    : Show the planned changes without writing anything
//
// PROCESSING PIPELINE:
//   1. Check the input file and credentials
//   2. Read the sheet into a batch of candidates
//   3. Connect to the database
//   4. Ask for confirmation
//   5. Back up the member table
//   6. Reconcile
//   7. Print the summary and write the summary / error log files
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/identity"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/ginjaninja78/roster-sync/internal/reconcile"
	"github.com/ginjaninja78/roster-sync/internal/report"
	"github.com/ginjaninja78/roster-sync/internal/xlsxparser"
	"github.com/ginjaninja78/roster-sync/pkg/utils"
	"github.com/spf13/cobra"
)

// syncOptions holds the flags of the sync command.
type syncOptions struct {
	file     string
	envFile  string
	mode     string
	noBackup bool
	dryRun   bool
}

func newSyncCmd(a *app) *cobra.Command {
	opts := &syncOptions{}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the spreadsheet into the member table",
		Long: `The sync command reads the spreadsheet of active members and brings the
member table in line with it:

  - members found in the sheet are updated and reactivated
  - rows with no matching member are inserted
  - active members missing from the sheet are deactivated

Nothing is written until the operator types the confirmation word (SI by
default). A verified CSV backup of the table is taken first.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSync(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	syncCmd.Flags().StringVar(&opts.file, "file", "", "Spreadsheet of active members (default from config)")
	syncCmd.Flags().StringVar(&opts.envFile, "env", "", "Credentials .env file (default from config)")
	syncCmd.Flags().StringVar(&opts.mode, "mode", "", "Identity used for matching: nif or code (default from config)")
	syncCmd.Flags().BoolVar(&opts.noBackup, "no-backup", false, "Skip the pre-run backup")
	syncCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show the planned changes without writing anything")

	return syncCmd
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func (a *app) runSync(ctx context.Context, in io.Reader, out io.Writer, opts *syncOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// =========================================================================
	// STEP 1: CHECK INPUTS
	// =========================================================================

	inputFile := opts.file
	if inputFile == "" {
		inputFile = a.cfg.InputFile
	}
	if !utils.FileExists(inputFile) {
		return fmt.Errorf("input file %s not found: %w", inputFile, apperror.ErrSourceFile)
	}

	mode := a.cfg.Mode()
	if opts.mode != "" {
		parsed, err := identity.ParseMode(opts.mode)
		if err != nil {
			return err
		}
		mode = parsed
	}

	creds, err := a.loadCredentials(opts.envFile)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: READ THE SHEET
	// =========================================================================

	fmt.Fprintln(out, "=== Roster Sync ===")
	fmt.Fprintf(out, "Reading %s...\n", inputFile)

	batch, err := a.readBatch(inputFile, mode)
	if err != nil {
		return err
	}
	for _, issue := range batch.Issues {
		slog.Warn("row skipped", "row", issue.Row, "reason", issue.Message)
	}
	fmt.Fprintf(out, "Members in sheet: %d (skipped without %s: %d, duplicates: %d)\n",
		len(batch.Candidates), mode, batch.SkippedNoIdentity, batch.DuplicateIdentities)

	// =========================================================================
	// STEP 3: CONNECT
	// =========================================================================

	sess, err := a.connect(ctx, creds)
	if err != nil {
		return err
	}
	defer sess.Close()

	engine := reconcile.New(sess.repo, reconcile.Options{
		Mode:          mode,
		ProgressEvery: a.cfg.ProgressEvery,
		Progress: func(done, total int) {
			fmt.Fprintf(out, "  Processed %d/%d\n", done, total)
		},
	})

	if opts.dryRun {
		plan, err := engine.Preview(ctx, batch)
		if err != nil {
			return err
		}
		report.PrintPlan(out, plan)
		return nil
	}

	// =========================================================================
	// STEP 4: CONFIRM
	// =========================================================================

	prompt := newPrompter(in, out)
	total, err := sess.repo.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTable %s (%s) holds %d members.\n", sess.repo.Table(), creds.Redacted(), total)
	fmt.Fprintln(out, "Members missing from the sheet will be DEACTIVATED.")

	ok, err := prompt.confirm("Continue?", a.cfg.ConfirmToken)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Operation cancelled.")
		return nil
	}

	// =========================================================================
	// STEP 5: BACKUP
	// =========================================================================

	backupPath, err := a.backupBeforeSync(ctx, sess, prompt, out, opts.noBackup)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 6: RECONCILE
	// =========================================================================

	fmt.Fprintln(out, "Synchronizing...")
	stats, runErr := engine.Run(ctx, batch)
	stats.BackupPath = backupPath

	// =========================================================================
	// STEP 7: REPORT
	// =========================================================================

	report.Print(out, stats)
	a.writeRunArtifacts(out, stats, inputFile)

	return runErr
}

// backupBeforeSync takes the pre-run backup. When the backup fails the
// operator may still choose to continue without one.
//
// RETURNS:
//   - The backup path ("" when skipped).
//   - The backup error when it failed and the operator did not confirm.
func (a *app) backupBeforeSync(ctx context.Context, sess *session, prompt *prompter, out io.Writer, skip bool) (string, error) {
	if skip {
		slog.Warn("backup skipped by --no-backup")
		fmt.Fprintln(out, "Backup skipped.")
		return "", nil
	}

	fmt.Fprintln(out, "Creating backup...")
	result, err := a.takeBackup(ctx, sess.repo, time.Now())
	if err == nil {
		fmt.Fprintf(out, "Backup written: %s (%d members)\n", result.Path, result.Rows)
		return result.Path, nil
	}

	fmt.Fprintf(out, "Backup failed: %v\n", err)
	ok, promptErr := prompt.confirm("Continue WITHOUT a backup?", a.cfg.ConfirmToken)
	if promptErr != nil {
		return "", promptErr
	}
	if !ok {
		return "", err
	}
	slog.Warn("continuing without backup", "error", err)
	return "", nil
}

// writeRunArtifacts writes the summary and, when needed, the error log.
// Failures are logged but do not change the outcome of the run.
func (a *app) writeRunArtifacts(out io.Writer, stats *reconcile.Stats, inputFile string) {
	files := a.files()
	now := stats.FinishedAt
	if now.IsZero() {
		now = time.Now()
	}

	summaryPath, err := utils.WriteSummaryLog(report.FromStats(stats, inputFile), files.OutputPath(utils.SummaryFileFormat, now))
	if err != nil {
		slog.Warn("failed to write run summary", "error", err)
	} else {
		fmt.Fprintf(out, "Summary written to %s\n", summaryPath)
	}

	errorPath, err := utils.WriteErrorLog(report.ErrorEntries(stats, inputFile), files.OutputPath(utils.ErrorLogFileFormat, now))
	if err != nil {
		slog.Warn("failed to write error log", "error", err)
	} else if errorPath != "" {
		fmt.Fprintf(out, "Errors have been logged to %s\n", errorPath)
	}
}

// readBatch reads the sheet with the configured layout and the given mode.
func (a *app) readBatch(path string, mode identity.Mode) (*model.Batch, error) {
	readOpts, err := xlsxparser.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	readOpts.Mode = mode
	return xlsxparser.ReadActiveMembers(path, readOpts)
}
