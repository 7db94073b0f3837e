// =============================================================================
// Roster Sync - Run Summary Reporter
// =============================================================================
//
// Renders the outcome of a run for the operator and converts it into the
// summary and error log artifacts written by pkg/utils.
//
// =============================================================================

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/reconcile"
	"github.com/ginjaninja78/roster-sync/pkg/utils"
)

// MaxListed is the number of deactivated members printed on the console.
const MaxListed = 10

const rule = "================================================================================"

const dateTimeLayout = "2006-01-02 15:04:05"

// FromStats converts run statistics into the summary file model.
func FromStats(stats *reconcile.Stats, sourceFile string) utils.RunSummary {
	summary := utils.RunSummary{
		StartTime:           stats.StartedAt,
		EndTime:             stats.FinishedAt,
		SourceFile:          sourceFile,
		BackupFile:          stats.BackupPath,
		Mode:                stats.Mode.String(),
		TotalSheet:          stats.TotalSheet,
		TotalBefore:         stats.TotalBefore,
		TotalAfter:          stats.TotalAfter,
		Inserted:            stats.Inserted,
		Updated:             stats.Updated,
		Unchanged:           stats.Unchanged,
		Deactivated:         stats.Deactivated,
		SkippedNoIdentity:   stats.SkippedNoIdentity,
		DuplicateIdentities: stats.DuplicateIdentities,
		Errors:              stats.Errors,
		DeactivatedAt:       stats.DeactivatedAt,
	}
	for _, member := range stats.DeactivatedMembers {
		summary.DeactivatedMembers = append(summary.DeactivatedMembers, member.String())
	}
	for _, failure := range stats.Failures {
		summary.Failures = append(summary.Failures, failure.String())
	}
	return summary
}

// ErrorEntries converts run failures into error log entries.
func ErrorEntries(stats *reconcile.Stats, sourceFile string) []utils.ErrorLogEntry {
	entries := make([]utils.ErrorLogEntry, 0, len(stats.Failures))
	for _, failure := range stats.Failures {
		kind := apperror.KindOf(failure.Err)
		if kind == "" {
			kind = "UNEXPECTED"
		}
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    stats.FinishedAt,
			Source:       sourceFile,
			ErrorType:    kind,
			ErrorMessage: errorText(failure.Err),
			RowNumber:    failure.Row,
			Identity:     failure.Identity,
			Name:         failure.Name,
			Operation:    string(failure.Operation),
		})
	}
	return entries
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// =============================================================================
// CONSOLE OUTPUT
// =============================================================================

// Print writes the run summary to w.
func Print(w io.Writer, stats *reconcile.Stats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SYNC SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Identity mode:            %s\n", stats.Mode)
	if stats.BackupPath != "" {
		fmt.Fprintf(w, "Backup:                   %s\n", stats.BackupPath)
	}
	fmt.Fprintf(w, "Members in sheet:         %d\n", stats.TotalSheet)
	fmt.Fprintf(w, "Members before:           %d\n", stats.TotalBefore)
	fmt.Fprintf(w, "Members after:            %s\n", formatTotal(stats.TotalAfter))
	fmt.Fprintf(w, "Inserted:                 %d\n", stats.Inserted)
	fmt.Fprintf(w, "Updated:                  %d\n", stats.Updated)
	fmt.Fprintf(w, "Unchanged:                %d\n", stats.Unchanged)
	fmt.Fprintf(w, "Deactivated:              %d\n", stats.Deactivated)
	if stats.Deactivated > 0 && !stats.DeactivatedAt.IsZero() {
		fmt.Fprintf(w, "Deactivation date:        %s\n", stats.DeactivatedAt.Format(dateTimeLayout))
	}
	fmt.Fprintf(w, "Skipped (no identity):    %d\n", stats.SkippedNoIdentity)
	fmt.Fprintf(w, "Duplicate identities:     %d\n", stats.DuplicateIdentities)
	if stats.PersistedWithoutIdentity > 0 {
		fmt.Fprintf(w, "Stored without identity:  %d (left untouched)\n", stats.PersistedWithoutIdentity)
	}
	fmt.Fprintf(w, "Errors:                   %d\n", stats.Errors)
	if d := stats.Duration(); d > 0 {
		fmt.Fprintf(w, "Duration:                 %s\n", d.Round(time.Millisecond))
	}

	if len(stats.DeactivatedMembers) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Deactivated members:")
		for i, member := range stats.DeactivatedMembers {
			if i == MaxListed {
				fmt.Fprintf(w, "  ... and %d more\n", len(stats.DeactivatedMembers)-MaxListed)
				break
			}
			fmt.Fprintf(w, "  - %s\n", member)
		}
	}

	if len(stats.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failures:")
		for _, failure := range stats.Failures {
			fmt.Fprintf(w, "  - %s\n", failure)
		}
	}

	fmt.Fprintln(w, rule)
}

// PrintPlan writes a dry-run plan to w.
func PrintPlan(w io.Writer, plan *reconcile.Plan) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "DRY RUN - no changes were made")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Members before:           %d\n", plan.TotalBefore)
	fmt.Fprintf(w, "Would insert:             %d\n", len(plan.Inserts))
	fmt.Fprintf(w, "Would update:             %d\n", len(plan.Updates))
	fmt.Fprintf(w, "Unchanged:                %d\n", plan.Unchanged)
	fmt.Fprintf(w, "Would deactivate:         %d\n", len(plan.Deactivations))
	fmt.Fprintf(w, "Skipped (no identity):    %d\n", plan.SkippedNoIdentity)
	fmt.Fprintf(w, "Duplicate identities:     %d\n", plan.DuplicateIdentities)

	if len(plan.Inserts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "New members:")
		for i, candidate := range plan.Inserts {
			if i == MaxListed {
				fmt.Fprintf(w, "  ... and %d more\n", len(plan.Inserts)-MaxListed)
				break
			}
			fmt.Fprintf(w, "  + %s %s\n", candidate.Identity, candidate.Name)
		}
	}

	if len(plan.Deactivations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Members to deactivate:")
		for i, member := range plan.Deactivations {
			if i == MaxListed {
				fmt.Fprintf(w, "  ... and %d more\n", len(plan.Deactivations)-MaxListed)
				break
			}
			fmt.Fprintf(w, "  - %s %s\n", member.Code, strings.TrimSpace(member.Name))
		}
	}

	fmt.Fprintln(w, rule)
}

func formatTotal(total int64) string {
	if total < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d", total)
}
