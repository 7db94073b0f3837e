package report

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/identity"
	"github.com/ginjaninja78/roster-sync/internal/model"
	"github.com/ginjaninja78/roster-sync/internal/reconcile"
	"github.com/stretchr/testify/assert"
)

var started = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

func sampleStats(deactivated int) *reconcile.Stats {
	stats := &reconcile.Stats{
		Mode:          identity.ModeNationalID,
		TotalSheet:    120,
		TotalBefore:   130,
		TotalAfter:    131,
		Inserted:      1,
		Updated:       7,
		Unchanged:     111,
		Deactivated:   deactivated,
		Errors:        1,
		BackupPath:    "backups/backup_socios_20250301_100000.csv",
		StartedAt:     started,
		FinishedAt:    started.Add(2 * time.Second),
		DeactivatedAt: started.Add(time.Second),
		Failures: []reconcile.Failure{{
			Identity:  "12345678Z",
			Name:      "Anna",
			Row:       14,
			Operation: reconcile.OpUpdate,
			Err:       fmt.Errorf("%w: deadlock", apperror.ErrPersistence),
		}},
	}
	for i := 0; i < deactivated; i++ {
		stats.DeactivatedMembers = append(stats.DeactivatedMembers, reconcile.DeactivatedMember{
			Code: fmt.Sprintf("%04d", i+1),
			Name: fmt.Sprintf("Member %d", i+1),
		})
	}
	return stats
}

func TestPrint_ListsAtMostTenDeactivatedMembers(t *testing.T) {
	var out bytes.Buffer

	Print(&out, sampleStats(12))

	text := out.String()
	assert.Contains(t, text, "Members in sheet:         120")
	assert.Contains(t, text, "Deactivated:              12")
	assert.Contains(t, text, "0010 Member 10")
	assert.NotContains(t, text, "0011 Member 11")
	assert.Contains(t, text, "... and 2 more")
	assert.Contains(t, text, "update 12345678Z Anna")
	assert.Contains(t, text, "Duration:                 2s")
	assert.Contains(t, text, "Deactivation date:        2025-03-01 10:00:01")
}

func TestPrint_UnknownTotalAfter(t *testing.T) {
	stats := sampleStats(0)
	stats.TotalAfter = -1
	var out bytes.Buffer

	Print(&out, stats)

	assert.Contains(t, out.String(), "Members after:            unknown")
	assert.NotContains(t, out.String(), "Deactivated members:")
	assert.NotContains(t, out.String(), "Deactivation date:")
}

func TestFromStats(t *testing.T) {
	summary := FromStats(sampleStats(2), "Socis-2025.xlsx")

	assert.Equal(t, "Socis-2025.xlsx", summary.SourceFile)
	assert.Equal(t, "nif", summary.Mode)
	assert.Equal(t, 120, summary.TotalSheet)
	assert.Equal(t, int64(131), summary.TotalAfter)
	assert.Len(t, summary.DeactivatedMembers, 2)
	assert.Equal(t, started.Add(time.Second), summary.DeactivatedAt)
	assert.Len(t, summary.Failures, 1)
}

func TestErrorEntries(t *testing.T) {
	stats := sampleStats(0)
	stats.Failures = append(stats.Failures, reconcile.Failure{Operation: reconcile.OpCount, Err: errors.New("boom")})

	entries := ErrorEntries(stats, "Socis-2025.xlsx")

	assert.Len(t, entries, 2)
	assert.Equal(t, "PERSISTENCE", entries[0].ErrorType)
	assert.Equal(t, 14, entries[0].RowNumber)
	assert.Equal(t, "update", entries[0].Operation)
	assert.Equal(t, "UNEXPECTED", entries[1].ErrorType)
}

func TestPrintPlan(t *testing.T) {
	plan := &reconcile.Plan{
		TotalBefore:   3,
		Inserts:       []model.Candidate{{Identity: "44444444A", Name: "Dani"}},
		Unchanged:     2,
		Deactivations: []model.Member{{Code: "0002", Name: "Biel"}},
	}
	var out bytes.Buffer

	PrintPlan(&out, plan)

	text := out.String()
	assert.Contains(t, text, "DRY RUN")
	assert.Contains(t, text, "Would insert:             1")
	assert.Contains(t, text, "+ 44444444A Dani")
	assert.Contains(t, text, "- 0002 Biel")
}
