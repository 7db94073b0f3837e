package reconcile

import (
	"fmt"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/identity"
)

// Operation names the gateway call a failure belongs to.
type Operation string

const (
	OpInsert     Operation = "insert"
	OpUpdate     Operation = "update"
	OpDeactivate Operation = "deactivate"
	OpCount      Operation = "count"
)

// Failure is a member operation that did not complete.
type Failure struct {
	Identity  string
	Code      string
	Name      string
	Row       int
	Operation Operation
	Err       error
}

func (f Failure) String() string {
	who := f.Identity
	if who == "" {
		who = "-"
	}
	if f.Name != "" {
		who += " " + f.Name
	}
	return fmt.Sprintf("%s %s: %v", f.Operation, who, f.Err)
}

// DeactivatedMember identifies a member deactivated by the run.
type DeactivatedMember struct {
	Code     string
	Name     string
	Identity string
}

func (d DeactivatedMember) String() string {
	if d.Identity == "" {
		return fmt.Sprintf("%s %s", d.Code, d.Name)
	}
	return fmt.Sprintf("%s %s (%s)", d.Code, d.Name, d.Identity)
}

// Stats are the counters of one run.
type Stats struct {
	Mode identity.Mode

	// TotalSheet is the number of candidates with an identity.
	TotalSheet  int
	TotalBefore int64
	// TotalAfter is -1 when the final count failed.
	TotalAfter int64

	Inserted    int
	Updated     int
	Unchanged   int
	Deactivated int
	Errors      int

	SkippedNoIdentity   int
	DuplicateIdentities int

	// PersistedWithoutIdentity counts members the run could not match and
	// therefore never touched.
	PersistedWithoutIdentity int
	PersistedDuplicates      int

	// BackupPath is set by the caller when a backup was taken.
	BackupPath string

	StartedAt     time.Time
	FinishedAt    time.Time
	DeactivatedAt time.Time

	Failures           []Failure
	DeactivatedMembers []DeactivatedMember
}

func (s *Stats) recordFailure(f Failure) {
	s.Errors++
	s.Failures = append(s.Failures, f)
}

// ApplyErrors counts insert and update failures.
func (s *Stats) ApplyErrors() int {
	n := 0
	for _, f := range s.Failures {
		if f.Operation == OpInsert || f.Operation == OpUpdate {
			n++
		}
	}
	return n
}

// Processed is the number of candidates that reached the gateway.
// It equals TotalSheet once the run completed.
func (s *Stats) Processed() int {
	return s.Inserted + s.Updated + s.Unchanged + s.ApplyErrors()
}

// Duration returns the wall time of the run.
func (s *Stats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
