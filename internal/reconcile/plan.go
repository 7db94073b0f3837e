package reconcile

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/roster-sync/internal/model"
)

// PlannedUpdate is a candidate that matches the persisted member Code.
type PlannedUpdate struct {
	Code      string
	Candidate model.Candidate
}

// Plan is what Run would do against the current table. Nothing is written
// while building it.
type Plan struct {
	TotalBefore int64
	Inserts     []model.Candidate
	Updates     []PlannedUpdate
	Unchanged   int

	// Deactivations are the active members missing from the sheet.
	Deactivations []model.Member

	SkippedNoIdentity        int
	DuplicateIdentities      int
	PersistedWithoutIdentity int
}

// Preview computes the Plan for batch. It performs a single read.
func (e *Engine) Preview(ctx context.Context, batch *model.Batch) (*Plan, error) {
	members, err := e.gateway.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", wrapPersistence(err))
	}

	var stats Stats
	persisted := e.index(members, &stats)
	plan := &Plan{
		TotalBefore:              int64(len(members)),
		SkippedNoIdentity:        batch.SkippedNoIdentity,
		DuplicateIdentities:      batch.DuplicateIdentities,
		PersistedWithoutIdentity: stats.PersistedWithoutIdentity,
	}

	seen := make(map[string]struct{}, len(batch.Candidates))
	inserted := make(map[string]struct{})
	for _, candidate := range batch.Candidates {
		id, ok := e.candidateIdentity(candidate)
		if !ok {
			plan.SkippedNoIdentity++
			continue
		}
		seen[id] = struct{}{}

		member, found := persisted[id]
		if !found {
			if _, pending := inserted[id]; !pending {
				inserted[id] = struct{}{}
				plan.Inserts = append(plan.Inserts, candidate)
				continue
			}
			// A repeated identity updates the member inserted just before.
			plan.Updates = append(plan.Updates, PlannedUpdate{Candidate: candidate})
			continue
		}

		if candidate.Update().Changes(member) {
			plan.Updates = append(plan.Updates, PlannedUpdate{Code: member.Code, Candidate: candidate})
		} else {
			plan.Unchanged++
		}
	}

	for _, member := range members {
		if member.IsDeactivated {
			continue
		}
		id, ok := e.opts.Mode.Of(member)
		if !ok {
			continue
		}
		if _, inSheet := seen[id]; !inSheet {
			plan.Deactivations = append(plan.Deactivations, member)
		}
	}

	return plan, nil
}
