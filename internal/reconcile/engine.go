// =============================================================================
// Roster Sync - Reconciliation Engine
// =============================================================================
//
// The engine brings the member table in line with the spreadsheet of active
// members. A run has four phases:
//
//   1. LOAD        Fetch every persisted member and index it by normalized
//                  identity. Members without a usable identity are counted
//                  and never touched. A load failure aborts the run before
//                  anything is written.
//   2. APPLY       Walk the candidates in sheet order. A match is updated
//                  (and reactivated), anything else is inserted. A failed
//                  write is counted against the candidate and the run moves
//                  on.
//   3. DEACTIVATE  Re-fetch the table and deactivate every active member
//                  whose identity was not in the sheet, all with one
//                  timestamp.
//   4. REPORT      Count the table and return the run statistics.
//
// The engine is single-threaded and performs one gateway call per candidate
// plus the two fetches. Each gateway write commits on its own.
//
// =============================================================================

package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ginjaninja78/roster-sync/internal/apperror"
	"github.com/ginjaninja78/roster-sync/internal/identity"
	"github.com/ginjaninja78/roster-sync/internal/model"
)

// Gateway is the persistence the engine needs.
type Gateway interface {
	FetchAll(ctx context.Context) ([]model.Member, error)
	Insert(ctx context.Context, member *model.Member) error
	Update(ctx context.Context, code string, upd model.MemberUpdate) (int64, error)
	Deactivate(ctx context.Context, code string, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

// ProgressFunc is called every Options.ProgressEvery candidates.
type ProgressFunc func(done, total int)

// Options configures an Engine.
type Options struct {
	// Mode selects the identity field.
	// Default: identity.ModeNationalID
	Mode identity.Mode

	// ProgressEvery is the number of candidates between progress callbacks.
	// Default: 100
	ProgressEvery int

	Progress ProgressFunc

	// Clock supplies the run timestamps, including the deactivation date.
	// Default: time.Now
	Clock func() time.Time

	// Default: slog.Default()
	Logger *slog.Logger
}

// Engine reconciles a batch of candidates against the gateway.
type Engine struct {
	gateway Gateway
	opts    Options
}

// New creates an Engine, filling unset options with their defaults.
func New(gateway Gateway, opts Options) *Engine {
	if opts.Mode == "" {
		opts.Mode = identity.ModeNationalID
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 100
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{gateway: gateway, opts: opts}
}

// =============================================================================
// RUN
// =============================================================================

// Run reconciles batch against the persisted roster.
//
// PARAMETERS:
//   - ctx: Cancels the run between candidates.
//   - batch: The candidates read from the spreadsheet.
//
// RETURNS:
//   - The run statistics. They are returned even when the error is non-nil
//     so callers can always report what happened.
//   - An error wrapping apperror.ErrPersistence when the initial load fails,
//     or the context error when the run was interrupted. Per-member write
//     failures are not errors of the run; they are counted in the stats.
func (e *Engine) Run(ctx context.Context, batch *model.Batch) (*Stats, error) {
	stats := &Stats{
		StartedAt:           e.opts.Clock(),
		Mode:                e.opts.Mode,
		SkippedNoIdentity:   batch.SkippedNoIdentity,
		DuplicateIdentities: batch.DuplicateIdentities,
	}
	finish := func() { stats.FinishedAt = e.opts.Clock() }

	// Phase 1: load.
	members, err := e.gateway.FetchAll(ctx)
	if err != nil {
		finish()
		return stats, fmt.Errorf("load roster: %w", wrapPersistence(err))
	}
	stats.TotalBefore = int64(len(members))
	persisted := e.index(members, stats)

	// Phase 2: apply.
	seen, err := e.apply(ctx, batch.Candidates, persisted, stats)
	if err != nil {
		finish()
		return stats, err
	}

	// Phase 3: deactivate.
	e.deactivateMissing(ctx, seen, stats)

	// Phase 4: report.
	if total, err := e.gateway.Count(ctx); err != nil {
		stats.recordFailure(Failure{Operation: OpCount, Err: wrapPersistence(err)})
		e.opts.Logger.Warn("could not count members after run", "error", err)
		stats.TotalAfter = -1
	} else {
		stats.TotalAfter = total
	}

	finish()
	e.opts.Logger.Info("reconciliation finished",
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"deactivated", stats.Deactivated,
		"errors", stats.Errors,
	)
	return stats, nil
}

// index maps normalized identity to persisted member. Later members win when
// two share an identity.
func (e *Engine) index(members []model.Member, stats *Stats) map[string]model.Member {
	persisted := make(map[string]model.Member, len(members))
	for _, member := range members {
		id, ok := e.opts.Mode.Of(member)
		if !ok {
			stats.PersistedWithoutIdentity++
			continue
		}
		if _, exists := persisted[id]; exists {
			stats.PersistedDuplicates++
			e.opts.Logger.Warn("identity shared by several persisted members", "identity", id, "code", member.Code)
		}
		persisted[id] = member
	}
	return persisted
}

// apply inserts or updates every candidate and returns the set of candidate
// identities.
func (e *Engine) apply(ctx context.Context, candidates []model.Candidate, persisted map[string]model.Member, stats *Stats) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, len(candidates))
	total := len(candidates)

	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return seen, fmt.Errorf("run interrupted after %d of %d members: %w", i, total, err)
		}

		id, ok := e.candidateIdentity(candidate)
		if !ok {
			stats.SkippedNoIdentity++
			continue
		}
		stats.TotalSheet++
		seen[id] = struct{}{}

		if member, found := persisted[id]; found {
			e.update(ctx, candidate, id, member, stats)
		} else if inserted, ok := e.insert(ctx, candidate, id, stats); ok {
			persisted[id] = inserted
		}

		if done := i + 1; done%e.opts.ProgressEvery == 0 {
			e.opts.Logger.Debug("progress", "done", done, "total", total)
			if e.opts.Progress != nil {
				e.opts.Progress(done, total)
			}
		}
	}

	return seen, nil
}

func (e *Engine) candidateIdentity(candidate model.Candidate) (string, bool) {
	if candidate.Identity != "" {
		return candidate.Identity, true
	}
	return identity.Normalize(e.opts.Mode.RawCandidate(candidate))
}

func (e *Engine) update(ctx context.Context, candidate model.Candidate, id string, member model.Member, stats *Stats) {
	affected, err := e.gateway.Update(ctx, member.Code, candidate.Update())
	if err != nil {
		e.fail(stats, Failure{
			Identity:  id,
			Code:      member.Code,
			Name:      candidate.Name,
			Row:       candidate.Row,
			Operation: OpUpdate,
			Err:       wrapPersistence(err),
		})
		return
	}

	if affected == 0 {
		stats.Unchanged++
		return
	}
	stats.Updated++
}

func (e *Engine) insert(ctx context.Context, candidate model.Candidate, id string, stats *Stats) (model.Member, bool) {
	member := candidate.NewMember()
	if e.opts.Mode == identity.ModeNationalID {
		// Codes for new members are allocated by the gateway.
		member.Code = ""
	} else {
		member.Code = strings.TrimSpace(candidate.Code)
	}

	if err := e.gateway.Insert(ctx, &member); err != nil {
		e.fail(stats, Failure{
			Identity:  id,
			Code:      member.Code,
			Name:      candidate.Name,
			Row:       candidate.Row,
			Operation: OpInsert,
			Err:       wrapPersistence(err),
		})
		return member, false
	}

	stats.Inserted++
	e.opts.Logger.Debug("member inserted", "identity", id, "code", member.Code)
	return member, true
}

// deactivateMissing deactivates every active member whose identity was not
// among the candidates.
func (e *Engine) deactivateMissing(ctx context.Context, seen map[string]struct{}, stats *Stats) {
	members, err := e.gateway.FetchAll(ctx)
	if err != nil {
		e.fail(stats, Failure{Operation: OpDeactivate, Err: fmt.Errorf("reload roster: %w", wrapPersistence(err))})
		return
	}

	at := e.opts.Clock()
	stats.DeactivatedAt = at

	for _, member := range members {
		if member.IsDeactivated {
			continue
		}
		id, ok := e.opts.Mode.Of(member)
		if !ok {
			continue
		}
		if _, inSheet := seen[id]; inSheet {
			continue
		}

		if err := e.gateway.Deactivate(ctx, member.Code, at); err != nil {
			e.fail(stats, Failure{
				Identity:  id,
				Code:      member.Code,
				Name:      member.Name,
				Operation: OpDeactivate,
				Err:       wrapPersistence(err),
			})
			continue
		}

		stats.Deactivated++
		stats.DeactivatedMembers = append(stats.DeactivatedMembers, DeactivatedMember{
			Code:     member.Code,
			Name:     member.Name,
			Identity: id,
		})
	}
}

func (e *Engine) fail(stats *Stats, failure Failure) {
	stats.recordFailure(failure)
	e.opts.Logger.Warn("member operation failed",
		"operation", string(failure.Operation),
		"identity", failure.Identity,
		"code", failure.Code,
		"error", failure.Err,
	)
}

// wrapPersistence makes sure err is classified as a persistence error.
func wrapPersistence(err error) error {
	if apperror.KindOf(err) != "" {
		return err
	}
	return fmt.Errorf("%w: %w", apperror.ErrPersistence, err)
}
