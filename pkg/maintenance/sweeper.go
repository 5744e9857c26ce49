// Package maintenance runs background hygiene over the fact stores: pruning
// orphaned receipts, expiring stale proposed facts and deleting aged-out
// unreferenced content. Every sweep runs under an explicit time budget so it
// can piggyback on latency-sensitive hook invocations.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/tenetdb/tenet/pkg/scope"
	"github.com/tenetdb/tenet/pkg/store"
	"github.com/tenetdb/tenet/pkg/types"
)

const (
	// DefaultProposedTTL is how long a proposed fact may wait for
	// confirmation before it is marked disputed.
	DefaultProposedTTL = 14 * 24 * time.Hour

	// DefaultContentTTL is how long unreferenced content items are kept.
	DefaultContentTTL = 30 * 24 * time.Hour

	// DefaultBudget bounds a sweep when the caller sets none.
	DefaultBudget = 2 * time.Second
)

// Report summarizes one sweep. BudgetHonored is false when the sweep had to
// stop with steps remaining.
type Report struct {
	OrphanReceiptsPruned int64         `json:"orphan_receipts_pruned"`
	ProposedExpired      int64         `json:"proposed_expired"`
	ContentDeleted       int64         `json:"content_deleted"`
	StepsSkipped         int           `json:"steps_skipped"`
	BudgetHonored        bool          `json:"budget_honored"`
	Elapsed              time.Duration `json:"elapsed"`
}

// Sweeper runs the maintenance steps against every store a scope manager
// owns.
type Sweeper struct {
	mgr         scope.Manager
	logger      *slog.Logger
	proposedTTL time.Duration
	contentTTL  time.Duration
}

// New creates a sweeper with the default TTLs.
func New(mgr scope.Manager, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		mgr:         mgr,
		logger:      logger,
		proposedTTL: DefaultProposedTTL,
		contentTTL:  DefaultContentTTL,
	}
}

// WithTTLs overrides the retention windows. Zero values keep the defaults.
func (sw *Sweeper) WithTTLs(proposed, content time.Duration) *Sweeper {
	if proposed > 0 {
		sw.proposedTTL = proposed
	}
	if content > 0 {
		sw.contentTTL = content
	}
	return sw
}

// Sweep runs the maintenance steps across the selected scope under budget.
// Steps are ordered cheapest first; when the budget runs out, the remaining
// steps are counted as skipped rather than rushed.
func (sw *Sweeper) Sweep(ctx context.Context, sc types.Scope, budget time.Duration) (*Report, error) {
	if sc == "" {
		sc = types.ScopeAll
	}
	if budget <= 0 {
		budget = DefaultBudget
	}

	start := time.Now()
	deadline := start.Add(budget)
	report := &Report{BudgetHonored: true}

	err := sw.mgr.Execute(ctx, sc, func(s *store.Store) error {
		steps := []func(context.Context, *store.Store, *Report) error{
			sw.expireProposed,
			sw.pruneOrphans,
			sw.deleteContent,
		}
		for i, step := range steps {
			if time.Now().After(deadline) {
				report.StepsSkipped += len(steps) - i
				return nil
			}
			if err := step(ctx, s, report); err != nil {
				return err
			}
		}
		return nil
	})

	report.Elapsed = time.Since(start)
	if report.Elapsed > budget {
		report.BudgetHonored = false
	}
	if err != nil {
		return report, err
	}

	sw.logger.Debug("sweep complete",
		"elapsed", report.Elapsed,
		"orphans_pruned", report.OrphanReceiptsPruned,
		"proposed_expired", report.ProposedExpired,
		"content_deleted", report.ContentDeleted,
		"steps_skipped", report.StepsSkipped)
	return report, nil
}

func (sw *Sweeper) expireProposed(ctx context.Context, s *store.Store, r *Report) error {
	n, err := s.ExpireStaleProposed(ctx, sw.proposedTTL)
	r.ProposedExpired += n
	return err
}

func (sw *Sweeper) pruneOrphans(ctx context.Context, s *store.Store, r *Report) error {
	n, err := s.PruneOrphanProvenance(ctx)
	r.OrphanReceiptsPruned += n
	return err
}

func (sw *Sweeper) deleteContent(ctx context.Context, s *store.Store, r *Report) error {
	n, err := s.DeleteUnreferencedContent(ctx, sw.contentTTL)
	r.ContentDeleted += n
	return err
}
