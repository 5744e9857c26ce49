package maintenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenetdb/tenet/pkg/scope"
	"github.com/tenetdb/tenet/pkg/store"
	"github.com/tenetdb/tenet/pkg/types"
)

func newSweeperFixture(t *testing.T) (*Sweeper, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "facts.db"), store.Options{
		Scope:       types.ScopeProject,
		ProjectPath: "/work/demo",
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(scope.NewSingleManager(s), nil), s
}

func seedProposedFact(t *testing.T, s *store.Store, age time.Duration) *types.Fact {
	t.Helper()
	ctx := context.Background()

	subj, _, err := s.FindOrCreateEntity(ctx, "project", "demo")
	require.NoError(t, err)

	f := &types.Fact{
		ID:              uuid.NewString(),
		SubjectEntityID: subj.ID,
		Predicate:       "uses_tool",
		ObjectLiteral:   uuid.NewString(),
		Polarity:        types.PolarityPositive,
		ValidFrom:       time.Now().Add(-age),
		Status:          types.StatusProposed,
		Confidence:      0.5,
		Scope:           types.ScopeProject,
		ProjectPath:     "/work/demo",
		CreatedAt:       time.Now().Add(-age).UTC(),
	}
	require.NoError(t, s.InsertFact(ctx, f))
	return f
}

func TestSweepExpiresStaleProposed(t *testing.T) {
	sw, s := newSweeperFixture(t)
	ctx := context.Background()

	stale := seedProposedFact(t, s, 20*24*time.Hour)
	fresh := seedProposedFact(t, s, time.Hour)

	report, err := sw.Sweep(ctx, types.ScopeProject, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.ProposedExpired)
	assert.True(t, report.BudgetHonored)
	assert.Zero(t, report.StepsSkipped)

	got, ok, err := s.FactByID(ctx, stale.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.StatusDisputed, got.Status)

	got, ok, err = s.FactByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.StatusProposed, got.Status)
}

func TestSweepWithTTLOverrides(t *testing.T) {
	sw, s := newSweeperFixture(t)
	sw = sw.WithTTLs(time.Hour, time.Hour)

	seedProposedFact(t, s, 2*time.Hour)

	report, err := sw.Sweep(context.Background(), types.ScopeProject, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.ProposedExpired)
}

func TestSweepDeletesAgedUnreferencedContent(t *testing.T) {
	sw, s := newSweeperFixture(t)
	sw = sw.WithTTLs(0, time.Hour)
	ctx := context.Background()

	ci := &types.ContentItem{
		ID:         uuid.NewString(),
		Source:     "conversation",
		SessionID:  "sess-1",
		TextHash:   uuid.NewString(),
		ByteLen:    10,
		OccurredAt: time.Now().Add(-3 * time.Hour),
		IngestedAt: time.Now().Add(-3 * time.Hour),
	}
	require.NoError(t, s.InsertContentItem(ctx, ci))

	report, err := sw.Sweep(ctx, types.ScopeProject, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.ContentDeleted)

	_, ok, err := s.ContentItemByID(ctx, ci.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSweepSkipsStepsPastDeadline(t *testing.T) {
	sw, _ := newSweeperFixture(t)

	// A negative-duration budget that is still nonzero: the deadline is
	// already in the past when the first step is considered.
	report, err := sw.Sweep(context.Background(), types.ScopeProject, -time.Nanosecond)
	require.NoError(t, err)

	// Negative budget falls back to the default, so nothing is skipped.
	assert.Zero(t, report.StepsSkipped)
	assert.True(t, report.BudgetHonored)
}

func TestSweepReportsOverrun(t *testing.T) {
	sw, _ := newSweeperFixture(t)

	report, err := sw.Sweep(context.Background(), types.ScopeProject, time.Nanosecond)
	require.NoError(t, err)

	// A one-nanosecond budget is over before the first step runs.
	assert.Equal(t, 3, report.StepsSkipped)
	assert.False(t, report.BudgetHonored)
	assert.Zero(t, report.ProposedExpired)
}
