package recall

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenetdb/tenet/pkg/embedder"
	"github.com/tenetdb/tenet/pkg/scope"
	"github.com/tenetdb/tenet/pkg/store"
	"github.com/tenetdb/tenet/pkg/types"
)

const testProject = "/work/demo"

func newManager(t *testing.T) scope.Manager {
	t.Helper()
	dir := t.TempDir()
	mgr := scope.NewDualManager(testProject, func(sc types.Scope, projectPath string) (*store.Store, error) {
		return store.Open(filepath.Join(dir, string(sc)+".db"), store.Options{
			Scope:       sc,
			ProjectPath: projectPath,
		})
	})
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

// seedFact writes an active fact with one receipt and an evidence embedding
// directly through the store layer.
func seedFact(t *testing.T, mgr scope.Manager, sc types.Scope, predicate, object, quote string) *types.Fact {
	t.Helper()
	ctx := context.Background()
	s, err := mgr.Store(ctx, sc)
	require.NoError(t, err)

	subj, _, err := s.FindOrCreateEntity(ctx, "project", "demo")
	require.NoError(t, err)

	ci := &types.ContentItem{
		ID:         uuid.NewString(),
		Source:     "conversation",
		SessionID:  "sess-1",
		TextHash:   uuid.NewString(),
		ByteLen:    int64(len(quote)),
		OccurredAt: time.Now().UTC(),
		IngestedAt: time.Now().UTC(),
	}
	require.NoError(t, s.InsertContentItem(ctx, ci))

	f := &types.Fact{
		ID:              uuid.NewString(),
		SubjectEntityID: subj.ID,
		Predicate:       predicate,
		ObjectLiteral:   object,
		Polarity:        types.PolarityPositive,
		ValidFrom:       time.Now().UTC(),
		Status:          types.StatusActive,
		Confidence:      0.9,
		Scope:           s.Scope(),
		ProjectPath:     s.ProjectPath(),
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, s.InsertFact(ctx, f))
	require.NoError(t, s.InsertProvenance(ctx, &types.Provenance{
		ID:            uuid.NewString(),
		FactID:        f.ID,
		ContentItemID: ci.ID,
		Quote:         quote,
		Strength:      types.StrengthStated,
	}))

	emb := embedder.NewTermVector(64)
	vec, err := emb.EmbedSingle(ctx, quote)
	require.NoError(t, err)
	require.NoError(t, s.UpsertEmbedding(ctx, f.ID, vec))
	return f
}

func newEngine(t *testing.T) (*Engine, scope.Manager) {
	t.Helper()
	mgr := newManager(t)
	return New(mgr, embedder.NewTermVector(64), nil), mgr
}

func TestQueryReturnsMatchingFactsWithReceipts(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	pg := seedFact(t, mgr, types.ScopeProject, "uses_database", "postgresql", "we use postgresql for persistence")
	seedFact(t, mgr, types.ScopeProject, "uses_framework", "gin", "the http layer runs on gin")

	results, err := eng.Query(ctx, "postgresql persistence", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, pg.ID, results[0].Fact.ID)
	require.Len(t, results[0].Receipts, 1)
	assert.Equal(t, "we use postgresql for persistence", results[0].Receipts[0].Quote)
}

func TestQueryExcludesSupersededFacts(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	old := seedFact(t, mgr, types.ScopeProject, "uses_database", "mysql", "mysql handles persistence here")
	s, err := mgr.Store(ctx, types.ScopeProject)
	require.NoError(t, err)
	require.NoError(t, s.SupersedeFact(ctx, old.ID, time.Now().UTC()))

	results, err := eng.Query(ctx, "mysql persistence", Options{})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, old.ID, r.Fact.ID)
	}
}

func TestQueryProjectOutranksGlobalOnTie(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	quote := "releases are tagged with semantic versioning"
	proj := seedFact(t, mgr, types.ScopeProject, "convention", "semver tags", quote)
	glob := seedFact(t, mgr, types.ScopeGlobal, "convention", "semver tags", quote)

	results, err := eng.Query(ctx, "semantic versioning", Options{Scope: types.ScopeAll})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, proj.ID, results[0].Fact.ID)
	assert.Equal(t, glob.ID, results[1].Fact.ID)
}

func TestQueryScopeFiltering(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	seedFact(t, mgr, types.ScopeProject, "uses_database", "postgresql", "project database is postgresql")
	glob := seedFact(t, mgr, types.ScopeGlobal, "prefers", "tabs", "i prefer tabs in every project")

	results, err := eng.Query(ctx, "prefer tabs project", Options{Scope: types.ScopeGlobal})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, glob.ID, results[0].Fact.ID)
}

func TestQueryLimit(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	for _, lib := range []string{"gin", "cobra", "viper", "testify"} {
		seedFact(t, mgr, types.ScopeProject, "uses_library", lib, "the project depends on library "+lib)
	}

	results, err := eng.Query(ctx, "library depends", Options{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestQueryIndexPreview(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	longObject := strings.Repeat("configuration ", 10)
	seedFact(t, mgr, types.ScopeProject, "convention", longObject, "configuration is layered via files then env then flags")

	previews, err := eng.QueryIndex(ctx, "configuration layered", Options{})
	require.NoError(t, err)
	require.Len(t, previews, 1)

	p := previews[0]
	assert.Equal(t, "demo", p.Subject)
	assert.Equal(t, "convention", p.Predicate)
	assert.LessOrEqual(t, len([]rune(p.ObjectPreview)), 50)
	assert.True(t, strings.HasSuffix(p.ObjectPreview, "..."))
	assert.Positive(t, p.TokenEstimate)
	assert.Equal(t, types.ScopeProject, p.Scope)
}

func TestQueryDetails(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	a := seedFact(t, mgr, types.ScopeProject, "uses_database", "postgresql", "we use postgresql")
	b := seedFact(t, mgr, types.ScopeGlobal, "prefers", "tabs", "tabs over spaces")

	// Input order preserved, duplicates collapsed, missing ids skipped.
	results, err := eng.QueryDetails(ctx, []string{b.ID, "missing", a.ID, b.ID}, types.ScopeAll)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, b.ID, results[0].Fact.ID)
	assert.Equal(t, a.ID, results[1].Fact.ID)
	assert.NotEmpty(t, results[0].Receipts)
}

func TestExplain(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	f := seedFact(t, mgr, types.ScopeProject, "uses_database", "postgresql", "we use postgresql")

	t.Run("present fact", func(t *testing.T) {
		exp, err := eng.Explain(ctx, f.ID, types.ScopeAll)
		require.NoError(t, err)
		require.True(t, exp.Present)
		assert.Equal(t, f.ID, exp.Fact.ID)
		assert.Len(t, exp.Receipts, 1)
		assert.Empty(t, exp.Supersedes)
		assert.Empty(t, exp.Conflicts)
	})

	t.Run("missing fact", func(t *testing.T) {
		exp, err := eng.Explain(ctx, "no-such-id", types.ScopeAll)
		require.NoError(t, err)
		require.NotNil(t, exp)
		assert.False(t, exp.Present)
		assert.Nil(t, exp.Fact)
	})
}

func TestExplainIncludesLineage(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	old := seedFact(t, mgr, types.ScopeProject, "uses_database", "mysql", "we use mysql")
	neu := seedFact(t, mgr, types.ScopeProject, "uses_database", "postgresql", "we switched to postgresql")

	s, err := mgr.Store(ctx, types.ScopeProject)
	require.NoError(t, err)
	require.NoError(t, s.SupersedeFact(ctx, old.ID, time.Now().UTC()))
	require.NoError(t, s.InsertFactLink(ctx, &types.FactLink{
		ID: uuid.NewString(), FromFactID: neu.ID, ToFactID: old.ID, LinkType: types.LinkSupersedes,
	}))

	exp, err := eng.Explain(ctx, old.ID, types.ScopeProject)
	require.NoError(t, err)
	require.True(t, exp.Present)
	assert.Equal(t, []string{neu.ID}, exp.SupersededBy)
}

func TestChangesMergesScopesOldestFirst(t *testing.T) {
	eng, mgr := newEngine(t)
	ctx := context.Background()

	since := time.Now().Add(-time.Minute)
	seedFact(t, mgr, types.ScopeProject, "uses_database", "postgresql", "we use postgresql")
	seedFact(t, mgr, types.ScopeGlobal, "prefers", "tabs", "tabs over spaces")

	changes, err := eng.Changes(ctx, since, 0, types.ScopeAll)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.False(t, changes[1].CreatedAt.Before(changes[0].CreatedAt))

	changes, err = eng.Changes(ctx, time.Now().Add(time.Minute), 0, types.ScopeAll)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 50))
	got := truncateRunes(strings.Repeat("é", 60), 50)
	assert.Len(t, []rune(got), 50)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, estimateTokens("   "))
	assert.Equal(t, 1, estimateTokens("hi"))
	assert.Equal(t, 3, estimateTokens("one  two   five"))
}
