package distill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenetdb/tenet/pkg/types"
)

func distillOne(t *testing.T, text string) *types.ProposedFact {
	t.Helper()
	ex, err := NewHeuristic("demo", "").Distill(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, ex.Facts, 1, "text: %s", text)
	return &ex.Facts[0]
}

func TestHeuristicPatterns(t *testing.T) {
	cases := []struct {
		text      string
		predicate string
		object    string
	}{
		{"We use PostgreSQL as the database.", "uses_database", "PostgreSQL"},
		{"The database is mysql.", "uses_database", "mysql"},
		{"This service is written in Go.", "primary_language", "Go"},
		{"The default branch is main.", "default_branch", "main"},
		{"We deploy on fly.io every friday.", "deployed_on", "fly.io"},
		{"The package manager is pnpm.", "package_manager", "pnpm"},
		{"The code is licensed under MIT.", "license", "MIT"},
		{"We test with pytest.", "test_framework", "pytest"},
		{"I prefer tabs over spaces.", "prefers", "tabs"},
		{"We avoid ORMs in this codebase.", "avoids", "ORMs"},
		{"We use make for the build tool.", "build_tool", "make"},
		{"We use terraform.", "uses_tool", "terraform"},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			pf := distillOne(t, tc.text)
			assert.Equal(t, tc.predicate, pf.Predicate)
			assert.Equal(t, tc.object, pf.Object)
			assert.Equal(t, "demo", pf.Subject)
			assert.Equal(t, "project", pf.SubjectType)
			assert.Equal(t, types.PolarityPositive, pf.Polarity)
			assert.Equal(t, types.StrengthStated, pf.Strength)
			assert.Equal(t, HeuristicConfidence, pf.Confidence)
			assert.NotEmpty(t, pf.Quote)
		})
	}
}

func TestHeuristicNegativePolarity(t *testing.T) {
	pf := distillOne(t, "We no longer use jenkins.")
	assert.Equal(t, "uses_tool", pf.Predicate)
	assert.Equal(t, "jenkins", pf.Object)
	assert.Equal(t, types.PolarityNegative, pf.Polarity)
	assert.True(t, pf.Supersession)
}

func TestHeuristicSupersessionSignal(t *testing.T) {
	ex, err := NewHeuristic("demo", "").Distill(context.Background(),
		"We switched from mysql to postgresql for the database.")
	require.NoError(t, err)
	require.Len(t, ex.Facts, 1)

	pf := ex.Facts[0]
	assert.Equal(t, "uses_database", pf.Predicate)
	assert.Equal(t, "postgresql", pf.Object)
	assert.True(t, pf.Supersession)
	assert.Contains(t, ex.Signals, "switched from")
}

func TestHeuristicPlainAssertionCarriesNoSignal(t *testing.T) {
	pf := distillOne(t, "We use PostgreSQL as the database.")
	assert.False(t, pf.Supersession)
}

func TestHeuristicDeduplicates(t *testing.T) {
	ex, err := NewHeuristic("demo", "").Distill(context.Background(),
		"We use terraform. Later that day: we use Terraform.")
	require.NoError(t, err)
	assert.Len(t, ex.Facts, 1)
}

func TestHeuristicMultipleSentences(t *testing.T) {
	ex, err := NewHeuristic("demo", "").Distill(context.Background(),
		"We use PostgreSQL as the database.\nThe default branch is main.\nWhat should we eat for lunch?")
	require.NoError(t, err)
	require.Len(t, ex.Facts, 2)

	predicates := []string{ex.Facts[0].Predicate, ex.Facts[1].Predicate}
	assert.Contains(t, predicates, "uses_database")
	assert.Contains(t, predicates, "default_branch")
}

func TestHeuristicIgnoresChatter(t *testing.T) {
	ex, err := NewHeuristic("demo", "").Distill(context.Background(),
		"Can you fix the failing test? The error message is confusing.")
	require.NoError(t, err)
	assert.Empty(t, ex.Facts)
}

func TestHasSupersessionSignal(t *testing.T) {
	assert.True(t, HasSupersessionSignal("we Switched To pnpm last week"))
	assert.True(t, HasSupersessionSignal("jenkins is no longer in use"))
	assert.False(t, HasSupersessionSignal("we use pnpm"))
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two!  \nThree?\n\n")
	assert.Equal(t, []string{"One", "Two", "Three"}, got)
	assert.Empty(t, splitSentences("  \n "))
}
