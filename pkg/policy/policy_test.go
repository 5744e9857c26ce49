package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := Default()

	t.Run("exclusive single-valued predicates", func(t *testing.T) {
		for _, pred := range []string{"uses_database", "primary_language", "default_branch"} {
			p := table.PolicyFor(pred)
			assert.Equal(t, Single, p.Cardinality, pred)
			assert.True(t, p.Exclusive, pred)
		}
	})

	t.Run("accumulating predicates", func(t *testing.T) {
		for _, pred := range []string{"uses_library", "prefers", "convention"} {
			p := table.PolicyFor(pred)
			assert.Equal(t, Multi, p.Cardinality, pred)
			assert.False(t, p.Exclusive, pred)
		}
	})

	t.Run("unknown predicates default to permissive", func(t *testing.T) {
		p := table.PolicyFor("never_seen_before")
		assert.Equal(t, Multi, p.Cardinality)
		assert.False(t, p.Exclusive)
	})
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
uses_tool:
  cardinality: single
  exclusive: true
favorite_editor:
  cardinality: single
  exclusive: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := Load(path)
	require.NoError(t, err)

	// Override changes a built-in.
	assert.True(t, table.Single("uses_tool"))
	assert.True(t, table.Exclusive("uses_tool"))

	// New predicates extend the table.
	assert.True(t, table.Single("favorite_editor"))

	// Untouched built-ins survive.
	assert.True(t, table.Single("uses_database"))
	assert.False(t, table.Single("uses_library"))
}

func TestLoadRejectsBadCardinality(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x:\n  cardinality: both\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cardinality")
}
