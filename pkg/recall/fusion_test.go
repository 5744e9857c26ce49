package recall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFusePrefersMultiSourceCandidates(t *testing.T) {
	fused := fuse(
		rankedList{ids: []string{"a", "b", "c"}, weight: lexicalWeight},
		rankedList{ids: []string{"b", "d"}, weight: semanticWeight},
	)
	require.NotEmpty(t, fused)

	// b appears in both rankings and outscores the single-list leader a.
	assert.Equal(t, "b", fused[0].id)
	assert.Equal(t, "a", fused[1].id)
}

func TestFuseTieBreaksOnFirstSeen(t *testing.T) {
	fused := fuse(rankedList{ids: []string{"x"}, weight: 1.0},
		rankedList{ids: []string{"y"}, weight: 1.0})
	require.Len(t, fused, 2)

	// Same rank in equally weighted lists gives equal scores; the
	// earlier-seen id wins.
	assert.Equal(t, "x", fused[0].id)
}

func TestFuseEmpty(t *testing.T) {
	assert.Empty(t, fuse())
	assert.Empty(t, fuse(rankedList{weight: 1.0}))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupe([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, dedupe(nil))
}
