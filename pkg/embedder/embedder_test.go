package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermVectorDeterministic(t *testing.T) {
	emb := NewTermVector(64)
	ctx := context.Background()

	a, err := emb.EmbedSingle(ctx, "we use postgresql for storage")
	require.NoError(t, err)
	b, err := emb.EmbedSingle(ctx, "we use postgresql for storage")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestTermVectorNormalized(t *testing.T) {
	emb := NewTermVector(0)
	require.Equal(t, DefaultDimensions, emb.Dimensions())

	vec, err := emb.EmbedSingle(context.Background(), "hello world hello")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestCosineRanksRelatedTextHigher(t *testing.T) {
	emb := NewTermVector(256)
	ctx := context.Background()

	query, err := emb.EmbedSingle(ctx, "which database does the project use")
	require.NoError(t, err)
	related, err := emb.EmbedSingle(ctx, "the project switched its database to postgresql")
	require.NoError(t, err)
	unrelated, err := emb.EmbedSingle(ctx, "lunch options near the office")
	require.NoError(t, err)

	assert.Greater(t, Cosine(query, related), Cosine(query, unrelated))
}

func TestCosineEdgeCases(t *testing.T) {
	assert.Zero(t, Cosine([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
}

func TestEmbedBatch(t *testing.T) {
	emb := NewTermVector(32)
	vecs, err := emb.Embed(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
}
