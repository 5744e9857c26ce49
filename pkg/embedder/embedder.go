// Package embedder provides the embedding client interface and a local,
// deterministic term-weighted implementation used for the semantic ranking
// signal. No external model service is involved.
package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Client generates vector embeddings for text.
type Client interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the number of dimensions in the embeddings.
	Dimensions() int
}

// DefaultDimensions is the vector width of the term-weighted embedder.
const DefaultDimensions = 256

// TermVector is a hashed term-frequency embedder: tokens are hashed into a
// fixed number of buckets with log-scaled weights, and the result is
// L2-normalized so cosine similarity is a dot product. It is deterministic
// and fully in-process.
type TermVector struct {
	dims int
}

// NewTermVector creates a TermVector embedder. dims <= 0 selects the default.
func NewTermVector(dims int) *TermVector {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &TermVector{dims: dims}
}

// Embed implements Client.
func (t *TermVector) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = t.embed(text)
	}
	return vectors, nil
}

// EmbedSingle implements Client.
func (t *TermVector) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.embed(text), nil
}

// Dimensions implements Client.
func (t *TermVector) Dimensions() int {
	return t.dims
}

func (t *TermVector) embed(text string) []float32 {
	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		counts[tok]++
	}

	vec := make([]float32, t.dims)
	for tok, n := range counts {
		h := fnv.New32a()
		h.Write([]byte(tok))
		idx := int(h.Sum32()) % t.dims
		if idx < 0 {
			idx += t.dims
		}
		vec[idx] += float32(1 + math.Log(float64(n)))
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Cosine computes cosine similarity between two vectors. Mismatched lengths
// and zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
