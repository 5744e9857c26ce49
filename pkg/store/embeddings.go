package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// FactVector pairs a fact id with its stored evidence embedding.
type FactVector struct {
	FactID string
	Vector []float32
}

// UpsertEmbedding stores the evidence embedding for a fact.
func (s *queries) UpsertEmbedding(ctx context.Context, factID string, vector []float32) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO fact_embeddings (fact_id, dims, vector)
		VALUES (?, ?, ?)
		ON CONFLICT (fact_id) DO UPDATE SET dims = excluded.dims, vector = excluded.vector`,
		factID, len(vector), encodeVector(vector))
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// Embeddings loads all stored fact vectors for in-process similarity search.
func (s *queries) Embeddings(ctx context.Context) ([]FactVector, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT fact_id, dims, vector FROM fact_embeddings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var vectors []FactVector
	for rows.Next() {
		var fv FactVector
		var dims int
		var blob []byte
		if err := rows.Scan(&fv.FactID, &dims, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		fv.Vector = decodeVector(blob, dims)
		vectors = append(vectors, fv)
	}
	return vectors, rows.Err()
}

// encodeVector packs float32s little-endian, the layout sqlite vector
// extensions use as well.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte, dims int) []float32 {
	if dims <= 0 || len(blob) < 4*dims {
		dims = len(blob) / 4
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v
}
