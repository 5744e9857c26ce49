package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/tenetdb/tenet/pkg/types"
)

// InsertProvenance writes a receipt and indexes its quote for full-text
// search in the same statement batch.
func (s *queries) InsertProvenance(ctx context.Context, p *types.Provenance) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO provenance (id, fact_id, content_item_id, quote, strength, attribution)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.FactID, p.ContentItemID, p.Quote, p.Strength, p.Attribution)
	if err != nil {
		return fmt.Errorf("failed to insert provenance: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO provenance_fts (quote, attribution, provenance_id, fact_id)
		VALUES (?, ?, ?, ?)`,
		p.Quote, p.Attribution, p.ID, p.FactID)
	if err != nil {
		return fmt.Errorf("failed to index provenance: %w", err)
	}
	return nil
}

// ProvenanceByFactIDs fetches all receipts for the given facts in one query,
// grouped by fact id.
func (s *queries) ProvenanceByFactIDs(ctx context.Context, factIDs []string) (map[string][]*types.Provenance, error) {
	if len(factIDs) == 0 {
		return map[string][]*types.Provenance{}, nil
	}
	marks, args := placeholders(factIDs)
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, fact_id, content_item_id, quote, strength, attribution
		FROM provenance WHERE fact_id IN (`+marks+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query provenance: %w", err)
	}
	defer rows.Close()

	byFact := make(map[string][]*types.Provenance, len(factIDs))
	for rows.Next() {
		p := &types.Provenance{}
		if err := rows.Scan(&p.ID, &p.FactID, &p.ContentItemID, &p.Quote, &p.Strength, &p.Attribution); err != nil {
			return nil, fmt.Errorf("failed to scan provenance: %w", err)
		}
		byFact[p.FactID] = append(byFact[p.FactID], p)
	}
	return byFact, rows.Err()
}

// QuoteMatch is one full-text hit mapped to its fact.
type QuoteMatch struct {
	FactID       string
	ProvenanceID string
	Rank         float64
}

// SearchQuotes runs full-text search over receipt quotes and returns matches
// in relevance order (best first).
func (s *queries) SearchQuotes(ctx context.Context, query string, limit int) ([]QuoteMatch, error) {
	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT fact_id, provenance_id, bm25(provenance_fts)
		FROM provenance_fts
		WHERE provenance_fts MATCH ?
		ORDER BY bm25(provenance_fts)
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search quotes: %w", err)
	}
	defer rows.Close()

	var matches []QuoteMatch
	for rows.Next() {
		var m QuoteMatch
		if err := rows.Scan(&m.FactID, &m.ProvenanceID, &m.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan quote match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// buildMatchQuery turns free text into an FTS5 query: each token quoted and
// OR-joined, so user input can never break the match syntax.
func buildMatchQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " OR ")
}
