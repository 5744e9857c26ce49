package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tenetdb/tenet/pkg/types"
)

// Maintenance primitives. These are called by the sweeper under a time
// budget; each is a single bounded statement so the sweeper can stop between
// steps.

// PruneOrphanProvenance deletes receipts whose fact no longer exists, along
// with their full-text index rows. Orphans only appear after manual surgery
// or a historic bug; they are never tolerated silently at query time.
func (s *Store) PruneOrphanProvenance(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM provenance
		WHERE fact_id NOT IN (SELECT id FROM facts)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prune orphaned provenance: %w", err)
	}
	n, _ := res.RowsAffected()

	_, err = s.q.ExecContext(ctx, `
		DELETE FROM provenance_fts
		WHERE provenance_id NOT IN (SELECT id FROM provenance)`)
	if err != nil {
		return n, fmt.Errorf("failed to prune provenance index: %w", err)
	}
	return n, nil
}

// ExpireStaleProposed marks proposed facts older than ttl as disputed so
// they stop being candidates for confirmation.
func (s *Store) ExpireStaleProposed(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	res, err := s.q.ExecContext(ctx, `
		UPDATE facts SET status = ?
		WHERE status = ? AND created_at < ?`,
		types.StatusDisputed, types.StatusProposed, toNS(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to expire proposed facts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteUnreferencedContent removes content items older than ttl that no
// provenance row references.
func (s *Store) DeleteUnreferencedContent(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM content_items
		WHERE ingested_at < ?
		  AND id NOT IN (SELECT content_item_id FROM provenance)`,
		toNS(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete unreferenced content: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
