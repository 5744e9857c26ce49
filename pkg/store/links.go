package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tenetdb/tenet/pkg/types"
)

// InsertFactLink records a lineage edge between two facts.
func (s *queries) InsertFactLink(ctx context.Context, l *types.FactLink) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO fact_links (id, from_fact_id, to_fact_id, link_type)
		VALUES (?, ?, ?, ?)`,
		l.ID, l.FromFactID, l.ToFactID, l.LinkType)
	if err != nil {
		return fmt.Errorf("failed to insert fact link: %w", err)
	}
	return nil
}

// LinksFrom returns the ids of facts this fact links to (e.g. the facts it
// supersedes).
func (s *queries) LinksFrom(ctx context.Context, factID string, linkType types.LinkType) ([]string, error) {
	return s.linkEndpoints(ctx, `
		SELECT to_fact_id FROM fact_links
		WHERE from_fact_id = ? AND link_type = ? ORDER BY id`, factID, linkType)
}

// LinksTo returns the ids of facts linking to this fact (e.g. its
// replacement).
func (s *queries) LinksTo(ctx context.Context, factID string, linkType types.LinkType) ([]string, error) {
	return s.linkEndpoints(ctx, `
		SELECT from_fact_id FROM fact_links
		WHERE to_fact_id = ? AND link_type = ? ORDER BY id`, factID, linkType)
}

func (s *queries) linkEndpoints(ctx context.Context, query, factID string, linkType types.LinkType) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, factID, linkType)
	if err != nil {
		return nil, fmt.Errorf("failed to query fact links: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fact link: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertConflict records a contradiction. FactBID may be empty when the
// losing claim has no fact row.
func (s *queries) InsertConflict(ctx context.Context, c *types.Conflict) error {
	var factB any
	if c.FactBID != "" {
		factB = c.FactBID
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO conflicts (id, fact_a_id, fact_b_id, status, detected_at, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.FactAID, factB, c.Status, toNS(c.DetectedAt), c.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert conflict: %w", err)
	}
	return nil
}

// ConflictsFor returns the conflicts referencing a fact on either side.
func (s *queries) ConflictsFor(ctx context.Context, factID string) ([]*types.Conflict, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, fact_a_id, COALESCE(fact_b_id, ''), status, detected_at, notes
		FROM conflicts
		WHERE fact_a_id = ? OR fact_b_id = ?
		ORDER BY detected_at`, factID, factID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*types.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// OpenConflicts returns all unresolved conflicts, oldest first.
func (s *queries) OpenConflicts(ctx context.Context, limit int) ([]*types.Conflict, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, fact_a_id, COALESCE(fact_b_id, ''), status, detected_at, notes
		FROM conflicts WHERE status = 'open'
		ORDER BY detected_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query open conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*types.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// ResolveConflict marks a conflict resolved. Operator action only; the
// resolver never calls this.
func (s *queries) ResolveConflict(ctx context.Context, conflictID, notes string) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE conflicts SET status = 'resolved', notes = CASE WHEN ? = '' THEN notes ELSE ? END
		WHERE id = ?`, notes, notes, conflictID)
	if err != nil {
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to resolve conflict %s: no such row", conflictID)
	}
	return nil
}

func scanConflict(rows *sql.Rows) (*types.Conflict, error) {
	c := &types.Conflict{}
	var detectedAt int64
	if err := rows.Scan(&c.ID, &c.FactAID, &c.FactBID, &c.Status, &detectedAt, &c.Notes); err != nil {
		return nil, fmt.Errorf("failed to scan conflict: %w", err)
	}
	c.DetectedAt = fromNS(detectedAt)
	return c, nil
}
