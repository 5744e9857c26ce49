package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tenetdb/tenet/pkg/types"
)

// InsertContentItem writes an evidence chunk. Content items are immutable:
// there is deliberately no update path.
func (s *queries) InsertContentItem(ctx context.Context, ci *types.ContentItem) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO content_items (id, source, session_id, project_path, text_hash, byte_len, occurred_at, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ci.ID, ci.Source, ci.SessionID, ci.ProjectPath, ci.TextHash, ci.ByteLen,
		toNS(ci.OccurredAt), toNS(ci.IngestedAt))
	if err != nil {
		return fmt.Errorf("failed to insert content item: %w", err)
	}
	return nil
}

// ContentItemByID fetches an evidence chunk. The bool reports presence.
func (s *queries) ContentItemByID(ctx context.Context, id string) (*types.ContentItem, bool, error) {
	ci := &types.ContentItem{}
	var occurredAt, ingestedAt int64
	err := s.q.QueryRowContext(ctx, `
		SELECT id, source, session_id, project_path, text_hash, byte_len, occurred_at, ingested_at
		FROM content_items WHERE id = ?`, id).Scan(
		&ci.ID, &ci.Source, &ci.SessionID, &ci.ProjectPath, &ci.TextHash, &ci.ByteLen,
		&occurredAt, &ingestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query content item: %w", err)
	}
	ci.OccurredAt = fromNS(occurredAt)
	ci.IngestedAt = fromNS(ingestedAt)
	return ci, true, nil
}

// HasContentHash reports whether an evidence chunk with this hash was already
// ingested. Used to skip re-ingestion of unchanged transcript windows.
func (s *queries) HasContentHash(ctx context.Context, textHash string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_items WHERE text_hash = ?`, textHash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check content hash: %w", err)
	}
	return n > 0, nil
}
