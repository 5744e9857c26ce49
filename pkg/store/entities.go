package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tenetdb/tenet/pkg/types"
)

// FindEntity looks up an entity by (type, slug). The bool reports presence.
func (s *queries) FindEntity(ctx context.Context, entityType, slug string) (*types.Entity, bool, error) {
	e := &types.Entity{}
	var createdAt int64
	err := s.q.QueryRowContext(ctx, `
		SELECT id, type, canonical_name, slug, created_at
		FROM entities WHERE type = ? AND slug = ?`,
		entityType, slug).Scan(&e.ID, &e.Type, &e.CanonicalName, &e.Slug, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find entity: %w", err)
	}
	e.CreatedAt = fromNS(createdAt)
	return e, true, nil
}

// FindOrCreateEntity resolves a (type, name) pair to an entity, creating it
// when absent. The bool reports whether a row was created.
func (s *queries) FindOrCreateEntity(ctx context.Context, entityType, name string) (*types.Entity, bool, error) {
	slug := types.Slugify(name)
	if slug == "" {
		return nil, false, &types.ValidationError{Field: "entity name", Reason: "is empty"}
	}

	if e, ok, err := s.FindEntity(ctx, entityType, slug); err != nil || ok {
		return e, false, err
	}

	e := &types.Entity{
		ID:            uuid.NewString(),
		Type:          entityType,
		CanonicalName: name,
		Slug:          slug,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO entities (id, type, canonical_name, slug, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.CanonicalName, e.Slug, toNS(e.CreatedAt))
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert entity: %w", err)
	}
	return e, true, nil
}

// InsertAlias attaches an alias to an entity. Duplicate aliases are ignored.
func (s *queries) InsertAlias(ctx context.Context, entityID, alias string, confidence float64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO entity_aliases (id, entity_id, alias, confidence)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity_id, alias) DO NOTHING`,
		uuid.NewString(), entityID, alias, confidence)
	if err != nil {
		return fmt.Errorf("failed to insert alias: %w", err)
	}
	return nil
}

// Aliases returns the aliases recorded for an entity.
func (s *queries) Aliases(ctx context.Context, entityID string) ([]*types.EntityAlias, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, entity_id, alias, confidence
		FROM entity_aliases WHERE entity_id = ? ORDER BY alias`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()

	var aliases []*types.EntityAlias
	for rows.Next() {
		a := &types.EntityAlias{}
		if err := rows.Scan(&a.ID, &a.EntityID, &a.Alias, &a.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}
