package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tenetdb/tenet/pkg/types"
)

// factColumns is the shared select list for fact hydration. The subject and
// object names come from joins and the evidence source from a correlated
// subquery, so a whole batch stays at one read.
const factColumns = `
	f.id, f.subject_entity_id, f.predicate,
	COALESCE(f.object_entity_id, ''), f.object_literal,
	f.polarity, f.valid_from, f.valid_to, f.status, f.confidence,
	f.scope, f.project_path, f.created_at,
	s.canonical_name,
	COALESCE(o.canonical_name, ''),
	COALESCE((
		SELECT ci.source FROM provenance p
		JOIN content_items ci ON ci.id = p.content_item_id
		WHERE p.fact_id = f.id
		ORDER BY p.id LIMIT 1
	), '')`

const factJoins = `
	FROM facts f
	JOIN entities s ON s.id = f.subject_entity_id
	LEFT JOIN entities o ON o.id = f.object_entity_id`

func scanFact(rows *sql.Rows) (*types.Fact, error) {
	f := &types.Fact{}
	var validFrom, createdAt int64
	var validTo sql.NullInt64
	err := rows.Scan(
		&f.ID, &f.SubjectEntityID, &f.Predicate,
		&f.ObjectEntityID, &f.ObjectLiteral,
		&f.Polarity, &validFrom, &validTo, &f.Status, &f.Confidence,
		&f.Scope, &f.ProjectPath, &createdAt,
		&f.SubjectName, &f.ObjectName, &f.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan fact: %w", err)
	}
	f.ValidFrom = fromNS(validFrom)
	f.ValidTo = fromNullNS(validTo)
	f.CreatedAt = fromNS(createdAt)
	return f, nil
}

// InsertFact writes a fact row. The caller is responsible for inserting at
// least one provenance row in the same transaction.
func (s *queries) InsertFact(ctx context.Context, f *types.Fact) error {
	var objectEntityID any
	if f.ObjectEntityID != "" {
		objectEntityID = f.ObjectEntityID
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO facts (
			id, subject_entity_id, predicate, object_entity_id, object_literal,
			polarity, valid_from, valid_to, status, confidence,
			scope, project_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.SubjectEntityID, f.Predicate, objectEntityID, f.ObjectLiteral,
		f.Polarity, toNS(f.ValidFrom), toNullNS(f.ValidTo), f.Status, f.Confidence,
		f.Scope, f.ProjectPath, toNS(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert fact: %w", err)
	}
	return nil
}

// SupersedeFact closes a fact: status becomes superseded and its validity
// interval ends at validTo.
func (s *queries) SupersedeFact(ctx context.Context, factID string, validTo time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE facts SET status = ?, valid_to = ? WHERE id = ?`,
		types.StatusSuperseded, toNS(validTo), factID)
	if err != nil {
		return fmt.Errorf("failed to supersede fact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to supersede fact %s: no such row", factID)
	}
	return nil
}

// MarkDisputed transitions a fact to the disputed terminal state.
func (s *queries) MarkDisputed(ctx context.Context, factID string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE facts SET status = ? WHERE id = ?`, types.StatusDisputed, factID)
	if err != nil {
		return fmt.Errorf("failed to mark fact disputed: %w", err)
	}
	return nil
}

// ActiveFacts returns the active facts occupying the (subject, predicate)
// slot, partitioned by this store's scope identity.
func (s *queries) ActiveFacts(ctx context.Context, subjectEntityID, predicate string) ([]*types.Fact, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+factColumns+factJoins+`
		WHERE f.subject_entity_id = ? AND f.predicate = ?
		  AND f.status = 'active' AND f.scope = ? AND f.project_path = ?
		ORDER BY f.created_at`,
		subjectEntityID, predicate, s.scope, s.projectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to query slot: %w", err)
	}
	defer rows.Close()

	var facts []*types.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// FactsByIDs fetches the given facts in one query, returned in the order of
// ids. Missing ids are silently skipped; callers that care about absence use
// FactByID.
func (s *queries) FactsByIDs(ctx context.Context, ids []string) ([]*types.Fact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := placeholders(ids)
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+factColumns+factJoins+` WHERE f.id IN (`+marks+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts by id: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*types.Fact, len(ids))
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		byID[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*types.Fact, 0, len(byID))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			ordered = append(ordered, f)
		}
	}
	return ordered, nil
}

// FactByID fetches one fact. The bool reports presence.
func (s *queries) FactByID(ctx context.Context, id string) (*types.Fact, bool, error) {
	facts, err := s.FactsByIDs(ctx, []string{id})
	if err != nil {
		return nil, false, err
	}
	if len(facts) == 0 {
		return nil, false, nil
	}
	return facts[0], true, nil
}

// ChangesSince returns facts created at or after since, oldest first.
func (s *queries) ChangesSince(ctx context.Context, since time.Time, limit int) ([]*types.Fact, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+factColumns+factJoins+`
		WHERE f.created_at >= ? AND f.scope = ? AND f.project_path = ?
		ORDER BY f.created_at
		LIMIT ?`,
		toNS(since), s.scope, s.projectPath, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	var facts []*types.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// AllFacts streams every fact row, oldest first. Used by export.
func (s *queries) AllFacts(ctx context.Context) ([]*types.Fact, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+factColumns+factJoins+` ORDER BY f.created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var facts []*types.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
