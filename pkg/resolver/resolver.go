// Package resolver is the truth-maintenance core. It consumes an extraction
// (proposed entities and facts) and decides, per (subject, predicate) slot,
// between four outcomes: equivalence (attach provenance only), accumulation
// (additional fact on a multi-valued slot), supersession (replace the active
// fact under an explicit signal), or conflict (record the contradiction and
// keep the incumbent).
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tenetdb/tenet/pkg/embedder"
	"github.com/tenetdb/tenet/pkg/policy"
	"github.com/tenetdb/tenet/pkg/scope"
	"github.com/tenetdb/tenet/pkg/store"
	"github.com/tenetdb/tenet/pkg/types"
)

// Options carries the ingestion context for one resolution call.
type Options struct {
	// ContentItemID is the evidence chunk every new provenance row points
	// at. Required.
	ContentItemID string
	// OccurredAt anchors valid_from of new facts and valid_to of superseded
	// ones. Zero means now.
	OccurredAt time.Time
	// Scope selects the target store. Only project and global are writable.
	Scope types.Scope
	// ProjectPath is required when Scope is project.
	ProjectPath string
}

// Resolver applies extractions to a store under the predicate policy table.
type Resolver struct {
	policies *policy.Table
	embedder embedder.Client
	logger   *slog.Logger
}

// New creates a resolver. embedderClient may be nil to skip semantic
// indexing of new facts.
func New(policies *policy.Table, embedderClient embedder.Client, logger *slog.Logger) *Resolver {
	if policies == nil {
		policies = policy.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{policies: policies, embedder: embedderClient, logger: logger}
}

// resolveContext is the immutable per-call state threaded through the
// private helpers. Nothing request-scoped lives on the Resolver itself.
type resolveContext struct {
	tx         *store.Tx
	policies   *policy.Table
	emb        embedder.Client
	opts       Options
	occurredAt time.Time
	// entities caches (type|slug) -> entity for the duration of one call so
	// a batch never creates duplicate rows for the same name.
	entities map[string]*types.Entity
	result   *types.ApplyResult
}

// Apply runs the full decision procedure for every proposed fact in the
// extraction, atomically: either all mutations commit or none do. Malformed
// entries abort the whole call with a validation error before any write.
func (r *Resolver) Apply(ctx context.Context, mgr scope.Manager, ex *types.Extraction, opts Options) (*types.ApplyResult, error) {
	if ex == nil {
		return nil, &types.ValidationError{Field: "extraction", Reason: "is nil"}
	}
	if opts.Scope == "" {
		opts.Scope = types.ScopeProject
	}
	if opts.Scope != types.ScopeProject && opts.Scope != types.ScopeGlobal {
		return nil, &types.ValidationError{Field: "scope", Reason: fmt.Sprintf("%q is not writable", opts.Scope)}
	}
	if opts.Scope == types.ScopeProject && opts.ProjectPath == "" {
		return nil, &types.ValidationError{Field: "project_path", Reason: "is required for project scope"}
	}
	if opts.Scope == types.ScopeGlobal && opts.ProjectPath != "" {
		return nil, &types.ValidationError{Field: "project_path", Reason: "must be empty for global scope"}
	}
	if opts.ContentItemID == "" {
		return nil, &types.ValidationError{Field: "content_item_id", Reason: "is required"}
	}
	for i := range ex.Facts {
		if err := ex.Facts[i].Validate(); err != nil {
			return nil, err
		}
	}

	if opts.OccurredAt.IsZero() {
		opts.OccurredAt = time.Now().UTC()
	}

	target, err := mgr.Store(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	result := &types.ApplyResult{}
	err = target.WithTx(ctx, func(tx *store.Tx) error {
		rc := &resolveContext{
			tx:         tx,
			policies:   r.policies,
			emb:        r.embedder,
			opts:       opts,
			occurredAt: opts.OccurredAt,
			entities:   make(map[string]*types.Entity),
			result:     result,
		}

		for i := range ex.Entities {
			pe := &ex.Entities[i]
			entity, err := rc.resolveEntity(ctx, pe.Type, pe.Name)
			if err != nil {
				return err
			}
			for _, alias := range pe.Aliases {
				if err := tx.InsertAlias(ctx, entity.ID, alias, 0.8); err != nil {
					return err
				}
			}
		}

		for i := range ex.Facts {
			if err := rc.resolveFact(ctx, &ex.Facts[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("extraction applied",
		"scope", opts.Scope,
		"facts_created", result.FactsCreated,
		"facts_superseded", result.FactsSuperseded,
		"conflicts_created", result.ConflictsCreated,
		"provenance_created", result.ProvenanceCreated)
	return result, nil
}

// resolveEntity resolves a (type, name) to an entity, consulting the batch
// cache first.
func (rc *resolveContext) resolveEntity(ctx context.Context, entityType, name string) (*types.Entity, error) {
	if entityType == "" {
		entityType = "thing"
	}
	key := entityType + "|" + types.Slugify(name)
	if e, ok := rc.entities[key]; ok {
		return e, nil
	}
	e, created, err := rc.tx.FindOrCreateEntity(ctx, entityType, name)
	if err != nil {
		return nil, err
	}
	if created {
		rc.result.EntitiesCreated++
	}
	rc.entities[key] = e
	return e, nil
}

// resolveFact runs the per-fact decision procedure.
func (rc *resolveContext) resolveFact(ctx context.Context, pf *types.ProposedFact) error {
	subject, err := rc.resolveEntity(ctx, pf.SubjectType, pf.Subject)
	if err != nil {
		return err
	}

	var objectEntity *types.Entity
	if pf.ObjectType != "" {
		if objectEntity, err = rc.resolveEntity(ctx, pf.ObjectType, pf.Object); err != nil {
			return err
		}
	}

	pol := rc.policies.PolicyFor(pf.Predicate)

	active, err := rc.tx.ActiveFacts(ctx, subject.ID, pf.Predicate)
	if err != nil {
		return err
	}

	// Equivalence: same object already believed, regardless of cardinality.
	// The new evidence becomes another receipt on the existing fact.
	for _, existing := range active {
		if existing.ObjectMatches(pf.Object) {
			return rc.attachProvenance(ctx, existing.ID, pf)
		}
	}

	// Empty slot, or an accumulating slot with a genuinely new object.
	if len(active) == 0 || pol.Cardinality == policy.Multi {
		return rc.insertFact(ctx, subject, objectEntity, pf)
	}

	// Single-valued slot with a differing object.
	incumbent := active[0]
	if pf.Supersession {
		created, err := rc.insertFactRow(ctx, subject, objectEntity, pf)
		if err != nil {
			return err
		}
		if err := rc.tx.SupersedeFact(ctx, incumbent.ID, rc.occurredAt); err != nil {
			return err
		}
		link := &types.FactLink{
			ID:         uuid.NewString(),
			FromFactID: created.ID,
			ToFactID:   incumbent.ID,
			LinkType:   types.LinkSupersedes,
		}
		if err := rc.tx.InsertFactLink(ctx, link); err != nil {
			return err
		}
		rc.result.FactsSuperseded++
		return nil
	}

	// Contradiction without a supersession signal: record the conflict, keep
	// the incumbent, persist no new fact row. The losing claim survives only
	// in the conflict notes.
	notes, _ := json.Marshal(map[string]string{
		"predicate":       pf.Predicate,
		"proposed_object": pf.Object,
		"quote":           pf.Quote,
		"strength":        string(strengthOrDefault(pf.Strength)),
	})
	conflict := &types.Conflict{
		ID:         uuid.NewString(),
		FactAID:    incumbent.ID,
		Status:     types.ConflictOpen,
		DetectedAt: rc.occurredAt,
		Notes:      string(notes),
	}
	if err := rc.tx.InsertConflict(ctx, conflict); err != nil {
		return err
	}
	rc.result.ConflictsCreated++
	return nil
}

// insertFact writes a new active fact plus its receipt and counts it.
func (rc *resolveContext) insertFact(ctx context.Context, subject, objectEntity *types.Entity, pf *types.ProposedFact) error {
	_, err := rc.insertFactRow(ctx, subject, objectEntity, pf)
	return err
}

func (rc *resolveContext) insertFactRow(ctx context.Context, subject, objectEntity *types.Entity, pf *types.ProposedFact) (*types.Fact, error) {
	f := &types.Fact{
		ID:              uuid.NewString(),
		SubjectEntityID: subject.ID,
		Predicate:       pf.Predicate,
		Polarity:        polarityOrDefault(pf.Polarity),
		ValidFrom:       rc.occurredAt,
		Status:          types.StatusActive,
		Confidence:      confidenceOrDefault(pf.Confidence),
		Scope:           rc.opts.Scope,
		ProjectPath:     rc.opts.ProjectPath,
		CreatedAt:       time.Now().UTC(),
	}
	if objectEntity != nil {
		f.ObjectEntityID = objectEntity.ID
	} else {
		f.ObjectLiteral = pf.Object
	}

	if err := rc.tx.InsertFact(ctx, f); err != nil {
		return nil, err
	}
	rc.result.FactsCreated++

	if err := rc.attachProvenance(ctx, f.ID, pf); err != nil {
		return nil, err
	}

	if rc.emb != nil {
		text := pf.Quote
		if text == "" {
			text = pf.Subject + " " + pf.Predicate + " " + pf.Object
		}
		vec, err := rc.emb.EmbedSingle(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed evidence: %w", err)
		}
		if err := rc.tx.UpsertEmbedding(ctx, f.ID, vec); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// attachProvenance adds a receipt to an existing fact and counts it.
func (rc *resolveContext) attachProvenance(ctx context.Context, factID string, pf *types.ProposedFact) error {
	quote := pf.Quote
	if quote == "" {
		quote = pf.Subject + " " + pf.Predicate + " " + pf.Object
	}
	p := &types.Provenance{
		ID:            uuid.NewString(),
		FactID:        factID,
		ContentItemID: rc.opts.ContentItemID,
		Quote:         quote,
		Strength:      strengthOrDefault(pf.Strength),
		Attribution:   pf.Attribution,
	}
	if err := rc.tx.InsertProvenance(ctx, p); err != nil {
		return err
	}
	rc.result.ProvenanceCreated++
	return nil
}

func polarityOrDefault(p types.Polarity) types.Polarity {
	if p == "" {
		return types.PolarityPositive
	}
	return p
}

func strengthOrDefault(s types.Strength) types.Strength {
	if s == "" {
		return types.StrengthStated
	}
	return s
}

func confidenceOrDefault(c float64) float64 {
	if c <= 0 || c > 1 {
		return 1.0
	}
	return c
}
