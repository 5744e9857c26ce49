// Package recall is the read side: hybrid candidate retrieval (full-text over
// receipt quotes fused with in-process vector similarity), two-tier disclosure
// (a cheap preview index and on-demand full details), and the explain and
// changes views.
package recall

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tenetdb/tenet/pkg/embedder"
	"github.com/tenetdb/tenet/pkg/scope"
	"github.com/tenetdb/tenet/pkg/store"
	"github.com/tenetdb/tenet/pkg/types"
)

const (
	// DefaultLimit caps results when the caller does not set one.
	DefaultLimit = 10

	// candidateMultiplier oversizes the per-source candidate pools so fusion
	// has enough overlap to reorder before the final cap.
	candidateMultiplier = 3

	// previewRunes bounds the object preview in the index tier.
	previewRunes = 50

	lexicalWeight  = 1.0
	semanticWeight = 0.8
)

// Options scopes and sizes one recall call.
type Options struct {
	// Scope selects project, global, or all. Empty defaults to all.
	Scope types.Scope
	// Limit caps the result count. Zero means DefaultLimit.
	Limit int
}

func (o *Options) normalize() {
	if o.Scope == "" {
		o.Scope = types.ScopeAll
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
}

// Engine answers recall queries against the stores a scope manager owns.
type Engine struct {
	mgr    scope.Manager
	emb    embedder.Client
	logger *slog.Logger
}

// New creates a recall engine. emb may be nil to disable the semantic
// candidate source.
func New(mgr scope.Manager, emb embedder.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{mgr: mgr, emb: emb, logger: logger}
}

// scored pairs a hydrated result with its fusion score and the order its
// store was visited in. Project stores are visited first, so equal scores
// break toward project facts.
type scored struct {
	fact     *types.Fact
	receipts []*types.Provenance
	score    float64
	storeIdx int
	seen     int
}

// Query returns the best-matching active facts with their receipts. Per
// store, hydration is exactly two batched reads: one for the facts, one for
// all their receipts.
func (e *Engine) Query(ctx context.Context, query string, opts Options) ([]*types.FactWithReceipts, error) {
	opts.normalize()

	var results []scored
	storeIdx := 0
	err := e.mgr.Execute(ctx, opts.Scope, func(s *store.Store) error {
		idx := storeIdx
		storeIdx++

		ranked, err := e.candidates(ctx, s, query, opts.Limit*candidateMultiplier)
		if err != nil {
			return err
		}
		if len(ranked) == 0 {
			return nil
		}

		ids := make([]string, len(ranked))
		scoreByID := make(map[string]float64, len(ranked))
		for i, r := range ranked {
			ids[i] = r.id
			scoreByID[r.id] = r.score
		}

		facts, err := s.FactsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		active := facts[:0:0]
		factIDs := make([]string, 0, len(facts))
		for _, f := range facts {
			if f.Status != types.StatusActive {
				continue
			}
			active = append(active, f)
			factIDs = append(factIDs, f.ID)
		}

		receipts, err := s.ProvenanceByFactIDs(ctx, factIDs)
		if err != nil {
			return err
		}

		for _, f := range active {
			results = append(results, scored{
				fact:     f,
				receipts: receipts[f.ID],
				score:    scoreByID[f.ID],
				storeIdx: idx,
				seen:     len(results),
			})
		}
		return nil
	})
	if err != nil && len(results) == 0 {
		return nil, err
	}
	if err != nil {
		e.logger.Warn("recall degraded to partial results", "error", err)
	}

	sortScored(results)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	out := make([]*types.FactWithReceipts, len(results))
	for i, r := range results {
		out[i] = &types.FactWithReceipts{Fact: r.fact, Receipts: r.receipts}
	}
	return out, nil
}

// QueryIndex returns the preview tier: compact entries with a truncated
// object, a token estimate, and no receipts or temporal fields. One batched
// fact read per store, no provenance read at all.
func (e *Engine) QueryIndex(ctx context.Context, query string, opts Options) ([]*types.FactPreview, error) {
	opts.normalize()

	var results []scored
	storeIdx := 0
	err := e.mgr.Execute(ctx, opts.Scope, func(s *store.Store) error {
		idx := storeIdx
		storeIdx++

		ranked, err := e.candidates(ctx, s, query, opts.Limit*candidateMultiplier)
		if err != nil {
			return err
		}
		if len(ranked) == 0 {
			return nil
		}

		ids := make([]string, len(ranked))
		scoreByID := make(map[string]float64, len(ranked))
		for i, r := range ranked {
			ids[i] = r.id
			scoreByID[r.id] = r.score
		}

		facts, err := s.FactsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, f := range facts {
			if f.Status != types.StatusActive {
				continue
			}
			results = append(results, scored{
				fact:     f,
				score:    scoreByID[f.ID],
				storeIdx: idx,
				seen:     len(results),
			})
		}
		return nil
	})
	if err != nil && len(results) == 0 {
		return nil, err
	}
	if err != nil {
		e.logger.Warn("recall index degraded to partial results", "error", err)
	}

	sortScored(results)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	out := make([]*types.FactPreview, len(results))
	for i, r := range results {
		out[i] = makePreview(r.fact)
	}
	return out, nil
}

// QueryDetails hydrates full facts plus receipts for ids picked off the
// index tier. Ids that do not exist in any visited store are skipped.
func (e *Engine) QueryDetails(ctx context.Context, ids []string, sc types.Scope) ([]*types.FactWithReceipts, error) {
	if sc == "" {
		sc = types.ScopeAll
	}
	ids = dedupe(ids)

	found := make(map[string]*types.FactWithReceipts, len(ids))
	err := e.mgr.Execute(ctx, sc, func(s *store.Store) error {
		var missing []string
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			return nil
		}

		facts, err := s.FactsByIDs(ctx, missing)
		if err != nil {
			return err
		}
		factIDs := make([]string, len(facts))
		for i, f := range facts {
			factIDs[i] = f.ID
		}
		receipts, err := s.ProvenanceByFactIDs(ctx, factIDs)
		if err != nil {
			return err
		}
		for _, f := range facts {
			found[f.ID] = &types.FactWithReceipts{Fact: f, Receipts: receipts[f.ID]}
		}
		return nil
	})
	if err != nil && len(found) == 0 {
		return nil, err
	}

	out := make([]*types.FactWithReceipts, 0, len(found))
	for _, id := range ids {
		if fr, ok := found[id]; ok {
			out = append(out, fr)
		}
	}
	return out, nil
}

// Explain returns the full story of one fact: receipts, lineage in both
// directions, and conflicts. A missing id yields Present false, never nil.
func (e *Engine) Explain(ctx context.Context, factID string, sc types.Scope) (*types.Explanation, error) {
	if sc == "" {
		sc = types.ScopeAll
	}

	exp := &types.Explanation{Present: false}
	err := e.mgr.Execute(ctx, sc, func(s *store.Store) error {
		if exp.Present {
			return nil
		}
		f, ok, err := s.FactByID(ctx, factID)
		if err != nil || !ok {
			return err
		}

		receipts, err := s.ProvenanceByFactIDs(ctx, []string{factID})
		if err != nil {
			return err
		}
		supersedes, err := s.LinksFrom(ctx, factID, types.LinkSupersedes)
		if err != nil {
			return err
		}
		supersededBy, err := s.LinksTo(ctx, factID, types.LinkSupersedes)
		if err != nil {
			return err
		}
		conflicts, err := s.ConflictsFor(ctx, factID)
		if err != nil {
			return err
		}

		exp.Present = true
		exp.Fact = f
		exp.Receipts = receipts[factID]
		exp.Supersedes = supersedes
		exp.SupersededBy = supersededBy
		exp.Conflicts = conflicts
		return nil
	})
	if err != nil && !exp.Present {
		return nil, err
	}
	return exp, nil
}

// Changes returns facts created at or after since, oldest first, merged
// across the selected scopes.
func (e *Engine) Changes(ctx context.Context, since time.Time, limit int, sc types.Scope) ([]*types.Fact, error) {
	if sc == "" {
		sc = types.ScopeAll
	}
	if limit <= 0 {
		limit = 100
	}

	var all []*types.Fact
	err := e.mgr.Execute(ctx, sc, func(s *store.Store) error {
		facts, err := s.ChangesSince(ctx, since, limit)
		if err != nil {
			return err
		}
		all = append(all, facts...)
		return nil
	})
	if err != nil && len(all) == 0 {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// candidates produces the fused ranked candidate ids for one store: lexical
// matches over receipt quotes, plus vector similarity when an embedder is
// configured.
func (e *Engine) candidates(ctx context.Context, s *store.Store, query string, limit int) ([]scoredID, error) {
	matches, err := s.SearchQuotes(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	lexical := make([]string, 0, len(matches))
	for _, m := range matches {
		lexical = append(lexical, m.FactID)
	}
	lexical = dedupe(lexical)

	lists := []rankedList{{ids: lexical, weight: lexicalWeight}}

	if e.emb != nil {
		semantic, err := e.semanticCandidates(ctx, s, query, limit)
		if err != nil {
			e.logger.Warn("semantic candidates unavailable", "error", err)
		} else if len(semantic) > 0 {
			lists = append(lists, rankedList{ids: semantic, weight: semanticWeight})
		}
	}

	fused := fuse(lists...)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	return fused, nil
}

func (e *Engine) semanticCandidates(ctx context.Context, s *store.Store, query string, limit int) ([]string, error) {
	qv, err := e.emb.EmbedSingle(ctx, query)
	if err != nil {
		return nil, err
	}
	vectors, err := s.Embeddings(ctx)
	if err != nil {
		return nil, err
	}

	type sim struct {
		id    string
		score float64
	}
	sims := make([]sim, 0, len(vectors))
	for _, fv := range vectors {
		c := embedder.Cosine(qv, fv.Vector)
		if c <= 0 {
			continue
		}
		sims = append(sims, sim{id: fv.FactID, score: c})
	}
	sort.Slice(sims, func(i, j int) bool { return sims[i].score > sims[j].score })
	if len(sims) > limit {
		sims = sims[:limit]
	}

	ids := make([]string, len(sims))
	for i, s := range sims {
		ids[i] = s.id
	}
	return ids, nil
}

func sortScored(results []scored) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		if results[i].storeIdx != results[j].storeIdx {
			return results[i].storeIdx < results[j].storeIdx
		}
		return results[i].seen < results[j].seen
	})
}

func makePreview(f *types.Fact) *types.FactPreview {
	object := truncateRunes(f.Object(), previewRunes)
	return &types.FactPreview{
		ID:            f.ID,
		Subject:       f.SubjectName,
		Predicate:     f.Predicate,
		ObjectPreview: object,
		Status:        f.Status,
		Scope:         f.Scope,
		Confidence:    f.Confidence,
		TokenEstimate: estimateTokens(f.SubjectName + " " + f.Predicate + " " + object),
		Source:        f.Source,
	}
}

// truncateRunes bounds s to max runes, spending the last three on an
// ellipsis when it has to cut.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// estimateTokens approximates the token cost of surfacing text to a model:
// whitespace-normalized length over four, rounded up.
func estimateTokens(s string) int {
	n := len(strings.Join(strings.Fields(s), " "))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
