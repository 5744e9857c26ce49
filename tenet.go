package tenet

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tenetdb/tenet/pkg/config"
	"github.com/tenetdb/tenet/pkg/distill"
	"github.com/tenetdb/tenet/pkg/embedder"
	"github.com/tenetdb/tenet/pkg/ingest"
	"github.com/tenetdb/tenet/pkg/maintenance"
	"github.com/tenetdb/tenet/pkg/policy"
	"github.com/tenetdb/tenet/pkg/recall"
	"github.com/tenetdb/tenet/pkg/resolver"
	"github.com/tenetdb/tenet/pkg/scope"
	"github.com/tenetdb/tenet/pkg/store"
	"github.com/tenetdb/tenet/pkg/telemetry"
	"github.com/tenetdb/tenet/pkg/types"
)

// Config holds construction options for the client. Zero values get sensible
// defaults; only ProjectPath is commonly set.
type Config struct {
	// ProjectPath keys the project-scoped store. Empty disables project
	// scope; only the global store is reachable.
	ProjectPath string

	// BaseDir is the root for all databases. Defaults to ~/.tenet via the
	// config package when constructed from config.
	BaseDir string

	// GlobalDBPath overrides the global store location.
	GlobalDBPath string

	// PolicyPath points at an optional predicate policy override file.
	PolicyPath string

	// Distiller extracts claims from raw text. Defaults to the heuristic
	// distiller keyed by the project directory name.
	Distiller distill.Distiller

	// EmbeddingDims sizes the term-vector embedder. Zero means the default;
	// negative disables semantic ranking entirely.
	EmbeddingDims int

	// CursorDir holds ingestion cursors. Empty disables incremental
	// transcript reads.
	CursorDir string

	Logger *slog.Logger
}

// Client is the embedded entry point: it owns the scope manager and wires the
// resolver, recall engine, ingester and sweeper together.
type Client struct {
	cfg      Config
	mgr      scope.Manager
	policies *policy.Table
	emb      embedder.Client
	resolver *resolver.Resolver
	recall   *recall.Engine
	ingester *ingest.Ingester
	sweeper  *maintenance.Sweeper
	cursors  *ingest.CursorStore
	logger   *slog.Logger
}

// RememberOptions scopes one remember call.
type RememberOptions struct {
	SessionID string
	// Scope is project or global. Empty defaults to project when a project
	// path is configured, global otherwise.
	Scope  types.Scope
	Source string
}

// NewClient creates a client over the project and global stores.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = defaultBaseDir()
	}

	policies, err := loadPolicies(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}

	var emb embedder.Client
	if cfg.EmbeddingDims >= 0 {
		dims := cfg.EmbeddingDims
		if dims == 0 {
			dims = embedder.DefaultDimensions
		}
		emb = embedder.NewTermVector(dims)
	}

	mgr := scope.NewDualManager(cfg.ProjectPath, storeOpener(cfg, logger))

	var cursors *ingest.CursorStore
	if cfg.CursorDir != "" {
		if cursors, err = ingest.OpenCursorStore(cfg.CursorDir); err != nil {
			return nil, err
		}
	}

	dist := cfg.Distiller
	if dist == nil {
		dist = distill.NewHeuristic(defaultSubject(cfg.ProjectPath), "project")
	}

	res := resolver.New(policies, emb, logger)
	c := &Client{
		cfg:      cfg,
		mgr:      mgr,
		policies: policies,
		emb:      emb,
		resolver: res,
		recall:   recall.New(mgr, emb, logger),
		ingester: ingest.New(mgr, res, dist, cursors, logger),
		sweeper:  maintenance.New(mgr, logger),
		cursors:  cursors,
		logger:   logger,
	}
	return c, nil
}

// NewClientFromConfig builds a client from the application configuration.
func NewClientFromConfig(cfg *config.Config, projectPath string, logger *slog.Logger) (*Client, error) {
	var dist distill.Distiller
	if cfg.Distill.Provider == "model" && cfg.Distill.APIKey != "" {
		dist = distill.NewModel(distill.ModelConfig{
			APIKey:      cfg.Distill.APIKey,
			BaseURL:     cfg.Distill.BaseURL,
			Model:       cfg.Distill.Model,
			Temperature: cfg.Distill.Temperature,
			MaxTokens:   cfg.Distill.MaxTokens,
		}, logger)
	} else {
		subject := cfg.Distill.Subject
		if subject == "" {
			subject = defaultSubject(projectPath)
		}
		dist = distill.NewHeuristic(subject, "project")
	}

	dims := cfg.Embedding.Dimensions
	if !cfg.Embedding.Enabled {
		dims = -1
	}

	return NewClient(Config{
		ProjectPath:   projectPath,
		BaseDir:       cfg.Storage.BaseDir,
		GlobalDBPath:  cfg.Storage.GlobalDB,
		PolicyPath:    cfg.Policy.Path,
		Distiller:     dist,
		EmbeddingDims: dims,
		CursorDir:     cfg.CursorDirPath(),
		Logger:        logger,
	})
}

// Manager exposes the scope manager for advanced callers.
func (c *Client) Manager() scope.Manager { return c.mgr }

// Remember distills raw text and applies the extracted claims.
func (c *Client) Remember(ctx context.Context, text string, opts RememberOptions) (*types.ApplyResult, error) {
	sc, projectPath := c.writeScope(opts.Scope)
	return c.ingester.IngestText(ctx, text, ingest.Options{
		SessionID:   opts.SessionID,
		ProjectPath: projectPath,
		Scope:       sc,
		Source:      opts.Source,
	})
}

// RememberExtraction applies an already-structured extraction, bypassing
// distillation. The caller provides the evidence text for the content item.
func (c *Client) RememberExtraction(ctx context.Context, ex *types.Extraction, contentItemID string, opts RememberOptions) (*types.ApplyResult, error) {
	sc, projectPath := c.writeScope(opts.Scope)
	return c.resolver.Apply(ctx, c.mgr, ex, resolver.Options{
		ContentItemID: contentItemID,
		Scope:         sc,
		ProjectPath:   projectPath,
	})
}

// IngestTranscript processes the unread tail of a transcript file.
func (c *Client) IngestTranscript(ctx context.Context, path string, opts RememberOptions) (*types.ApplyResult, error) {
	sc, projectPath := c.writeScope(opts.Scope)
	return c.ingester.IngestTranscript(ctx, path, ingest.Options{
		SessionID:   opts.SessionID,
		ProjectPath: projectPath,
		Scope:       sc,
		Source:      opts.Source,
	})
}

// Recall returns matching facts with their receipts.
func (c *Client) Recall(ctx context.Context, query string, opts recall.Options) ([]*types.FactWithReceipts, error) {
	return c.recall.Query(ctx, query, opts)
}

// RecallIndex returns the lightweight preview tier.
func (c *Client) RecallIndex(ctx context.Context, query string, opts recall.Options) ([]*types.FactPreview, error) {
	return c.recall.QueryIndex(ctx, query, opts)
}

// RecallDetails hydrates facts picked off the index tier.
func (c *Client) RecallDetails(ctx context.Context, ids []string, sc types.Scope) ([]*types.FactWithReceipts, error) {
	return c.recall.QueryDetails(ctx, ids, sc)
}

// Explain returns the full story of one fact.
func (c *Client) Explain(ctx context.Context, factID string, sc types.Scope) (*types.Explanation, error) {
	return c.recall.Explain(ctx, factID, sc)
}

// Changes returns facts created at or after since.
func (c *Client) Changes(ctx context.Context, since time.Time, limit int, sc types.Scope) ([]*types.Fact, error) {
	return c.recall.Changes(ctx, since, limit, sc)
}

// Sweep runs store maintenance under a time budget.
func (c *Client) Sweep(ctx context.Context, sc types.Scope, budget time.Duration) (*maintenance.Report, error) {
	return c.sweeper.Sweep(ctx, sc, budget)
}

// Export writes every fact in the selected scope to a parquet file.
func (c *Client) Export(ctx context.Context, path string, sc types.Scope) (int, error) {
	if sc == "" {
		sc = types.ScopeAll
	}
	var all []*types.Fact
	err := c.mgr.Execute(ctx, sc, func(s *store.Store) error {
		facts, err := s.AllFacts(ctx)
		if err != nil {
			return err
		}
		all = append(all, facts...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := telemetry.ExportFacts(path, all); err != nil {
		return 0, err
	}
	return len(all), nil
}

// Close releases every store handle and the cursor database.
func (c *Client) Close() error {
	err := c.mgr.Close()
	if c.cursors != nil {
		if cerr := c.cursors.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// writeScope resolves the effective write scope and project path.
func (c *Client) writeScope(sc types.Scope) (types.Scope, string) {
	if sc == "" {
		if c.cfg.ProjectPath != "" {
			sc = types.ScopeProject
		} else {
			sc = types.ScopeGlobal
		}
	}
	if sc == types.ScopeProject {
		return sc, c.cfg.ProjectPath
	}
	return sc, ""
}

// storeOpener places databases: the global store at a fixed path, project
// stores keyed by a slug of the project path so unrelated checkouts never
// collide.
func storeOpener(cfg Config, logger *slog.Logger) scope.Opener {
	return func(sc types.Scope, projectPath string) (*store.Store, error) {
		var path string
		if sc == types.ScopeGlobal {
			path = cfg.GlobalDBPath
			if path == "" {
				path = filepath.Join(cfg.BaseDir, "global.db")
			}
		} else {
			path = filepath.Join(cfg.BaseDir, "projects", types.Slugify(projectPath)+".db")
		}
		return store.Open(path, store.Options{
			Scope:       sc,
			ProjectPath: projectPath,
			Logger:      logger,
		})
	}
}

func loadPolicies(path string) (*policy.Table, error) {
	if path == "" {
		return policy.Default(), nil
	}
	return policy.Load(path)
}

func defaultSubject(projectPath string) string {
	if projectPath == "" {
		return "user"
	}
	return filepath.Base(projectPath)
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tenet"
	}
	return filepath.Join(home, ".tenet")
}
