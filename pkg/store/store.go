// Package store is the durable fact store: a single SQLite file per scope
// holding entities, facts, provenance, fact links, conflicts and content
// items, with an FTS5 index over receipt quotes and locally computed fact
// embeddings for semantic ranking.
//
// The file is opened in WAL mode so concurrent processes (CLI invocations,
// lifecycle hooks, the protocol server) can read while another writes. Every
// multi-row mutation goes through WithTx so a crash cannot leave a fact
// without its provenance or a half-closed supersession.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tenetdb/tenet/pkg/types"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// read helpers work identically inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries carries the shared data-access methods plus the store identity
// (scope, project path) used to partition rows.
type queries struct {
	q           querier
	scope       types.Scope
	projectPath string
}

// Store is one scope's fact database.
type Store struct {
	queries
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Tx is an open write transaction. It exposes the same read methods as the
// store so the resolver observes its own uncommitted writes.
type Tx struct {
	queries
}

// Options configures a store at open time.
type Options struct {
	// Scope is the identity of this store file: project or global.
	Scope types.Scope
	// ProjectPath is required when Scope is project, forbidden otherwise.
	ProjectPath string
	Logger      *slog.Logger
}

// Open opens (creating if necessary) the SQLite file at path, applies
// pending migrations and returns a ready store.
func Open(path string, opts Options) (*Store, error) {
	switch opts.Scope {
	case types.ScopeProject:
		if opts.ProjectPath == "" {
			return nil, fmt.Errorf("project store requires a project path")
		}
	case types.ScopeGlobal:
		if opts.ProjectPath != "" {
			return nil, fmt.Errorf("global store must not carry a project path")
		}
	default:
		return nil, fmt.Errorf("unsupported store scope: %s", opts.Scope)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	// WAL keeps readers from blocking on writers; busy_timeout covers the
	// brief write-lock window between cooperating processes.
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection avoids SQLITE_BUSY between in-process writers;
	// cross-process concurrency is WAL's job.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, opts.Logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		queries: queries{q: db, scope: opts.Scope, projectPath: opts.ProjectPath},
		db:      db,
		path:    path,
		logger:  opts.Logger,
	}, nil
}

// Scope returns the store's scope identity.
func (s *Store) Scope() types.Scope { return s.scope }

// ProjectPath returns the project path this store is keyed by, or "" for the
// global store.
func (s *Store) ProjectPath() string { return s.projectPath }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a single transaction. fn returning an error rolls
// back every mutation it performed.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Tx{queries: queries{q: dbtx, scope: s.scope, projectPath: s.projectPath}}
	if err := fn(tx); err != nil {
		if rbErr := dbtx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Stats summarizes row counts for diagnostics.
type Stats struct {
	Entities     int64 `json:"entities"`
	Facts        int64 `json:"facts"`
	ActiveFacts  int64 `json:"active_facts"`
	Provenance   int64 `json:"provenance"`
	Conflicts    int64 `json:"conflicts"`
	ContentItems int64 `json:"content_items"`
}

// Stats returns row counts for the store.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	row := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entities),
			(SELECT COUNT(*) FROM facts),
			(SELECT COUNT(*) FROM facts WHERE status = 'active'),
			(SELECT COUNT(*) FROM provenance),
			(SELECT COUNT(*) FROM conflicts),
			(SELECT COUNT(*) FROM content_items)`)
	if err := row.Scan(&st.Entities, &st.Facts, &st.ActiveFacts, &st.Provenance, &st.Conflicts, &st.ContentItems); err != nil {
		return nil, fmt.Errorf("failed to read store stats: %w", err)
	}
	return st, nil
}

// timestamp helpers: times are stored as unix nanoseconds, NULL for unset.

func toNS(t time.Time) int64 {
	return t.UnixNano()
}

func fromNS(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func toNullNS(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullNS(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNS(n.Int64)
	return &t
}

// placeholders builds "?, ?, ?" for IN clauses along with the arg slice.
func placeholders(ids []string) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}
