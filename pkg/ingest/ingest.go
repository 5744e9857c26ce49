// Package ingest reads conversation transcripts, distills them into
// extractions and feeds the resolver. A badger-backed cursor store makes
// repeated ingestion of a growing transcript incremental, and content
// hashing makes it idempotent.
package ingest

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tenetdb/tenet/pkg/distill"
	"github.com/tenetdb/tenet/pkg/resolver"
	"github.com/tenetdb/tenet/pkg/scope"
	"github.com/tenetdb/tenet/pkg/types"
)

// maxLineBytes bounds a single transcript line. Tool results can be large.
const maxLineBytes = 4 * 1024 * 1024

// Options configures one ingestion run.
type Options struct {
	SessionID   string
	ProjectPath string
	Scope       types.Scope
	// Source labels the evidence origin, e.g. "transcript" or "hook".
	Source string
	// OccurredAt anchors the evidence in time. Zero means now.
	OccurredAt time.Time
}

// Ingester drives transcript ingestion end to end: cursor, hash dedupe,
// content item, distillation, resolution.
type Ingester struct {
	mgr       scope.Manager
	resolver  *resolver.Resolver
	distiller distill.Distiller
	cursors   *CursorStore
	logger    *slog.Logger
}

// New creates an ingester. cursors may be nil, in which case every call
// re-reads the whole transcript and relies on hash dedupe alone.
func New(mgr scope.Manager, res *resolver.Resolver, dist distill.Distiller, cursors *CursorStore, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{mgr: mgr, resolver: res, distiller: dist, cursors: cursors, logger: logger}
}

// transcriptLine is the subset of a transcript JSONL record we read. Content
// may be a plain string or a block list; both are handled.
type transcriptLine struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Text    string `json:"text"`
	Message *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
	Content json.RawMessage `json:"content"`
}

// IngestTranscript processes the unread tail of a JSONL transcript and
// returns the aggregate mutations. Already-ingested windows are skipped by
// content hash, so re-running over the same file is a no-op.
func (ing *Ingester) IngestTranscript(ctx context.Context, path string, opts Options) (*types.ApplyResult, error) {
	if opts.Source == "" {
		opts.Source = "transcript"
	}
	if opts.OccurredAt.IsZero() {
		opts.OccurredAt = time.Now().UTC()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	var cur Cursor
	if ing.cursors != nil {
		if cur, err = ing.cursors.Get(path); err != nil {
			return nil, err
		}
		if _, err := f.Seek(cur.Offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to seek transcript: %w", err)
		}
	}

	text, advanced, lines, err := readWindow(f)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return &types.ApplyResult{}, nil
	}

	result, err := ing.IngestText(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	if ing.cursors != nil {
		cur.Offset += advanced
		cur.Line += lines
		if err := ing.cursors.Put(path, cur); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// IngestText distills a block of text and applies the result. The text is
// hashed first; a window already in the store is skipped entirely.
func (ing *Ingester) IngestText(ctx context.Context, text string, opts Options) (*types.ApplyResult, error) {
	if opts.Scope == "" {
		opts.Scope = types.ScopeProject
	}
	if opts.OccurredAt.IsZero() {
		opts.OccurredAt = time.Now().UTC()
	}

	target, err := ing.mgr.Store(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])
	exists, err := target.HasContentHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		ing.logger.Debug("skipping already-ingested content", "hash", hash[:12])
		return &types.ApplyResult{}, nil
	}

	extraction, err := ing.distiller.Distill(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to distill content: %w", err)
	}
	if len(extraction.Facts) == 0 && len(extraction.Entities) == 0 {
		return &types.ApplyResult{}, nil
	}

	item := &types.ContentItem{
		ID:          uuid.NewString(),
		Source:      opts.Source,
		SessionID:   opts.SessionID,
		ProjectPath: opts.ProjectPath,
		TextHash:    hash,
		ByteLen:     int64(len(text)),
		OccurredAt:  opts.OccurredAt,
		IngestedAt:  time.Now().UTC(),
	}
	if err := target.InsertContentItem(ctx, item); err != nil {
		return nil, err
	}

	return ing.resolver.Apply(ctx, ing.mgr, extraction, resolver.Options{
		ContentItemID: item.ID,
		OccurredAt:    opts.OccurredAt,
		Scope:         opts.Scope,
		ProjectPath:   opts.ProjectPath,
	})
}

// readWindow consumes the remaining lines of a transcript and flattens the
// human-visible text. It returns the text, the bytes consumed and the line
// count.
func readWindow(r io.Reader) (string, int64, int, error) {
	var (
		b        strings.Builder
		advanced int64
		lines    int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		raw := scanner.Bytes()
		advanced += int64(len(raw)) + 1
		lines++

		text := extractText(raw)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", 0, 0, fmt.Errorf("failed to read transcript: %w", err)
	}
	return b.String(), advanced, lines, nil
}

// extractText pulls the conversational text out of one JSONL record. Records
// that are not valid JSON are treated as raw text lines.
func extractText(raw []byte) string {
	var line transcriptLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return strings.TrimSpace(string(raw))
	}

	if line.Text != "" {
		return strings.TrimSpace(line.Text)
	}
	if line.Message != nil && len(line.Message.Content) > 0 {
		return flattenContent(line.Message.Content)
	}
	if len(line.Content) > 0 {
		return flattenContent(line.Content)
	}
	return ""
}

// flattenContent handles both string content and block-list content of the
// form [{"type":"text","text":"..."}].
func flattenContent(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, blk := range blocks {
		if blk.Type == "text" && strings.TrimSpace(blk.Text) != "" {
			parts = append(parts, strings.TrimSpace(blk.Text))
		}
	}
	return strings.Join(parts, "\n")
}
