// Package telemetry provides a slog handler that mirrors error records into
// parquet files for offline analysis, and a parquet exporter for facts.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/tenetdb/tenet/pkg/types"
)

// LogRecord is one error log entry in the parquet schema.
type LogRecord struct {
	ID          string    `parquet:"id"`
	Timestamp   time.Time `parquet:"timestamp"`
	Level       string    `parquet:"level"`
	Message     string    `parquet:"message"`
	SessionID   string    `parquet:"session_id"`
	ProjectPath string    `parquet:"project_path"`
	Source      string    `parquet:"source"`
	SourceFile  string    `parquet:"source_file"`
	LineNumber  int       `parquet:"line_number"`
	Attributes  string    `parquet:"attributes"`
}

// ParquetHandler is a slog.Handler that forwards every record to the next
// handler and additionally buffers error-level records into parquet files.
type ParquetHandler struct {
	next      slog.Handler
	outputDir string

	mu        sync.Mutex
	buffer    []LogRecord
	batchSize int
}

// NewParquetHandler creates a handler writing into outputDir.
func NewParquetHandler(next slog.Handler, outputDir string) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	return &ParquetHandler{
		next:      next,
		outputDir: outputDir,
		batchSize: 100,
		buffer:    make([]LogRecord, 0, 100),
	}, nil
}

// Enabled implements slog.Handler.
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < slog.LevelError {
		return nil
	}

	var sessionID, projectPath, source string
	if v, ok := ctx.Value(types.ContextKeySessionID).(string); ok {
		sessionID = v
	}
	if v, ok := ctx.Value(types.ContextKeyProjectPath).(string); ok {
		projectPath = v
	}
	if v, ok := ctx.Value(types.ContextKeySource).(string); ok {
		source = v
	}

	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	attrsJSON, _ := json.Marshal(attrs)

	fs := runtime.CallersFrames([]uintptr{r.PC})
	f, _ := fs.Next()

	record := LogRecord{
		ID:          uuid.NewString(),
		Timestamp:   r.Time.UTC(),
		Level:       r.Level.String(),
		Message:     r.Message,
		SessionID:   sessionID,
		ProjectPath: projectPath,
		Source:      source,
		SourceFile:  f.File,
		LineNumber:  f.Line,
		Attributes:  string(attrsJSON),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.buffer = append(h.buffer, record)
	if len(h.buffer) >= h.batchSize {
		return h.flush()
	}
	return nil
}

// Flush writes any buffered records out immediately.
func (h *ParquetHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flush()
}

// flush writes the buffer to a new parquet file. Caller holds the lock.
func (h *ParquetHandler) flush() error {
	if len(h.buffer) == 0 {
		return nil
	}
	name := fmt.Sprintf("errors_%s_%d.parquet", time.Now().Format("20060102_150405"), time.Now().UnixNano())
	if err := parquet.WriteFile(filepath.Join(h.outputDir, name), h.buffer); err != nil {
		return fmt.Errorf("failed to write telemetry file: %w", err)
	}
	h.buffer = h.buffer[:0]
	return nil
}

// WithAttrs implements slog.Handler. Child handlers batch independently.
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{
		next:      h.next.WithAttrs(attrs),
		outputDir: h.outputDir,
		batchSize: h.batchSize,
		buffer:    make([]LogRecord, 0, h.batchSize),
	}
}

// WithGroup implements slog.Handler.
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{
		next:      h.next.WithGroup(name),
		outputDir: h.outputDir,
		batchSize: h.batchSize,
		buffer:    make([]LogRecord, 0, h.batchSize),
	}
}
