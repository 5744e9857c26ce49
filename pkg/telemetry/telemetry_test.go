package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenetdb/tenet/pkg/types"
)

func TestExportFacts(t *testing.T) {
	validTo := time.Now().UTC()
	facts := []*types.Fact{
		{
			ID:            "f1",
			SubjectName:   "demo",
			Predicate:     "uses_database",
			ObjectLiteral: "postgresql",
			Polarity:      types.PolarityPositive,
			Status:        types.StatusActive,
			Confidence:    0.9,
			Scope:         types.ScopeProject,
			ProjectPath:   "/work/demo",
			ValidFrom:     time.Now().UTC(),
			CreatedAt:     time.Now().UTC(),
		},
		{
			ID:            "f2",
			SubjectName:   "demo",
			Predicate:     "uses_database",
			ObjectLiteral: "mysql",
			Status:        types.StatusSuperseded,
			ValidFrom:     time.Now().Add(-time.Hour).UTC(),
			ValidTo:       &validTo,
			CreatedAt:     time.Now().Add(-time.Hour).UTC(),
		},
	}

	path := filepath.Join(t.TempDir(), "facts.parquet")
	require.NoError(t, ExportFacts(path, facts))

	rows, err := parquet.ReadFile[FactRecord](path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "f1", rows[0].ID)
	assert.Equal(t, "postgresql", rows[0].Object)
	assert.Equal(t, string(types.StatusSuperseded), rows[1].Status)
}

func TestParquetHandlerMirrorsErrors(t *testing.T) {
	dir := t.TempDir()
	next := slog.NewTextHandler(io.Discard, nil)
	h, err := NewParquetHandler(next, dir)
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), types.ContextKeySessionID, "sess-1")
	logger := slog.New(h)

	logger.InfoContext(ctx, "routine message")
	logger.ErrorContext(ctx, "something broke", "attempt", 2)

	require.NoError(t, h.Flush())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	rows, err := parquet.ReadFile[LogRecord](filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Len(t, rows, 1, "info records must not be mirrored")
	assert.Equal(t, "something broke", rows[0].Message)
	assert.Equal(t, "ERROR", rows[0].Level)
	assert.Equal(t, "sess-1", rows[0].SessionID)
	assert.Contains(t, rows[0].Attributes, "attempt")
}

func TestParquetHandlerFlushEmpty(t *testing.T) {
	h, err := NewParquetHandler(slog.NewTextHandler(io.Discard, nil), t.TempDir())
	require.NoError(t, err)
	require.NoError(t, h.Flush())
}
