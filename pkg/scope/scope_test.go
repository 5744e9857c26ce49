package scope

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenetdb/tenet/pkg/store"
	"github.com/tenetdb/tenet/pkg/types"
)

func testOpener(dir string) Opener {
	return func(sc types.Scope, projectPath string) (*store.Store, error) {
		return store.Open(filepath.Join(dir, string(sc)+".db"), store.Options{
			Scope:       sc,
			ProjectPath: projectPath,
		})
	}
}

func TestDualManagerRoutesScopes(t *testing.T) {
	mgr := NewDualManager("/work/demo", testOpener(t.TempDir()))
	defer mgr.Close()
	ctx := context.Background()

	proj, err := mgr.Store(ctx, types.ScopeProject)
	require.NoError(t, err)
	assert.Equal(t, types.ScopeProject, proj.Scope())
	assert.Equal(t, "/work/demo", proj.ProjectPath())

	glob, err := mgr.Store(ctx, types.ScopeGlobal)
	require.NoError(t, err)
	assert.Equal(t, types.ScopeGlobal, glob.Scope())

	// Handles are cached, not reopened.
	again, err := mgr.Store(ctx, types.ScopeProject)
	require.NoError(t, err)
	assert.Same(t, proj, again)

	_, err = mgr.Store(ctx, types.ScopeAll)
	require.Error(t, err)
}

func TestDualManagerExecuteAllVisitsProjectFirst(t *testing.T) {
	mgr := NewDualManager("/work/demo", testOpener(t.TempDir()))
	defer mgr.Close()

	var visited []types.Scope
	err := mgr.Execute(context.Background(), types.ScopeAll, func(s *store.Store) error {
		visited = append(visited, s.Scope())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []types.Scope{types.ScopeProject, types.ScopeGlobal}, visited)
}

func TestDualManagerWithoutProjectPath(t *testing.T) {
	mgr := NewDualManager("", testOpener(t.TempDir()))
	defer mgr.Close()
	ctx := context.Background()

	_, err := mgr.Store(ctx, types.ScopeProject)
	require.ErrorIs(t, err, ErrNoProjectStore)

	// ScopeAll silently skips the absent project store.
	var visited []types.Scope
	err = mgr.Execute(ctx, types.ScopeAll, func(s *store.Store) error {
		visited = append(visited, s.Scope())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []types.Scope{types.ScopeGlobal}, visited)
}

func TestDualManagerExecuteAllIsolatesFailures(t *testing.T) {
	mgr := NewDualManager("/work/demo", testOpener(t.TempDir()))
	defer mgr.Close()

	var visited []types.Scope
	err := mgr.Execute(context.Background(), types.ScopeAll, func(s *store.Store) error {
		visited = append(visited, s.Scope())
		if s.Scope() == types.ScopeProject {
			return fmt.Errorf("project op failed")
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project store")
	// The global store still ran despite the project failure.
	assert.Equal(t, []types.Scope{types.ScopeProject, types.ScopeGlobal}, visited)
}

func TestDualManagerExecuteAllIsolatesOpenFailure(t *testing.T) {
	dir := t.TempDir()
	mgr := NewDualManager("/work/demo", func(sc types.Scope, projectPath string) (*store.Store, error) {
		if sc == types.ScopeProject {
			return nil, fmt.Errorf("disk full")
		}
		return testOpener(dir)(sc, projectPath)
	})
	defer mgr.Close()

	var visited []types.Scope
	err := mgr.Execute(context.Background(), types.ScopeAll, func(s *store.Store) error {
		visited = append(visited, s.Scope())
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, []types.Scope{types.ScopeGlobal}, visited)
}

func TestSingleManager(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "facts.db"), store.Options{
		Scope:       types.ScopeProject,
		ProjectPath: "/work/demo",
	})
	require.NoError(t, err)

	mgr := NewSingleManager(s)
	defer mgr.Close()
	ctx := context.Background()

	got, err := mgr.Store(ctx, types.ScopeProject)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = mgr.Store(ctx, types.ScopeGlobal)
	require.Error(t, err)

	// ScopeAll runs against the one handle it has.
	ran := false
	require.NoError(t, mgr.Execute(ctx, types.ScopeAll, func(*store.Store) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)

	err = mgr.Execute(ctx, types.ScopeGlobal, func(*store.Store) error { return nil })
	require.Error(t, err)
}
