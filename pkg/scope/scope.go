// Package scope owns the project and global store handles and routes
// operations to the right one. Every multi-store query goes through a single
// execution primitive instead of scattering scope branching across callers.
package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tenetdb/tenet/pkg/store"
	"github.com/tenetdb/tenet/pkg/types"
)

// ErrNoProjectStore is returned when a project-scoped operation runs without
// a project path configured.
var ErrNoProjectStore = errors.New("no project store available")

// Op runs against one store handle. When Execute fans out across stores, the
// op is invoked once per handle.
type Op func(s *store.Store) error

// Manager routes operations to the store handles it owns. The implementation
// is chosen once at construction time: a dual project+global manager for the
// normal case, a single-handle manager for embedded or test use.
type Manager interface {
	// Execute runs op against the handles selected by scope. For ScopeAll it
	// runs against every handle that exists, project first; a failure in one
	// store does not prevent the op from running against the other, and all
	// failures are joined into the returned error.
	Execute(ctx context.Context, sc types.Scope, op Op) error

	// Store returns the single writable handle for a non-all scope.
	Store(ctx context.Context, sc types.Scope) (*store.Store, error)

	// ProjectPath returns the project path this manager is keyed by, or "".
	ProjectPath() string

	// Close closes every open handle.
	Close() error
}

// Opener opens the store backing one scope. Split out so tests and the
// library client can control file placement.
type Opener func(sc types.Scope, projectPath string) (*store.Store, error)

// DualManager lazily opens a project handle and a global handle. Handles are
// owned exclusively by the manager for the process lifetime.
type DualManager struct {
	projectPath string
	opener      Opener

	mu      sync.Mutex
	project *store.Store
	global  *store.Store
}

// NewDualManager creates a manager over both scopes. projectPath may be
// empty, in which case only the global store is reachable.
func NewDualManager(projectPath string, opener Opener) *DualManager {
	return &DualManager{projectPath: projectPath, opener: opener}
}

// ProjectPath implements Manager.
func (m *DualManager) ProjectPath() string { return m.projectPath }

// Store implements Manager.
func (m *DualManager) Store(ctx context.Context, sc types.Scope) (*store.Store, error) {
	switch sc {
	case types.ScopeProject:
		return m.projectStore()
	case types.ScopeGlobal:
		return m.globalStore()
	default:
		return nil, fmt.Errorf("scope %q does not select a single store", sc)
	}
}

// Execute implements Manager.
func (m *DualManager) Execute(ctx context.Context, sc types.Scope, op Op) error {
	switch sc {
	case types.ScopeProject:
		s, err := m.projectStore()
		if err != nil {
			return err
		}
		return op(s)

	case types.ScopeGlobal:
		s, err := m.globalStore()
		if err != nil {
			return err
		}
		return op(s)

	case types.ScopeAll:
		// Project first: local context outranks general knowledge, and
		// callers that merge in arrival order inherit that precedence. A
		// failed store degrades independently; the other still runs.
		var errs []error
		if m.projectPath != "" {
			if s, err := m.projectStore(); err != nil {
				errs = append(errs, fmt.Errorf("project store: %w", err))
			} else if err := op(s); err != nil {
				errs = append(errs, fmt.Errorf("project store: %w", err))
			}
		}
		if s, err := m.globalStore(); err != nil {
			errs = append(errs, fmt.Errorf("global store: %w", err))
		} else if err := op(s); err != nil {
			errs = append(errs, fmt.Errorf("global store: %w", err))
		}
		return errors.Join(errs...)

	default:
		return fmt.Errorf("unsupported scope: %s", sc)
	}
}

func (m *DualManager) projectStore() (*store.Store, error) {
	if m.projectPath == "" {
		return nil, ErrNoProjectStore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.project != nil {
		return m.project, nil
	}
	s, err := m.opener(types.ScopeProject, m.projectPath)
	if err != nil {
		return nil, err
	}
	m.project = s
	return s, nil
}

func (m *DualManager) globalStore() (*store.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.global != nil {
		return m.global, nil
	}
	s, err := m.opener(types.ScopeGlobal, "")
	if err != nil {
		return nil, err
	}
	m.global = s
	return s, nil
}

// Close implements Manager.
func (m *DualManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.project != nil {
		errs = append(errs, m.project.Close())
		m.project = nil
	}
	if m.global != nil {
		errs = append(errs, m.global.Close())
		m.global = nil
	}
	return errors.Join(errs...)
}

// SingleManager wraps one pre-opened store. Every scope that matches the
// store's own scope routes to it; others are absent.
type SingleManager struct {
	s *store.Store
}

// NewSingleManager creates a manager over one handle.
func NewSingleManager(s *store.Store) *SingleManager {
	return &SingleManager{s: s}
}

// ProjectPath implements Manager.
func (m *SingleManager) ProjectPath() string { return m.s.ProjectPath() }

// Store implements Manager.
func (m *SingleManager) Store(ctx context.Context, sc types.Scope) (*store.Store, error) {
	if sc != m.s.Scope() {
		return nil, fmt.Errorf("scope %q not available on single-store manager", sc)
	}
	return m.s, nil
}

// Execute implements Manager.
func (m *SingleManager) Execute(ctx context.Context, sc types.Scope, op Op) error {
	if sc != types.ScopeAll && sc != m.s.Scope() {
		return fmt.Errorf("scope %q not available on single-store manager", sc)
	}
	return op(m.s)
}

// Close implements Manager.
func (m *SingleManager) Close() error {
	return m.s.Close()
}
