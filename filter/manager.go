package filter

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/s0up4200/reelshelf/catalog"
)

// DefaultCompileCache is how many ad-hoc expressions a Manager keeps compiled
const DefaultCompileCache = 100

// Manager holds the named filters from the "filter" config section and
// compiles ad-hoc expressions on demand
type Manager struct {
	mu       sync.RWMutex
	named    map[string]CompiledFilter
	compiler Compiler
	selector Selector
}

// NewManager returns a manager with an expr compiler and a concurrent
// selector
func NewManager() *Manager {
	return &Manager{
		named:    make(map[string]CompiledFilter),
		compiler: NewExprCompiler(WithCache(DefaultCompileCache)),
		selector: NewConcurrentEvaluator(),
	}
}

// Register compiles every expression in filters and adds them by name.
// Nothing is added when any of them fails.
func (m *Manager) Register(filters map[string]string) error {
	batch := make(map[string]CompiledFilter, len(filters))
	for _, name := range slices.Sorted(maps.Keys(filters)) {
		compiled, err := m.compiler.Compile(filters[name])
		if err != nil {
			return fmt.Errorf("filter %q: %w", name, err)
		}
		batch[name] = compiled
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.named, batch)
	return nil
}

// Named looks a registered filter up
func (m *Manager) Named(name string) (CompiledFilter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.named[name]
	return f, ok
}

// Names lists registered filters alphabetically
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.named))
}

// Resolve prefers a registered filter called nameOrExpr and otherwise
// compiles it as an expression
func (m *Manager) Resolve(nameOrExpr string) (CompiledFilter, error) {
	if f, ok := m.Named(nameOrExpr); ok {
		return f, nil
	}
	return m.compiler.Compile(nameOrExpr)
}

// Apply keeps the movies matched by a registered filter or an expression
func (m *Manager) Apply(ctx context.Context, nameOrExpr string, movies []catalog.Movie) ([]catalog.Movie, error) {
	f, err := m.Resolve(nameOrExpr)
	if err != nil {
		return nil, err
	}
	return m.selector.Select(ctx, f, movies)
}

// ApplyNamed is Apply restricted to registered filters
func (m *Manager) ApplyNamed(ctx context.Context, name string, movies []catalog.Movie) ([]catalog.Movie, error) {
	f, ok := m.Named(name)
	if !ok {
		return nil, &UnknownFilterError{Name: name}
	}
	return m.selector.Select(ctx, f, movies)
}
