package registry

import (
	"fmt"
	"slices"
	"sync"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/ports"
)

// Registry keeps the configured sources keyed by ID, in configuration order.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]domain.Source
	order   []string
}

var _ ports.SourceRegistry = (*Registry)(nil)

// New builds a registry; source IDs must be unique and non-empty.
func New(sources []domain.Source) (*Registry, error) {
	r := &Registry{sources: make(map[string]domain.Source, len(sources))}
	for _, src := range sources {
		if src.ID == "" {
			return nil, fmt.Errorf("source %q has no id", src.Name)
		}
		if _, dup := r.sources[src.ID]; dup {
			return nil, fmt.Errorf("source %s is registered twice", src.ID)
		}
		r.sources[src.ID] = clone(src)
		r.order = append(r.order, src.ID)
	}
	return r, nil
}

// List returns every source.
func (r *Registry) List() []domain.Source {
	return r.collect(func(domain.Source) bool { return true })
}

// Enabled returns the sources that take part in runs.
func (r *Registry) Enabled() []domain.Source {
	return r.collect(func(s domain.Source) bool { return s.Enabled })
}

// Get returns a source by ID.
func (r *Registry) Get(id string) (domain.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[id]
	if !ok {
		return domain.Source{}, false
	}
	return clone(src), true
}

// Upsert adds or replaces a source. Runs already in progress keep their snapshot.
func (r *Registry) Upsert(src domain.Source) error {
	if src.ID == "" {
		return fmt.Errorf("source %q has no id", src.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sources[src.ID]; !ok {
		r.order = append(r.order, src.ID)
	}
	r.sources[src.ID] = clone(src)
	return nil
}

// SetEnabled toggles a source.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
	}
	src.Enabled = enabled
	r.sources[id] = src
	return nil
}

func (r *Registry) collect(keep func(domain.Source) bool) []domain.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Source, 0, len(r.order))
	for _, id := range r.order {
		if src := r.sources[id]; keep(src) {
			out = append(out, clone(src))
		}
	}
	return out
}

func clone(src domain.Source) domain.Source {
	src.KeywordHints = slices.Clone(src.KeywordHints)
	return src
}
