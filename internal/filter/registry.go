package filter

import (
	"sort"
	"sync"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

// Registry maps filter names to factories. Registering an existing name
// replaces it, which is how tiers override each other.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// NewBuiltinRegistry returns a registry holding only the compiled-in filters.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, reg := range Builtins() {
		// Builtins are static and always valid.
		_ = r.Register(reg)
	}
	return r
}

// Register adds or replaces a registration.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return ferrors.ValidationError("filter name is required").Build()
	}
	if reg.Factory == nil {
		return ferrors.ValidationError("filter factory is required").
			WithContext("filter", reg.Name).
			Build()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[reg.Name] = reg
	return nil
}

// Lookup returns the registration for name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg, ok
}

// New constructs the named filter.
func (r *Registry) New(name string, cfg map[string]any) (Filter, error) {
	reg, ok := r.Lookup(name)
	if !ok {
		return nil, ferrors.NotFoundError("unknown filter").
			WithContext("filter", name).
			Build()
	}
	f, err := reg.Factory(cfg)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFilter, "construct filter").
			WithContext("filter", name).
			Build()
	}
	if f == nil {
		return nil, ferrors.FilterError("factory returned nil filter").
			WithContext("filter", name).
			Build()
	}
	return f, nil
}

// List returns all registrations sorted by name.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered filters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
