package loader

import "github.com/Faultbox/terraglobe/internal/grid"

// Registry maps grid keys to their load scopes. It enforces the central
// invariant of this subsystem: at most one scope exists per distinct
// (dimensions, index) key per loader.
type Registry struct {
	scopes map[grid.Key]*Scope
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[grid.Key]*Scope)}
}

// Get returns the scope for a key, if one exists.
func (r *Registry) Get(key grid.Key) (*Scope, bool) {
	s, ok := r.scopes[key]
	return s, ok
}

// GetOrCreate returns the existing scope for a key, or creates one.
// Duplicate creation attempts land on the existing instance.
func (r *Registry) GetOrCreate(key grid.Key) (scope *Scope, created bool) {
	if s, ok := r.scopes[key]; ok {
		return s, false
	}
	s := newScope(key)
	r.scopes[key] = s
	return s, true
}

// Remove deletes and disposes the scope for a key.
func (r *Registry) Remove(key grid.Key) {
	if s, ok := r.scopes[key]; ok {
		delete(r.scopes, key)
		s.dispose()
	}
}

// Count returns the number of live scopes.
func (r *Registry) Count() int { return len(r.scopes) }

// Each calls fn for every scope. fn must not add or remove scopes.
func (r *Registry) Each(fn func(*Scope)) {
	for _, s := range r.scopes {
		fn(s)
	}
}

// Keys returns a snapshot of all scope keys.
func (r *Registry) Keys() []grid.Key {
	keys := make([]grid.Key, 0, len(r.scopes))
	for k := range r.scopes {
		keys = append(keys, k)
	}
	return keys
}
