package loader

import (
	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/internal/lifecycle"
)

// Reference binds a consumer (a terrain tile, a feature layer) to a
// loader and a key, resolving to the concrete scope and its loaded data.
// The reference re-resolves when its key changes or when the loader's
// datasource is swapped, and it contributes one count to the scope's
// reference count for as long as it is bound.
type Reference struct {
	lifecycle.Object

	loader *GridLoader
	key    grid.Key
	scope  *Scope

	unsubscribe func()
	onResolved  map[int]func(*Reference)
	nextSub     int
}

// NewReference creates a reference bound to a key, creating the scope on
// demand. Returns nil when the key's zoom is outside the loader's policy.
func NewReference(l *GridLoader, key grid.Key) *Reference {
	r := &Reference{
		loader:     l,
		onResolved: make(map[int]func(*Reference)),
	}
	r.Activate()
	if !r.bind(key) {
		return nil
	}
	return r
}

// bind attaches to the scope for key, creating it if needed.
func (r *Reference) bind(key grid.Key) bool {
	scope, ok := r.loader.GetLoadScope(key, true, false)
	if !ok {
		return false
	}
	r.key = key
	r.scope = scope
	scope.addReference()
	r.unsubscribe = scope.OnChanged(func(*Scope) { r.notify() })
	r.notify()
	return true
}

// release drops the reference's hold on its current scope.
func (r *Reference) release() {
	if r.scope == nil {
		return
	}
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	key := r.key
	r.scope = nil
	r.loader.RemoveReference(key)
}

// Key returns the bound key.
func (r *Reference) Key() grid.Key { return r.key }

// Scope returns the resolved scope, or nil after disposal.
func (r *Reference) Scope() *Scope { return r.scope }

// LoadingState reports the resolved scope's state, StateNone when
// unresolved.
func (r *Reference) LoadingState() LoadingState {
	if r.scope == nil {
		return StateNone
	}
	return r.scope.LoadingState()
}

// Data returns the resolved persistent item of the given type, or nil
// until the scope finishes loading.
func (r *Reference) Data(t PersistentType) any {
	if r.scope == nil || r.scope.LoadingState() != StateLoaded {
		return nil
	}
	return r.scope.Item(t)
}

// SetKey rebinds the reference to a different key, releasing the old
// scope and resolving the new one.
func (r *Reference) SetKey(key grid.Key) bool {
	if !r.IsValid() || key == r.key && r.scope != nil {
		return r.scope != nil
	}
	r.release()
	return r.bind(key)
}

// OnResolved subscribes to resolution changes (scope state or data). The
// returned cancel func releases the subscription.
func (r *Reference) OnResolved(fn func(*Reference)) (cancel func()) {
	id := r.nextSub
	r.nextSub++
	r.onResolved[id] = fn
	return func() { delete(r.onResolved, id) }
}

func (r *Reference) notify() {
	for _, fn := range r.onResolved {
		fn(r)
	}
}

// Dispose releases the scope hold and invalidates the reference.
func (r *Reference) Dispose() {
	if !r.BeginDispose() {
		return
	}
	r.release()
	r.onResolved = map[int]func(*Reference){}
	r.EndDispose()
}
