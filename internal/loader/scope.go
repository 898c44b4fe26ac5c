// Package loader orchestrates per-tile load scopes: which tiles should
// currently hold loadable data, their asynchronous loading state, and the
// references consumers hold into them.
package loader

import (
	"time"

	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/internal/lifecycle"
)

// LoadingState is the aggregated load state of a scope. None means "no
// scope bound" and is what key lookups report on a miss.
type LoadingState int

const (
	StateNone LoadingState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadingState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// PersistentType keys the logical data items a scope owns.
type PersistentType int

const (
	PersistentElevation PersistentType = iota
	PersistentImagery
	PersistentFeature
)

// Scope is the unit of loadable work for one grid cell. It owns the
// persistent items loaded for that cell, tracks loading state, and is
// reference counted: the scope dies when its last consumer releases it.
type Scope struct {
	lifecycle.Object

	key   grid.Key
	state LoadingState
	items map[PersistentType]any

	refs int

	// due is when the staggered loader should start this scope's fetch.
	due time.Time

	changed map[int]func(*Scope)
	nextSub int
}

func newScope(key grid.Key) *Scope {
	s := &Scope{
		key:     key,
		items:   make(map[PersistentType]any),
		changed: make(map[int]func(*Scope)),
	}
	s.Activate()
	return s
}

// Key returns the grid key the scope is bound to.
func (s *Scope) Key() grid.Key { return s.key }

// LoadingState returns the scope's current load state.
func (s *Scope) LoadingState() LoadingState { return s.state }

// Due returns when the staggered load pass may start this scope.
func (s *Scope) Due() time.Time { return s.due }

// Item returns the persistent item of the given type, or nil.
func (s *Scope) Item(t PersistentType) any { return s.items[t] }

// SetItem stores a persistent item and notifies subscribers.
func (s *Scope) SetItem(t PersistentType, v any) {
	s.items[t] = v
	s.notify()
}

// OnChanged subscribes to state/item changes. The returned cancel func
// releases the subscription; subscribers never unhook manually.
func (s *Scope) OnChanged(fn func(*Scope)) (cancel func()) {
	id := s.nextSub
	s.nextSub++
	s.changed[id] = fn
	return func() { delete(s.changed, id) }
}

func (s *Scope) notify() {
	for _, fn := range s.changed {
		fn(s)
	}
}

func (s *Scope) setState(state LoadingState) {
	if s.state == state {
		return
	}
	s.state = state
	s.notify()
}

// RefCount returns the number of live references into the scope.
func (s *Scope) RefCount() int { return s.refs }

func (s *Scope) addReference() { s.refs++ }

// removeReference drops one reference and reports whether the scope
// should be destroyed (no consumers left).
func (s *Scope) removeReference() bool {
	if s.refs > 0 {
		s.refs--
	}
	return s.refs == 0
}

func (s *Scope) dispose() {
	if !s.BeginDispose() {
		return
	}
	s.items = map[PersistentType]any{}
	s.changed = map[int]func(*Scope){}
	s.EndDispose()
}
