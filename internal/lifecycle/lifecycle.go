// Package lifecycle provides an explicit object lifecycle state machine and
// a recycling pool for per-tile objects that are created and destroyed at
// high churn (load scopes, mesh buffers, tiles).
package lifecycle

import "sync"

// State is the lifecycle state of a managed object.
type State int

const (
	// Created means the object exists but has not been activated.
	Created State = iota
	// Active means the object is initialized and usable.
	Active
	// Disposing means Dispose has started; the object must not hand out
	// new references.
	Disposing
	// Disposed means the object is dead and may be recycled.
	Disposed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Active:
		return "active"
	case Disposing:
		return "disposing"
	case Disposed:
		return "disposed"
	}
	return "unknown"
}

// Object is an embeddable lifecycle tracker. There is no null-object
// sentinel; callers check IsValid instead.
type Object struct {
	state State
}

// State returns the current lifecycle state.
func (o *Object) State() State { return o.state }

// IsValid reports whether the object can be used (Created or Active).
func (o *Object) IsValid() bool { return o.state == Created || o.state == Active }

// Activate moves a Created (or recycled) object to Active.
func (o *Object) Activate() { o.state = Active }

// BeginDispose moves the object to Disposing. Returns false if disposal
// already started, so Dispose bodies run at most once.
func (o *Object) BeginDispose() bool {
	if o.state == Disposing || o.state == Disposed {
		return false
	}
	o.state = Disposing
	return true
}

// EndDispose marks the object fully Disposed.
func (o *Object) EndDispose() { o.state = Disposed }

// Recycle resets a Disposed object back to Created for pooled reuse.
func (o *Object) Recycle() { o.state = Created }

// Recyclable is implemented by pooled objects that reset their own fields.
type Recyclable interface {
	// ResetForPool clears object state before the instance is handed out
	// again.
	ResetForPool()
	// LifecycleObject exposes the embedded lifecycle tracker.
	LifecycleObject() *Object
}

// Pool recycles disposed instances instead of reallocating. New instances
// come from the factory when the pool is empty.
type Pool[T Recyclable] struct {
	mu      sync.Mutex
	free    []T
	factory func() T
}

// NewPool creates a pool backed by the given factory.
func NewPool[T Recyclable](factory func() T) *Pool[T] {
	return &Pool[T]{factory: factory}
}

// Get returns a fresh or recycled instance in the Created state.
func (p *Pool[T]) Get() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		obj := p.free[n-1]
		p.free = p.free[:n-1]
		obj.LifecycleObject().Recycle()
		return obj
	}
	return p.factory()
}

// Put returns an instance to the pool, disposing it first when it is
// still valid. Instances caught mid-disposal are dropped; their owner
// finishes the teardown.
func (p *Pool[T]) Put(obj T) {
	lo := obj.LifecycleObject()
	switch lo.State() {
	case Disposing:
		return
	case Created, Active:
		lo.BeginDispose()
		lo.EndDispose()
	}
	obj.ResetForPool()
	p.mu.Lock()
	p.free = append(p.free, obj)
	p.mu.Unlock()
}

// Len returns the number of pooled free instances.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
