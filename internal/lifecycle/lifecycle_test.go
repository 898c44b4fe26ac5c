package lifecycle

import "testing"

type fakeObj struct {
	Object
	payload int
	resets  int
}

func (f *fakeObj) ResetForPool()             { f.payload = 0; f.resets++ }
func (f *fakeObj) LifecycleObject() *Object  { return &f.Object }

func TestStateMachine(t *testing.T) {
	var o Object
	if o.State() != Created || !o.IsValid() {
		t.Fatalf("new object: state %v valid %v", o.State(), o.IsValid())
	}
	o.Activate()
	if o.State() != Active || !o.IsValid() {
		t.Fatalf("after Activate: state %v", o.State())
	}
	if !o.BeginDispose() {
		t.Fatal("BeginDispose on active object should succeed")
	}
	if o.IsValid() {
		t.Error("disposing object should not be valid")
	}
	if o.BeginDispose() {
		t.Error("BeginDispose should run at most once")
	}
	o.EndDispose()
	if o.State() != Disposed {
		t.Fatalf("after EndDispose: state %v", o.State())
	}
	o.Recycle()
	if o.State() != Created {
		t.Fatalf("after Recycle: state %v", o.State())
	}
}

func TestPoolRecycles(t *testing.T) {
	made := 0
	pool := NewPool(func() *fakeObj {
		made++
		return &fakeObj{}
	})

	a := pool.Get()
	a.payload = 42
	a.Activate()

	// A live object is disposed on the way into the pool.
	pool.Put(a)
	if pool.Len() != 1 {
		t.Fatal("pool did not accept a live object")
	}

	b := pool.Get()
	if b != a {
		t.Error("pool should hand back the recycled instance")
	}
	if b.payload != 0 || b.resets != 1 {
		t.Errorf("recycled instance not reset: payload %d resets %d", b.payload, b.resets)
	}
	if b.State() != Created {
		t.Errorf("recycled instance state %v", b.State())
	}

	// An object mid-disposal stays with its owner.
	b.Activate()
	b.BeginDispose()
	pool.Put(b)
	if pool.Len() != 0 {
		t.Fatal("pool accepted an object mid-disposal")
	}
	b.EndDispose()
	pool.Put(b)
	if pool.Len() != 1 {
		t.Fatal("pool rejected a disposed object")
	}
	if made != 1 {
		t.Errorf("factory ran %d times, want 1", made)
	}
}
