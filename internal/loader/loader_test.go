package loader

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

func testLoader(t *testing.T, source Datasource, opts Options) *GridLoader {
	t.Helper()
	if opts.Zoom == (ZoomPolicy{}) {
		opts.Zoom = ZoomPolicy{Min: 0, Max: geo.MaxZoom}
	}
	l := NewGridLoader(source, FillFootprint{}, opts)
	base := time.Unix(1000, 0)
	l.now = func() time.Time { return base }
	l.rng = rand.New(rand.NewSource(1))
	return l
}

func okSource(payload []byte) Datasource {
	return FuncDatasource(func(ctx context.Context, key grid.Key) ([]byte, error) {
		return payload, nil
	})
}

func TestGetLoadScopeIdempotent(t *testing.T) {
	l := testLoader(t, okSource(nil), Options{})
	key := grid.NewKey(1, 1, geo.Dimensions{X: 4, Y: 4})

	a, ok := l.GetLoadScope(key, true, false)
	if !ok || a == nil {
		t.Fatal("create miss")
	}
	b, ok := l.GetLoadScope(key, true, false)
	if !ok || b != a {
		t.Fatal("second lookup must return the identical scope instance")
	}
	if l.GetLoadScopeCount() != 1 {
		t.Fatalf("scope count %d, want 1", l.GetLoadScopeCount())
	}
}

func TestZoomPolicyRange(t *testing.T) {
	p := ZoomPolicy{Min: 2, Max: 5}
	for zoom, want := range map[int]bool{0: false, 1: false, 2: true, 4: true, 5: true, 6: false} {
		if got := p.Allows(zoom); got != want {
			t.Errorf("Allows(%d) = %v, want %v", zoom, got, want)
		}
	}

	l := testLoader(t, okSource(nil), Options{Zoom: p})
	outside := grid.NewKey(0, 0, geo.Dimensions{X: 1, Y: 1}) // zoom 0
	if _, ok := l.GetLoadScope(outside, true, false); ok {
		t.Error("scope created outside the zoom policy")
	}
	inside := grid.NewKey(0, 0, geo.Dimensions{X: 8, Y: 8}) // zoom 3
	if _, ok := l.GetLoadScope(inside, true, false); !ok {
		t.Error("scope rejected inside the zoom policy")
	}
}

func TestReferenceCounting(t *testing.T) {
	l := testLoader(t, okSource(nil), Options{})
	key := grid.NewKey(2, 3, geo.Dimensions{X: 8, Y: 8})

	const n = 3
	refs := make([]*Reference, n)
	for i := range refs {
		refs[i] = NewReference(l, key)
		if refs[i] == nil {
			t.Fatal("reference failed to bind")
		}
	}
	if l.GetLoadScopeCount() != 1 {
		t.Fatalf("N references must share one scope, count %d", l.GetLoadScopeCount())
	}
	scope := refs[0].Scope()
	if scope.RefCount() != n {
		t.Fatalf("ref count %d, want %d", scope.RefCount(), n)
	}

	for i := 0; i < n-1; i++ {
		refs[i].Dispose()
	}
	if l.GetLoadScopeCount() != 1 {
		t.Error("scope died before its last reference")
	}
	refs[n-1].Dispose()
	if l.GetLoadScopeCount() != 0 {
		t.Error("scope must die with its last reference")
	}
	if st := l.LoadingStateOf(key); st != StateNone {
		t.Errorf("state after removal: %v, want none", st)
	}
	// Double dispose is a no-op.
	refs[0].Dispose()
	if l.GetLoadScopeCount() != 0 {
		t.Error("double dispose changed the registry")
	}
}

func TestLoadIntervalGrowsWithDistance(t *testing.T) {
	l := testLoader(t, okSource(nil), Options{LoadDelay: 100 * time.Millisecond, Wrap: true})
	dims := geo.Dimensions{X: 16, Y: 16}
	center := grid.Index{X: 8, Y: 8}

	prevMax := time.Duration(-1)
	for dist := 0; dist <= 5; dist++ {
		iv := l.loadInterval(grid.Index{X: 8 + dist, Y: 8}, center, dims)
		min := time.Duration(dist) * l.opts.LoadDelay
		max := min + l.opts.LoadDelay/4 + time.Nanosecond
		if iv < min || iv > max {
			t.Errorf("dist %d: interval %v outside [%v,%v]", dist, iv, min, max)
		}
		if iv <= prevMax-l.opts.LoadDelay/4-time.Nanosecond {
			t.Errorf("dist %d: interval %v did not grow", dist, iv)
		}
		prevMax = iv
	}

	// Wrapped columns use the shorter distance.
	near := l.loadInterval(grid.Index{X: 15, Y: 8}, grid.Index{X: 0, Y: 8}, dims)
	if near >= 2*l.opts.LoadDelay {
		t.Errorf("wrapped neighbor interval %v, want < %v", near, 2*l.opts.LoadDelay)
	}
}

func TestUpdateCreatesAndRetires(t *testing.T) {
	l := testLoader(t, okSource(nil), Options{})
	created, retired := l.Update(1) // fill footprint at zoom 1: 2x2
	if created != 4 || retired != 0 {
		t.Fatalf("first update: created %d retired %d, want 4 0", created, retired)
	}
	if l.GetLoadScopeCount() != 4 {
		t.Fatalf("scope count %d, want 4", l.GetLoadScopeCount())
	}

	// Same footprint again: nothing changes.
	created, retired = l.Update(1)
	if created != 0 || retired != 0 {
		t.Fatalf("steady update: created %d retired %d", created, retired)
	}

	// Zoom change retires the old dimensions and creates the new set.
	created, retired = l.Update(2)
	if created != 16 || retired != 4 {
		t.Fatalf("zoom change: created %d retired %d, want 16 4", created, retired)
	}
	if l.GetLoadScopeCount() != 16 {
		t.Fatalf("scope count %d, want 16", l.GetLoadScopeCount())
	}
}

func TestUpdateStaggersNewScopes(t *testing.T) {
	l := testLoader(t, okSource(nil), Options{LoadDelay: 100 * time.Millisecond, Wrap: true})
	l.Update(2) // fill footprint at zoom 2: 4x4, center (2,2)
	now := l.now()

	immediate := 0
	var latest time.Time
	l.registry.Each(func(s *Scope) {
		if !s.Due().After(now) {
			immediate++
		}
		if s.Due().After(latest) {
			latest = s.Due()
		}
	})
	// Only the center tile may start right away; the rest wait out
	// their ring's delay.
	if immediate > 1 {
		t.Errorf("%d scopes due immediately, want at most 1", immediate)
	}
	if latest.Before(now.Add(2 * l.opts.LoadDelay)) {
		t.Errorf("outermost ring due after %v, want at least %v", latest.Sub(now), 2*l.opts.LoadDelay)
	}
}

func TestProcessLoadsAndFails(t *testing.T) {
	calls := 0
	src := FuncDatasource(func(ctx context.Context, key grid.Key) ([]byte, error) {
		calls++
		if key.Index.X == 1 {
			return nil, errors.New("missing tile")
		}
		return []byte{1, 2, 3}, nil
	})
	l := testLoader(t, src, Options{})
	l.Update(0) // single 1x1 tile
	good := grid.NewKey(0, 0, geo.Dimensions{X: 1, Y: 1})
	bad := grid.NewKey(1, 0, geo.Dimensions{X: 2, Y: 2})
	l.GetLoadScope(bad, true, false)

	loaded := l.Process(context.Background())
	if loaded != 1 {
		t.Fatalf("loaded %d scopes, want 1", loaded)
	}
	if st := l.LoadingStateOf(good); st != StateLoaded {
		t.Errorf("good tile state %v", st)
	}
	if st := l.LoadingStateOf(bad); st != StateFailed {
		t.Errorf("bad tile state %v", st)
	}

	// Failed scopes are not auto-retried.
	before := calls
	l.Process(context.Background())
	if calls != before {
		t.Error("Process retried a failed scope without reload")
	}

	// Explicit reload retries.
	l.GetLoadScope(bad, false, true)
	l.Process(context.Background())
	if calls != before+1 {
		t.Error("reload did not re-trigger the fetch")
	}
}

func TestDecodeFailureMarksFailed(t *testing.T) {
	l := testLoader(t, okSource([]byte{9}), Options{
		Decode: func(key grid.Key, raw []byte) (any, error) {
			return nil, fmt.Errorf("decode %s: bad payload", key)
		},
	})
	key := grid.NewKey(0, 0, geo.Dimensions{X: 1, Y: 1})
	l.GetLoadScope(key, true, false)
	l.Process(context.Background())
	if st := l.LoadingStateOf(key); st != StateFailed {
		t.Errorf("state %v, want failed", st)
	}
}

func TestSetDatasourceReloads(t *testing.T) {
	l := testLoader(t, okSource([]byte("old")), Options{})
	key := grid.NewKey(0, 0, geo.Dimensions{X: 1, Y: 1})
	ref := NewReference(l, key)
	l.Process(context.Background())
	if string(ref.Data(PersistentElevation).([]byte)) != "old" {
		t.Fatal("first load missing")
	}

	resolved := 0
	cancel := ref.OnResolved(func(*Reference) { resolved++ })
	defer cancel()

	l.SetDatasource(okSource([]byte("new")))
	if ref.LoadingState() == StateLoaded {
		t.Error("datasource swap should reset scope state")
	}
	l.Process(context.Background())
	if string(ref.Data(PersistentElevation).([]byte)) != "new" {
		t.Error("reference did not re-resolve after datasource change")
	}
	if resolved == 0 {
		t.Error("OnResolved never fired across the datasource swap")
	}
}

func TestReferenceSetKey(t *testing.T) {
	l := testLoader(t, okSource(nil), Options{})
	dims := geo.Dimensions{X: 4, Y: 4}
	a := grid.NewKey(0, 0, dims)
	b := grid.NewKey(1, 0, dims)

	ref := NewReference(l, a)
	if !ref.SetKey(b) {
		t.Fatal("rebind failed")
	}
	if ref.Key() != b {
		t.Errorf("key after SetKey: %v", ref.Key())
	}
	if l.GetLoadScopeCount() != 1 {
		t.Errorf("old scope should be released on rebind, count %d", l.GetLoadScopeCount())
	}
	if st := l.LoadingStateOf(a); st != StateNone {
		t.Errorf("old key state %v, want none", st)
	}
}
