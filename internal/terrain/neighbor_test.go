package terrain

import (
	"testing"

	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

type testRegistry struct {
	buckets map[grid.Key]*Bucket
	added   []func(*Tile)
	removed []func(*Tile)
}

func newTestRegistry() *testRegistry {
	return &testRegistry{buckets: make(map[grid.Key]*Bucket)}
}

func (r *testRegistry) Bucket(k grid.Key) *Bucket { return r.buckets[k] }

func (r *testRegistry) OnTileAdded(fn func(*Tile)) func() {
	r.added = append(r.added, fn)
	i := len(r.added) - 1
	return func() { r.added[i] = func(*Tile) {} }
}

func (r *testRegistry) OnTileRemoved(fn func(*Tile)) func() {
	r.removed = append(r.removed, fn)
	i := len(r.removed) - 1
	return func() { r.removed[i] = func(*Tile) {} }
}

func (r *testRegistry) addTile(key grid.Key) *Tile {
	tile := NewTile(key, flatSettings(), testHost{size: 100})
	b, ok := r.buckets[key]
	if !ok {
		b = NewBucket(key, func(*Bucket) { delete(r.buckets, key) })
		r.buckets[key] = b
	}
	b.Add(tile)
	for _, fn := range r.added {
		fn(tile)
	}
	return tile
}

func (r *testRegistry) removeTile(tile *Tile) {
	if b, ok := r.buckets[tile.Key()]; ok {
		b.Remove(tile)
	}
	for _, fn := range r.removed {
		fn(tile)
	}
}

func TestNeighborCacheWindow(t *testing.T) {
	reg := newTestRegistry()
	parent := grid.NewKey(1, 1, geo.Dimensions{X: 4, Y: 4})
	childDims := geo.Dimensions{X: 8, Y: 8}

	// The parent's own top-left child, present before binding.
	reg.addTile(grid.NewKey(2, 2, childDims))

	c := NewNeighborCache(reg, false)
	c.SetKey(parent)
	if !c.Update() {
		t.Fatal("binding must signal a change")
	}
	if c.Update() {
		t.Fatal("steady cache must not signal")
	}

	// Window cell (1,1) touches all four quadrant matrices.
	a := c.Alphas()
	for q, pos := range [][2]int{{1, 1}, {0, 1}, {1, 0}, {0, 0}} {
		if a[q][pos[1]][pos[0]] != 1 {
			t.Errorf("quadrant %d: matrix %v misses the occupied cell", q, a[q])
		}
	}

	// A finer tile appearing inside the window updates its slot via the
	// registry event.
	corner := reg.addTile(grid.NewKey(4, 4, childDims))
	if !c.Update() {
		t.Fatal("in-window add must signal")
	}
	a = c.Alphas()
	if a[3][2][2] != 1 {
		t.Errorf("bottom-right quadrant matrix %v misses window cell (3,3)", a[3])
	}

	// Events outside the window or at other resolutions are ignored.
	reg.addTile(grid.NewKey(6, 6, childDims))
	reg.addTile(grid.NewKey(1, 1, geo.Dimensions{X: 16, Y: 16}))
	if c.Update() {
		t.Error("out-of-window events must not signal")
	}

	// Removal clears the slot.
	reg.removeTile(corner)
	if !c.Update() {
		t.Fatal("in-window remove must signal")
	}
	if a = c.Alphas(); a[3][2][2] != 0 {
		t.Errorf("removed tile still blended: %v", a[3])
	}

	// Re-setting the same key is a no-op.
	c.SetKey(parent)
	if c.Update() {
		t.Error("same-key rebind must not signal")
	}

	c.Dispose()
	reg.addTile(grid.NewKey(3, 3, childDims))
	if c.Update() {
		t.Error("disposed cache still receiving events")
	}
}

func TestNeighborCacheWrap(t *testing.T) {
	reg := newTestRegistry()
	parent := grid.NewKey(0, 1, geo.Dimensions{X: 4, Y: 4})
	childDims := geo.Dimensions{X: 8, Y: 8}

	c := NewNeighborCache(reg, true)
	c.SetKey(parent)
	c.Update()

	// The window's left rim sits at child x = -1, which wraps to 7 on a
	// spherical grid.
	reg.addTile(grid.NewKey(7, 2, childDims))
	if !c.Update() {
		t.Fatal("wrapped in-window add must signal")
	}
	a := c.Alphas()
	// Window cell (0,1): quadrant 0's matrix at (0,1).
	if a[0][1][0] != 1 {
		t.Errorf("top-left quadrant matrix %v misses the wrapped cell", a[0])
	}

	// Without wrap the same cell stays outside the window.
	flat := NewNeighborCache(newTestRegistry(), false)
	flat.SetKey(parent)
	flat.Update()
	flat.onCellChanged(grid.NewKey(7, 2, childDims))
	if flat.Update() {
		t.Error("flat grid must not wrap the window")
	}
}
