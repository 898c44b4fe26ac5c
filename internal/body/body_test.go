package body

import (
	"testing"

	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/internal/terrain"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

func testBody() *Body {
	return New(Options{Name: "test", Size: 100, SphericalRatio: 1})
}

func newTestTile(x, y int, dims geo.Dimensions, b *Body) *terrain.Tile {
	return terrain.NewTile(grid.NewKey(x, y, dims), terrain.DefaultSettings(), b)
}

func TestRatioTween(t *testing.T) {
	b := New(Options{Size: 100, SphericalRatio: 1, RatioSpeed: 0.5})
	if b.Update(1) {
		t.Error("steady ratio reported a change")
	}

	b.SetTargetRatio(0)
	if !b.Update(1) {
		t.Fatal("tween did not start")
	}
	if b.SphericalRatio() != 0.5 {
		t.Errorf("ratio after 1s: %v, want 0.5", b.SphericalRatio())
	}
	b.Update(10) // overshooting clamps at the target
	if b.SphericalRatio() != 0 {
		t.Errorf("ratio after overshoot: %v, want 0", b.SphericalRatio())
	}
	if b.IsSpherical() {
		t.Error("flat body reports spherical")
	}
	if b.Update(1) {
		t.Error("settled tween still reports change")
	}

	b.SetTargetRatio(2) // clamped into [0,1]
	for i := 0; i < 10; i++ {
		b.Update(1)
	}
	if b.SphericalRatio() != 1 {
		t.Errorf("ratio %v, want clamp at 1", b.SphericalRatio())
	}
}

func TestTileIndexing(t *testing.T) {
	b := testBody()
	dims := b.Dimensions(2)
	if dims != (geo.Dimensions{X: 8, Y: 4}) {
		t.Fatalf("dims at zoom 2: %v", dims)
	}

	var added, removed []*terrain.Tile
	cancelAdd := b.OnTileAdded(func(tile *terrain.Tile) { added = append(added, tile) })
	b.OnTileRemoved(func(tile *terrain.Tile) { removed = append(removed, tile) })

	t1 := newTestTile(1, 1, dims, b)
	t2 := newTestTile(1, 1, dims, b)
	other := newTestTile(2, 1, dims, b)
	b.AddTile(t1)
	b.AddTile(t2)
	b.AddTile(other)

	if len(added) != 3 {
		t.Fatalf("added events: %d", len(added))
	}
	if b.TileCount() != 3 {
		t.Fatalf("tile count %d", b.TileCount())
	}
	bucket := b.Bucket(t1.Key())
	if bucket == nil || bucket.Len() != 2 {
		t.Fatal("co-located tiles must share one bucket")
	}
	if b.Bucket(grid.NewKey(3, 3, dims)) != nil {
		t.Error("empty cell returned a bucket")
	}

	// Removing the last member drops the bucket from the index.
	b.RemoveTile(t1)
	if b.Bucket(t2.Key()) == nil {
		t.Fatal("bucket died before its last member")
	}
	b.RemoveTile(t2)
	if b.Bucket(t2.Key()) != nil {
		t.Error("empty bucket still indexed")
	}
	if len(removed) != 2 {
		t.Errorf("removed events: %d", len(removed))
	}

	cancelAdd()
	b.AddTile(newTestTile(4, 2, dims, b))
	if len(added) != 3 {
		t.Error("cancelled subscription still fired")
	}

	b.Dispose()
	if b.TileCount() != 0 {
		t.Error("dispose left tiles indexed")
	}
	if b.IsValid() {
		t.Error("disposed body still valid")
	}
}

func TestBodySatisfiesTerrainInterfaces(t *testing.T) {
	var _ terrain.Host = testBody()
	var _ terrain.Registry = testBody()
}

func TestPresets(t *testing.T) {
	earth, ok := LookupPreset("earth")
	if !ok {
		t.Fatal("earth preset missing")
	}
	if earth.RadiusM != geo.EarthRadius {
		t.Errorf("earth radius %v", earth.RadiusM)
	}
	b := NewFromPreset(earth)
	if b.Size() != geo.EarthSize {
		t.Errorf("earth size %v, want %v", b.Size(), geo.EarthSize)
	}
	if !b.IsSpherical() {
		t.Error("preset bodies start spherical")
	}
	if _, ok := LookupPreset("vulcan"); ok {
		t.Error("unknown preset resolved")
	}
}
