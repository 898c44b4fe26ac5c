package terrain

import (
	"context"
	"testing"
	"time"

	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

func testParams(s int, edgeDepth float32) Params {
	return Params{
		Key:           grid.NewKey(1, 1, geo.Dimensions{X: 4, Y: 4}),
		Subdivision:   s,
		OverlapFactor: 1,
		EdgeDepth:     edgeDepth,
		Normals:       NormalsDerived,
		Size:          100,
		Variant:       VariantTerrainAndEdge,
	}
}

func build(t *testing.T, p Params, sampler ElevationSampler) *MeshData {
	t.Helper()
	out := &MeshData{}
	if err := NewBuilder(p, sampler, out).Run(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	return out
}

func TestSubdivisionForZoom(t *testing.T) {
	cases := []struct {
		base, zoom int
		factor     float64
		want       int
	}{
		{1, 24, 2, 1},    // no amplification at the reference zoom
		{1, 30, 2, 1},    // nor beyond it
		{1, 23, 2, 2},    // one level in doubles once
		{1, 20, 2, 16},   // four levels in
		{1, 0, 2, 127},   // clamped at the ceiling
		{200, 24, 1, 127},
		{0, 24, 1, 1}, // clamped at the floor
	}
	for _, c := range cases {
		if got := SubdivisionForZoom(c.base, c.zoom, c.factor); got != c.want {
			t.Errorf("SubdivisionForZoom(%d, %d, %v) = %d, want %d",
				c.base, c.zoom, c.factor, got, c.want)
		}
	}
}

func TestBufferSizes(t *testing.T) {
	// Subdivision 2 without a skirt: 9 vertices, 24 indices.
	m := build(t, testParams(2, 0), nil)
	if len(m.Vertices) != 9 {
		t.Errorf("s=2 no skirt: %d vertices, want 9", len(m.Vertices))
	}
	if len(m.Triangles) != 24 {
		t.Errorf("s=2 no skirt: %d indices, want 24", len(m.Triangles))
	}

	// With a skirt: +8(s+1) vertices, +24s indices.
	m = build(t, testParams(2, 1), nil)
	if len(m.Vertices) != 9+24 {
		t.Errorf("s=2 skirt: %d vertices, want 33", len(m.Vertices))
	}
	if len(m.Triangles) != 24+48 {
		t.Errorf("s=2 skirt: %d indices, want 72", len(m.Triangles))
	}

	for _, s := range []int{1, 3, 7} {
		m = build(t, testParams(s, 1), nil)
		if len(m.Vertices) != (s+1)*(s+1)+8*(s+1) {
			t.Errorf("s=%d: %d vertices", s, len(m.Vertices))
		}
		if len(m.Triangles) != 6*s*s+24*s {
			t.Errorf("s=%d: %d indices", s, len(m.Triangles))
		}
	}
}

func TestEdgeOnlyVariant(t *testing.T) {
	p := testParams(2, 1)
	p.Variant = VariantEdgeOnly
	m := build(t, p, nil)
	if len(m.Vertices) != 24 || len(m.Triangles) != 48 {
		t.Errorf("edge only: %d vertices %d indices, want 24 48",
			len(m.Vertices), len(m.Triangles))
	}

	p.Variant = VariantTerrainOnly
	m = build(t, p, nil)
	if len(m.Vertices) != 9 || len(m.Triangles) != 24 {
		t.Errorf("terrain only: %d vertices %d indices, want 9 24",
			len(m.Vertices), len(m.Triangles))
	}
}

func TestDiagonalAlternation(t *testing.T) {
	m := build(t, testParams(2, 0), nil)

	// Quad (0,0): x+1 is odd, diagonal runs top-right to bottom-left.
	if m.Triangles[0] != 0 || m.Triangles[1] != 1 || m.Triangles[2] != 3 {
		t.Errorf("quad(0,0) first triangle: %v", m.Triangles[0:3])
	}
	// Quad (1,0): x+1 is even, diagonal runs top-left to bottom-right.
	if m.Triangles[6] != 1 || m.Triangles[7] != 2 || m.Triangles[8] != 5 {
		t.Errorf("quad(1,0) first triangle: %v", m.Triangles[6:9])
	}
	// Row 1 flips the phase: quad (0,1) gets the top-left diagonal.
	if m.Triangles[12] != 3 || m.Triangles[13] != 4 || m.Triangles[14] != 7 {
		t.Errorf("quad(0,1) first triangle: %v", m.Triangles[12:15])
	}
}

func TestUVOrientation(t *testing.T) {
	m := build(t, testParams(2, 0), nil)
	// Row 0 is the tile's top: v = 1. Bottom row: v = 0.
	if m.UVs[0] != [2]float32{0, 1} {
		t.Errorf("top-left uv %v, want (0,1)", m.UVs[0])
	}
	if m.UVs[2] != [2]float32{1, 1} {
		t.Errorf("top-right uv %v, want (1,1)", m.UVs[2])
	}
	if m.UVs[8] != [2]float32{1, 0} {
		t.Errorf("bottom-right uv %v, want (1,0)", m.UVs[8])
	}
}

func TestFlatNormalsPointUp(t *testing.T) {
	p := testParams(2, 0)
	p.SphericalRatio = 0
	m := build(t, p, ZeroElevation{})
	for i, n := range m.Normals {
		if n.Y() < 0.999 {
			t.Fatalf("vertex %d: normal %v, want +Y on a flat zero surface", i, n)
		}
	}

	p.Normals = NormalsSurfaceUp
	m = build(t, p, ZeroElevation{})
	for i, n := range m.Normals {
		if n != [3]float32{0, 1, 0} {
			t.Fatalf("vertex %d: surface-up normal %v", i, n)
		}
	}
}

func TestWindingFlip(t *testing.T) {
	a := build(t, testParams(1, 0), nil)
	p := testParams(1, 0)
	p.FlipWinding = true
	b := build(t, p, nil)
	if a.Triangles[0] != b.Triangles[0] ||
		a.Triangles[1] != b.Triangles[2] || a.Triangles[2] != b.Triangles[1] {
		t.Errorf("flip should swap the last two indices: %v vs %v",
			a.Triangles[0:3], b.Triangles[0:3])
	}
}

func TestBuildCancellation(t *testing.T) {
	p := testParams(8, 1)
	out := &MeshData{}
	b := NewBuilder(p, nil, out)

	ctx, cancel := context.WithCancel(context.Background())
	if done, err := b.Step(ctx); err != nil || done {
		t.Fatalf("first step: done=%v err=%v", done, err)
	}
	cancel()
	if _, err := b.Step(ctx); err == nil {
		t.Fatal("step after cancel must fail")
	}
	if b.Done() {
		t.Fatal("cancelled build must not report done")
	}
}

func TestCacheHash(t *testing.T) {
	a := testParams(4, 1)
	b := a
	if a.CacheHash() != b.CacheHash() {
		t.Fatal("identical params must hash equal")
	}
	b.Subdivision = 5
	if a.CacheHash() == b.CacheHash() {
		t.Error("subdivision change must alter the hash")
	}
	b = a
	b.EdgeDepth = 2
	if a.CacheHash() == b.CacheHash() {
		t.Error("edge depth change must alter the hash")
	}
	// Same build settings on another cell of the same grid share a hash.
	b = a
	b.Key = grid.NewKey(2, 1, a.Key.Dims)
	if a.CacheHash() != b.CacheHash() {
		t.Error("cell index must not affect the reuse hash")
	}
}

func TestGeneratorMemo(t *testing.T) {
	g := NewGenerator(0)
	p := testParams(2, 1)

	a, err := g.Generate(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := g.Generate(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a != b {
		t.Error("identical builds must share one buffer")
	}

	p2 := p
	p2.Key = grid.NewKey(2, 1, p.Key.Dims)
	c, err := g.Generate(context.Background(), p2, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if c == a {
		t.Error("a different cell must not reuse another cell's geometry")
	}
}

func TestGeneratorStopReturns(t *testing.T) {
	g := NewGenerator(time.Minute)
	done := make(chan struct{})
	go func() {
		g.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop never returned")
	}
}
