package terrain

import (
	"context"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

// NormalsMode selects how vertex normals are produced.
type NormalsMode int

const (
	// NormalsDerived samples neighboring elevations and crosses the
	// resulting tangents.
	NormalsDerived NormalsMode = iota
	// NormalsSurfaceUp uses the geodetic up vector.
	NormalsSurfaceUp
	// NormalsAuto leaves normals to the renderer's own recalculation.
	NormalsAuto
)

// ParseNormalsMode resolves a configuration string to a mode. Unknown
// values fall back to NormalsDerived.
func ParseNormalsMode(s string) NormalsMode {
	switch s {
	case "surface-up":
		return NormalsSurfaceUp
	case "auto":
		return NormalsAuto
	default:
		return NormalsDerived
	}
}

const (
	// MinSubdivision and MaxSubdivision bound the per-edge tile
	// resolution.
	MinSubdivision = 1
	MaxSubdivision = 127

	// normalSampleOffset is the normalized offset used to sample
	// tangent elevations for derived normals.
	normalSampleOffset = 0.05
)

// ElevationSampler supplies elevation values at normalized tile
// positions. elevation.Raster satisfies it.
type ElevationSampler interface {
	Elevation(x, y float64) (float32, bool)
}

// ZeroElevation is the sampler used while a tile's elevation has not
// resolved: a flat surface at altitude zero.
type ZeroElevation struct{}

// Elevation implements ElevationSampler.
func (ZeroElevation) Elevation(x, y float64) (float32, bool) { return 0, true }

// SubdivisionForZoom derives the tile subdivision from a base resolution
// and the zoom level: base * factor^max(0, 24-zoom), clamped to
// [MinSubdivision, MaxSubdivision].
func SubdivisionForZoom(base int, zoom int, zoomFactor float64) int {
	if zoomFactor <= 0 {
		zoomFactor = 1
	}
	exp := 24 - zoom
	if exp < 0 {
		exp = 0
	}
	s := int(math.Round(float64(base) * math.Pow(zoomFactor, float64(exp))))
	if s < MinSubdivision {
		return MinSubdivision
	}
	if s > MaxSubdivision {
		return MaxSubdivision
	}
	return s
}

// ClampOverlapFactor keeps the seam-hiding edge scale within [0.5, 1.5].
func ClampOverlapFactor(f float32) float32 {
	if f < 0.5 {
		return 0.5
	}
	if f > 1.5 {
		return 1.5
	}
	return f
}

// Params are the inputs of one mesh build.
type Params struct {
	Key grid.Key
	// Subdivision is the grid resolution per tile edge.
	Subdivision int
	// OverlapFactor scales the tile about its center to hide seams.
	OverlapFactor float32
	// EdgeDepth controls the skirt: the boundary ring drops by
	// EdgeDepth/10 of the tile's width. Zero disables the skirt.
	EdgeDepth float32
	Normals   NormalsMode
	// Size is the host body diameter, SphericalRatio its projection
	// blend.
	Size           float64
	SphericalRatio float64
	// FlipWinding inverts triangle orientation for inverted-normal
	// contexts.
	FlipWinding bool
	Variant     Variant
}

func (p Params) withSkirt() bool { return p.EdgeDepth != 0 }

// CacheHash combines the build parameters that shape the output buffers
// into a memoization key: edge depth, subdivision, overlap factor, grid
// aspect ratio and mesh variant. It keys reuse of previously generated
// meshes, not the content of the output.
func (p Params) CacheHash() uint64 {
	h := hashInit()
	h = hashUint64(h, math.Float64bits(float64(p.EdgeDepth)))
	h = hashUint64(h, uint64(p.Subdivision))
	h = hashUint64(h, math.Float64bits(float64(p.OverlapFactor)))
	if p.Key.Dims.Y != 0 {
		h = hashUint64(h, math.Float64bits(float64(p.Key.Dims.X)/float64(p.Key.Dims.Y)))
	}
	h = hashUint64(h, uint64(p.Variant))
	return h
}

// buildHash extends CacheHash with the fields that pin the exact
// geometry, so the generator-level memo never serves a mesh from a
// different tile or projection state.
func (p Params) buildHash() uint64 {
	h := p.CacheHash()
	h = hashUint64(h, uint64(uint32(p.Key.Index.X))<<32|uint64(uint32(p.Key.Index.Y)))
	h = hashUint64(h, uint64(uint32(p.Key.Dims.X))<<32|uint64(uint32(p.Key.Dims.Y)))
	h = hashUint64(h, math.Float64bits(p.Size))
	h = hashUint64(h, math.Float64bits(p.SphericalRatio))
	h = hashUint64(h, uint64(p.Normals))
	if p.FlipWinding {
		h = hashUint64(h, 1)
	}
	return h
}

// FNV-1a style combinable hash.
func hashInit() uint64 { return 14695981039346656037 }

func hashUint64(h, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= 1099511628211
		v >>= 8
	}
	return h
}

// build phases, in strict order.
const (
	phaseVertices = iota
	phaseTriangles
	phaseNormals
	phaseUVs
	phaseSkirt
	phaseDone
)

// Builder incrementally fills a MeshData for one tile. Work proceeds one
// row per Step so a frame-budgeted queue can spread generation across
// ticks; the context is checked at every step so a disposed tile aborts
// without finishing the buffer.
type Builder struct {
	p       Params
	sampler ElevationSampler
	out     *MeshData

	// center is the tile-local origin subtracted from every vertex.
	center mgl64.Vec3

	phase int
	row   int
}

// NewBuilder prepares a build, sizing the output buffers for the
// parameters.
func NewBuilder(p Params, sampler ElevationSampler, out *MeshData) *Builder {
	if p.Subdivision < MinSubdivision {
		p.Subdivision = MinSubdivision
	} else if p.Subdivision > MaxSubdivision {
		p.Subdivision = MaxSubdivision
	}
	p.OverlapFactor = ClampOverlapFactor(p.OverlapFactor)
	if sampler == nil {
		sampler = ZeroElevation{}
	}
	out.Resize(VertexCount(p.Subdivision, p.Variant, p.withSkirt()),
		IndexCount(p.Subdivision, p.Variant, p.withSkirt()))

	b := &Builder{p: p, sampler: sampler, out: out}
	b.center = geo.Point(b.tileCoordinate(0.5, 0.5, 0), p.Size, p.SphericalRatio)
	if !p.Variant.hasTerrain() {
		b.phase = phaseSkirt
	}
	return b
}

// Out returns the buffer being filled.
func (b *Builder) Out() *MeshData { return b.out }

// Done reports whether the build has completed.
func (b *Builder) Done() bool { return b.phase == phaseDone }

// Step performs one row of work for the current phase. It returns true
// when the whole build is finished. Cancellation of ctx aborts the build
// and surfaces the context error; partial buffers are the caller's to
// discard.
func (b *Builder) Step(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := b.p.Subdivision
	switch b.phase {
	case phaseVertices:
		b.vertexRow(b.row)
		b.advance(s + 1)
	case phaseTriangles:
		b.triangleRow(b.row)
		b.advance(s)
	case phaseNormals:
		if b.p.Normals == NormalsAuto {
			b.phase++
			b.row = 0
			break
		}
		b.normalRow(b.row)
		b.advance(s + 1)
	case phaseUVs:
		b.uvRow(b.row)
		b.advance(s + 1)
	case phaseSkirt:
		if !b.p.Variant.hasEdge() || !b.p.withSkirt() {
			b.phase = phaseDone
			break
		}
		b.skirtEdge(b.row)
		b.advance(4)
	}
	return b.phase == phaseDone, nil
}

// Run drives Step to completion.
func (b *Builder) Run(ctx context.Context) error {
	for {
		done, err := b.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// advance moves to the next row, rolling into the next phase after the
// last row of the current one.
func (b *Builder) advance(rows int) {
	b.row++
	if b.row < rows {
		return
	}
	b.row = 0
	b.phase++
	if b.phase == phaseSkirt && (!b.p.Variant.hasEdge() || !b.p.withSkirt()) {
		b.phase = phaseDone
	}
	if b.phase > phaseSkirt {
		b.phase = phaseDone
	}
}

// tileCoordinate maps normalized tile coordinates (overlap-scaled) to a
// geographic coordinate with the given altitude.
func (b *Builder) tileCoordinate(nx, ny, alt float64) geo.Coordinate {
	o := float64(b.p.OverlapFactor)
	ox := 0.5 + (nx-0.5)*o
	oy := 0.5 + (ny-0.5)*o
	fx := float64(b.p.Key.Index.X) + ox
	fy := float64(b.p.Key.Index.Y) + oy
	coord := geo.CoordinateFromIndex(fx, fy, b.p.Key.Dims)
	coord.Alt = alt
	return coord
}

// vertexAt computes the tile-local position of a normalized grid point.
func (b *Builder) vertexAt(nx, ny float64) mgl32.Vec3 {
	elev, ok := b.sampler.Elevation(clamp01(nx), clamp01(ny))
	if !ok {
		elev = 0
	}
	p := geo.Point(b.tileCoordinate(nx, ny, float64(elev)), b.p.Size, b.p.SphericalRatio).Sub(b.center)
	return mgl32.Vec3{float32(p.X()), float32(p.Y()), float32(p.Z())}
}

func (b *Builder) vertexRow(y int) {
	s := b.p.Subdivision
	inv := 1 / float64(s)
	for x := 0; x <= s; x++ {
		b.out.Vertices[y*(s+1)+x] = b.vertexAt(float64(x)*inv, float64(y)*inv)
	}
}

// triangleRow emits the two triangles of each quad in row y, alternating
// the diagonal per quad so no consistent bias shows up as a seam.
func (b *Builder) triangleRow(y int) {
	s := b.p.Subdivision
	w := uint32(s + 1)
	i := y * s * 6
	for x := 0; x < s; x++ {
		tl := uint32(y)*w + uint32(x)
		tr := tl + 1
		bl := tl + w
		br := bl + 1

		xeven := x
		if y%2 == 0 {
			xeven++
		}
		if xeven%2 == 0 {
			// Diagonal from top-left to bottom-right.
			b.quad(i, tl, tr, br, tl, br, bl)
		} else {
			// Diagonal from top-right to bottom-left.
			b.quad(i, tl, tr, bl, tr, br, bl)
		}
		i += 6
	}
}

// quad writes six indices, flipping winding when requested.
func (b *Builder) quad(i int, a0, a1, a2, b0, b1, b2 uint32) {
	t := b.out.Triangles
	if b.p.FlipWinding {
		t[i], t[i+1], t[i+2] = a0, a2, a1
		t[i+3], t[i+4], t[i+5] = b0, b2, b1
		return
	}
	t[i], t[i+1], t[i+2] = a0, a1, a2
	t[i+3], t[i+4], t[i+5] = b0, b1, b2
}

func (b *Builder) normalRow(y int) {
	s := b.p.Subdivision
	inv := 1 / float64(s)
	for x := 0; x <= s; x++ {
		nx := float64(x) * inv
		ny := float64(y) * inv
		b.out.Normals[y*(s+1)+x] = b.normalAt(nx, ny)
	}
}

// normalAt derives a normal from neighboring elevation samples, oriented
// along the local up vector, or returns up directly in SurfaceUp mode.
func (b *Builder) normalAt(nx, ny float64) mgl32.Vec3 {
	coord := b.tileCoordinate(nx, ny, 0)
	up64 := geo.Up(coord, b.p.SphericalRatio)
	up := mgl32.Vec3{float32(up64.X()), float32(up64.Y()), float32(up64.Z())}
	if b.p.Normals == NormalsSurfaceUp {
		return up
	}

	const o = normalSampleOffset
	px := b.vertexAt(nx+o, ny).Sub(b.vertexAt(nx-o, ny))
	py := b.vertexAt(nx, ny+o).Sub(b.vertexAt(nx, ny-o))
	n := py.Cross(px)
	l := math32.Sqrt(n.Dot(n))
	if l < 1e-12 {
		return up
	}
	n = n.Mul(1 / l)
	if n.Dot(up) < 0 {
		n = n.Mul(-1)
	}
	return n
}

func (b *Builder) uvRow(y int) {
	s := b.p.Subdivision
	inv := 1 / float32(s)
	v := 1 - float32(y)*inv
	for x := 0; x <= s; x++ {
		b.out.UVs[y*(s+1)+x] = mgl32.Vec2{float32(x) * inv, v}
	}
}

// skirt edge ordering: top, bottom, left, right.
func (b *Builder) skirtEdge(edge int) {
	s := b.p.Subdivision
	inv := 1 / float64(s)

	gridVerts := 0
	if b.p.Variant.hasTerrain() {
		gridVerts = GridVertexCount(s)
	}
	vBase := gridVerts + edge*2*(s+1)
	iBase := 0
	if b.p.Variant.hasTerrain() {
		iBase = 6 * s * s
	}
	iBase += edge * 6 * s

	// Skirt drop, expressed as a fraction of the tile's world width.
	depth := float64(b.p.EdgeDepth) / 10 * (math.Pi * b.p.Size / float64(b.p.Key.Dims.X))

	for i := 0; i <= s; i++ {
		var nx, ny float64
		t := float64(i) * inv
		switch edge {
		case 0:
			nx, ny = t, 0
		case 1:
			nx, ny = t, 1
		case 2:
			nx, ny = 0, t
		default:
			nx, ny = 1, t
		}
		top := b.vertexAt(nx, ny)
		up64 := geo.Up(b.tileCoordinate(nx, ny, 0), b.p.SphericalRatio)
		drop := mgl32.Vec3{
			float32(up64.X() * depth),
			float32(up64.Y() * depth),
			float32(up64.Z() * depth),
		}
		bottom := top.Sub(drop)

		b.out.Vertices[vBase+i] = top
		b.out.Vertices[vBase+s+1+i] = bottom
		if len(b.out.Normals) > vBase+s+1+i {
			n := mgl32.Vec3{float32(up64.X()), float32(up64.Y()), float32(up64.Z())}
			b.out.Normals[vBase+i] = n
			b.out.Normals[vBase+s+1+i] = n
		}
		if len(b.out.UVs) > vBase+s+1+i {
			u := float32(clamp01(nx))
			v := 1 - float32(clamp01(ny))
			b.out.UVs[vBase+i] = mgl32.Vec2{u, v}
			b.out.UVs[vBase+s+1+i] = mgl32.Vec2{u, v}
		}
	}

	// Outward-facing winding flips on the bottom and left edges.
	flip := edge == 1 || edge == 2
	for i := 0; i < s; i++ {
		t0 := uint32(vBase + i)
		t1 := t0 + 1
		b0 := uint32(vBase + s + 1 + i)
		b1 := b0 + 1
		j := iBase + i*6
		if flip != b.p.FlipWinding {
			b.out.Triangles[j], b.out.Triangles[j+1], b.out.Triangles[j+2] = t0, b0, t1
			b.out.Triangles[j+3], b.out.Triangles[j+4], b.out.Triangles[j+5] = t1, b0, b1
		} else {
			b.out.Triangles[j], b.out.Triangles[j+1], b.out.Triangles[j+2] = t0, t1, b0
			b.out.Triangles[j+3], b.out.Triangles[j+4], b.out.Triangles[j+5] = t1, b1, b0
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
