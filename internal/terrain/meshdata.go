package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/terraglobe/internal/lifecycle"
)

// Variant selects which parts of a tile mesh a buffer holds. The skirt
// can be fused with the terrain surface or emitted as a separate mesh
// when shadow/collider settings need independent handling.
type Variant int

const (
	VariantTerrainAndEdge Variant = iota
	VariantTerrainOnly
	VariantEdgeOnly
)

func (v Variant) String() string {
	switch v {
	case VariantTerrainAndEdge:
		return "terrain+edge"
	case VariantTerrainOnly:
		return "terrain"
	case VariantEdgeOnly:
		return "edge"
	}
	return "unknown"
}

// hasTerrain reports whether the variant includes the surface grid.
func (v Variant) hasTerrain() bool { return v != VariantEdgeOnly }

// hasEdge reports whether the variant includes the skirt ring.
func (v Variant) hasEdge() bool { return v != VariantTerrainOnly }

// GridVertexCount is the number of surface vertices for a subdivision.
func GridVertexCount(subdivision int) int { return (subdivision + 1) * (subdivision + 1) }

// SkirtVertexCount is the number of skirt ring vertices: four edges, each
// duplicating its s+1 boundary vertices at the top and bottom of the
// skirt.
func SkirtVertexCount(subdivision int) int { return 8 * (subdivision + 1) }

// VertexCount returns the vertex buffer length for a subdivision and
// variant.
func VertexCount(subdivision int, variant Variant, withSkirt bool) int {
	n := 0
	if variant.hasTerrain() {
		n += GridVertexCount(subdivision)
	}
	if variant.hasEdge() && withSkirt {
		n += SkirtVertexCount(subdivision)
	}
	return n
}

// IndexCount returns the triangle index buffer length: 6s^2 for the
// surface grid plus 24s for the skirt.
func IndexCount(subdivision int, variant Variant, withSkirt bool) int {
	n := 0
	if variant.hasTerrain() {
		n += 6 * subdivision * subdivision
	}
	if variant.hasEdge() && withSkirt {
		n += 24 * subdivision
	}
	return n
}

// MeshData is a reusable buffer container filled by mesh generation and
// handed to the renderer. Buffers are sized exactly for the tile's
// current subdivision; Resize reallocates only when the size changes.
type MeshData struct {
	lifecycle.Object

	Vertices  []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Triangles []uint32

	// hashHint remembers the build hash of a cached mesh so Release can
	// tell shared buffers from pool-owned ones.
	hashHint uint64
}

// Resize sets buffer lengths, reusing backing arrays when they fit.
func (m *MeshData) Resize(vertexCount, indexCount int) {
	m.Vertices = resizeVec3(m.Vertices, vertexCount)
	m.Normals = resizeVec3(m.Normals, vertexCount)
	m.UVs = resizeVec2(m.UVs, vertexCount)
	if cap(m.Triangles) >= indexCount {
		m.Triangles = m.Triangles[:indexCount]
	} else {
		m.Triangles = make([]uint32, indexCount)
	}
}

// ResetForPool implements lifecycle.Recyclable: buffers keep their
// capacity so recycled instances skip reallocation.
func (m *MeshData) ResetForPool() {
	m.Vertices = m.Vertices[:0]
	m.Normals = m.Normals[:0]
	m.UVs = m.UVs[:0]
	m.Triangles = m.Triangles[:0]
	m.hashHint = 0
}

// LifecycleObject implements lifecycle.Recyclable.
func (m *MeshData) LifecycleObject() *lifecycle.Object { return &m.Object }

func resizeVec3(s []mgl32.Vec3, n int) []mgl32.Vec3 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]mgl32.Vec3, n)
}

func resizeVec2(s []mgl32.Vec2, n int) []mgl32.Vec2 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]mgl32.Vec2, n)
}

// NewMeshPool creates a recycling pool of mesh buffers.
func NewMeshPool() *lifecycle.Pool[*MeshData] {
	return lifecycle.NewPool(func() *MeshData { return &MeshData{} })
}
