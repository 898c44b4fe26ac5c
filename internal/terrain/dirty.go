// Package terrain builds tile terrain meshes from elevation rasters:
// vertex/normal/triangle/UV buffers, edge skirts, neighbor-aware alpha
// blending and the cooperative work queue that spreads generation across
// frames.
package terrain

import "strings"

// Dirty is one regenerable buffer category of a tile.
type Dirty uint16

const (
	DirtyVertices Dirty = 1 << iota
	DirtyNormals
	DirtyTriangles
	DirtyUVs
	DirtyCollider
	DirtyElevation
	// DirtyDisposeAll marks the whole tile for teardown.
	DirtyDisposeAll

	// DirtyAllBuffers covers every mesh buffer category.
	DirtyAllBuffers = DirtyVertices | DirtyNormals | DirtyTriangles | DirtyUVs
)

var dirtyNames = []struct {
	bit  Dirty
	name string
}{
	{DirtyVertices, "vertices"},
	{DirtyNormals, "normals"},
	{DirtyTriangles, "triangles"},
	{DirtyUVs, "uvs"},
	{DirtyCollider, "collider"},
	{DirtyElevation, "elevation"},
	{DirtyDisposeAll, "dispose-all"},
}

// DirtyFlags records which buffer categories need regeneration this
// frame. It is the synchronization point that keeps unchanged geometry
// from being rebuilt: phases check their flag, apply, then the tile
// resets the set.
type DirtyFlags struct {
	mask Dirty
}

// Set marks categories dirty.
func (f *DirtyFlags) Set(bits Dirty) { f.mask |= bits }

// Clear unmarks categories.
func (f *DirtyFlags) Clear(bits Dirty) { f.mask &^= bits }

// Has reports whether all given categories are dirty.
func (f *DirtyFlags) Has(bits Dirty) bool { return f.mask&bits == bits }

// AnyOf reports whether at least one of the given categories is dirty.
func (f *DirtyFlags) AnyOf(bits Dirty) bool { return f.mask&bits != 0 }

// Any reports whether anything is dirty.
func (f *DirtyFlags) Any() bool { return f.mask != 0 }

// Reset clears the whole set. Called after a successful apply.
func (f *DirtyFlags) Reset() { f.mask = 0 }

func (f DirtyFlags) String() string {
	if f.mask == 0 {
		return "clean"
	}
	var parts []string
	for _, d := range dirtyNames {
		if f.mask&d.bit != 0 {
			parts = append(parts, d.name)
		}
	}
	return strings.Join(parts, "|")
}
