// Package grid implements the hierarchical tile grid: index keys, row/range
// footprints and the geometric intersection of view shapes with the tile
// lattice.
package grid

import (
	"fmt"

	"github.com/Faultbox/terraglobe/pkg/geo"
)

// Index is a tile column/row position within a grid.
type Index struct {
	X int
	Y int
}

// Key identifies one tile: an index plus the grid dimensions it belongs
// to. The zoom level is implied by the dimensions. Keys are immutable
// value types and compare structurally, so they serve as map keys.
type Key struct {
	Index Index
	Dims  geo.Dimensions
}

// NewKey builds a tile key.
func NewKey(x, y int, dims geo.Dimensions) Key {
	return Key{Index: Index{X: x, Y: y}, Dims: dims}
}

// Zoom returns the zoom level implied by the key's dimensions.
func (k Key) Zoom() int { return geo.ZoomFromDimensions(k.Dims) }

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d(%dx%d)", k.Zoom(), k.Index.X, k.Index.Y, k.Dims.X, k.Dims.Y)
}

// Valid reports whether the index lies inside the key's dimensions.
func (k Key) Valid() bool {
	return k.Dims.X > 0 && k.Dims.Y > 0 &&
		k.Index.X >= 0 && k.Index.X < k.Dims.X &&
		k.Index.Y >= 0 && k.Index.Y < k.Dims.Y
}

// Center returns the geographic coordinate at the tile's center.
func (k Key) Center() geo.Coordinate {
	return geo.CoordinateFromIndex(float64(k.Index.X)+0.5, float64(k.Index.Y)+0.5, k.Dims)
}

// Distance returns the Chebyshev distance between two indices. On wrapped
// (spherical) grids the column delta takes the shorter way around the seam.
func Distance(a, b Index, dims geo.Dimensions, wrap bool) int {
	dx := abs(a.X - b.X)
	if wrap && dims.X > 0 {
		if w := dims.X - dx; w < dx {
			dx = w
		}
	}
	dy := abs(a.Y - b.Y)
	if dy > dx {
		return dy
	}
	return dx
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
