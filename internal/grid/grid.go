package grid

import "github.com/Faultbox/terraglobe/pkg/geo"

// Grid is a dirty-flag gated footprint: it recomputes its rows only when
// the shape or dimensions change. The computed rows are transient geometry
// consumed each tick by the loader.
type Grid struct {
	dims  geo.Dimensions
	shape CircleShape

	rows        []Row
	centerIndex Index

	dirty bool
	valid bool
}

// Set updates the grid inputs, marking the grid dirty when they changed.
func (g *Grid) Set(dims geo.Dimensions, shape CircleShape) {
	if g.valid && g.dims == dims && g.shape == shape {
		return
	}
	g.dims = dims
	g.shape = shape
	g.dirty = true
}

// Update recomputes the footprint if dirty. Returns true when the rows
// were rebuilt this call.
func (g *Grid) Update() bool {
	if !g.dirty {
		return false
	}
	g.rows, g.centerIndex = g.shape.Footprint(g.dims)
	g.dirty = false
	g.valid = true
	return true
}

// Rows returns the computed footprint rows, sorted by Y.
func (g *Grid) Rows() []Row { return g.rows }

// CenterIndex returns the tile index at the footprint center.
func (g *Grid) CenterIndex() Index { return g.centerIndex }

// Dims returns the grid dimensions the footprint was computed for.
func (g *Grid) Dims() geo.Dimensions { return g.dims }

// Contains reports whether the tile index is inside the footprint.
func (g *Grid) Contains(idx Index) bool {
	for _, row := range g.rows {
		if row.Y == idx.Y {
			return row.Contains(idx.X)
		}
	}
	return false
}

// Count returns the total number of tiles in the footprint.
func (g *Grid) Count() int {
	n := 0
	for _, row := range g.rows {
		n += row.Count()
	}
	return n
}

// Each calls fn for every tile key in the footprint.
func (g *Grid) Each(fn func(Key)) {
	for _, row := range g.rows {
		for _, rg := range row.Ranges {
			for x := rg.Start; x <= rg.End; x++ {
				fn(NewKey(x, row.Y, g.dims))
			}
		}
	}
}
