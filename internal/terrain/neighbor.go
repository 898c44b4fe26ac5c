package terrain

import (
	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

// Registry looks up tile buckets by cell and announces membership
// changes. body.Body satisfies it.
type Registry interface {
	Bucket(key grid.Key) *Bucket
	OnTileAdded(fn func(*Tile)) (cancel func())
	OnTileRemoved(fn func(*Tile)) (cancel func())
}

// AlphaMatrix is a 3x3 grid of blend weights sampled around one tile
// quadrant at the next-finer zoom. A weight of 1 means finer data covers
// that cell and this tile's surface fades under it.
type AlphaMatrix [3][3]float32

// windowSide is the edge length of the finer-zoom lookup window. The
// tile's four children sit in the middle of a windowSide x windowSide
// block, leaving a one-cell rim of the neighbors' children around them.
const windowSide = 4

// NeighborCache tracks which cells of the next-finer zoom around one
// tile currently hold terrain. It holds a fixed window of bucket slots,
// keeps them fresh through registry events instead of per-frame lookups,
// and folds the result into per-quadrant alpha matrices.
type NeighborCache struct {
	reg  Registry
	wrap bool

	key       grid.Key
	childDims geo.Dimensions
	origin    grid.Index
	bound     bool

	slots   [windowSide * windowSide]*Bucket
	changed bool
	cancels []func()
}

// NewNeighborCache creates a cache over a registry. wrap enables
// longitudinal wraparound for spherical grids.
func NewNeighborCache(reg Registry, wrap bool) *NeighborCache {
	c := &NeighborCache{reg: reg, wrap: wrap}
	c.cancels = append(c.cancels,
		reg.OnTileAdded(func(t *Tile) { c.onCellChanged(t.Key()) }),
		reg.OnTileRemoved(func(t *Tile) { c.onCellChanged(t.Key()) }),
	)
	return c
}

// SetKey points the cache at a tile cell. Moving to a different cell or
// grid resolution repopulates the window; re-setting the same key is a
// no-op.
func (c *NeighborCache) SetKey(key grid.Key) {
	if c.bound && key == c.key {
		return
	}
	c.key = key
	c.childDims = geo.Dimensions{X: key.Dims.X * 2, Y: key.Dims.Y * 2}
	c.origin = grid.Index{X: key.Index.X*2 - 1, Y: key.Index.Y*2 - 1}
	c.bound = true
	c.Dirty()
}

// Dirty forces a full window repopulation on the next Update.
func (c *NeighborCache) Dirty() {
	if !c.bound {
		return
	}
	for i := range c.slots {
		c.slots[i] = nil
	}
	for dy := 0; dy < windowSide; dy++ {
		for dx := 0; dx < windowSide; dx++ {
			if k, ok := c.cellAt(dx, dy); ok {
				c.slots[dy*windowSide+dx] = c.reg.Bucket(k)
			}
		}
	}
	c.changed = true
}

// Update reports and clears the change signal. Callers refresh their
// alpha uniforms only when it returns true.
func (c *NeighborCache) Update() bool {
	changed := c.changed
	c.changed = false
	return changed
}

// Alphas folds the window into the four quadrant matrices. Quadrants are
// ordered top-left, top-right, bottom-left, bottom-right; each matrix
// covers the 3x3 finer-zoom neighborhood centered on that quadrant's own
// child cell.
func (c *NeighborCache) Alphas() [4]AlphaMatrix {
	var out [4]AlphaMatrix
	for q := 0; q < 4; q++ {
		qx, qy := q%2, q/2
		for j := 0; j < 3; j++ {
			for i := 0; i < 3; i++ {
				if c.covered(qx+i, qy+j) {
					out[q][j][i] = 1
				}
			}
		}
	}
	return out
}

// covered reports whether the window cell holds a terrain tile.
func (c *NeighborCache) covered(dx, dy int) bool {
	b := c.slots[dy*windowSide+dx]
	return b != nil && b.IsValid() && b.Terrain() != nil
}

// cellAt maps a window offset to a finer-zoom key, wrapping X on
// spherical grids and rejecting rows outside the poles.
func (c *NeighborCache) cellAt(dx, dy int) (grid.Key, bool) {
	x := c.origin.X + dx
	y := c.origin.Y + dy
	if y < 0 || y >= c.childDims.Y {
		return grid.Key{}, false
	}
	if x < 0 || x >= c.childDims.X {
		if !c.wrap {
			return grid.Key{}, false
		}
		x = ((x % c.childDims.X) + c.childDims.X) % c.childDims.X
	}
	return grid.NewKey(x, y, c.childDims), true
}

// onCellChanged refreshes the slot for a finer-zoom cell. Events outside
// the window or at other resolutions are ignored without a lookup.
func (c *NeighborCache) onCellChanged(k grid.Key) {
	if !c.bound || k.Dims != c.childDims {
		return
	}
	dx := k.Index.X - c.origin.X
	if c.wrap {
		if dx < 0 {
			dx += c.childDims.X
		}
		if dx >= c.childDims.X {
			dx -= c.childDims.X
		}
	}
	dy := k.Index.Y - c.origin.Y
	if dx < 0 || dx >= windowSide || dy < 0 || dy >= windowSide {
		return
	}
	c.slots[dy*windowSide+dx] = c.reg.Bucket(k)
	c.changed = true
}

// Dispose releases the registry subscriptions.
func (c *NeighborCache) Dispose() {
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.bound = false
}
