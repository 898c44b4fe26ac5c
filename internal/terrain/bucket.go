package terrain

import (
	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/internal/lifecycle"
)

// Bucket groups the mesh objects that occupy one grid cell. A cell
// usually carries a single terrain tile, but split shadow/collider
// variants and feature overlays land in the same bucket so neighbor
// lookups resolve per cell, not per object.
type Bucket struct {
	lifecycle.Object

	key   grid.Key
	tiles []*Tile

	onEmpty func(*Bucket)
	changed []*func(*Bucket)
}

// NewBucket creates a bucket for a cell. onEmpty fires when the last
// member leaves; the owner uses it to drop the bucket from its index.
func NewBucket(key grid.Key, onEmpty func(*Bucket)) *Bucket {
	b := &Bucket{key: key, onEmpty: onEmpty}
	b.Activate()
	return b
}

// Key returns the cell this bucket covers.
func (b *Bucket) Key() grid.Key { return b.key }

// Len returns the member count.
func (b *Bucket) Len() int { return len(b.tiles) }

// Terrain returns the primary terrain tile of the cell, nil when the
// bucket holds none.
func (b *Bucket) Terrain() *Tile {
	for _, t := range b.tiles {
		if t.Settings().Variant.hasTerrain() {
			return t
		}
	}
	return nil
}

// Each visits every member.
func (b *Bucket) Each(fn func(*Tile)) {
	for _, t := range b.tiles {
		fn(t)
	}
}

// Add inserts a member and notifies subscribers.
func (b *Bucket) Add(t *Tile) {
	b.tiles = append(b.tiles, t)
	b.notify()
}

// Remove drops a member. When the bucket empties it disposes itself and
// fires onEmpty.
func (b *Bucket) Remove(t *Tile) {
	for i, m := range b.tiles {
		if m == t {
			b.tiles = append(b.tiles[:i], b.tiles[i+1:]...)
			break
		}
	}
	b.notify()
	if len(b.tiles) == 0 {
		b.dispose()
	}
}

// OnChanged subscribes to membership changes. The returned cancel
// removes the subscription; subscriptions also die with the bucket.
func (b *Bucket) OnChanged(fn func(*Bucket)) (cancel func()) {
	p := &fn
	b.changed = append(b.changed, p)
	return func() {
		for i, q := range b.changed {
			if q == p {
				b.changed = append(b.changed[:i], b.changed[i+1:]...)
				return
			}
		}
	}
}

func (b *Bucket) notify() {
	for _, p := range append(make([]*func(*Bucket), 0, len(b.changed)), b.changed...) {
		(*p)(b)
	}
}

func (b *Bucket) dispose() {
	if !b.BeginDispose() {
		return
	}
	b.changed = nil
	if b.onEmpty != nil {
		b.onEmpty(b)
	}
	b.EndDispose()
}

// Dispose tears the bucket down along with its members.
func (b *Bucket) Dispose() {
	for _, t := range append([]*Tile(nil), b.tiles...) {
		t.Dispose()
	}
	b.tiles = nil
	b.dispose()
}
