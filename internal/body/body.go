// Package body models the astronomical object terrain is streamed onto:
// its dimensions, its flat-to-spherical projection state and the per-zoom
// index of terrain buckets living on its surface.
package body

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/internal/lifecycle"
	"github.com/Faultbox/terraglobe/internal/logger"
	"github.com/Faultbox/terraglobe/internal/terrain"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

// DefaultRatioSpeed is the projection tween rate in ratio units per
// second: a full flat-to-sphere morph takes two seconds.
const DefaultRatioSpeed = 0.5

// Body is a planet or moon hosting streamed terrain. All mutation runs
// on the update goroutine; the bucket index has a single writer.
type Body struct {
	lifecycle.Object

	name string
	size float64

	sphericalRatio float64
	targetRatio    float64
	ratioSpeed     float64

	xyTilesRatio float64

	buckets [geo.MaxZoom + 1]map[grid.Index]*terrain.Bucket

	added   []*func(*terrain.Tile)
	removed []*func(*terrain.Tile)

	log *zap.Logger
}

// Options configure a new body.
type Options struct {
	Name string
	// Size is the body diameter in meters.
	Size float64
	// XYTilesRatio shapes the grid: columns per row (2 for a full
	// equirectangular globe).
	XYTilesRatio float64
	// SphericalRatio is the initial projection blend in [0, 1].
	SphericalRatio float64
	// RatioSpeed is the tween rate toward the target ratio, in ratio
	// units per second. Zero selects DefaultRatioSpeed.
	RatioSpeed float64
}

// New creates an active body.
func New(opts Options) *Body {
	if opts.XYTilesRatio <= 0 {
		opts.XYTilesRatio = 2
	}
	if opts.RatioSpeed <= 0 {
		opts.RatioSpeed = DefaultRatioSpeed
	}
	b := &Body{
		name:           opts.Name,
		size:           opts.Size,
		sphericalRatio: clampRatio(opts.SphericalRatio),
		targetRatio:    clampRatio(opts.SphericalRatio),
		ratioSpeed:     opts.RatioSpeed,
		xyTilesRatio:   opts.XYTilesRatio,
		log:            logger.Named("body"),
	}
	b.Activate()
	return b
}

// Name returns the body's name.
func (b *Body) Name() string { return b.name }

// Size returns the body diameter in meters.
func (b *Body) Size() float64 { return b.size }

// SphericalRatio returns the current projection blend.
func (b *Body) SphericalRatio() float64 { return b.sphericalRatio }

// XYTilesRatio returns the grid's columns-per-row ratio.
func (b *Body) XYTilesRatio() float64 { return b.xyTilesRatio }

// IsSpherical reports whether the body currently renders as a globe.
func (b *Body) IsSpherical() bool { return b.sphericalRatio > 0 }

// SetTargetRatio starts a tween of the projection blend toward the
// target.
func (b *Body) SetTargetRatio(target float64) {
	b.targetRatio = clampRatio(target)
}

// Update advances the projection tween by dt seconds. It returns true
// when the ratio moved, which invalidates every tile mesh on the body.
func (b *Body) Update(dt float64) bool {
	if b.sphericalRatio == b.targetRatio {
		return false
	}
	step := b.ratioSpeed * dt
	diff := b.targetRatio - b.sphericalRatio
	switch {
	case diff > step:
		b.sphericalRatio += step
	case diff < -step:
		b.sphericalRatio -= step
	default:
		b.sphericalRatio = b.targetRatio
	}
	return true
}

// Dimensions returns the grid dimensions at a zoom level for this body's
// tile ratio.
func (b *Body) Dimensions(zoom int) geo.Dimensions {
	return geo.DimensionsFromZoom(zoom, b.xyTilesRatio)
}

// Point converts a geographic coordinate to body-local space at the
// current projection blend.
func (b *Body) Point(coord geo.Coordinate) mgl64.Vec3 {
	return geo.Point(coord, b.size, b.sphericalRatio)
}

// Up returns the local up direction at a coordinate.
func (b *Body) Up(coord geo.Coordinate) mgl64.Vec3 {
	return geo.Up(coord, b.sphericalRatio)
}

// SurfaceDistance converts meters on the surface to an angular distance.
func (b *Body) SurfaceDistance(meters float64) float64 {
	return geo.SurfaceDistance(meters, b.size)
}

// Bucket returns the bucket for a cell, nil when the cell holds nothing.
// Implements terrain.Registry.
func (b *Body) Bucket(key grid.Key) *terrain.Bucket {
	zoom := key.Zoom()
	if zoom < 0 || zoom > geo.MaxZoom || b.buckets[zoom] == nil {
		return nil
	}
	return b.buckets[zoom][key.Index]
}

// AddTile indexes a tile under its cell, creating the bucket on first
// use, and announces it.
func (b *Body) AddTile(tile *terrain.Tile) {
	key := tile.Key()
	zoom := key.Zoom()
	if zoom < 0 || zoom > geo.MaxZoom {
		b.log.Error("tile outside the zoom ladder",
			zap.String("key", key.String()))
		return
	}
	if b.buckets[zoom] == nil {
		b.buckets[zoom] = make(map[grid.Index]*terrain.Bucket)
	}
	bucket, ok := b.buckets[zoom][key.Index]
	if !ok {
		bucket = terrain.NewBucket(key, func(*terrain.Bucket) {
			delete(b.buckets[zoom], key.Index)
		})
		b.buckets[zoom][key.Index] = bucket
	}
	bucket.Add(tile)
	for _, fn := range snapshot(b.added) {
		(*fn)(tile)
	}
}

// RemoveTile unindexes a tile and announces the removal. The bucket
// disposes itself when the tile was its last member.
func (b *Body) RemoveTile(tile *terrain.Tile) {
	key := tile.Key()
	zoom := key.Zoom()
	if zoom < 0 || zoom > geo.MaxZoom || b.buckets[zoom] == nil {
		return
	}
	bucket, ok := b.buckets[zoom][key.Index]
	if !ok {
		return
	}
	bucket.Remove(tile)
	for _, fn := range snapshot(b.removed) {
		(*fn)(tile)
	}
}

// OnTileAdded subscribes to tile additions. Implements terrain.Registry.
func (b *Body) OnTileAdded(fn func(*terrain.Tile)) (cancel func()) {
	p := &fn
	b.added = append(b.added, p)
	return func() { b.added = unsubscribe(b.added, p) }
}

// OnTileRemoved subscribes to tile removals.
func (b *Body) OnTileRemoved(fn func(*terrain.Tile)) (cancel func()) {
	p := &fn
	b.removed = append(b.removed, p)
	return func() { b.removed = unsubscribe(b.removed, p) }
}

// TileCount returns the number of tiles indexed across all zooms.
func (b *Body) TileCount() int {
	n := 0
	for _, zoomMap := range b.buckets {
		for _, bucket := range zoomMap {
			n += bucket.Len()
		}
	}
	return n
}

// EachTile visits every indexed tile.
func (b *Body) EachTile(fn func(*terrain.Tile)) {
	for _, zoomMap := range b.buckets {
		for _, bucket := range zoomMap {
			bucket.Each(fn)
		}
	}
}

// Dispose tears down every bucket and drops all subscriptions.
func (b *Body) Dispose() {
	if !b.BeginDispose() {
		return
	}
	b.added = nil
	b.removed = nil
	for zoom, zoomMap := range b.buckets {
		for _, bucket := range zoomMap {
			bucket.Dispose()
		}
		b.buckets[zoom] = nil
	}
	b.EndDispose()
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func snapshot[T any](s []*T) []*T { return append([]*T(nil), s...) }

func unsubscribe[T any](s []*T, p *T) []*T {
	for i, q := range s {
		if q == p {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
