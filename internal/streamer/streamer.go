// Package streamer orchestrates terrain streaming for one body: each
// update tick recomputes the camera footprint, syncs load scopes,
// resolves elevation references, pumps the mesh work queue and publishes
// the resulting tiles. Phases run in that strict order; everything
// happens on the caller's goroutine.
package streamer

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/terraglobe/internal/body"
	"github.com/Faultbox/terraglobe/internal/elevation"
	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/internal/lifecycle"
	"github.com/Faultbox/terraglobe/internal/loader"
	"github.com/Faultbox/terraglobe/internal/logger"
	"github.com/Faultbox/terraglobe/internal/terrain"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

// DefaultRasterSize is the assumed side length of fetched elevation
// tiles when the options leave it unset.
const DefaultRasterSize = 32

// Options configure a streamer.
type Options struct {
	Terrain terrain.Settings
	Zoom    loader.ZoomPolicy
	// LoadDelay staggers tile loads by grid distance from the camera.
	LoadDelay time.Duration
	// RowBudget bounds mesh generation work per tick.
	RowBudget int
	// MeshTTL bounds the generator's memo cache.
	MeshTTL time.Duration
	// RasterSize is the square side of fetched elevation tiles.
	RasterSize int
}

// Stats summarize one update tick.
type Stats struct {
	Zoom           int
	FootprintTiles int
	Tiles          int
	Scopes         int
	QueueLen       int
	ScopesCreated  int
	ScopesRetired  int
	ScopesLoaded   int
	MeshesBuilt    int
	SphericalRatio float64
}

// streamTile pairs a terrain tile with its neighbor window.
type streamTile struct {
	tile      *terrain.Tile
	neighbors *terrain.NeighborCache
}

// Streamer drives terrain streaming for one body.
type Streamer struct {
	lifecycle.Object

	body   *body.Body
	loader *loader.GridLoader
	gen    *terrain.Generator
	queue  *terrain.WorkQueue

	footprint *grid.Grid
	opts      Options

	tiles map[grid.Key]*streamTile

	log *zap.Logger
}

// footprintView exposes the streamer's already-computed footprint to the
// loader, keeping both on the exact same rows within a tick.
type footprintView struct{ g *grid.Grid }

func (v footprintView) Footprint(geo.Dimensions) ([]grid.Row, grid.Index) {
	return v.g.Rows(), v.g.CenterIndex()
}

// New creates a streamer for a body over an elevation datasource.
func New(b *body.Body, source loader.Datasource, opts Options) *Streamer {
	if opts.RasterSize <= 0 {
		opts.RasterSize = DefaultRasterSize
	}
	if opts.Zoom == (loader.ZoomPolicy{}) {
		opts.Zoom = loader.ZoomPolicy{Min: 0, Max: geo.MaxZoom}
	}
	if opts.Terrain == (terrain.Settings{}) {
		opts.Terrain = terrain.DefaultSettings()
	}

	footprint := &grid.Grid{}
	size := opts.RasterSize
	l := loader.NewGridLoader(source, footprintView{footprint}, loader.Options{
		Zoom:         opts.Zoom,
		XYTilesRatio: b.XYTilesRatio(),
		LoadDelay:    opts.LoadDelay,
		Wrap:         b.IsSpherical(),
		Decode: func(key grid.Key, raw []byte) (any, error) {
			r, err := elevation.Decode(raw, size, size)
			if err != nil {
				return nil, err
			}
			r.Key = key
			return r, nil
		},
	})

	gen := terrain.NewGenerator(opts.MeshTTL)
	s := &Streamer{
		body:      b,
		loader:    l,
		gen:       gen,
		queue:     terrain.NewWorkQueue(gen, opts.RowBudget),
		footprint: footprint,
		opts:      opts,
		tiles:     make(map[grid.Key]*streamTile),
		log:       logger.Named("streamer"),
	}
	s.Activate()
	return s
}

// Body returns the streamed body.
func (s *Streamer) Body() *body.Body { return s.body }

// Loader exposes the scope loader.
func (s *Streamer) Loader() *loader.GridLoader { return s.loader }

// ZoomFor picks the deepest policy-allowed zoom whose tile rows still
// span at least half the view radius, so the footprint stays a few tiles
// wide regardless of camera altitude.
func (s *Streamer) ZoomFor(radiusMeters float64) int {
	if radiusMeters <= 0 {
		return s.opts.Zoom.Max
	}
	zoom := s.opts.Zoom.Min
	for z := s.opts.Zoom.Min; z <= s.opts.Zoom.Max && z <= geo.MaxZoom; z++ {
		if s.rowMeters(z) < radiusMeters/2 {
			break
		}
		zoom = z
	}
	return zoom
}

// rowMeters is the pole-to-pole arc length of one tile row at a zoom.
func (s *Streamer) rowMeters(zoom int) float64 {
	dims := s.body.Dimensions(zoom)
	return math.Pi * s.body.Size() / 2 / float64(dims.Y)
}

// Update runs one streaming tick for a camera position and view radius.
// dt is the elapsed time in seconds, driving the projection tween.
func (s *Streamer) Update(ctx context.Context, camera geo.Coordinate, radiusMeters, dt float64) Stats {
	if !s.IsValid() {
		return Stats{}
	}

	// Projection tween. A moved ratio reshapes every vertex.
	if s.body.Update(dt) {
		for _, st := range s.tiles {
			st.tile.Dirty().Set(terrain.DirtyAllBuffers)
		}
	}

	// Phase 1: footprint.
	zoom := s.ZoomFor(radiusMeters)
	dims := s.body.Dimensions(zoom)
	s.footprint.Set(dims, grid.CircleShape{
		Center:       camera,
		RadiusMeters: radiusMeters,
		BodySize:     s.body.Size(),
		Spherical:    s.body.IsSpherical(),
	})
	s.footprint.Update()

	// Phase 2: scope sync and tile churn.
	created, retired := s.loader.Update(zoom)
	s.syncTiles()

	// Phase 3: reference resolution.
	loaded := s.loader.Process(ctx)

	// Phase 4: neighbor blending and mesh builds.
	for _, st := range s.tiles {
		if st.neighbors.Update() {
			st.tile.SetAlphas(st.neighbors.Alphas())
		}
		if st.tile.NeedsBuild() {
			s.queue.Enqueue(st.tile)
		}
	}
	built := s.queue.Process(ctx)

	return Stats{
		Zoom:           zoom,
		FootprintTiles: s.footprint.Count(),
		Tiles:          len(s.tiles),
		Scopes:         s.loader.GetLoadScopeCount(),
		QueueLen:       s.queue.Len(),
		ScopesCreated:  created,
		ScopesRetired:  retired,
		ScopesLoaded:   loaded,
		MeshesBuilt:    built,
		SphericalRatio: s.body.SphericalRatio(),
	}
}

// syncTiles creates tiles for footprint cells and retires tiles whose
// cell left the footprint or changed resolution.
func (s *Streamer) syncTiles() {
	want := make(map[grid.Key]struct{})
	s.footprint.Each(func(key grid.Key) {
		want[key] = struct{}{}
		if _, ok := s.tiles[key]; ok {
			return
		}
		tile := terrain.NewTile(key, s.opts.Terrain, s.body)
		tile.BindElevation(loader.NewReference(s.loader, key))

		neighbors := terrain.NewNeighborCache(s.body, s.body.IsSpherical())
		neighbors.SetKey(key)

		s.tiles[key] = &streamTile{tile: tile, neighbors: neighbors}
		s.body.AddTile(tile)
	})

	for key, st := range s.tiles {
		if _, ok := want[key]; ok {
			continue
		}
		s.retireTile(key, st)
	}
}

func (s *Streamer) retireTile(key grid.Key, st *streamTile) {
	s.queue.Cancel(st.tile)
	s.body.RemoveTile(st.tile)
	st.neighbors.Dispose()
	st.tile.Dispose()
	delete(s.tiles, key)
}

// Dispose tears down the streamer's tiles and loader. The body belongs
// to the caller.
func (s *Streamer) Dispose() {
	if !s.BeginDispose() {
		return
	}
	for key, st := range s.tiles {
		s.retireTile(key, st)
	}
	s.loader.Dispose()
	s.gen.Stop()
	s.log.Debug("streamer disposed")
	s.EndDispose()
}
