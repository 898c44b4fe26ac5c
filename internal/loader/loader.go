package loader

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/internal/logger"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

// ZoomPolicy clamps which zoom levels a loader creates scopes for. Both
// bounds are inclusive and combined with AND: a zoom is allowed only when
// it satisfies the minimum and the maximum.
type ZoomPolicy struct {
	Min int
	Max int
}

// Allows reports whether the zoom level is inside the policy range.
func (p ZoomPolicy) Allows(zoom int) bool {
	return zoom >= p.Min && zoom <= p.Max
}

// FootprintStrategy decides which tiles are currently relevant. The
// circle strategy is grid.CircleShape; FillFootprint covers everything.
type FootprintStrategy interface {
	Footprint(dims geo.Dimensions) ([]grid.Row, grid.Index)
}

// FillFootprint selects every tile of the grid. Used for tiny grids
// (low zoom) where the whole body is always resident.
type FillFootprint struct{}

// Footprint implements FootprintStrategy.
func (FillFootprint) Footprint(dims geo.Dimensions) ([]grid.Row, grid.Index) {
	rows := make([]grid.Row, dims.Y)
	for y := 0; y < dims.Y; y++ {
		rows[y] = grid.Row{Y: y, Ranges: []grid.Range{{Start: 0, End: dims.X - 1}}}
	}
	center := grid.Index{X: dims.X / 2, Y: dims.Y / 2}
	if len(rows) > 0 {
		rows[center.Y].Center = true
	}
	return rows, center
}

// Options configures a GridLoader.
type Options struct {
	Zoom ZoomPolicy
	// XYTilesRatio derives grid dimensions from zoom; snapped to the
	// permitted ladder.
	XYTilesRatio float64
	// LoadDelay is the per-distance-step stagger between tile loads.
	LoadDelay time.Duration
	// Wrap selects spherical column wrapping for distance math.
	Wrap bool
	// Decode builds the scope's elevation item from fetched bytes. Nil
	// stores the raw payload.
	Decode func(key grid.Key, raw []byte) (any, error)
}

// GridLoader owns the scope registry for one datasource and keeps it in
// sync with a footprint: scopes appear for newly visible tiles (with a
// staggered load delay growing with grid distance from the footprint
// center, so population spreads outward as a wave) and retire when their
// last reference drops.
type GridLoader struct {
	registry  *Registry
	source    Datasource
	footprint FootprintStrategy
	opts      Options

	centerIndex grid.Index
	// visible tracks the keys the loader itself holds a reference for.
	visible map[grid.Key]struct{}

	now func() time.Time
	rng *rand.Rand
	log *zap.Logger
}

// NewGridLoader creates a loader bound to a datasource and footprint
// strategy.
func NewGridLoader(source Datasource, footprint FootprintStrategy, opts Options) *GridLoader {
	if opts.XYTilesRatio == 0 {
		opts.XYTilesRatio = 1
	}
	return &GridLoader{
		registry:  NewRegistry(),
		source:    source,
		footprint: footprint,
		opts:      opts,
		visible:   make(map[grid.Key]struct{}),
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       logger.Named("loader"),
	}
}

// Registry exposes the scope registry.
func (l *GridLoader) Registry() *Registry { return l.registry }

// GetLoadScopeCount returns the number of live scopes.
func (l *GridLoader) GetLoadScopeCount() int { return l.registry.Count() }

// Dimensions derives the loader's grid dimensions for a zoom level.
func (l *GridLoader) Dimensions(zoom int) geo.Dimensions {
	return geo.DimensionsFromZoom(zoom, l.opts.XYTilesRatio)
}

// SetDatasource swaps the fetch layer and re-triggers loading on every
// live scope so consumers re-resolve against the new source.
func (l *GridLoader) SetDatasource(source Datasource) {
	l.source = source
	now := l.now()
	l.registry.Each(func(s *Scope) {
		s.due = now
		s.setState(StateNone)
	})
}

// GetLoadScope returns the scope for a key, creating it when
// createIfMissing is set and the key's zoom passes the zoom policy.
// reload re-queues loading on an existing scope without destroying it;
// a scope already Loading is left alone (the keyed registry guarantees
// no second concurrent fetch per key).
func (l *GridLoader) GetLoadScope(key grid.Key, createIfMissing, reload bool) (*Scope, bool) {
	if s, ok := l.registry.Get(key); ok {
		if reload && s.state != StateLoading {
			s.due = l.now()
			s.setState(StateNone)
		}
		return s, true
	}
	if !createIfMissing || !l.opts.Zoom.Allows(key.Zoom()) {
		return nil, false
	}
	s, _ := l.registry.GetOrCreate(key)
	s.due = l.now()
	return s, true
}

// LoadingStateOf reports a key's state; misses read as StateNone.
func (l *GridLoader) LoadingStateOf(key grid.Key) LoadingState {
	if s, ok := l.registry.Get(key); ok {
		return s.LoadingState()
	}
	return StateNone
}

// AddReference records an extra consumer on a key's scope.
func (l *GridLoader) AddReference(key grid.Key) bool {
	s, ok := l.registry.Get(key)
	if !ok {
		return false
	}
	s.addReference()
	return true
}

// RemoveReference releases one consumer; the scope is destroyed and
// removed from the registry when the last reference drops.
func (l *GridLoader) RemoveReference(key grid.Key) {
	s, ok := l.registry.Get(key)
	if !ok {
		return
	}
	if s.removeReference() {
		delete(l.visible, key)
		l.registry.Remove(key)
		l.log.Debug("scope released", zap.Stringer("key", key))
	}
}

// Update synchronizes the registry with the current footprint at the
// given zoom: new tiles gain scopes with staggered due times, tiles that
// left the footprint lose the loader's reference.
func (l *GridLoader) Update(zoom int) (created, retired int) {
	dims := l.Dimensions(zoom)
	if !l.opts.Zoom.Allows(zoom) {
		return 0, l.retireAll()
	}
	rows, center := l.footprint.Footprint(dims)
	l.centerIndex = center

	want := make(map[grid.Key]struct{})
	for _, row := range rows {
		for _, rg := range row.Ranges {
			for x := rg.Start; x <= rg.End; x++ {
				want[grid.NewKey(x, row.Y, dims)] = struct{}{}
			}
		}
	}

	now := l.now()
	for key := range want {
		if _, held := l.visible[key]; held {
			continue
		}
		s, isNew := l.registry.GetOrCreate(key)
		if isNew {
			s.due = now.Add(l.loadInterval(key.Index, center, dims))
			created++
		}
		s.addReference()
		l.visible[key] = struct{}{}
	}

	for key := range l.visible {
		if _, ok := want[key]; ok {
			continue
		}
		// Tiles that left the footprint retire, as do scopes held at
		// another zoom's dimensions.
		delete(l.visible, key)
		l.release(key)
		retired++
	}
	return created, retired
}

func (l *GridLoader) release(key grid.Key) {
	if s, ok := l.registry.Get(key); ok {
		if s.removeReference() {
			l.registry.Remove(key)
		}
	}
}

func (l *GridLoader) retireAll() int {
	n := 0
	for key := range l.visible {
		delete(l.visible, key)
		l.release(key)
		n++
	}
	return n
}

// loadInterval staggers loads radially: tiles farther from the footprint
// center wait longer, plus a small random jitter so rings do not land on
// the exact same tick.
func (l *GridLoader) loadInterval(idx, center grid.Index, dims geo.Dimensions) time.Duration {
	if l.opts.LoadDelay <= 0 {
		return 0
	}
	dist := grid.Distance(idx, center, dims, l.opts.Wrap)
	jitter := time.Duration(l.rng.Int63n(int64(l.opts.LoadDelay)/4 + 1))
	return time.Duration(dist)*l.opts.LoadDelay + jitter
}

// Process starts fetches for scopes whose due time has passed. Fetch
// results transition the scope to Loaded or Failed and fire its changed
// event. Returns the number of scopes that completed loading this call.
func (l *GridLoader) Process(ctx context.Context) int {
	now := l.now()
	loaded := 0
	// Snapshot keys: completing a fetch may run callbacks that touch the
	// registry.
	for _, key := range l.registry.Keys() {
		s, ok := l.registry.Get(key)
		if !ok || s.state != StateNone || s.due.After(now) {
			continue
		}
		l.load(ctx, s)
		if s.state == StateLoaded {
			loaded++
		}
	}
	return loaded
}

func (l *GridLoader) load(ctx context.Context, s *Scope) {
	s.setState(StateLoading)
	raw, err := l.source.Fetch(ctx, s.key)
	if err != nil {
		l.log.Debug("tile load failed", zap.Stringer("key", s.key), zap.Error(err))
		s.setState(StateFailed)
		return
	}
	item := any(raw)
	if l.opts.Decode != nil {
		item, err = l.opts.Decode(s.key, raw)
		if err != nil {
			l.log.Error("tile decode failed", zap.Stringer("key", s.key), zap.Error(err))
			s.setState(StateFailed)
			return
		}
	}
	s.items[PersistentElevation] = item
	s.setState(StateLoaded)
}

// CenterIndex returns the last footprint center the loader synced to.
func (l *GridLoader) CenterIndex() grid.Index { return l.centerIndex }

// Dispose releases every scope the loader owns. Bound to the owning
// datasource root object's lifetime.
func (l *GridLoader) Dispose() {
	l.retireAll()
	// Consumers may still hold references; drop whatever remains.
	for _, key := range l.registry.Keys() {
		l.registry.Remove(key)
	}
}
