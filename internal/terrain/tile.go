package terrain

import (
	"go.uber.org/zap"

	"github.com/Faultbox/terraglobe/internal/elevation"
	"github.com/Faultbox/terraglobe/internal/grid"
	"github.com/Faultbox/terraglobe/internal/lifecycle"
	"github.com/Faultbox/terraglobe/internal/loader"
	"github.com/Faultbox/terraglobe/internal/logger"
)

// Host provides the projection state a tile builds against. body.Body
// satisfies it.
type Host interface {
	Size() float64
	SphericalRatio() float64
}

// Settings are the per-tile build settings shared by all tiles of a
// streamer.
type Settings struct {
	// SubdivisionBase and ZoomFactor feed SubdivisionForZoom.
	SubdivisionBase int
	ZoomFactor      float64
	OverlapFactor   float32
	EdgeDepth       float32
	Normals         NormalsMode
	Variant         Variant
	FlipWinding     bool
}

// DefaultSettings mirror the values used by the simulation command.
func DefaultSettings() Settings {
	return Settings{
		SubdivisionBase: 1,
		ZoomFactor:      1.25,
		OverlapFactor:   1,
		EdgeDepth:       1,
		Normals:         NormalsDerived,
		Variant:         VariantTerrainAndEdge,
	}
}

// Material carries the shading inputs derived from the tile's data:
// the elevation range that scales vertex displacement, the per-quadrant
// neighbor blend weights, and the persisted appearance fields.
type Material struct {
	MinElevation float32
	// ElevationScale spans min to max elevation of the raster.
	ElevationScale float32
	Alphas         [4]AlphaMatrix
	Color          [4]float32
	ShaderPath     string
}

// Tile is one grid cell's terrain surface: it holds the cell's data
// references, tracks which buffers are stale and rebuilds its mesh
// through the work queue.
type Tile struct {
	lifecycle.Object

	key      grid.Key
	settings Settings
	host     Host
	dirty    DirtyFlags

	elevRef    *loader.Reference
	elevCancel func()
	raster     *elevation.Raster

	material Material
	mesh     *MeshData

	log *zap.Logger
}

// NewTile creates an active tile for a grid cell.
func NewTile(key grid.Key, settings Settings, host Host) *Tile {
	t := &Tile{
		key:      key,
		settings: settings,
		host:     host,
		material: Material{Color: [4]float32{1, 1, 1, 1}},
		log:      logger.Named("terrain"),
	}
	t.Activate()
	t.dirty.Set(DirtyAllBuffers)
	return t
}

// Key returns the tile's grid cell.
func (t *Tile) Key() grid.Key { return t.key }

// Dirty exposes the tile's stale-buffer set.
func (t *Tile) Dirty() *DirtyFlags { return &t.dirty }

// Settings returns the build settings.
func (t *Tile) Settings() Settings { return t.settings }

// Material returns the current shading inputs.
func (t *Tile) Material() Material { return t.material }

// SetColor updates the persisted tint.
func (t *Tile) SetColor(c [4]float32) { t.material.Color = c }

// SetShaderPath updates the persisted shader reference.
func (t *Tile) SetShaderPath(p string) { t.material.ShaderPath = p }

// Mesh returns the last completed mesh, nil before the first build.
func (t *Tile) Mesh() *MeshData { return t.mesh }

// Raster returns the decoded elevation raster, nil until resolved.
func (t *Tile) Raster() *elevation.Raster { return t.raster }

// BindElevation attaches the elevation reference; when it resolves, the
// raster is adopted and all mesh buffers are marked stale. A previous
// binding is released.
func (t *Tile) BindElevation(ref *loader.Reference) {
	t.unbindElevation()
	t.elevRef = ref
	if ref == nil {
		return
	}
	t.elevCancel = ref.OnResolved(func(r *loader.Reference) {
		t.adoptElevation(r)
	})
	if ref.LoadingState() == loader.StateLoaded {
		t.adoptElevation(ref)
	}
}

func (t *Tile) adoptElevation(ref *loader.Reference) {
	data := ref.Data(loader.PersistentElevation)
	if data == nil {
		// Not resolved yet (or resolution failed); keep the flat surface.
		return
	}
	raster, ok := data.(*elevation.Raster)
	if !ok {
		t.log.Warn("elevation payload has unexpected type",
			zap.String("key", t.key.String()))
		return
	}
	t.raster = raster
	min, max, _ := raster.Stats()
	t.material.MinElevation = float32(min)
	t.material.ElevationScale = float32(max - min)
	t.dirty.Set(DirtyElevation | DirtyAllBuffers | DirtyCollider)
}

func (t *Tile) unbindElevation() {
	if t.elevCancel != nil {
		t.elevCancel()
		t.elevCancel = nil
	}
	if t.elevRef != nil {
		t.elevRef.Dispose()
		t.elevRef = nil
	}
}

// SetAlphas updates the neighbor blend weights, marking UVs stale so the
// renderer refreshes its per-tile uniforms.
func (t *Tile) SetAlphas(a [4]AlphaMatrix) {
	if t.material.Alphas == a {
		return
	}
	t.material.Alphas = a
	t.dirty.Set(DirtyUVs)
}

// sampler returns the elevation source for the next build.
func (t *Tile) sampler() ElevationSampler {
	if t.raster != nil {
		return t.raster
	}
	return ZeroElevation{}
}

// BuildParams assembles the generation parameters from the tile's cell,
// settings and host projection state.
func (t *Tile) BuildParams() Params {
	return Params{
		Key:            t.key,
		Subdivision:    SubdivisionForZoom(t.settings.SubdivisionBase, t.key.Zoom(), t.settings.ZoomFactor),
		OverlapFactor:  t.settings.OverlapFactor,
		EdgeDepth:      t.settings.EdgeDepth,
		Normals:        t.settings.Normals,
		Size:           t.host.Size(),
		SphericalRatio: t.host.SphericalRatio(),
		FlipWinding:    t.settings.FlipWinding,
		Variant:        t.settings.Variant,
	}
}

// adoptMesh installs a completed build and clears the buffer flags.
func (t *Tile) adoptMesh(m *MeshData) {
	t.mesh = m
	t.dirty.Clear(DirtyAllBuffers | DirtyElevation)
}

// NeedsBuild reports whether any mesh buffer is stale.
func (t *Tile) NeedsBuild() bool {
	return t.IsValid() && t.dirty.AnyOf(DirtyAllBuffers|DirtyElevation)
}

// Dispose releases the tile's references and marks it for teardown.
// Safe to call more than once.
func (t *Tile) Dispose() {
	if !t.BeginDispose() {
		return
	}
	t.unbindElevation()
	t.dirty.Set(DirtyDisposeAll)
	t.mesh = nil
	t.raster = nil
	t.EndDispose()
}
