package main

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/terraglobe/internal/body"
	"github.com/Faultbox/terraglobe/internal/config"
	"github.com/Faultbox/terraglobe/internal/loader"
	"github.com/Faultbox/terraglobe/internal/logger"
	"github.com/Faultbox/terraglobe/internal/streamer"
	"github.com/Faultbox/terraglobe/internal/terrain"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

// statsEvery is how often the orbit loop logs streaming stats, in ticks.
const statsEvery = 30

// sim drives a synthetic orbiting camera over a streamed body.
type sim struct {
	cfg      *config.Config
	body     *body.Body
	streamer *streamer.Streamer
	log      *zap.Logger
}

func newSim(cfg *config.Config) (*sim, error) {
	preset, ok := body.LookupPreset(cfg.Planet.Preset)
	if !ok {
		return nil, fmt.Errorf("unknown planet preset %q", cfg.Planet.Preset)
	}
	size := preset.Size()
	if cfg.Planet.RadiusM > 0 {
		size = cfg.Planet.RadiusM * 2
	}
	ratio := 0.0
	if cfg.Planet.Spherical {
		ratio = 1
	}
	b := body.New(body.Options{
		Name:           preset.Name,
		Size:           size,
		XYTilesRatio:   cfg.Planet.XYTilesRatio,
		SphericalRatio: ratio,
	})

	source := &loader.FileDatasource{
		Root:   cfg.Datasource.Root,
		Scheme: loader.ParseScheme(cfg.Datasource.Scheme),
		Ext:    cfg.Datasource.Ext,
	}

	s := streamer.New(b, source, streamer.Options{
		Terrain: terrain.Settings{
			SubdivisionBase: cfg.Terrain.SubdivisionBase,
			ZoomFactor:      cfg.Terrain.ZoomFactor,
			OverlapFactor:   cfg.Terrain.OverlapFactor,
			EdgeDepth:       cfg.Terrain.EdgeDepth,
			Normals:         terrain.ParseNormalsMode(cfg.Terrain.Normals),
			Variant:         terrain.VariantTerrainAndEdge,
			FlipWinding:     cfg.Terrain.FlipWinding,
		},
		Zoom: loader.ZoomPolicy{
			Min: cfg.Streaming.MinZoom,
			Max: cfg.Streaming.MaxZoom,
		},
		LoadDelay:  cfg.Streaming.LoadDelay,
		RowBudget:  cfg.Streaming.RowBudget,
		MeshTTL:    cfg.Streaming.MeshTTL,
		RasterSize: cfg.Datasource.RasterSize,
	})

	return &sim{
		cfg:      cfg,
		body:     b,
		streamer: s,
		log:      logger.Named("sim"),
	}, nil
}

// Run orbits the camera around the equator with a gentle inclination
// sweep, streaming tiles along the track.
func (s *sim) Run() error {
	ctx := context.Background()
	radius := s.cfg.Streaming.ViewRadiusM
	dt := s.cfg.Sim.TickSeconds

	var total streamer.Stats
	for tick := 0; tick < s.cfg.Sim.Ticks; tick++ {
		lon := float64(tick) * s.cfg.Sim.OrbitDegPerTick
		lat := 23.4 * math.Sin(lon*math.Pi/180)
		camera := geo.NewCoordinate(lat, lon, 0)

		st := s.streamer.Update(ctx, camera, radius, dt)
		total.ScopesCreated += st.ScopesCreated
		total.ScopesRetired += st.ScopesRetired
		total.ScopesLoaded += st.ScopesLoaded
		total.MeshesBuilt += st.MeshesBuilt

		if tick%statsEvery == 0 {
			s.log.Info("streaming",
				zap.Int("tick", tick),
				zap.Int("zoom", st.Zoom),
				zap.Int("tiles", st.Tiles),
				zap.Int("scopes", st.Scopes),
				zap.Int("queue", st.QueueLen),
				zap.Int("built", st.MeshesBuilt),
				zap.Float64("lat", lat),
				zap.Float64("lon", lon))
		}
	}

	s.log.Info("orbit complete",
		zap.Int("ticks", s.cfg.Sim.Ticks),
		zap.Int("scopes_created", total.ScopesCreated),
		zap.Int("scopes_retired", total.ScopesRetired),
		zap.Int("scopes_loaded", total.ScopesLoaded),
		zap.Int("meshes_built", total.MeshesBuilt),
		zap.Int("tiles_resident", s.body.TileCount()))
	return nil
}

// Close tears the simulation down.
func (s *sim) Close() {
	s.streamer.Dispose()
	s.body.Dispose()
}
