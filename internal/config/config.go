// Package config handles simulation configuration loading and management.
package config

import "time"

// Config holds all streaming simulation settings.
type Config struct {
	Planet     PlanetConfig     `yaml:"planet"`
	Streaming  StreamingConfig  `yaml:"streaming"`
	Terrain    TerrainConfig    `yaml:"terrain"`
	Datasource DatasourceConfig `yaml:"datasource"`
	Sim        SimConfig        `yaml:"sim"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PlanetConfig selects the streamed body.
type PlanetConfig struct {
	Preset string `yaml:"preset"` // body preset name, e.g. "earth"
	// RadiusM overrides the preset radius when > 0.
	RadiusM      float64 `yaml:"radius_m"`
	XYTilesRatio float64 `yaml:"xy_tiles_ratio"`
	Spherical    bool    `yaml:"spherical"`
}

// StreamingConfig holds load-scope and work-budget settings.
type StreamingConfig struct {
	MinZoom     int           `yaml:"min_zoom"`
	MaxZoom     int           `yaml:"max_zoom"`
	LoadDelay   time.Duration `yaml:"load_delay"`
	ViewRadiusM float64       `yaml:"view_radius_m"`
	RowBudget   int           `yaml:"row_budget"`
	MeshTTL     time.Duration `yaml:"mesh_ttl"`
}

// TerrainConfig holds mesh generation settings.
type TerrainConfig struct {
	SubdivisionBase int     `yaml:"subdivision_base"`
	ZoomFactor      float64 `yaml:"zoom_factor"`
	OverlapFactor   float32 `yaml:"overlap_factor"`
	EdgeDepth       float32 `yaml:"edge_depth"`
	Normals         string  `yaml:"normals"` // derived, surface-up or auto
	FlipWinding     bool    `yaml:"flip_winding"`
}

// DatasourceConfig holds the elevation tile source settings.
type DatasourceConfig struct {
	Root       string `yaml:"root"`
	Scheme     string `yaml:"scheme"` // zoomxy or zoomyx
	Ext        string `yaml:"ext"`
	RasterSize int    `yaml:"raster_size"`
}

// SimConfig holds the headless simulation loop settings.
type SimConfig struct {
	Ticks           int     `yaml:"ticks"`
	TickSeconds     float64 `yaml:"tick_seconds"`
	OrbitDegPerTick float64 `yaml:"orbit_deg_per_tick"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Planet: PlanetConfig{
			Preset:       "earth",
			XYTilesRatio: 2,
			Spherical:    true,
		},
		Streaming: StreamingConfig{
			MinZoom:     0,
			MaxZoom:     12,
			LoadDelay:   50 * time.Millisecond,
			ViewRadiusM: 500000,
			RowBudget:   256,
			MeshTTL:     30 * time.Second,
		},
		Terrain: TerrainConfig{
			SubdivisionBase: 1,
			ZoomFactor:      1.25,
			OverlapFactor:   1,
			EdgeDepth:       1,
			Normals:         "derived",
		},
		Datasource: DatasourceConfig{
			Root:       "tiles",
			Scheme:     "zoomxy",
			Ext:        ".rgb",
			RasterSize: 32,
		},
		Sim: SimConfig{
			Ticks:           120,
			TickSeconds:     1.0 / 60,
			OrbitDegPerTick: 0.25,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
