package config

import "flag"

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagData   = flag.String("data", "", "Elevation tile directory")
	flagPlanet = flag.String("planet", "", "Body preset name")
	flagRadius = flag.Float64("radius", 0, "View radius in meters")
	flagTicks  = flag.Int("ticks", 0, "Number of simulation ticks")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagData != "" {
		cfg.Datasource.Root = *flagData
	}
	if *flagPlanet != "" {
		cfg.Planet.Preset = *flagPlanet
	}
	if *flagRadius > 0 {
		cfg.Streaming.ViewRadiusM = *flagRadius
	}
	if *flagTicks > 0 {
		cfg.Sim.Ticks = *flagTicks
	}
}
