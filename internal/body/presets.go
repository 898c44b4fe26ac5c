package body

import "github.com/Faultbox/terraglobe/pkg/geo"

// Preset holds the physical constants of a well-known body.
type Preset struct {
	Name string
	// RadiusM is the mean radius in meters.
	RadiusM float64
	// MassKG is the body mass in kilograms.
	MassKG float64
}

// Size returns the body diameter in meters.
func (p Preset) Size() float64 { return p.RadiusM * 2 }

// Presets lists the solar system bodies available to the simulation.
// Earth uses the mean radius matching pkg/geo's transforms.
var Presets = map[string]Preset{
	"sun":     {Name: "Sun", RadiusM: 696340000, MassKG: 1.989e30},
	"mercury": {Name: "Mercury", RadiusM: 2439700, MassKG: 3.301e23},
	"venus":   {Name: "Venus", RadiusM: 6051800, MassKG: 4.867e24},
	"earth":   {Name: "Earth", RadiusM: geo.EarthRadius, MassKG: 5.972e24},
	"moon":    {Name: "Moon", RadiusM: 1737400, MassKG: 7.342e22},
	"mars":    {Name: "Mars", RadiusM: 3389500, MassKG: 6.417e23},
	"jupiter": {Name: "Jupiter", RadiusM: 69911000, MassKG: 1.898e27},
	"saturn":  {Name: "Saturn", RadiusM: 58232000, MassKG: 5.683e26},
	"uranus":  {Name: "Uranus", RadiusM: 25362000, MassKG: 8.681e25},
	"neptune": {Name: "Neptune", RadiusM: 24622000, MassKG: 1.024e26},
	"pluto":   {Name: "Pluto", RadiusM: 1188300, MassKG: 1.303e22},
}

// LookupPreset resolves a preset by its lowercase key.
func LookupPreset(name string) (Preset, bool) {
	p, ok := Presets[name]
	return p, ok
}

// NewFromPreset builds a spherical body from a preset.
func NewFromPreset(p Preset) *Body {
	return New(Options{
		Name:           p.Name,
		Size:           p.Size(),
		XYTilesRatio:   2,
		SphericalRatio: 1,
	})
}
