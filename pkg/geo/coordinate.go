// Package geo provides geographic coordinate, tile grid and projection math
// for planetary terrain grids.
package geo

import "math"

// Coordinate is a geographic position. Latitude and longitude are in
// degrees, altitude in meters above the reference surface.
type Coordinate struct {
	Lat float64
	Lon float64
	Alt float64
}

// NewCoordinate returns a Coordinate with latitude clamped to [-90, 90]
// and longitude wrapped to (-180, 180].
func NewCoordinate(lat, lon, alt float64) Coordinate {
	return Coordinate{
		Lat: ClampLat(lat),
		Lon: WrapLon(lon),
		Alt: alt,
	}
}

// ClampLat clamps a latitude to [-90, 90].
func ClampLat(lat float64) float64 {
	if lat < -90 {
		return -90
	}
	if lat > 90 {
		return 90
	}
	return lat
}

// WrapLon wraps a longitude into (-180, 180].
func WrapLon(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon > 180 {
		lon -= 360
	} else if lon <= -180 {
		lon += 360
	}
	return lon
}

// LonDelta returns the shortest signed angular difference b-a in degrees,
// in (-180, 180].
func LonDelta(a, b float64) float64 {
	return WrapLon(b - a)
}

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// AngularDistance returns the great-circle angular distance between two
// coordinates, in radians. Altitude is ignored.
func AngularDistance(a, b Coordinate) float64 {
	latA := a.Lat * degToRad
	latB := b.Lat * degToRad
	dLon := LonDelta(a.Lon, b.Lon) * degToRad

	c := math.Sin(latA)*math.Sin(latB) + math.Cos(latA)*math.Cos(latB)*math.Cos(dLon)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}
