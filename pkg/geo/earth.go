package geo

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// EarthSize is the Earth diameter in meters, the size used by the Earth
// body preset.
const EarthSize = EarthRadius * 2

var earthECEF = wgs84.Transform(wgs84.WGS84().LonLat(), wgs84.WGS84().XYZ())

// EarthECEF converts a geographic coordinate to WGS84 earth-centered
// earth-fixed coordinates (EPSG:4978). Unlike Point, this uses the real
// ellipsoid; it serves datasources and tooling that speak ECEF, not the
// blended render-space transform.
func EarthECEF(coord Coordinate) mgl64.Vec3 {
	x, y, z := earthECEF(coord.Lon, coord.Lat, coord.Alt)
	return mgl64.Vec3{x, y, z}
}

// TileBound returns the geographic bounding box of one tile on the
// equirectangular lattice as an orb.Bound (Min/Max are lon/lat points).
// Edge longitudes come straight off the lattice, unwrapped, so column 0
// keeps its -180 west edge and the last column ends at +180.
func TileBound(x, y int, dims Dimensions) orb.Bound {
	minLon := float64(x)/float64(dims.X)*360 - 180
	maxLon := float64(x+1)/float64(dims.X)*360 - 180
	maxLat := 90 - float64(y)/float64(dims.Y)*180
	minLat := 90 - float64(y+1)/float64(dims.Y)*180
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}
}
