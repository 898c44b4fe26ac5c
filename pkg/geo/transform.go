package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Point converts a geographic coordinate to a local 3D position on a body
// of the given size (diameter, meters). sphericalRatio blends linearly
// between the flat plate-carree projection (0) and the sphere (1); the
// blend is continuous in the ratio so projection transitions can animate.
//
// The body is Y-up: on the sphere latitude 90 maps to +Y, and the
// lat=0/lon=0 surface point to +Z. On the flat plane longitude runs along
// +X, latitude along -Z, altitude along +Y.
func Point(coord Coordinate, size, sphericalRatio float64) mgl64.Vec3 {
	radius := size / 2
	if sphericalRatio <= 0 {
		return flatPoint(coord, radius)
	}
	if sphericalRatio >= 1 {
		return spherePoint(coord, radius)
	}
	f := flatPoint(coord, radius)
	s := spherePoint(coord, radius)
	return f.Add(s.Sub(f).Mul(sphericalRatio))
}

func spherePoint(coord Coordinate, radius float64) mgl64.Vec3 {
	lat := coord.Lat * degToRad
	lon := coord.Lon * degToRad
	r := radius + coord.Alt
	cosLat := math.Cos(lat)
	return mgl64.Vec3{
		r * cosLat * math.Sin(lon),
		r * math.Sin(lat),
		r * cosLat * math.Cos(lon),
	}
}

// flatPoint projects onto the XZ plane so that the map spans the sphere's
// circumference in X and half of it in Z, keeping surface distances at the
// equator identical between the two projections.
func flatPoint(coord Coordinate, radius float64) mgl64.Vec3 {
	return mgl64.Vec3{
		radius * coord.Lon * degToRad,
		coord.Alt + radius, // flat plane sits at sphere-surface height
		-radius * coord.Lat * degToRad,
	}
}

// Up returns the local up direction at a coordinate for a given blend
// ratio: geodetic up on the sphere, +Y on the flat plane, normalized blend
// in between.
func Up(coord Coordinate, sphericalRatio float64) mgl64.Vec3 {
	if sphericalRatio <= 0 {
		return mgl64.Vec3{0, 1, 0}
	}
	lat := coord.Lat * degToRad
	lon := coord.Lon * degToRad
	cosLat := math.Cos(lat)
	sphereUp := mgl64.Vec3{cosLat * math.Sin(lon), math.Sin(lat), cosLat * math.Cos(lon)}
	if sphericalRatio >= 1 {
		return sphereUp
	}
	flatUp := mgl64.Vec3{0, 1, 0}
	blended := flatUp.Add(sphereUp.Sub(flatUp).Mul(sphericalRatio))
	if blended.Len() < 1e-12 {
		return sphereUp
	}
	return blended.Normalize()
}

// SurfaceDistance converts a world-space distance at the surface into a
// great-circle angular distance in radians for a body of the given size.
func SurfaceDistance(meters, size float64) float64 {
	radius := size / 2
	if radius <= 0 {
		return 0
	}
	return meters / radius
}
