package geo

import "math"

// Dimensions is a tile grid size in tiles per axis.
type Dimensions struct {
	X int
	Y int
}

// MaxZoom is the deepest tile zoom level supported by the grid math.
const MaxZoom = 30

// tilesRatioLadder are the permitted xyTilesRatio values: 1/10 .. 1/2 and
// the integers 1 .. 10. Requested ratios snap down to the nearest entry.
var tilesRatioLadder = []float64{
	1.0 / 10, 1.0 / 9, 1.0 / 8, 1.0 / 7, 1.0 / 6,
	1.0 / 5, 1.0 / 4, 1.0 / 3, 1.0 / 2,
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
}

// SnapTilesRatio clamps ratio to [0.1, 10] and snaps it down to the nearest
// permitted ladder value.
func SnapTilesRatio(ratio float64) float64 {
	if ratio < 0.1 {
		ratio = 0.1
	} else if ratio > 10 {
		ratio = 10
	}
	snapped := tilesRatioLadder[0]
	for _, r := range tilesRatioLadder {
		if r <= ratio+1e-12 {
			snapped = r
		}
	}
	return snapped
}

// ZoomFromDimensions returns the zoom level implied by a grid size: the
// log2 of the smaller axis. Grids may be non-square per the xyTilesRatio.
func ZoomFromDimensions(dims Dimensions) int {
	side := dims.X
	if dims.Y < side {
		side = dims.Y
	}
	if side < 1 {
		return 0
	}
	return int(math.Round(math.Log2(float64(side))))
}

// DimensionsFromZoom returns the grid size for a zoom level and an
// xyTilesRatio (X tiles over Y tiles). The ratio is snapped per
// SnapTilesRatio so that the result round-trips through ZoomFromDimensions.
func DimensionsFromZoom(zoom int, xyTilesRatio float64) Dimensions {
	if zoom < 0 {
		zoom = 0
	} else if zoom > MaxZoom {
		zoom = MaxZoom
	}
	ratio := SnapTilesRatio(xyTilesRatio)
	base := 1 << zoom
	if ratio >= 1 {
		return Dimensions{X: int(math.Round(float64(base) * ratio)), Y: base}
	}
	return Dimensions{X: base, Y: int(math.Round(float64(base) / ratio))}
}

// CoordinateFromIndex maps a fractional grid position to a geographic
// coordinate on an equirectangular lattice. x in [0, dims.X] spans
// longitude [-180, 180], y in [0, dims.Y] spans latitude [90, -90].
// On spherical grids x wraps, so x=0 and x=dims.X land on the seam.
func CoordinateFromIndex(x, y float64, dims Dimensions) Coordinate {
	lon := x/float64(dims.X)*360 - 180
	lat := 90 - y/float64(dims.Y)*180
	return NewCoordinate(lat, lon, 0)
}

// IndexFromCoordinate is the inverse of CoordinateFromIndex, returning a
// fractional grid position. The result x is in [0, dims.X), y in [0, dims.Y].
func IndexFromCoordinate(coord Coordinate, dims Dimensions) (x, y float64) {
	x = (WrapLon(coord.Lon) + 180) / 360 * float64(dims.X)
	if x >= float64(dims.X) {
		x -= float64(dims.X)
	}
	y = (90 - ClampLat(coord.Lat)) / 180 * float64(dims.Y)
	return x, y
}

// WrapIndexX wraps a tile column into [0, dims.X) for spherical grids.
// Negative columns wrap from the far edge.
func WrapIndexX(x int, dims Dimensions) int {
	x %= dims.X
	if x < 0 {
		x += dims.X
	}
	return x
}

// ClampIndexX clamps a tile column into [0, dims.X) for flat grids.
func ClampIndexX(x int, dims Dimensions) int {
	if x < 0 {
		return 0
	}
	if x >= dims.X {
		return dims.X - 1
	}
	return x
}
