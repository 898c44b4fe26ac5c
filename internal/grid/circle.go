package grid

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/terraglobe/internal/logger"
	"github.com/Faultbox/terraglobe/pkg/geo"
)

const (
	// maxScanRows caps the outward row scan. Hitting the cap truncates
	// the footprint and logs an error; the partial grid is still usable.
	maxScanRows = 200

	// intersectEpsilon separates distinct boundary crossings on a row.
	intersectEpsilon = 2e-9

	// minShapeRadius floors degenerate view radii to keep the
	// intersection math stable.
	minShapeRadius = 1e-8
)

// CircleShape is a circular footprint on the body surface: the set of
// tiles within RadiusMeters of Center, on either the spherical or the flat
// projection of a body with the given size (diameter).
type CircleShape struct {
	Center       geo.Coordinate
	RadiusMeters float64
	BodySize     float64
	Spherical    bool
}

// angularRadius returns the circle radius as a great-circle angle, capped
// at a full hemisphere sweep.
func (c CircleShape) angularRadius() float64 {
	r := c.RadiusMeters
	if r < minShapeRadius {
		r = minShapeRadius
	}
	a := geo.SurfaceDistance(r, c.BodySize)
	if a > math.Pi {
		a = math.Pi
	}
	return a
}

// Footprint computes the rows of tile ranges intersecting the circle on a
// grid of the given dimensions, and the center tile index.
//
// The scan works outward row by row from the center row. Each row starts
// from the trivial full interval [0, dims.X], is split at the x positions
// where the circle boundary crosses the row's two scanlines, and keeps the
// sub-intervals whose midpoints pass the point-in-circle test. Crossings
// wrap on spherical grids (shorter angular delta) and clamp on flat ones.
func (c CircleShape) Footprint(dims geo.Dimensions) ([]Row, Index) {
	cx, cy := geo.IndexFromCoordinate(c.Center, dims)
	centerIdx := Index{X: clampInt(int(math.Floor(cx)), 0, dims.X-1), Y: clampInt(int(math.Floor(cy)), 0, dims.Y-1)}
	if c.Spherical {
		centerIdx.X = geo.WrapIndexX(int(math.Floor(cx)), dims)
	}

	yMin, yMax := c.rowBounds(cx, cy, dims)

	var rows []Row
	scanned := 0
	capped := false

	appendRow := func(y int) bool {
		if y < yMin || y > yMax || y < 0 || y >= dims.Y {
			return false
		}
		if scanned >= maxScanRows {
			capped = true
			return false
		}
		scanned++
		ranges := c.rowRanges(y, cx, cy, dims)
		if len(ranges) == 0 {
			return false
		}
		rows = append(rows, Row{Y: y, Ranges: ranges, Center: y == centerIdx.Y})
		return true
	}

	// Center row and downward.
	for y := centerIdx.Y; ; y++ {
		if !appendRow(y) {
			break
		}
	}
	// Upward from just above the center row.
	for y := centerIdx.Y - 1; ; y-- {
		if !appendRow(y) {
			break
		}
	}

	if capped {
		logger.Error("footprint row scan exceeded cap, truncating",
			zap.Int("cap", maxScanRows),
			zap.Int("dimsY", dims.Y),
			zap.Float64("radiusMeters", c.RadiusMeters))
	}

	// A circle smaller than one tile can slip between scanlines; the
	// center tile is always part of its own footprint.
	if len(rows) == 0 {
		rows = append(rows, Row{
			Y:      centerIdx.Y,
			Ranges: []Range{{Start: centerIdx.X, End: centerIdx.X}},
			Center: true,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Y < rows[j].Y })
	return rows, centerIdx
}

// rowBounds seeds the vertical scan bounds from the shape's bounding
// square, the equivalent of intersecting the grid's corner rays with the
// shape.
func (c CircleShape) rowBounds(cx, cy float64, dims geo.Dimensions) (int, int) {
	var ry float64
	if c.Spherical {
		aDeg := c.angularRadius() * 180 / math.Pi
		ry = aDeg / 180 * float64(dims.Y)
	} else {
		ry = c.RadiusMeters / c.metersPerRow(dims)
	}
	yMin := int(math.Floor(cy - ry - 1))
	yMax := int(math.Ceil(cy + ry + 1))
	return clampInt(yMin, 0, dims.Y-1), clampInt(yMax, 0, dims.Y-1)
}

func (c CircleShape) metersPerRow(dims geo.Dimensions) float64 {
	// Flat map height is half the circumference.
	return math.Pi * c.BodySize / 2 / float64(dims.Y)
}

func (c CircleShape) metersPerCol(dims geo.Dimensions) float64 {
	return math.Pi * c.BodySize / float64(dims.X)
}

// rowRanges computes the surviving column ranges for one tile row.
func (c CircleShape) rowRanges(y int, cx, cy float64, dims geo.Dimensions) []Range {
	// Trivial full-row interval plus boundary crossings at both
	// scanlines bounding the row.
	splits := []float64{0, float64(dims.X)}
	splits = c.appendCrossings(splits, float64(y), cx, cy, dims)
	splits = c.appendCrossings(splits, float64(y+1), cx, cy, dims)

	sort.Float64s(splits)
	splits = dedupeSplits(splits)

	var ranges []Range
	for i := 0; i+1 < len(splits); i++ {
		x0, x1 := splits[i], splits[i+1]
		if x1-x0 < intersectEpsilon {
			continue
		}
		if !c.contains((x0+x1)/2, float64(y)+0.5, dims) {
			continue
		}
		start := clampInt(int(math.Floor(x0+intersectEpsilon)), 0, dims.X-1)
		end := clampInt(int(math.Ceil(x1-intersectEpsilon))-1, 0, dims.X-1)
		if end < start {
			continue
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return mergeRanges(ranges)
}

// appendCrossings adds the x positions where the circle boundary crosses
// the horizontal scanline at fractional row yy.
func (c CircleShape) appendCrossings(splits []float64, yy, cx, cy float64, dims geo.Dimensions) []float64 {
	if c.Spherical {
		return c.appendSphericalCrossings(splits, yy, cx, dims)
	}
	ry := c.RadiusMeters / c.metersPerRow(dims)
	rx := c.RadiusMeters / c.metersPerCol(dims)
	if ry < intersectEpsilon || rx < intersectEpsilon {
		return splits
	}
	dy := (yy - cy) / ry
	if dy < -1 || dy > 1 {
		return splits
	}
	half := rx * math.Sqrt(1-dy*dy)
	// Flat grids clamp: out-of-range crossings collapse onto the border,
	// which the seeded 0/dims.X splits already cover.
	for _, x := range []float64{cx - half, cx + half} {
		if x > 0 && x < float64(dims.X) {
			splits = append(splits, x)
		}
	}
	return splits
}

// appendSphericalCrossings intersects the spherical cap boundary with the
// parallel of latitude at fractional row yy. This is the circle of the
// cap's bounding cone cut against the row's latitude ring.
func (c CircleShape) appendSphericalCrossings(splits []float64, yy, cx float64, dims geo.Dimensions) []float64 {
	lat := (90 - yy/float64(dims.Y)*180) * math.Pi / 180
	latC := c.Center.Lat * math.Pi / 180
	a := c.angularRadius()

	denom := math.Cos(latC) * math.Cos(lat)
	if math.Abs(denom) < intersectEpsilon {
		// Pole scanline: either fully inside or fully outside, decided
		// by the midpoint test.
		return splits
	}
	cosDLon := (math.Cos(a) - math.Sin(latC)*math.Sin(lat)) / denom
	if cosDLon < -1 || cosDLon > 1 {
		return splits
	}
	dLon := math.Acos(cosDLon) * 180 / math.Pi
	dx := dLon / 360 * float64(dims.X)

	for _, x := range []float64{cx - dx, cx + dx} {
		// Wrap with the shorter angular delta into [0, dims.X).
		x = math.Mod(x, float64(dims.X))
		if x < 0 {
			x += float64(dims.X)
		}
		splits = append(splits, x)
	}
	return splits
}

// contains is the point-in-shape test at a fractional grid position.
func (c CircleShape) contains(x, y float64, dims geo.Dimensions) bool {
	if c.Spherical {
		coord := geo.CoordinateFromIndex(x, y, dims)
		return geo.AngularDistance(c.Center, coord) <= c.angularRadius()+intersectEpsilon
	}
	cx, cy := geo.IndexFromCoordinate(c.Center, dims)
	dx := (x - cx) * c.metersPerCol(dims)
	dy := (y - cy) * c.metersPerRow(dims)
	r := c.RadiusMeters
	if r < minShapeRadius {
		r = minShapeRadius
	}
	return dx*dx+dy*dy <= r*r
}

func dedupeSplits(splits []float64) []float64 {
	out := splits[:0]
	for i, s := range splits {
		if i > 0 && s-out[len(out)-1] < intersectEpsilon {
			continue
		}
		out = append(out, s)
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
