package grid

import (
	"testing"

	"github.com/Faultbox/terraglobe/pkg/geo"
)

func TestFlatFootprintCoversCenterRow(t *testing.T) {
	// Unit-radius body: flat map is pi*2 meters wide, pi meters tall.
	dims := geo.Dimensions{X: 4, Y: 2}
	shape := CircleShape{
		Center:       geo.Coordinate{Lat: 0, Lon: 0},
		RadiusMeters: 3.2,
		BodySize:     2,
		Spherical:    false,
	}
	rows, center := shape.Footprint(dims)
	if center != (Index{X: 2, Y: 1}) {
		t.Fatalf("center index: got %v", center)
	}
	var centerRow *Row
	for i := range rows {
		if rows[i].Center {
			centerRow = &rows[i]
		}
	}
	if centerRow == nil {
		t.Fatal("no row marked as center")
	}
	// A radius wider than the half-map must cover every column.
	for x := 0; x < dims.X; x++ {
		if !centerRow.Contains(x) {
			t.Errorf("center row missing column %d", x)
		}
	}
}

func TestFlatFootprintShrinksAwayFromCenter(t *testing.T) {
	dims := geo.Dimensions{X: 8, Y: 8}
	shape := CircleShape{
		Center:       geo.Coordinate{Lat: 0, Lon: 0},
		RadiusMeters: 1,
		BodySize:     2,
		Spherical:    false,
	}
	rows, center := shape.Footprint(dims)
	if len(rows) == 0 {
		t.Fatal("empty footprint")
	}
	counts := map[int]int{}
	maxCount := 0
	for _, row := range rows {
		counts[row.Y] = row.Count()
		if row.Count() > maxCount {
			maxCount = row.Count()
		}
	}
	// The widest rows straddle the center; width is non-increasing as
	// rows move away on either side.
	for _, dir := range []int{1, -1} {
		prev := maxCount
		for d := 0; d < dims.Y; d++ {
			y := center.Y + d*dir
			c, ok := counts[y]
			if !ok {
				break
			}
			if c > prev {
				t.Errorf("row %d widened from %d to %d moving away from center", y, prev, c)
			}
			prev = c
		}
	}
}

func TestSphericalFootprintWrapsSeam(t *testing.T) {
	dims := geo.Dimensions{X: 8, Y: 4}
	shape := CircleShape{
		Center:       geo.Coordinate{Lat: 0, Lon: 180},
		RadiusMeters: 0.8, // radians on a unit-radius body
		BodySize:     2,
		Spherical:    true,
	}
	rows, center := shape.Footprint(dims)
	if center.X != 0 {
		// lon 180 is the wrap column on this lattice
		t.Fatalf("center index: got %v", center)
	}
	var row *Row
	for i := range rows {
		if rows[i].Y == 1 {
			row = &rows[i]
		}
	}
	if row == nil {
		t.Fatal("row 1 missing from footprint")
	}
	for _, x := range []int{0, 7} {
		if !row.Contains(x) {
			t.Errorf("row 1 should wrap the seam and contain column %d: %v", x, row.Ranges)
		}
	}
	for _, x := range []int{3, 4} {
		if row.Contains(x) {
			t.Errorf("row 1 should not reach the far side, contains %d: %v", x, row.Ranges)
		}
	}
}

func TestTinyRadiusKeepsCenterTile(t *testing.T) {
	dims := geo.Dimensions{X: 16, Y: 16}
	shape := CircleShape{
		Center:       geo.Coordinate{Lat: 10, Lon: 20},
		RadiusMeters: 0, // degenerate: floored internally
		BodySize:     2 * geo.EarthRadius,
		Spherical:    true,
	}
	rows, center := shape.Footprint(dims)
	total := 0
	found := false
	for _, row := range rows {
		total += row.Count()
		if row.Y == center.Y && row.Contains(center.X) {
			found = true
		}
	}
	if total != 1 || !found {
		t.Errorf("degenerate circle: want exactly the center tile, got %d tiles (rows %v)", total, rows)
	}
}

func TestScanRowCap(t *testing.T) {
	dims := geo.Dimensions{X: 2048, Y: 2048}
	shape := CircleShape{
		Center:       geo.Coordinate{Lat: 0, Lon: 0},
		RadiusMeters: 10, // covers the whole unit body many times over
		BodySize:     2,
		Spherical:    false,
	}
	rows, _ := shape.Footprint(dims)
	if len(rows) > maxScanRows {
		t.Errorf("scan produced %d rows, cap is %d", len(rows), maxScanRows)
	}
	if len(rows) == 0 {
		t.Error("capped scan should still produce a partial footprint")
	}
}

func TestGridDirtyGating(t *testing.T) {
	dims := geo.Dimensions{X: 8, Y: 8}
	shape := CircleShape{
		Center:       geo.Coordinate{Lat: 0, Lon: 0},
		RadiusMeters: 1,
		BodySize:     2,
	}
	var g Grid
	g.Set(dims, shape)
	if !g.Update() {
		t.Fatal("first Update should rebuild")
	}
	if g.Update() {
		t.Error("Update without input change should be a no-op")
	}
	g.Set(dims, shape)
	if g.Update() {
		t.Error("Set with identical inputs should not dirty the grid")
	}
	shape.RadiusMeters = 1.5
	g.Set(dims, shape)
	if !g.Update() {
		t.Error("radius change should dirty the grid")
	}
	if g.Count() == 0 {
		t.Error("footprint should not be empty")
	}
	if !g.Contains(g.CenterIndex()) {
		t.Error("footprint should contain its center index")
	}
}
