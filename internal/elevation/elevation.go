// Package elevation holds decoded elevation rasters and the sampling
// contract consumed by terrain mesh generation.
package elevation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/terraglobe/internal/grid"
)

// ErrMalformedElevation reports elevation payloads whose size does not
// match the declared raster dimensions. Decoding is validated upstream, so
// this is a hard operational fault rather than a soft miss.
var ErrMalformedElevation = errors.New("malformed elevation data")

// Raster is a decoded elevation tile: row-major float32 samples in meters,
// plus the grid key the tile belongs to so samples can be re-projected
// into a neighbor's coordinate space.
type Raster struct {
	Width  int
	Height int
	// Samples is row-major, Width*Height long.
	Samples []float32
	// Key is the tile this raster was fetched for.
	Key grid.Key
}

// Decode unpacks an RGB-packed elevation payload: each sample is three
// bytes, elevation = -10000 + (r<<16 | g<<8 | b) * 0.1 meters.
func Decode(raw []byte, width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: raster size %dx%d", ErrMalformedElevation, width, height)
	}
	if len(raw) != width*height*3 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d raster (want %d)",
			ErrMalformedElevation, len(raw), width, height, width*height*3)
	}
	samples := make([]float32, width*height)
	for i := range samples {
		r := uint32(raw[i*3])
		g := uint32(raw[i*3+1])
		b := uint32(raw[i*3+2])
		samples[i] = float32(-10000 + float64(r<<16|g<<8|b)*0.1)
	}
	return &Raster{Width: width, Height: height, Samples: samples}, nil
}

// Encode packs samples back into the RGB wire layout. Used by the file
// datasource tooling and tests.
func (r *Raster) Encode() []byte {
	out := make([]byte, len(r.Samples)*3)
	for i, s := range r.Samples {
		v := uint32(math.Round((float64(s) + 10000) / 0.1))
		out[i*3] = byte(v >> 16)
		out[i*3+1] = byte(v >> 8)
		out[i*3+2] = byte(v)
	}
	return out
}

// Elevation samples the raster at a normalized position. x and y are
// clamped to [0, 1]; the sample is bilinear between the four surrounding
// cells. ok is false only when the raster holds no samples.
func (r *Raster) Elevation(x, y float64) (float32, bool) {
	if r == nil || len(r.Samples) == 0 || r.Width <= 0 || r.Height <= 0 {
		return 0, false
	}
	x = clamp01(x)
	y = clamp01(y)

	fx := x * float64(r.Width-1)
	fy := y * float64(r.Height-1)
	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > r.Width-1 {
		x1 = r.Width - 1
	}
	if y1 > r.Height-1 {
		y1 = r.Height - 1
	}
	tx := float32(fx - float64(x0))
	ty := float32(fy - float64(y0))

	s00 := r.Samples[y0*r.Width+x0]
	s10 := r.Samples[y0*r.Width+x1]
	s01 := r.Samples[y1*r.Width+x0]
	s11 := r.Samples[y1*r.Width+x1]

	top := s00 + (s10-s00)*tx
	bot := s01 + (s11-s01)*tx
	return top + (bot-top)*ty, true
}

// Stats returns the minimum, maximum and mean sample values. These feed
// the renderer's material scalars (min elevation, elevation multiplier).
func (r *Raster) Stats() (min, max, mean float64) {
	if r == nil || len(r.Samples) == 0 {
		return 0, 0, 0
	}
	s := make([]float64, len(r.Samples))
	for i, v := range r.Samples {
		s[i] = float64(v)
	}
	return floats.Min(s), floats.Max(s), stat.Mean(s, nil)
}

// ProjectToNeighbor maps a normalized position inside tile `from` into the
// normalized space of tile `to`, which may sit at different dimensions.
// The result is unclamped; callers clamp to [0,1] when sampling.
func ProjectToNeighbor(x, y float64, from, to grid.Key) (float64, float64) {
	gx := (float64(from.Index.X) + x) / float64(from.Dims.X)
	gy := (float64(from.Index.Y) + y) / float64(from.Dims.Y)
	return gx*float64(to.Dims.X) - float64(to.Index.X),
		gy*float64(to.Dims.Y) - float64(to.Index.Y)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
