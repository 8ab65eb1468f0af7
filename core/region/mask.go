// core/region/mask.go
package region

import (
	"fmt"

	"xga-core/fitsio"
)

// Grid is the pixel geometry masks are rasterised against; any product with
// a celestial WCS provides one.
type Grid struct {
	WCS    *fitsio.WCS
	Width  int
	Height int
}

// NewGrid wraps loaded image data as a rasterisation target.
func NewGrid(d *fitsio.ImageData) (Grid, error) {
	if d == nil || d.Radec == nil {
		return Grid{}, fmt.Errorf("mask grid needs image data with a celestial WCS")
	}
	return Grid{WCS: d.Radec, Width: d.Width, Height: d.Height}, nil
}

// Rasterize produces the boolean footprint of a shape on the grid, row-major.
func (g Grid) Rasterize(s Shape) []bool {
	mask := make([]bool, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			ra, dec := g.WCS.PixToWorld(float64(x), float64(y))
			if s.Contains(ra, dec) {
				mask[y*g.Width+x] = true
			}
		}
	}
	return mask
}

// Overlaps reports whether two rasterised footprints share any pixel, by
// summing the boolean mask product.
func Overlaps(a, b []bool) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] && b[i] {
			return true
		}
	}
	return false
}

// Interlopers returns every secondary region whose footprint intersects the
// footprint of the supplied aperture.
func Interlopers(g Grid, aperture Shape, secondaries []Shape) []Shape {
	ap := g.Rasterize(aperture)
	var out []Shape
	for _, s := range secondaries {
		if Overlaps(ap, g.Rasterize(s)) {
			out = append(out, s)
		}
	}
	return out
}

// NotInterloperMask is the pixel mask that removes every secondary source:
// true where no interloper footprint covers the pixel.
func NotInterloperMask(g Grid, secondaries []Shape) []bool {
	mask := make([]bool, g.Width*g.Height)
	for i := range mask {
		mask[i] = true
	}
	for _, s := range secondaries {
		for i, in := range g.Rasterize(s) {
			if in {
				mask[i] = false
			}
		}
	}
	return mask
}

// And multiplies two boolean masks in place into a fresh slice.
func And(a, b []bool) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] && i < len(b) && b[i]
	}
	return out
}

// Masks rasterises the source aperture and its derived background annulus.
func Masks(g Grid, src Shape, innerFactor, outerFactor float64) (srcMask, bgMask []bool, err error) {
	back, err := Background(src, innerFactor, outerFactor)
	if err != nil {
		return nil, nil, err
	}
	return g.Rasterize(src), g.Rasterize(back), nil
}

// CorrectedMasks additionally excises interlopers from both apertures.
func CorrectedMasks(g Grid, src Shape, secondaries []Shape, innerFactor, outerFactor float64) (srcMask, bgMask []bool, err error) {
	srcMask, bgMask, err = Masks(g, src, innerFactor, outerFactor)
	if err != nil {
		return nil, nil, err
	}
	not := NotInterloperMask(g, secondaries)
	return And(srcMask, not), And(bgMask, not), nil
}
