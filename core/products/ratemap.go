// core/products/ratemap.go
package products

import (
	"fmt"

	"xga-core/fitsio"
)

// RateMap is the derived count-rate product: an image divided by its
// exposure map. It is never generated by the toolchain; the registry builds
// one whenever a usable image/expmap pair for the same key is present, and
// rebuilds it when either constituent is replaced.
type RateMap struct {
	img *Image
	exp *ExpMap

	rate   []float32
	sensor []bool // pixels with non-zero exposure
	loaded bool
	calcEr error
}

// NewRateMap pairs an image with its exposure map. The constituents must
// agree on observation, instrument and storage key.
func NewRateMap(img *Image, exp *ExpMap) (*RateMap, error) {
	if img == nil || exp == nil {
		return nil, fmt.Errorf("ratemap needs both an image and an exposure map")
	}
	if img.ObsID() != exp.ObsID() || img.Inst() != exp.Inst() {
		return nil, fmt.Errorf("ratemap constituents disagree: %s/%s vs %s/%s",
			img.ObsID(), img.Inst(), exp.ObsID(), exp.Inst())
	}
	if img.StorageKey() != exp.StorageKey() {
		return nil, fmt.Errorf("ratemap constituents disagree on storage key: %q vs %q",
			img.StorageKey(), exp.StorageKey())
	}
	return &RateMap{img: img, exp: exp}, nil
}

func (r *RateMap) Path() string  { return r.img.Path() }
func (r *RateMap) ObsID() string { return r.img.ObsID() }
func (r *RateMap) Inst() string  { return r.img.Inst() }
func (r *RateMap) Kind() Kind    { return KindRateMap }

// StorageKey matches the constituents' key, so a ratemap always sits next to
// the image it was derived from.
func (r *RateMap) StorageKey() string { return r.img.StorageKey() }

// Usable only when both constituents are.
func (r *RateMap) Usable() bool { return r.img.Usable() && r.exp.Usable() }

// Reasons folds the constituents' reasons together.
func (r *RateMap) Reasons() []Reason {
	return append(r.img.Reasons(), r.exp.Reasons()...)
}

func (r *RateMap) Image() *Image   { return r.img }
func (r *RateMap) ExpMap() *ExpMap { return r.exp }

// EnergyBounds mirrors the constituent image.
func (r *RateMap) EnergyBand() (lo, hi float64) { return r.img.LoKeV, r.img.HiKeV }

// compute divides image by exposure, leaving zero where the exposure is zero
// and recording which pixels sit on live detector area.
func (r *RateMap) compute() error {
	if r.loaded {
		return r.calcEr
	}
	r.loaded = true

	id, err := r.img.Data()
	if err != nil {
		r.calcEr = err
		return err
	}
	ed, err := r.exp.Data()
	if err != nil {
		r.calcEr = err
		return err
	}
	if id.Width != ed.Width || id.Height != ed.Height {
		r.calcEr = &GenerationError{Path: r.img.Path(), Msg: "image and exposure map shapes differ"}
		return r.calcEr
	}
	n := id.Width * id.Height
	r.rate = make([]float32, n)
	r.sensor = make([]bool, n)
	for i := 0; i < n; i++ {
		if ed.Pix[i] > 0 {
			r.rate[i] = id.Pix[i] / ed.Pix[i]
			r.sensor[i] = true
		}
	}
	return nil
}

// Data returns the rate array through the image's grid geometry.
func (r *RateMap) Data() (*fitsio.ImageData, []float32, error) {
	if err := r.compute(); err != nil {
		return nil, nil, err
	}
	d, _ := r.img.Data()
	return d, r.rate, nil
}

// RateAt returns count rate at a 0-based pixel position.
func (r *RateMap) RateAt(x, y int) (float64, error) {
	if err := r.compute(); err != nil {
		return 0, err
	}
	d, _ := r.img.Data()
	if x < 0 || y < 0 || x >= d.Width || y >= d.Height {
		return 0, nil
	}
	return float64(r.rate[y*d.Width+x]), nil
}

// OnSensor reports whether a pixel has non-zero exposure.
func (r *RateMap) OnSensor(x, y int) (bool, error) {
	if err := r.compute(); err != nil {
		return false, err
	}
	d, _ := r.img.Data()
	if x < 0 || y < 0 || x >= d.Width || y >= d.Height {
		return false, nil
	}
	return r.sensor[y*d.Width+x], nil
}

// SumUnderMask sums the count rate over true mask pixels and counts how many
// of them sit on live detector area. The mask is row-major over the grid.
func (r *RateMap) SumUnderMask(mask []bool) (sum float64, pixels int, err error) {
	if err := r.compute(); err != nil {
		return 0, 0, err
	}
	d, _ := r.img.Data()
	if len(mask) != d.Width*d.Height {
		return 0, 0, fmt.Errorf("mask length %d does not match grid %dx%d", len(mask), d.Width, d.Height)
	}
	for i, in := range mask {
		if in && r.sensor[i] {
			sum += float64(r.rate[i])
			pixels++
		}
	}
	return sum, pixels, nil
}
