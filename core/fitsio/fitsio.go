// core/fitsio/fitsio.go

// Package fitsio is the lazy loading layer between on-disk FITS products and
// the rest of the library. It normalises every image to float32 row-major
// data, extracts the coordinate transforms embedded in the header, and closes
// the underlying file as soon as the read is done: a large sample touches
// tens of thousands of these files, so handles must never linger.
package fitsio

import (
	"fmt"
	"os"
	"runtime"

	"github.com/siravan/fits"
)

// ImageData is the in-memory form of one FITS image HDU.
type ImageData struct {
	// Pix is row-major: Pix[y*Width+x].
	Pix    []float32
	Width  int
	Height int

	Header map[string]interface{}

	// WCS systems found in the header. Radec is required for any product
	// the library is willing to use; the XMM sky and detector systems are
	// optional and only present in files produced with full calibration.
	Radec  *WCS
	XMMSky *WCS
	XMMDet *WCS
}

// LoadImage reads the first image HDU of the file at path. When clipNegative
// is set, negative pixels are clamped to zero (images and exposure maps only;
// a negative exposure is always an artefact of interpolation at chip edges).
func LoadImage(path string, clipNegative bool) (*ImageData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	units, err := fits.Open(f)
	closeErr := f.Close()
	// Thousands of loads can run back to back during discovery; give the
	// collector a chance to return page cache promptly.
	runtime.GC()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close %s: %w", path, closeErr)
	}

	var unit *fits.Unit
	for _, u := range units {
		if u.HasImage() && len(u.Naxis) == 2 {
			unit = u
			break
		}
	}
	if unit == nil {
		return nil, fmt.Errorf("%s: no two-dimensional image HDU", path)
	}

	w, h := unit.Naxis[0], unit.Naxis[1]
	pix := make([]float32, w*h)
	switch d := unit.Data.(type) {
	case []float32:
		copy(pix, d)
	case []float64:
		for i, v := range d {
			pix[i] = float32(v)
		}
	case []int16:
		for i, v := range d {
			pix[i] = float32(v)
		}
	case []int32:
		for i, v := range d {
			pix[i] = float32(v)
		}
	case []int64:
		for i, v := range d {
			pix[i] = float32(v)
		}
	case []byte:
		for i, v := range d {
			pix[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported pixel type %T", path, unit.Data)
	}
	if clipNegative {
		for i, v := range pix {
			if v < 0 {
				pix[i] = 0
			}
		}
	}

	img := &ImageData{Pix: pix, Width: w, Height: h, Header: unit.Keys}
	img.Radec, img.XMMSky, img.XMMDet = ExtractWCS(unit.Keys)
	return img, nil
}

// At returns the pixel value at (x, y); out-of-grid reads return 0.
func (d *ImageData) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= d.Width || y >= d.Height {
		return 0
	}
	return d.Pix[y*d.Width+x]
}
