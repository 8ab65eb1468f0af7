// core/products/image.go
package products

import (
	"fmt"

	"xga-core/fitsio"
	"xga-core/storekey"
	"xga-core/units"
)

// Image is a band-limited count image, optionally PSF corrected.
type Image struct {
	*Base
	LoKeV, HiKeV float64
	PSF          *storekey.PSFKey // nil when not PSF corrected

	data    *fitsio.ImageData
	loadErr error
	loaded  bool
}

// NewImage wraps a generated or discovered image file.
func NewImage(path, obsID, inst, stdout, stderr, command string, loKeV, hiKeV float64) *Image {
	return &Image{
		Base:  NewBase(path, obsID, inst, stdout, stderr, command, KindImage),
		LoKeV: loKeV,
		HiKeV: hiKeV,
	}
}

// StorageKey is the registry extra-key: the energy band, extended with the
// PSF tokens when the image is PSF corrected.
func (im *Image) StorageKey() string {
	key := storekey.EnergyKey(im.LoKeV, im.HiKeV)
	if im.PSF != nil {
		key += "_" + im.PSF.Encode()
	}
	return key
}

// EnergyBounds returns the band in keV.
func (im *Image) EnergyBounds() (lo, hi units.Quantity) {
	return units.NewQuantity(im.LoKeV, units.KeV), units.NewQuantity(im.HiKeV, units.KeV)
}

// Data lazily loads the pixel data, caching both the result and any failure.
// Negative pixels are clipped to zero on load. An image without a celestial
// WCS cannot be used for anything and surfaces a GenerationError.
func (im *Image) Data() (*fitsio.ImageData, error) {
	if !im.loaded {
		im.loaded = true
		im.data, im.loadErr = fitsio.LoadImage(im.Path(), true)
		if im.loadErr == nil && im.data.Radec == nil {
			im.data = nil
			im.loadErr = &GenerationError{Path: im.Path(), Msg: "no celestial WCS in header"}
		}
	}
	return im.data, im.loadErr
}

// Shape returns (width, height) of the pixel grid.
func (im *Image) Shape() (int, int, error) {
	d, err := im.Data()
	if err != nil {
		return 0, 0, err
	}
	return d.Width, d.Height, nil
}

// ConvertCoord transforms a coordinate pair between the supported systems:
// deg (celestial), pix, xmm_sky and xmm_det. Conversions route through pixel
// space; requesting a system whose transform is absent from the header is a
// units.ConversionError, as is any unit outside the closed set. A negative
// pixel result means the position is off the grid and is rejected.
func (im *Image) ConvertCoord(x, y float64, from, to units.Unit) (float64, float64, error) {
	d, err := im.Data()
	if err != nil {
		return 0, 0, err
	}
	if from == to {
		return x, y, nil
	}

	px, py := x, y
	if from != units.Pix {
		w, err := im.systemFor(d, from)
		if err != nil {
			return 0, 0, err
		}
		px, py = w.WorldToPix(x, y)
	}
	if to == units.Pix {
		if px < 0 || py < 0 {
			return 0, 0, fmt.Errorf("converted pixel coordinate (%g, %g) is negative", px, py)
		}
		return px, py, nil
	}
	w, err := im.systemFor(d, to)
	if err != nil {
		return 0, 0, err
	}
	ox, oy := w.PixToWorld(px, py)
	return ox, oy, nil
}

func (im *Image) systemFor(d *fitsio.ImageData, u units.Unit) (*fitsio.WCS, error) {
	switch u {
	case units.Deg:
		return d.Radec, nil
	case units.XMMSky:
		if d.XMMSky == nil {
			return nil, &units.ConversionError{From: u, To: units.Pix, Reason: "xmm_sky transform not present in header"}
		}
		return d.XMMSky, nil
	case units.XMMDet:
		if d.XMMDet == nil {
			return nil, &units.ConversionError{From: u, To: units.Pix, Reason: "xmm_det transform not present in header"}
		}
		return d.XMMDet, nil
	}
	return nil, &units.ConversionError{From: u, To: units.Pix, Reason: "unit outside the supported coordinate systems"}
}

// ExpMap is an exposure map; structurally an Image in a different role.
type ExpMap struct {
	Image
}

// NewExpMap wraps a generated or discovered exposure map.
func NewExpMap(path, obsID, inst, stdout, stderr, command string, loKeV, hiKeV float64) *ExpMap {
	e := &ExpMap{Image: Image{
		Base:  NewBase(path, obsID, inst, stdout, stderr, command, KindExpMap),
		LoKeV: loKeV,
		HiKeV: hiKeV,
	}}
	return e
}

// ExposureAt returns the exposure time at a 0-based pixel position.
func (e *ExpMap) ExposureAt(x, y int) (float64, error) {
	d, err := e.Data()
	if err != nil {
		return 0, err
	}
	return float64(d.At(x, y)), nil
}

// EventList is a raw event file; it has no energy band and no pixel data of
// its own.
type EventList struct {
	*Base
}

func NewEventList(path, obsID, inst, stdout, stderr, command string) *EventList {
	return &EventList{Base: NewBase(path, obsID, inst, stdout, stderr, command, KindEvents)}
}

func (e *EventList) StorageKey() string { return "events" }

// PSFGrid is a gridded PSF model product used by PSF correction.
type PSFGrid struct {
	*Base
	Bins  int
	Model string
}

func NewPSFGrid(path, obsID, inst, stdout, stderr, command string, bins int, model string) *PSFGrid {
	return &PSFGrid{
		Base:  NewBase(path, obsID, inst, stdout, stderr, command, KindPSF),
		Bins:  bins,
		Model: model,
	}
}

func (p *PSFGrid) StorageKey() string { return storekey.PSFGridKey(p.Bins, p.Model) }
