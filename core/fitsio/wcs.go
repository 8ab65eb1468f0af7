// core/fitsio/wcs.go
package fitsio

import (
	"fmt"
	"math"
	"strings"
)

// WCS is one linear (optionally TAN-projected) world coordinate system read
// from a FITS header. Pixel coordinates follow the FITS convention internally
// (1-based CRPIX) but the public API is 0-based to match the pixel arrays.
type WCS struct {
	Ctype1, Ctype2 string
	Crpix1, Crpix2 float64
	Crval1, Crval2 float64
	Cdelt1, Cdelt2 float64
	tan            bool
}

// System tags recognised by ExtractWCS.
const (
	SystemRadec  = "radec"
	SystemXMMSky = "xmm_sky"
	SystemXMMDet = "xmm_det"
)

func headerFloat(keys map[string]interface{}, name string) (float64, bool) {
	v, ok := keys[name]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func headerString(keys map[string]interface{}, name string) (string, bool) {
	v, ok := keys[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return strings.TrimSpace(s), ok
}

// readSystem assembles the WCS with the given alternate-code suffix
// ("" for primary, "A".."Z" or XMM's "L" for alternates).
func readSystem(keys map[string]interface{}, suffix string) *WCS {
	c1, ok1 := headerString(keys, "CTYPE1"+suffix)
	c2, ok2 := headerString(keys, "CTYPE2"+suffix)
	if !ok1 || !ok2 {
		return nil
	}
	w := &WCS{Ctype1: c1, Ctype2: c2}
	var ok bool
	if w.Crpix1, ok = headerFloat(keys, "CRPIX1"+suffix); !ok {
		return nil
	}
	if w.Crpix2, ok = headerFloat(keys, "CRPIX2"+suffix); !ok {
		return nil
	}
	if w.Crval1, ok = headerFloat(keys, "CRVAL1"+suffix); !ok {
		return nil
	}
	if w.Crval2, ok = headerFloat(keys, "CRVAL2"+suffix); !ok {
		return nil
	}
	if w.Cdelt1, ok = headerFloat(keys, "CDELT1"+suffix); !ok {
		return nil
	}
	if w.Cdelt2, ok = headerFloat(keys, "CDELT2"+suffix); !ok {
		return nil
	}
	w.tan = strings.Contains(c1, "TAN")
	return w
}

// classify maps a CTYPE pair to one of the known system tags.
func classify(w *WCS) string {
	c1 := strings.ToUpper(w.Ctype1)
	c2 := strings.ToUpper(w.Ctype2)
	switch {
	case strings.HasPrefix(c1, "RA") && strings.HasPrefix(c2, "DEC"):
		return SystemRadec
	case strings.HasPrefix(c1, "DETX") && strings.HasPrefix(c2, "DETY"):
		return SystemXMMDet
	case c1 == "X" && c2 == "Y":
		return SystemXMMSky
	}
	return ""
}

// ExtractWCS pulls every recognisable coordinate system out of a header.
// XMM products typically carry the celestial system as primary and the sky-XY
// and detector systems as lettered alternates.
func ExtractWCS(keys map[string]interface{}) (radec, xmmSky, xmmDet *WCS) {
	suffixes := []string{""}
	for c := 'A'; c <= 'Z'; c++ {
		suffixes = append(suffixes, string(c))
	}
	for _, sfx := range suffixes {
		w := readSystem(keys, sfx)
		if w == nil {
			continue
		}
		switch classify(w) {
		case SystemRadec:
			if radec == nil {
				radec = w
			}
		case SystemXMMSky:
			if xmmSky == nil {
				xmmSky = w
			}
		case SystemXMMDet:
			if xmmDet == nil {
				xmmDet = w
			}
		}
	}
	return radec, xmmSky, xmmDet
}

const degRad = math.Pi / 180

// PixToWorld converts a 0-based pixel coordinate to world coordinates.
func (w *WCS) PixToWorld(px, py float64) (x, y float64) {
	// intermediate coordinates, degrees
	ix := (px + 1 - w.Crpix1) * w.Cdelt1
	iy := (py + 1 - w.Crpix2) * w.Cdelt2
	if !w.tan {
		return w.Crval1 + ix, w.Crval2 + iy
	}
	// gnomonic deprojection about the reference point
	xr := ix * degRad
	yr := iy * degRad
	ra0 := w.Crval1 * degRad
	dec0 := w.Crval2 * degRad
	rho := math.Hypot(xr, yr)
	if rho == 0 {
		return w.Crval1, w.Crval2
	}
	c := math.Atan(rho)
	sinc, cosc := math.Sin(c), math.Cos(c)
	dec := math.Asin(cosc*math.Sin(dec0) + yr*sinc*math.Cos(dec0)/rho)
	ra := ra0 + math.Atan2(xr*sinc, rho*math.Cos(dec0)*cosc-yr*math.Sin(dec0)*sinc)
	return ra / degRad, dec / degRad
}

// WorldToPix converts world coordinates to a 0-based pixel coordinate.
func (w *WCS) WorldToPix(x, y float64) (px, py float64) {
	if !w.tan {
		return (x-w.Crval1)/w.Cdelt1 + w.Crpix1 - 1,
			(y-w.Crval2)/w.Cdelt2 + w.Crpix2 - 1
	}
	ra := x * degRad
	dec := y * degRad
	ra0 := w.Crval1 * degRad
	dec0 := w.Crval2 * degRad
	cosc := math.Sin(dec0)*math.Sin(dec) + math.Cos(dec0)*math.Cos(dec)*math.Cos(ra-ra0)
	xr := math.Cos(dec) * math.Sin(ra-ra0) / cosc
	yr := (math.Cos(dec0)*math.Sin(dec) - math.Sin(dec0)*math.Cos(dec)*math.Cos(ra-ra0)) / cosc
	return xr/degRad/w.Cdelt1 + w.Crpix1 - 1, yr/degRad/w.Cdelt2 + w.Crpix2 - 1
}

func (w *WCS) String() string {
	return fmt.Sprintf("WCS(%s/%s crval=%g,%g)", w.Ctype1, w.Ctype2, w.Crval1, w.Crval2)
}
