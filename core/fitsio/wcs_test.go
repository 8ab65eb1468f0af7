// core/fitsio/wcs_test.go
package fitsio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tanHeader() map[string]interface{} {
	return map[string]interface{}{
		"CTYPE1": "RA---TAN",
		"CTYPE2": "DEC--TAN",
		"CRPIX1": 256.0,
		"CRPIX2": 256.0,
		"CRVAL1": 150.0,
		"CRVAL2": -12.5,
		"CDELT1": -0.001,
		"CDELT2": 0.001,

		"CTYPE1L": "X",
		"CTYPE2L": "Y",
		"CRPIX1L": 1.0,
		"CRPIX2L": 1.0,
		"CRVAL1L": 13000.0,
		"CRVAL2L": 21000.0,
		"CDELT1L": 80.0,
		"CDELT2L": 80.0,
	}
}

func TestExtractWCSFindsSystems(t *testing.T) {
	radec, sky, det := ExtractWCS(tanHeader())
	require.NotNil(t, radec)
	require.NotNil(t, sky)
	assert.Nil(t, det)
	assert.Equal(t, "RA---TAN", radec.Ctype1)
	assert.Equal(t, "X", sky.Ctype1)
}

func TestPixWorldRoundTrip(t *testing.T) {
	radec, _, _ := ExtractWCS(tanHeader())
	require.NotNil(t, radec)

	for _, p := range [][2]float64{{255, 255}, {0, 0}, {511, 300}, {100.5, 412.25}} {
		ra, dec := radec.PixToWorld(p[0], p[1])
		px, py := radec.WorldToPix(ra, dec)
		assert.InDelta(t, p[0], px, 1e-6)
		assert.InDelta(t, p[1], py, 1e-6)
	}
}

func TestReferencePixelMapsToReferenceValue(t *testing.T) {
	radec, _, _ := ExtractWCS(tanHeader())
	ra, dec := radec.PixToWorld(255, 255)
	assert.InDelta(t, 150.0, ra, 1e-9)
	assert.InDelta(t, -12.5, dec, 1e-9)
}

func TestLinearAlternateSystem(t *testing.T) {
	_, sky, _ := ExtractWCS(tanHeader())
	require.NotNil(t, sky)
	x, y := sky.PixToWorld(0, 0)
	assert.InDelta(t, 13000.0, x, 1e-9)
	assert.InDelta(t, 21000.0, y, 1e-9)
	px, py := sky.WorldToPix(13080, 21160)
	assert.InDelta(t, 1.0, px, 1e-9)
	assert.InDelta(t, 2.0, py, 1e-9)
}
