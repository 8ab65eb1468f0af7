// core/units/units_test.go
package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertWithinDimension(t *testing.T) {
	cases := []struct {
		in   Quantity
		to   Unit
		want float64
	}{
		{NewQuantity(1, Deg), ArcSec, 3600},
		{NewQuantity(90, ArcMin), Deg, 1.5},
		{NewQuantity(2, Mpc), Kpc, 2000},
		{NewQuantity(500, EV), KeV, 0.5},
	}
	for _, c := range cases {
		got, err := Convert(c.in, c.to)
		require.NoError(t, err)
		assert.InDelta(t, c.want, got.Value, 1e-9, "%v -> %s", c.in, c.to)
		assert.Equal(t, c.to, got.Unit)
	}
}

func TestConvertAcrossDimensionsFails(t *testing.T) {
	_, err := Convert(NewQuantity(1, Deg), Kpc)
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, Deg, ce.From)
	assert.Equal(t, Kpc, ce.To)
}

func TestConvertUnknownUnitFails(t *testing.T) {
	_, err := Convert(NewQuantity(1, Pix), Deg)
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
}

func TestCosmologyScales(t *testing.T) {
	c := DefaultCosmology

	// Known-good values for H0=70, Om0=0.3 (checked against the usual
	// astropy FlatLambdaCDM numbers).
	da := c.AngularDiameterDistance(0.3)
	assert.InDelta(t, 919.0, da, 5.0)

	kpa := c.KpcPerArcsec(0.3)
	assert.InDelta(t, 4.45, kpa, 0.05)
}

func TestAngleLengthRoundTrip(t *testing.T) {
	c := DefaultCosmology
	z := 0.25

	l, err := c.AngleToLength(NewQuantity(30, ArcSec), z, Kpc)
	require.NoError(t, err)
	back, err := c.LengthToAngle(l, z, ArcSec)
	require.NoError(t, err)
	assert.InDelta(t, 30, back.Value, 1e-6)
}

func TestAngleToLengthNeedsRedshift(t *testing.T) {
	_, err := DefaultCosmology.AngleToLength(NewQuantity(30, ArcSec), 0, Kpc)
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Reason, "redshift")
}
