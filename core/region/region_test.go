// core/region/region_test.go
package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircleContains(t *testing.T) {
	c := Circle{RA: 150, Dec: -12, Radius: 0.01}
	assert.True(t, c.Contains(150, -12))
	assert.True(t, c.Contains(150, -12.0099))
	assert.False(t, c.Contains(150, -12.02))
	// RA offsets shrink with cos(dec); 0.0102 deg of RA at dec=-12 is inside
	assert.True(t, c.Contains(150.0102, -12))
}

func TestEllipseContainsRotated(t *testing.T) {
	e := Ellipse{RA: 10, Dec: 0, SemiMajor: 0.02, SemiMinor: 0.005, AngleDeg: 90}
	// major axis now along Dec
	assert.True(t, e.Contains(10, 0.015))
	assert.False(t, e.Contains(10.015, 0))
}

func TestAnnulusOrdering(t *testing.T) {
	in := Circle{RA: 1, Dec: 1, Radius: 0.02}
	out := Circle{RA: 1, Dec: 1, Radius: 0.01}
	_, err := NewAnnulus(in, out)
	assert.Error(t, err)

	_, err = NewAnnulus(in, in)
	assert.Error(t, err, "equal radii must be rejected")

	ann, err := NewAnnulus(Circle{RA: 1, Dec: 1, Radius: 0.01}, in)
	require.NoError(t, err)
	assert.True(t, ann.Contains(1, 1.015))
	assert.False(t, ann.Contains(1, 1.005), "inside inner boundary")
	assert.False(t, ann.Contains(1, 1.03), "outside outer boundary")
}

func TestBackgroundDerivation(t *testing.T) {
	src := Circle{RA: 150, Dec: -12, Radius: 0.01}
	back, err := Background(src, DefaultBackInnerFactor, DefaultBackOuterFactor)
	require.NoError(t, err)

	in := back.Inner.(Circle)
	out := back.Outer.(Circle)
	assert.InDelta(t, 0.0105, in.Radius, 1e-12)
	assert.InDelta(t, 0.015, out.Radius, 1e-12)
	assert.Less(t, in.Radius, out.Radius)

	_, err = Background(src, 0.9, 1.5)
	assert.Error(t, err)
	_, err = Background(src, 1.5, 1.05)
	assert.Error(t, err)
}

func TestBackgroundOfEllipse(t *testing.T) {
	src := Ellipse{RA: 1, Dec: 2, SemiMajor: 0.02, SemiMinor: 0.01, AngleDeg: 30}
	back, err := Background(src, 1.05, 1.5)
	require.NoError(t, err)
	out := back.Outer.(Ellipse)
	assert.InDelta(t, 0.03, out.SemiMajor, 1e-12)
	assert.InDelta(t, 0.015, out.SemiMinor, 1e-12)
}
