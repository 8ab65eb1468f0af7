// core/region/sasstring_test.go
package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConv is a linear sky-XY system: 72000 units per degree (XMM's 0.05
// arcsec sky pixels), origin at RA=150, Dec=0.
type fakeConv struct{}

func (fakeConv) ToSystem(ra, dec float64) (float64, float64, error) {
	return (ra - 150) * 72000, dec * 72000, nil
}
func (fakeConv) UnitsPerDegree() float64 { return 72000 }

func TestSASStringCircle(t *testing.T) {
	s, err := SASString(fakeConv{}, Circle{RA: 150, Dec: 0, Radius: 0.01}, nil)
	require.NoError(t, err)
	assert.Equal(t, "((X,Y) IN circle(0.0000,0.0000,720.0000))", s)
}

func TestSASStringWithInterlopers(t *testing.T) {
	src := Circle{RA: 150, Dec: 0, Radius: 0.01}
	inter := []Shape{
		Circle{RA: 150.005, Dec: 0, Radius: 0.002},
		Ellipse{RA: 150, Dec: 0.005, SemiMajor: 0.003, SemiMinor: 0.001, AngleDeg: 45},
	}
	s, err := SASString(fakeConv{}, src, inter)
	require.NoError(t, err)
	assert.Contains(t, s, "IN circle(0.0000,0.0000,720.0000)")
	assert.Contains(t, s, " &&! ((X,Y) IN circle(360.0000,0.0000,144.0000))")
	assert.Contains(t, s, " &&! ((X,Y) IN ellipse(0.0000,360.0000,216.0000,72.0000,45.0000))")
}

func TestSASStringAnnulus(t *testing.T) {
	ann, err := NewAnnulus(Circle{RA: 150, Dec: 0, Radius: 0.005}, Circle{RA: 150, Dec: 0, Radius: 0.01})
	require.NoError(t, err)
	s, err := SASString(fakeConv{}, ann, nil)
	require.NoError(t, err)
	assert.Equal(t, "((X,Y) IN annulus(0.0000,0.0000,360.0000,720.0000))", s)
}

func TestMatchRegions(t *testing.T) {
	dets := []Detection{
		{Shape: Circle{RA: 150, Dec: 0, Radius: 0.02}, Type: Extended},
		{Shape: Circle{RA: 150.001, Dec: 0, Radius: 0.003}, Type: Point},
		{Shape: Circle{RA: 151, Dec: 1, Radius: 0.01}, Type: Extended},
	}

	m, rest, found, err := Match("0001", dets, 150, 0, Extended)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, dets[0], m)
	assert.Len(t, rest, 2)

	_, _, found, err = Match("0001", dets, 152, 2, Extended)
	require.NoError(t, err)
	assert.False(t, found)

	ambiguous := append(dets, Detection{Shape: Circle{RA: 150.002, Dec: 0, Radius: 0.02}, Type: Extended})
	_, _, _, err = Match("0001", ambiguous, 150, 0, Extended)
	var mme *MultipleMatchError
	require.ErrorAs(t, err, &mme)
	assert.Equal(t, 2, mme.Count)
}
