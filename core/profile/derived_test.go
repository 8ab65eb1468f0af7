// core/profile/derived_test.go
package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xga-core/units"
)

// seedFit installs a synthetic good-fit record so derived quantities can be
// exercised without running a solver.
func seedFit(p *Profile, model string, parSamples [][]float64) {
	pars := make([]float64, len(parSamples[0]))
	for _, s := range parSamples {
		for i, v := range s {
			pars[i] += v / float64(len(parSamples))
		}
	}
	p.goodFits[model] = &FitResult{
		Model: model, Method: MethodCurveFit,
		Par: pars, ParErr: make([]float64, len(pars)),
		ParSamples: parSamples,
	}
}

func densityProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := New(KindGasDensity, []float64{10, 50, 100, 300}, []float64{9, 6, 3, 1},
		units.Kpc, units.KeV, WithSeed(3))
	require.NoError(t, err)
	return p
}

func tempProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := New(KindTemp3D, []float64{10, 50, 100, 300}, []float64{5, 5.5, 5.2, 4.1},
		units.Kpc, units.KeV, WithSeed(3))
	require.NoError(t, err)
	return p
}

// kingSamples are parameter realizations for the king model with a small
// scatter around (0.7, 50, 10).
func kingSamples() [][]float64 {
	out := make([][]float64, 50)
	for i := range out {
		d := float64(i-25) / 500
		out[i] = []float64{0.7 + d, 50 * (1 + d), 10 * (1 + d)}
	}
	return out
}

func vikhlininSamples() [][]float64 {
	out := make([][]float64, 50)
	for i := range out {
		d := float64(i-25) / 500
		out[i] = []float64{100, 1, 2, 6 * (1 + d), 500}
	}
	return out
}

func TestGasMass(t *testing.T) {
	p := densityProfile(t)

	// no fit on record yet
	_, err := p.GasMass("king", units.NewQuantity(200, units.Kpc), 90)
	var nae *ModelNotAssociatedError
	require.ErrorAs(t, err, &nae)

	seedFit(p, "king", kingSamples())
	d, err := p.GasMass("king", units.NewQuantity(200, units.Kpc), 90)
	require.NoError(t, err)
	assert.Greater(t, d.Value, 0.0)
	assert.Greater(t, d.ErrLo, 0.0)
	assert.Greater(t, d.ErrHi, 0.0)
	assert.Len(t, d.Samples, 50)

	// against the analytic single-sample integral to a few percent
	m := KingModel{}
	mid := sphereIntegral(m, []float64{0.7, 50, 10}, 200)
	assert.InDelta(t, mid, d.Value, 0.1*mid)

	// memoised: the same radius returns the identical record
	d2, err := p.GasMass("king", units.NewQuantity(200, units.Kpc), 90)
	require.NoError(t, err)
	assert.Same(t, d, d2)

	// a different radius is a fresh computation
	d3, err := p.GasMass("king", units.NewQuantity(100, units.Kpc), 90)
	require.NoError(t, err)
	assert.NotSame(t, d, d3)
	assert.Less(t, d3.Value, d.Value)

	// radius in convertible units gives the same mass
	d4, err := p.GasMass("king", units.NewQuantity(0.2, units.Mpc), 90)
	require.NoError(t, err)
	assert.InDelta(t, d.Value, d4.Value, 1e-6*d.Value)
}

func TestGasMassTypeChecks(t *testing.T) {
	p := tempProfile(t)
	_, err := p.GasMass("king", units.NewQuantity(200, units.Kpc), 90)
	var te *TypeError
	require.ErrorAs(t, err, &te)

	d := densityProfile(t)
	seedFit(d, "king", kingSamples())
	_, err = d.GasMass("king", units.NewQuantity(-5, units.Kpc), 90)
	assert.Error(t, err)
}

func TestHydrostaticMass(t *testing.T) {
	temp := tempProfile(t)
	dens := densityProfile(t)
	seedFit(temp, "simple_vikhlinin", vikhlininSamples())
	seedFit(dens, "king", kingSamples())

	r := units.NewQuantity(300, units.Kpc)
	d, err := temp.HydrostaticMass("simple_vikhlinin", dens, "king", r, 90)
	require.NoError(t, err)

	// a declining density and temperature profile gives a positive mass
	assert.Greater(t, d.Value, 0.0)
	assert.False(t, math.IsNaN(d.ErrLo))
	assert.Len(t, d.Samples, 50)

	d2, err := temp.HydrostaticMass("simple_vikhlinin", dens, "king", r, 90)
	require.NoError(t, err)
	assert.Same(t, d, d2)

	// wrong kinds on either side
	_, err = dens.HydrostaticMass("king", dens, "king", r, 90)
	var te *TypeError
	require.ErrorAs(t, err, &te)
	_, err = temp.HydrostaticMass("simple_vikhlinin", temp, "king", r, 90)
	require.ErrorAs(t, err, &te)
}

func TestBaryonFraction(t *testing.T) {
	temp := tempProfile(t)
	dens := densityProfile(t)
	seedFit(temp, "simple_vikhlinin", vikhlininSamples())
	seedFit(dens, "king", kingSamples())

	r := units.NewQuantity(300, units.Kpc)
	d, err := dens.BaryonFraction("king", temp, "simple_vikhlinin", r, 90)
	require.NoError(t, err)
	assert.Greater(t, d.Value, 0.0)

	d2, err := dens.BaryonFraction("king", temp, "simple_vikhlinin", r, 90)
	require.NoError(t, err)
	assert.Same(t, d, d2)

	_, err = temp.BaryonFraction("simple_vikhlinin", temp, "simple_vikhlinin", r, 90)
	var te *TypeError
	require.ErrorAs(t, err, &te)
}

func TestLogSlope(t *testing.T) {
	// power law r^-2 has a logarithmic slope of exactly -2
	s := logSlope(PowerLawModel{}, []float64{-2, 1}, 50)
	assert.InDelta(t, -2.0, s, 1e-6)
}
