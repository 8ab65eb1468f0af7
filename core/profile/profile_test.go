// core/profile/profile_test.go
package profile

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xga-core/units"
)

// linearProfile builds a generic profile sampled from y = m*r + c with
// small Gaussian-free synthetic noise baked into the uncertainties.
func linearProfile(t *testing.T, slope, intercept float64, opts ...Option) *Profile {
	t.Helper()
	radii := make([]float64, 30)
	values := make([]float64, 30)
	errs := make([]float64, 30)
	for i := range radii {
		radii[i] = float64(i + 1)
		values[i] = slope*radii[i] + intercept
		errs[i] = 0.1
	}
	opts = append([]Option{WithValuesErr(errs), WithSeed(42)}, opts...)
	p, err := New(KindGeneric, radii, values, units.Kpc, units.KeV, opts...)
	require.NoError(t, err)
	return p
}

func TestNewValidation(t *testing.T) {
	_, err := New(KindGeneric, []float64{1, 2}, []float64{1}, units.Kpc, units.KeV)
	assert.Error(t, err)

	_, err = New(KindGeneric, []float64{1, 2, 2}, []float64{1, 2, 3}, units.Kpc, units.KeV)
	assert.Error(t, err, "radii must be strictly increasing")

	_, err = New(KindGeneric, []float64{1, 2}, []float64{1, 2}, units.Kpc, units.KeV,
		WithValuesErr([]float64{0.1}))
	assert.Error(t, err, "uncertainty length mismatch")

	_, err = New(KindGeneric, []float64{1, 2}, []float64{1, 2}, units.Kpc, units.KeV,
		WithOrigin("src", Combined, "pn"))
	assert.Error(t, err, "combined sentinel must be pairwise")

	p, err := New(KindGeneric, []float64{1, 2}, []float64{1, 2}, units.Kpc, units.KeV,
		WithOrigin("src", Combined, Combined))
	require.NoError(t, err)
	assert.Equal(t, Combined, p.ObsID())
}

func TestCurveFitRecoversLinearParameters(t *testing.T) {
	p := linearProfile(t, 2.5, 4.0)

	res, err := p.Fit("linear", MethodCurveFit, FitOptions{Realizations: 100})
	require.NoError(t, err)
	require.Len(t, res.Par, 2)

	assert.InDelta(t, 2.5, res.Par[0], 0.01)
	assert.InDelta(t, 4.0, res.Par[1], 0.05)
	require.Len(t, res.ParErr, 2)
	for _, e := range res.ParErr {
		assert.False(t, math.IsNaN(e))
		assert.GreaterOrEqual(t, e, 0.0)
	}
	assert.Len(t, res.ParSamples, 100)
	assert.NotNil(t, res.Realization)
}

func TestFitBaseKindHasNoModels(t *testing.T) {
	radii := []float64{1, 2, 3}
	values := []float64{1, 2, 3}
	p, err := New(KindBase, radii, values, units.Kpc, units.KeV,
		WithValuesErr([]float64{0.1, 0.1, 0.1}))
	require.NoError(t, err)

	_, err = p.Fit("linear", MethodCurveFit, FitOptions{})
	var te *TypeError
	require.ErrorAs(t, err, &te)

	// a type failure is not recorded as an attempted fit
	assert.Empty(t, p.GoodModelFits())
	assert.Empty(t, p.BadModelFits())
}

func TestFitValidation(t *testing.T) {
	p := linearProfile(t, 1, 0)

	_, err := p.Fit("linear", FitMethod("nonsense"), FitOptions{})
	assert.Error(t, err)

	_, err = p.Fit("no_such_model", MethodCurveFit, FitOptions{})
	assert.Error(t, err)

	_, err = p.Fit("linear", MethodCurveFit, FitOptions{StartPars: []float64{1}})
	assert.Error(t, err, "start parameter count mismatch")

	_, err = p.Fit("linear", MethodMCMC, FitOptions{Priors: []Prior{{0, 1}}})
	assert.Error(t, err, "prior count mismatch")

	noErr, err := New(KindGeneric, []float64{1, 2}, []float64{1, 2}, units.Kpc, units.KeV)
	require.NoError(t, err)
	_, err = noErr.Fit("linear", MethodCurveFit, FitOptions{})
	assert.Error(t, err, "fitting without value uncertainties must fail")
}

func TestFitCacheExclusivity(t *testing.T) {
	p := linearProfile(t, 2, 1)

	res1, err := p.Fit("linear", MethodCurveFit, FitOptions{Realizations: 50})
	require.NoError(t, err)

	// a second fit of the same model returns the cached record
	res2, err := p.Fit("linear", MethodMCMC, FitOptions{})
	require.NoError(t, err)
	assert.Same(t, res1, res2)

	assert.Equal(t, []string{"linear"}, p.GoodModelFits())
	assert.Empty(t, p.BadModelFits())
}

func TestGetModelFitErrors(t *testing.T) {
	p := linearProfile(t, 2, 1)

	_, err := p.GetModelFit("linear")
	var nae *ModelNotAssociatedError
	require.ErrorAs(t, err, &nae)
	assert.Equal(t, "linear", nae.Model)

	_, err = p.Fit("linear", MethodCurveFit, FitOptions{Realizations: 20})
	require.NoError(t, err)

	_, _, err = p.Parameter("linear", 5)
	var pae *ParameterNotAssociatedError
	require.ErrorAs(t, err, &pae)

	v, e, err := p.Parameter("linear", 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 0.01)
	assert.GreaterOrEqual(t, e, 0.0)
}

func TestBadFitIsRecordedAndSticky(t *testing.T) {
	p := linearProfile(t, 2, 1)

	// a one-step chain cannot yield an autocorrelation estimate
	_, err := p.Fit("linear", MethodMCMC, FitOptions{Walkers: 6, Steps: 10})
	var ffe *FitFailedError
	require.ErrorAs(t, err, &ffe)
	assert.Equal(t, []string{"linear"}, p.BadModelFits())

	// the failure is cached: a retry reports the same failure without rerunning
	_, err = p.Fit("linear", MethodCurveFit, FitOptions{})
	require.ErrorAs(t, err, &ffe)
	assert.Equal(t, MethodMCMC, ffe.Method)

	_, err = p.GetModelFit("linear")
	require.ErrorAs(t, err, &ffe)
}

func TestMCMCFitLinear(t *testing.T) {
	p := linearProfile(t, 2.5, 4.0)

	res, err := p.Fit("linear", MethodMCMC, FitOptions{
		Walkers: 12, Steps: 600, BurnIn: 200,
		StartFromML: true, Realizations: 100,
	})
	require.NoError(t, err)

	assert.InDelta(t, 2.5, res.Par[0], 0.05)
	assert.InDelta(t, 4.0, res.Par[1], 0.3)
	require.Len(t, res.ParLo, 2)
	require.Len(t, res.ParHi, 2)
	for i := range res.ParLo {
		assert.GreaterOrEqual(t, res.ParLo[i], 0.0)
		assert.GreaterOrEqual(t, res.ParHi[i], 0.0)
	}
	assert.Len(t, res.ParSamples, 100)
}

func TestRealizationStatistics(t *testing.T) {
	p := linearProfile(t, 3, 2)

	res, err := p.Fit("linear", MethodCurveFit, FitOptions{Realizations: 400, RadiusSteps: 50})
	require.NoError(t, err)
	r := res.Realization
	require.NotNil(t, r)
	require.Len(t, r.Radii, 50)
	require.Len(t, r.Samples, 400)

	// ensemble mean tracks the fitted curve, band brackets it
	for i, rad := range r.Radii {
		want := res.Par[0]*rad + res.Par[1]
		assert.InDelta(t, want, r.Mean[i], 0.5)
		assert.LessOrEqual(t, r.Lower[i], r.Upper[i])
	}
	assert.Equal(t, 90.0, r.ConfLevel)
}

func TestAddRealization(t *testing.T) {
	p := linearProfile(t, 1, 0, WithAllowedRealizations("abel"))

	radii := []units.Quantity{
		units.NewQuantity(1, units.Kpc),
		units.NewQuantity(2, units.Kpc),
	}
	samples := [][]float64{{1, 2}, {1.1, 2.1}, {0.9, 1.9}}

	require.Error(t, p.AddRealization("unknown", radii, samples, units.KeV, 90),
		"kind outside the allowed set")

	require.Error(t, p.AddRealization("abel", radii, [][]float64{{1}}, units.KeV, 90),
		"sample length mismatch")

	require.Error(t, p.AddRealization("abel", radii, samples, units.Deg, 90),
		"value unit not convertible")

	require.NoError(t, p.AddRealization("abel", radii, samples, units.KeV, 90))
	r, ok := p.GetRealization("abel")
	require.True(t, ok)
	assert.InDelta(t, 1.0, r.Mean[0], 1e-9)
	assert.InDelta(t, 2.0, r.Mean[1], 1e-9)

	// radius units are converted into the profile's native unit
	mpcRadii := []units.Quantity{
		units.NewQuantity(0.001, units.Mpc),
		units.NewQuantity(0.002, units.Mpc),
	}
	p2 := linearProfile(t, 1, 0, WithAllowedRealizations("abel"))
	require.NoError(t, p2.AddRealization("abel", mpcRadii, samples, units.KeV, 90))
	r2, _ := p2.GetRealization("abel")
	assert.InDelta(t, 1.0, r2.Radii[0], 1e-9)
	assert.InDelta(t, 2.0, r2.Radii[1], 1e-9)
}

func TestAggregateValidation(t *testing.T) {
	a := linearProfile(t, 1, 0)
	b := linearProfile(t, 2, 0)
	agg, err := NewAggregate([]*Profile{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, agg.Len())

	_, err = NewAggregate(nil)
	assert.Error(t, err)

	other, err := New(KindBrightness, []float64{1, 2}, []float64{1, 2}, units.Kpc, units.KeV)
	require.NoError(t, err)
	_, err = NewAggregate([]*Profile{a, other})
	assert.Error(t, err, "kind mismatch")

	diffUnit, err := New(KindGeneric, []float64{1, 2}, []float64{1, 2}, units.Mpc, units.KeV)
	require.NoError(t, err)
	_, err = NewAggregate([]*Profile{a, diffUnit})
	assert.Error(t, err, "unit mismatch")

	withBg := linearProfile(t, 1, 0, WithBackground(0.5))
	_, err = NewAggregate([]*Profile{a, withBg})
	assert.Error(t, err, "background presence mismatch")

	banded := linearProfile(t, 1, 0, WithEnergyBand(0.5, 2.0))
	_, err = NewAggregate([]*Profile{a, banded})
	assert.Error(t, err, "energy band mismatch")
}

func TestBackgroundSubtractionInFit(t *testing.T) {
	// values carry a constant background of 10; the fit sees them subtracted
	radii := make([]float64, 20)
	values := make([]float64, 20)
	errs := make([]float64, 20)
	for i := range radii {
		radii[i] = float64(i + 1)
		values[i] = 2*radii[i] + 3 + 10
		errs[i] = 0.1
	}
	p, err := New(KindGeneric, radii, values, units.Kpc, units.KeV,
		WithValuesErr(errs), WithBackground(10), WithSeed(7))
	require.NoError(t, err)

	res, err := p.Fit("linear", MethodCurveFit, FitOptions{Realizations: 20})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Par[0], 0.01)
	assert.InDelta(t, 3.0, res.Par[1], 0.05)
}

func TestMaxFitRadiusIncludesUncertainty(t *testing.T) {
	p := linearProfile(t, 1, 0, WithRadiiErr(func() []float64 {
		e := make([]float64, 30)
		for i := range e {
			e[i] = 0.5
		}
		return e
	}()))
	assert.InDelta(t, 30.5, p.maxFitRadius(), 1e-12)
}

func TestModelRegistry(t *testing.T) {
	assert.Panics(t, func() {
		RegisterModel(KindBase, "x", func() Model { return LinearModel{} })
	})

	_, err := ModelFor(KindBase, "beta")
	var te *TypeError
	require.ErrorAs(t, err, &te)

	m, err := ModelFor(KindBrightness, "beta")
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumParams())

	_, err = ModelFor(KindBrightness, "nope")
	require.Error(t, err)
	assert.False(t, errors.As(err, &te), "unknown name on a modelled kind is not a type error")

	assert.Equal(t, []string{"beta", "double_beta"}, ModelNames(KindBrightness))
}
