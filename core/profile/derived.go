// core/profile/derived.go
package profile

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"xga-core/units"
)

// Mass constant for the hydrostatic equation, in solar masses per keV kpc
// with a mean molecular weight of 0.61.
const hydroMassNorm = 3.65e10

// derivedKey builds the memoisation key for a derived quantity at a radius.
func derivedKey(quantity, model string, radius float64) string {
	return quantity + "|" + model + "|" + strconv.FormatFloat(radius, 'f', -1, 64)
}

// GasMass integrates the fitted density model over spheres out to radius,
// once per cached parameter realization, and summarises the sample. The
// result carries the units of value_unit * radius_unit^3. Only gas-density
// profiles support it.
func (p *Profile) GasMass(model string, radius units.Quantity, confLevel float64) (*DerivedResult, error) {
	if p.kind != KindGasDensity {
		return nil, &TypeError{Kind: p.kind, Op: "gas mass"}
	}
	r, err := units.Convert(radius, p.radUnit)
	if err != nil {
		return nil, err
	}
	if r.Value <= 0 {
		return nil, fmt.Errorf("gas mass needs a positive outer radius, got %g", r.Value)
	}

	key := derivedKey("gas_mass", model, r.Value)
	if d, ok := p.derived[key]; ok {
		return d, nil
	}

	fit, err := p.GetModelFit(model)
	if err != nil {
		return nil, err
	}
	m, err := ModelFor(p.kind, model)
	if err != nil {
		return nil, err
	}

	samples := make([]float64, len(fit.ParSamples))
	for i, pars := range fit.ParSamples {
		samples[i] = sphereIntegral(m, pars, r.Value)
	}
	d, err := summariseDerived(samples, confLevel)
	if err != nil {
		return nil, &FitFailedError{Model: model, Method: fit.Method, Reason: err.Error()}
	}
	p.derived[key] = d
	return d, nil
}

// HydrostaticMass evaluates the hydrostatic mass equation at radius from a
// fitted 3D temperature model on this profile and a fitted density model on
// dens. Radii must be in kpc and temperatures in keV; the result is in solar
// masses. Realizations are paired index-wise, truncated to the shorter
// ensemble.
func (p *Profile) HydrostaticMass(tempModel string, dens *Profile, densModel string, radius units.Quantity, confLevel float64) (*DerivedResult, error) {
	if p.kind != KindTemp3D {
		return nil, &TypeError{Kind: p.kind, Op: "hydrostatic mass"}
	}
	if dens.kind != KindGasDensity {
		return nil, &TypeError{Kind: dens.kind, Op: "hydrostatic mass"}
	}
	if p.radUnit != units.Kpc || dens.radUnit != units.Kpc {
		return nil, &units.ConversionError{From: p.radUnit, To: units.Kpc,
			Reason: "hydrostatic mass is evaluated on kpc radius grids"}
	}
	if p.valUnit != units.KeV {
		return nil, &units.ConversionError{From: p.valUnit, To: units.KeV,
			Reason: "hydrostatic mass needs temperatures in keV"}
	}
	r, err := units.Convert(radius, units.Kpc)
	if err != nil {
		return nil, err
	}
	if r.Value <= 0 {
		return nil, fmt.Errorf("hydrostatic mass needs a positive radius, got %g", r.Value)
	}

	key := derivedKey("hydrostatic_mass", tempModel+"+"+densModel, r.Value)
	if d, ok := p.derived[key]; ok {
		return d, nil
	}

	tFit, err := p.GetModelFit(tempModel)
	if err != nil {
		return nil, err
	}
	dFit, err := dens.GetModelFit(densModel)
	if err != nil {
		return nil, err
	}
	tm, err := ModelFor(p.kind, tempModel)
	if err != nil {
		return nil, err
	}
	dm, err := ModelFor(dens.kind, densModel)
	if err != nil {
		return nil, err
	}

	n := len(tFit.ParSamples)
	if len(dFit.ParSamples) < n {
		n = len(dFit.ParSamples)
	}
	if n == 0 {
		return nil, &FitFailedError{Model: tempModel, Method: tFit.Method, Reason: "no cached parameter realizations"}
	}

	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		tPars := tFit.ParSamples[i]
		dPars := dFit.ParSamples[i]
		t := tm.Eval(r.Value, tPars)
		dlnT := logSlope(tm, tPars, r.Value)
		dlnD := logSlope(dm, dPars, r.Value)
		samples[i] = -hydroMassNorm * t * r.Value * (dlnD + dlnT)
	}
	d, err := summariseDerived(samples, confLevel)
	if err != nil {
		return nil, &FitFailedError{Model: tempModel, Method: tFit.Method, Reason: err.Error()}
	}
	p.derived[key] = d
	return d, nil
}

// BaryonFraction is the per-realization ratio of gas mass to hydrostatic
// mass at radius, evaluated on the gas-density profile with a companion
// temperature profile.
func (p *Profile) BaryonFraction(densModel string, temp *Profile, tempModel string, radius units.Quantity, confLevel float64) (*DerivedResult, error) {
	if p.kind != KindGasDensity {
		return nil, &TypeError{Kind: p.kind, Op: "baryon fraction"}
	}
	r, err := units.Convert(radius, p.radUnit)
	if err != nil {
		return nil, err
	}

	key := derivedKey("baryon_fraction", densModel+"+"+tempModel, r.Value)
	if d, ok := p.derived[key]; ok {
		return d, nil
	}

	gas, err := p.GasMass(densModel, radius, confLevel)
	if err != nil {
		return nil, err
	}
	hydro, err := temp.HydrostaticMass(tempModel, p, densModel, radius, confLevel)
	if err != nil {
		return nil, err
	}

	n := len(gas.Samples)
	if len(hydro.Samples) < n {
		n = len(hydro.Samples)
	}
	samples := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if hydro.Samples[i] != 0 {
			samples = append(samples, gas.Samples[i]/hydro.Samples[i])
		}
	}
	if len(samples) == 0 {
		return nil, &FitFailedError{Model: densModel, Method: MethodCurveFit, Reason: "every hydrostatic mass realization is zero"}
	}
	d, err := summariseDerived(samples, confLevel)
	if err != nil {
		return nil, &FitFailedError{Model: densModel, Method: MethodCurveFit, Reason: err.Error()}
	}
	p.derived[key] = d
	return d, nil
}

// sphereIntegral is Simpson's rule over 4*pi*r^2 * f(r) on [0, R].
func sphereIntegral(m Model, pars []float64, outer float64) float64 {
	const steps = 512 // even
	h := outer / steps
	integrand := func(r float64) float64 {
		return 4 * math.Pi * r * r * m.Eval(r, pars)
	}
	sum := integrand(0) + integrand(outer)
	for i := 1; i < steps; i++ {
		w := 2.0
		if i%2 == 1 {
			w = 4.0
		}
		sum += w * integrand(h*float64(i))
	}
	return sum * h / 3
}

// logSlope is the numerical logarithmic derivative dln(f)/dln(r) at r.
func logSlope(m Model, pars []float64, r float64) float64 {
	h := r * 1e-4
	f0 := m.Eval(r-h, pars)
	f1 := m.Eval(r+h, pars)
	if f0 <= 0 || f1 <= 0 {
		return math.NaN()
	}
	return (math.Log(f1) - math.Log(f0)) / (math.Log(r+h) - math.Log(r-h))
}

// summariseDerived folds a derived-quantity sample into its mean and
// asymmetric percentile errors.
func summariseDerived(samples []float64, confLevel float64) (*DerivedResult, error) {
	if confLevel <= 0 {
		confLevel = 90
	}
	if !finiteAll(samples) {
		return nil, fmt.Errorf("non-finite derived realization")
	}
	mean := stat.Mean(samples, nil)
	lo, _, hi := quantiles(samples, confLevel)
	return &DerivedResult{
		Value: mean, ErrLo: mean - lo, ErrHi: hi - mean,
		Samples: append([]float64(nil), samples...),
	}, nil
}
