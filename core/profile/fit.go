// core/profile/fit.go
package profile

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// FitOptions tunes a model fit. Zero values select defaults.
type FitOptions struct {
	Priors    []Prior   // uniform bounds; only meaningful for MCMC
	StartPars []float64 // start point; model default when nil

	Realizations int     // parameter/curve realizations to cache (default 500)
	RadiusSteps  int     // radii in the realization grid (default 300)
	ConfLevel    float64 // percentile band width, percent (default 90)

	// MCMC controls.
	StartFromML bool // walker ball around a maximum-likelihood point
	Walkers     int  // default 20
	Steps       int  // per walker, default 2000
	BurnIn      int  // 0 = derive from autocorrelation time
	Thin        int  // 0 = steps/realizations
}

func (o *FitOptions) setDefaults() {
	if o.Realizations <= 0 {
		o.Realizations = 500
	}
	if o.RadiusSteps <= 0 {
		o.RadiusSteps = 300
	}
	if o.ConfLevel <= 0 {
		o.ConfLevel = 90
	}
	if o.Walkers <= 0 {
		o.Walkers = 20
	}
	if o.Steps <= 0 {
		o.Steps = 2000
	}
}

// Fit runs (or recalls) a model fit. For a (profile, model) pair that
// already holds a good or bad record the cached outcome is returned with a
// warning rather than re-running the fit.
func (p *Profile) Fit(model string, method FitMethod, o FitOptions) (*FitResult, error) {
	if method != MethodCurveFit && method != MethodMCMC {
		return nil, fmt.Errorf("unknown fit method %q", method)
	}
	o.setDefaults()

	if r, ok := p.goodFits[model]; ok {
		slog.Warn("model already fitted to this profile, returning cached result",
			"model", model, "profile", string(p.kind))
		return r, nil
	}
	if b, ok := p.badFits[model]; ok {
		slog.Warn("model already failed on this profile, returning cached failure",
			"model", model, "profile", string(p.kind))
		return nil, &FitFailedError{Model: model, Method: b.Method, Reason: b.Reason}
	}

	m, err := ModelFor(p.kind, model)
	if err != nil {
		return nil, err
	}
	if len(o.Priors) > 0 && method == MethodCurveFit {
		slog.Warn("priors supplied for a curve_fit run are ignored", "model", model)
	}
	if o.StartPars != nil && len(o.StartPars) != m.NumParams() {
		return nil, fmt.Errorf("model %q takes %d parameters, %d start values given",
			model, m.NumParams(), len(o.StartPars))
	}
	if o.Priors != nil && len(o.Priors) != m.NumParams() {
		return nil, fmt.Errorf("model %q takes %d parameters, %d priors given",
			model, m.NumParams(), len(o.Priors))
	}
	if p.valuesErr == nil {
		return nil, fmt.Errorf("profile has no value uncertainties, cannot fit")
	}

	var res *FitResult
	var bad *BadFit
	switch method {
	case MethodCurveFit:
		res, bad = p.curveFit(m, o)
	case MethodMCMC:
		res, bad = p.mcmcFit(m, o)
	}

	if bad != nil {
		p.badFits[model] = bad
		return nil, &FitFailedError{Model: model, Method: bad.Method, Reason: bad.Reason}
	}
	p.goodFits[model] = res
	return res, nil
}

// chiSquare builds the weighted objective over background-subtracted values.
func (p *Profile) chiSquare(m Model) func(pars []float64) float64 {
	vals := p.fitValues()
	return func(pars []float64) float64 {
		var sum float64
		for i, r := range p.radii {
			d := (vals[i] - m.Eval(r, pars)) / p.valuesErr[i]
			sum += d * d
		}
		if math.IsNaN(sum) {
			return math.Inf(1)
		}
		return sum
	}
}

// curveFit is the nonlinear least-squares path: minimise chi-square, then
// estimate the covariance from the numerical Hessian at the optimum.
func (p *Profile) curveFit(m Model, o FitOptions) (*FitResult, *BadFit) {
	start := o.StartPars
	if start == nil {
		start = m.DefaultStart()
	}
	chi2 := p.chiSquare(m)

	prob := optimize.Problem{Func: chi2}
	sol, err := optimize.Minimize(prob, append([]float64(nil), start...), nil, &optimize.NelderMead{})
	if err != nil {
		return nil, &BadFit{Model: m.Name(), Method: MethodCurveFit, Reason: fmt.Sprintf("solver: %v", err)}
	}
	pars := sol.X
	if !finiteAll(pars) {
		return nil, &BadFit{Model: m.Name(), Method: MethodCurveFit, Reason: "non-finite parameters at optimum"}
	}

	n := m.NumParams()
	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, chi2, pars, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			if v := hess.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &BadFit{Model: m.Name(), Method: MethodCurveFit, Reason: "non-finite covariance entry"}
			}
		}
	}

	var ch mat.Cholesky
	if ok := ch.Factorize(hess); !ok {
		return nil, &BadFit{Model: m.Name(), Method: MethodCurveFit, Reason: "covariance matrix not positive definite"}
	}
	var inv mat.SymDense
	if err := ch.InverseTo(&inv); err != nil {
		return nil, &BadFit{Model: m.Name(), Method: MethodCurveFit, Reason: fmt.Sprintf("covariance inversion: %v", err)}
	}

	parErr := make([]float64, n)
	for i := 0; i < n; i++ {
		// chi-square Hessian relates to the covariance as 2*H^-1
		v := 2 * inv.At(i, i)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &BadFit{Model: m.Name(), Method: MethodCurveFit, Reason: "non-finite parameter uncertainty"}
		}
		parErr[i] = math.Sqrt(v)
	}
	for i := range pars {
		if pars[i] != 0 && math.Abs(parErr[i]/pars[i]) > 10 {
			return nil, &BadFit{Model: m.Name(), Method: MethodCurveFit,
				Reason: fmt.Sprintf("parameter %d uncertainty more than ten times its value", i)}
		}
	}

	samples := p.drawGaussianParSamples(pars, parErr, o.Realizations)
	curves := p.modelRealization(m, samples, o)

	return &FitResult{
		Model: m.Name(), Method: MethodCurveFit,
		Par: pars, ParErr: parErr,
		ParSamples: samples, Realization: curves,
	}, nil
}

// drawGaussianParSamples draws parameter vectors from independent Gaussians
// centred on the fitted values.
func (p *Profile) drawGaussianParSamples(pars, parErr []float64, n int) [][]float64 {
	out := make([][]float64, n)
	dists := make([]distuv.Normal, len(pars))
	for i := range pars {
		dists[i] = distuv.Normal{Mu: pars[i], Sigma: parErr[i], Src: p.rng}
	}
	for s := 0; s < n; s++ {
		row := make([]float64, len(pars))
		for i := range pars {
			if dists[i].Sigma > 0 {
				row[i] = dists[i].Rand()
			} else {
				row[i] = dists[i].Mu
			}
		}
		out[s] = row
	}
	return out
}

// modelRealization evaluates every parameter sample on the realization
// radius grid and summarises the curve ensemble.
func (p *Profile) modelRealization(m Model, parSamples [][]float64, o FitOptions) *Realization {
	radii := make([]float64, o.RadiusSteps)
	max := p.maxFitRadius()
	for i := range radii {
		radii[i] = max * float64(i) / float64(o.RadiusSteps-1)
	}
	samples := make([][]float64, len(parSamples))
	for s, pars := range parSamples {
		row := make([]float64, len(radii))
		for i, r := range radii {
			row[i] = m.Eval(r, pars)
		}
		samples[s] = row
	}
	return summarise(radii, samples, o.ConfLevel)
}

// summarise computes the per-radius mean and the symmetric percentile band
// at confLevel over a curve ensemble.
func summarise(radii []float64, samples [][]float64, confLevel float64) *Realization {
	nR := len(radii)
	mean := make([]float64, nR)
	lower := make([]float64, nR)
	upper := make([]float64, nR)
	col := make([]float64, len(samples))

	loQ := (100 - confLevel) / 200
	hiQ := 1 - loQ
	for i := 0; i < nR; i++ {
		for s := range samples {
			col[s] = samples[s][i]
		}
		mean[i] = stat.Mean(col, nil)
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		lower[i] = stat.Quantile(loQ, stat.Empirical, sorted, nil)
		upper[i] = stat.Quantile(hiQ, stat.Empirical, sorted, nil)
	}
	return &Realization{
		Radii: radii, Samples: samples,
		Mean: mean, Lower: lower, Upper: upper, ConfLevel: confLevel,
	}
}

// quantiles returns (lo, mid, hi) percentiles of one sample set at confLevel.
func quantiles(xs []float64, confLevel float64) (lo, mid, hi float64) {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	loQ := (100 - confLevel) / 200
	return stat.Quantile(loQ, stat.Empirical, sorted, nil),
		stat.Quantile(0.5, stat.Empirical, sorted, nil),
		stat.Quantile(1-loQ, stat.Empirical, sorted, nil)
}
