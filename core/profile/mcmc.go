// core/profile/mcmc.go
package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// mcmcFit is the ensemble-sampler path: Goodman-Weare stretch moves over a
// uniform-prior posterior, burn-in derived from the integrated
// autocorrelation time, realizations drawn straight from the flattened
// posterior rather than a Gaussian approximation.
func (p *Profile) mcmcFit(m Model, o FitOptions) (*FitResult, *BadFit) {
	priors := o.Priors
	if priors == nil {
		priors = m.DefaultPriors()
	}
	nDim := m.NumParams()
	chi2 := p.chiSquare(m)

	logPost := func(pars []float64) float64 {
		for i, pr := range priors {
			if pars[i] < pr.Lo || pars[i] > pr.Hi {
				return math.Inf(-1)
			}
		}
		return -0.5 * chi2(pars)
	}

	pos := p.initWalkers(m, priors, o)

	// run the chain: [step][walker][dim]
	chain := make([][][]float64, o.Steps)
	logp := make([]float64, o.Walkers)
	for w := range pos {
		logp[w] = logPost(pos[w])
	}
	const stretchA = 2.0
	for s := 0; s < o.Steps; s++ {
		for w := 0; w < o.Walkers; w++ {
			other := p.rng.Intn(o.Walkers - 1)
			if other >= w {
				other++
			}
			z := math.Pow((stretchA-1)*p.rng.Float64()+1, 2) / stretchA
			prop := make([]float64, nDim)
			for d := 0; d < nDim; d++ {
				prop[d] = pos[other][d] + z*(pos[w][d]-pos[other][d])
			}
			lp := logPost(prop)
			logRatio := float64(nDim-1)*math.Log(z) + lp - logp[w]
			if logRatio >= 0 || math.Log(p.rng.Float64()) < logRatio {
				pos[w] = prop
				logp[w] = lp
			}
		}
		snap := make([][]float64, o.Walkers)
		for w := range pos {
			snap[w] = append([]float64(nil), pos[w]...)
		}
		chain[s] = snap
	}

	burnIn := o.BurnIn
	if burnIn <= 0 {
		tau, err := maxAutocorrTime(chain, nDim, o.Walkers)
		if err != nil {
			return nil, &BadFit{Model: m.Name(), Method: MethodMCMC,
				Reason: fmt.Sprintf("autocorrelation estimate: %v", err)}
		}
		// round up to the next multiple of 100
		burnIn = int(math.Ceil(tau/100) * 100)
	}
	if burnIn >= o.Steps {
		return nil, &BadFit{Model: m.Name(), Method: MethodMCMC,
			Reason: fmt.Sprintf("burn-in %d consumes the whole chain of %d steps", burnIn, o.Steps)}
	}
	thin := o.Thin
	if thin <= 0 {
		thin = o.Steps / o.Realizations
		if thin < 1 {
			thin = 1
		}
	}

	// flatten post-burn-in, post-thinning samples
	var flat [][]float64
	for s := burnIn; s < o.Steps; s += thin {
		for w := 0; w < o.Walkers; w++ {
			flat = append(flat, chain[s][w])
		}
	}
	if len(flat) == 0 {
		return nil, &BadFit{Model: m.Name(), Method: MethodMCMC, Reason: "no posterior samples survive burn-in and thinning"}
	}

	pars := make([]float64, nDim)
	parLo := make([]float64, nDim)
	parHi := make([]float64, nDim)
	col := make([]float64, len(flat))
	for d := 0; d < nDim; d++ {
		for i := range flat {
			col[i] = flat[i][d]
		}
		pars[d] = stat.Mean(col, nil)
		lo, _, hi := quantiles(col, o.ConfLevel)
		parLo[d] = pars[d] - lo
		parHi[d] = hi - pars[d]
	}
	if !finiteAll(pars) || !finiteAll(parLo) || !finiteAll(parHi) {
		return nil, &BadFit{Model: m.Name(), Method: MethodMCMC, Reason: "non-finite posterior summary"}
	}

	// realizations come straight from the posterior sample
	parSamples := make([][]float64, o.Realizations)
	for i := range parSamples {
		parSamples[i] = flat[p.rng.Intn(len(flat))]
	}
	curves := p.modelRealization(m, parSamples, o)

	return &FitResult{
		Model: m.Name(), Method: MethodMCMC,
		Par: pars, ParLo: parLo, ParHi: parHi,
		ParSamples: parSamples, Realization: curves,
	}, nil
}

// initWalkers places the walkers: a tight Gaussian ball around a
// maximum-likelihood point when StartFromML is set, otherwise uniform draws
// within the prior bounds. Positions outside a prior are clamped to the
// nearest bound.
func (p *Profile) initWalkers(m Model, priors []Prior, o FitOptions) [][]float64 {
	nDim := m.NumParams()
	pos := make([][]float64, o.Walkers)

	var centre []float64
	if o.StartFromML {
		start := o.StartPars
		if start == nil {
			start = m.DefaultStart()
		}
		chi2 := p.chiSquare(m)
		negLL := func(pars []float64) float64 { return 0.5 * chi2(pars) }
		if sol, err := optimize.Minimize(optimize.Problem{Func: negLL},
			append([]float64(nil), start...), nil, &optimize.NelderMead{}); err == nil && finiteAll(sol.X) {
			centre = sol.X
		} else {
			centre = start
		}
	}

	for w := 0; w < o.Walkers; w++ {
		row := make([]float64, nDim)
		for d := 0; d < nDim; d++ {
			if centre != nil {
				scale := math.Abs(centre[d]) * 1e-4
				if scale == 0 {
					scale = 1e-4
				}
				row[d] = centre[d] + p.rng.NormFloat64()*scale
			} else {
				row[d] = priors[d].Lo + p.rng.Float64()*(priors[d].Hi-priors[d].Lo)
			}
			if row[d] < priors[d].Lo {
				row[d] = priors[d].Lo
			}
			if row[d] > priors[d].Hi {
				row[d] = priors[d].Hi
			}
		}
		pos[w] = row
	}
	return pos
}

// maxAutocorrTime estimates the integrated autocorrelation time of the
// walker-averaged chain for each dimension and returns the maximum. Chains
// too short for a stable estimate are an error, which callers convert into a
// failed fit.
func maxAutocorrTime(chain [][][]float64, nDim, nWalkers int) (float64, error) {
	steps := len(chain)
	if steps < 100 {
		return 0, fmt.Errorf("chain of %d steps is too short", steps)
	}
	var maxTau float64
	x := make([]float64, steps)
	for d := 0; d < nDim; d++ {
		for s := 0; s < steps; s++ {
			var sum float64
			for w := 0; w < nWalkers; w++ {
				sum += chain[s][w][d]
			}
			x[s] = sum / float64(nWalkers)
		}
		tau, err := integratedTime(x)
		if err != nil {
			return 0, err
		}
		if tau > maxTau {
			maxTau = tau
		}
	}
	return maxTau, nil
}

// integratedTime is the windowed autocorrelation-time estimator with the
// usual c=5 window criterion.
func integratedTime(x []float64) (float64, error) {
	n := len(x)
	mean := stat.Mean(x, nil)
	var denom float64
	for _, v := range x {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return 0, fmt.Errorf("chain has zero variance")
	}

	tau := 1.0
	const c = 5.0
	for lag := 1; lag < n; lag++ {
		var acf float64
		for i := 0; i+lag < n; i++ {
			acf += (x[i] - mean) * (x[i+lag] - mean)
		}
		acf /= denom
		tau += 2 * acf
		if float64(lag) >= c*tau {
			if tau <= 0 {
				return 0, fmt.Errorf("non-positive autocorrelation time")
			}
			if float64(n) < 20*tau {
				return 0, fmt.Errorf("chain of %d steps shorter than 20 autocorrelation times (%.1f)", n, tau)
			}
			return tau, nil
		}
	}
	return 0, fmt.Errorf("autocorrelation window never converged in %d steps", n)
}
