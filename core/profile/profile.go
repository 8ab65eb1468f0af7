// core/profile/profile.go

// Package profile implements 1D radial profiles and their statistical
// fitting engine: nonlinear least squares and ensemble MCMC, Monte Carlo
// realization generation for uncertainty propagation, and memoised derived
// quantities (gas mass, hydrostatic mass, baryon fraction).
package profile

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"xga-core/units"
)

// FitMethod names the two supported fitting backends.
type FitMethod string

const (
	MethodCurveFit FitMethod = "curve_fit"
	MethodMCMC     FitMethod = "mcmc"
)

// Combined is the sentinel observation/instrument identifier for profiles
// derived from co-added products.
const Combined = "combined"

// FitResult is the record of one successful model fit.
type FitResult struct {
	Model  string
	Method FitMethod

	Par    []float64
	ParErr []float64 // symmetric (curve_fit)
	ParLo  []float64 // asymmetric lower distances (mcmc)
	ParHi  []float64 // asymmetric upper distances (mcmc)

	// ParSamples is the cached parameter realization ensemble, the basis of
	// every downstream derived quantity.
	ParSamples [][]float64

	Realization *Realization
}

// BadFit records an attempted fit that failed its success criteria.
type BadFit struct {
	Model  string
	Method FitMethod
	Reason string
}

// Realization is a Monte Carlo curve ensemble with its summary statistics.
type Realization struct {
	Radii     []float64
	Samples   [][]float64 // [realization][radius]
	Mean      []float64
	Lower     []float64 // lower percentile bound at ConfLevel
	Upper     []float64
	ConfLevel float64 // e.g. 90 for a 90% symmetric band
}

// DerivedResult is a memoised derived quantity with asymmetric errors.
type DerivedResult struct {
	Value   float64
	ErrLo   float64
	ErrHi   float64
	Samples []float64
}

// Profile is a 1D function y(r) with optional per-point uncertainties.
// Radii and values are immutable after construction.
type Profile struct {
	kind Kind

	radii     []float64
	values    []float64
	radiiErr  []float64 // nil when absent
	valuesErr []float64 // nil when absent

	radUnit units.Unit
	valUnit units.Unit

	centreRA, centreDec float64
	srcName             string
	obsID, inst         string

	loKeV, hiKeV float64 // 0,0 when not band limited

	background float64 // in value units; zero by default

	goodFits map[string]*FitResult
	badFits  map[string]*BadFit

	// non-model realizations, keyed by realization kind
	realizations map[string]*Realization
	allowedReal  map[string]struct{}

	derived map[string]*DerivedResult

	rng *rand.Rand
}

// Option tweaks profile construction.
type Option func(*Profile)

func WithRadiiErr(e []float64) Option {
	return func(p *Profile) { p.radiiErr = append([]float64(nil), e...) }
}

func WithValuesErr(e []float64) Option {
	return func(p *Profile) { p.valuesErr = append([]float64(nil), e...) }
}
func WithCentre(ra, dec float64) Option {
	return func(p *Profile) { p.centreRA, p.centreDec = ra, dec }
}
func WithOrigin(srcName, obsID, inst string) Option {
	return func(p *Profile) { p.srcName, p.obsID, p.inst = srcName, obsID, inst }
}
func WithBackground(b float64) Option { return func(p *Profile) { p.background = b } }
func WithEnergyBand(lo, hi float64) Option {
	return func(p *Profile) { p.loKeV, p.hiKeV = lo, hi }
}
func WithAllowedRealizations(kinds ...string) Option {
	return func(p *Profile) {
		for _, k := range kinds {
			p.allowedReal[k] = struct{}{}
		}
	}
}

// WithSeed makes a profile's Monte Carlo machinery deterministic.
func WithSeed(seed uint64) Option {
	return func(p *Profile) { p.rng = rand.New(rand.NewSource(seed)) }
}

// New builds a profile. Radii and values must be one-dimensional and of
// equal length; uncertainty arrays, when given, must match; the combined
// sentinel must be used pairwise on obsID/inst.
func New(kind Kind, radii, values []float64, radUnit, valUnit units.Unit, opts ...Option) (*Profile, error) {
	if len(radii) == 0 || len(radii) != len(values) {
		return nil, fmt.Errorf("profile needs equal-length radius and value arrays, got %d and %d",
			len(radii), len(values))
	}
	p := &Profile{
		kind:         kind,
		radii:        append([]float64(nil), radii...),
		values:       append([]float64(nil), values...),
		radUnit:      radUnit,
		valUnit:      valUnit,
		goodFits:     map[string]*FitResult{},
		badFits:      map[string]*BadFit{},
		realizations: map[string]*Realization{},
		allowedReal:  map[string]struct{}{},
		derived:      map[string]*DerivedResult{},
		rng:          rand.New(rand.NewSource(rand.Uint64())),
	}
	for _, o := range opts {
		o(p)
	}
	if p.radiiErr != nil && len(p.radiiErr) != len(p.radii) {
		return nil, fmt.Errorf("radius uncertainty length %d does not match %d radii", len(p.radiiErr), len(p.radii))
	}
	if p.valuesErr != nil && len(p.valuesErr) != len(p.values) {
		return nil, fmt.Errorf("value uncertainty length %d does not match %d values", len(p.valuesErr), len(p.values))
	}
	if (p.obsID == Combined) != (p.inst == Combined) {
		return nil, fmt.Errorf("combined sentinel must be set on both obsID and instrument, got %q/%q", p.obsID, p.inst)
	}
	for i := 1; i < len(p.radii); i++ {
		if p.radii[i] <= p.radii[i-1] {
			return nil, fmt.Errorf("radii must be strictly increasing (index %d)", i)
		}
	}
	return p, nil
}

func (p *Profile) Kind() Kind                 { return p.kind }
func (p *Profile) Len() int                   { return len(p.radii) }
func (p *Profile) Radii() []float64           { return append([]float64(nil), p.radii...) }
func (p *Profile) Values() []float64          { return append([]float64(nil), p.values...) }
func (p *Profile) RadiiErr() []float64        { return append([]float64(nil), p.radiiErr...) }
func (p *Profile) ValuesErr() []float64       { return append([]float64(nil), p.valuesErr...) }
func (p *Profile) RadUnit() units.Unit        { return p.radUnit }
func (p *Profile) ValUnit() units.Unit        { return p.valUnit }
func (p *Profile) Background() float64        { return p.background }
func (p *Profile) Centre() (float64, float64) { return p.centreRA, p.centreDec }
func (p *Profile) SourceName() string         { return p.srcName }
func (p *Profile) ObsID() string              { return p.obsID }
func (p *Profile) Inst() string               { return p.inst }
func (p *Profile) EnergyBand() (float64, float64) {
	return p.loKeV, p.hiKeV
}

// HasBackground reports whether a non-zero background was subtracted.
func (p *Profile) HasBackground() bool { return p.background != 0 }

// GoodModelFits lists models with a successful fit on record.
func (p *Profile) GoodModelFits() []string { return mapKeys(p.goodFits) }

// BadModelFits lists models whose fit attempt failed.
func (p *Profile) BadModelFits() []string { return mapKeys(p.badFits) }

func mapKeys[V any](m map[string]*V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// GetModelFit returns the good fit record for a model. A bad fit is a
// FitFailedError; never attempted is a ModelNotAssociatedError.
func (p *Profile) GetModelFit(model string) (*FitResult, error) {
	if r, ok := p.goodFits[model]; ok {
		return r, nil
	}
	if b, ok := p.badFits[model]; ok {
		return nil, &FitFailedError{Model: model, Method: b.Method, Reason: b.Reason}
	}
	return nil, &ModelNotAssociatedError{Model: model, Kind: p.kind}
}

// Parameter returns one fitted parameter value and its (symmetric or mean
// asymmetric) uncertainty.
func (p *Profile) Parameter(model string, index int) (value, err float64, e error) {
	r, e := p.GetModelFit(model)
	if e != nil {
		return 0, 0, e
	}
	if index < 0 || index >= len(r.Par) {
		return 0, 0, &ParameterNotAssociatedError{Model: model, Index: index}
	}
	switch {
	case r.ParErr != nil:
		return r.Par[index], r.ParErr[index], nil
	case r.ParLo != nil && r.ParHi != nil:
		return r.Par[index], (r.ParLo[index] + r.ParHi[index]) / 2, nil
	}
	return r.Par[index], 0, nil
}

// AddRealization stores an externally produced curve ensemble (for example
// from an inverse-Abel pipeline). The kind must be in the profile's declared
// allowed set, and the radii/values must be unit-convertible to the
// profile's native units.
func (p *Profile) AddRealization(kind string, radii []units.Quantity, samples [][]float64, valUnit units.Unit, confLevel float64) error {
	if _, ok := p.allowedReal[kind]; !ok {
		return fmt.Errorf("realization kind %q is not allowed for this profile", kind)
	}
	if len(samples) == 0 {
		return fmt.Errorf("realization %q has no samples", kind)
	}
	r := make([]float64, len(radii))
	for i, q := range radii {
		conv, err := units.Convert(q, p.radUnit)
		if err != nil {
			return err
		}
		r[i] = conv.Value
	}
	scale := 1.0
	if valUnit != p.valUnit {
		conv, err := units.Convert(units.NewQuantity(1, valUnit), p.valUnit)
		if err != nil {
			return err
		}
		scale = conv.Value
	}
	conv := make([][]float64, len(samples))
	for i, s := range samples {
		if len(s) != len(r) {
			return fmt.Errorf("realization sample %d has %d values for %d radii", i, len(s), len(r))
		}
		row := make([]float64, len(s))
		for j, v := range s {
			row[j] = v * scale
		}
		conv[i] = row
	}
	p.realizations[kind] = summarise(r, conv, confLevel)
	return nil
}

// GetRealization returns a stored non-model realization.
func (p *Profile) GetRealization(kind string) (*Realization, bool) {
	r, ok := p.realizations[kind]
	return r, ok
}

// maxFitRadius is the upper bound of the realization radius grid: the
// outermost radius, pushed out by its uncertainty when one is recorded.
func (p *Profile) maxFitRadius() float64 {
	max := p.radii[len(p.radii)-1]
	if p.radiiErr != nil {
		max += p.radiiErr[len(p.radiiErr)-1]
	}
	return max
}

// Aggregate is a same-kind, same-unit collection of profiles across many
// sources, used for stacking and joint plotting.
type Aggregate struct {
	kind     Kind
	radUnit  units.Unit
	valUnit  units.Unit
	profiles []*Profile
}

// NewAggregate validates that every member shares kind, units, background
// presence and energy band.
func NewAggregate(members []*Profile) (*Aggregate, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("aggregate profile needs at least one member")
	}
	first := members[0]
	lo0, hi0 := first.EnergyBand()
	for _, m := range members[1:] {
		if m.kind != first.kind {
			return nil, fmt.Errorf("aggregate members disagree on kind: %s vs %s", m.kind, first.kind)
		}
		if m.radUnit != first.radUnit || m.valUnit != first.valUnit {
			return nil, fmt.Errorf("aggregate members disagree on units")
		}
		if m.HasBackground() != first.HasBackground() {
			return nil, fmt.Errorf("aggregate members disagree on background presence")
		}
		lo, hi := m.EnergyBand()
		if lo != lo0 || hi != hi0 {
			return nil, fmt.Errorf("aggregate members disagree on energy band")
		}
	}
	return &Aggregate{
		kind: first.kind, radUnit: first.radUnit, valUnit: first.valUnit,
		profiles: append([]*Profile(nil), members...),
	}, nil
}

func (a *Aggregate) Kind() Kind          { return a.kind }
func (a *Aggregate) Len() int            { return len(a.profiles) }
func (a *Aggregate) Members() []*Profile { return append([]*Profile(nil), a.profiles...) }
func (a *Aggregate) RadUnit() units.Unit { return a.radUnit }
func (a *Aggregate) ValUnit() units.Unit { return a.valUnit }

// fitValues returns the background-subtracted values the fit operates on.
func (p *Profile) fitValues() []float64 {
	out := make([]float64, len(p.values))
	for i, v := range p.values {
		out[i] = v - p.background
	}
	return out
}

// finiteAll reports whether every entry of xs is finite.
func finiteAll(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
