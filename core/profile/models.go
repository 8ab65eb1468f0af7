// core/profile/models.go
package profile

import (
	"fmt"
	"math"
	"sort"
)

// Kind is the physical type of a 1D radial profile. The base kind has no
// valid models and cannot be fitted.
type Kind string

const (
	KindBase           Kind = "base"
	KindBrightness     Kind = "brightness"
	KindGasDensity     Kind = "gas_density"
	KindTemp2D         Kind = "2d_temperature"
	KindTemp3D         Kind = "3d_temperature"
	KindGasMass        Kind = "gas_mass"
	KindHydroMass      Kind = "hydrostatic_mass"
	KindBaryonFraction Kind = "baryon_fraction"
	KindGeneric        Kind = "generic"
)

// Prior is a uniform bound on one model parameter.
type Prior struct {
	Lo, Hi float64
}

// Model is a parametric radial form y(r; pars).
type Model interface {
	Name() string
	NumParams() int
	Eval(r float64, pars []float64) float64
	DefaultStart() []float64
	DefaultPriors() []Prior
}

// registry maps profile kind -> model name -> constructor.
var registry = map[Kind]map[string]func() Model{}

// RegisterModel associates a model with a profile kind. Registering for
// KindBase is rejected: the untyped profile deliberately has no models.
func RegisterModel(k Kind, name string, ctor func() Model) {
	if k == KindBase {
		panic("models cannot be registered for the base profile kind")
	}
	m, ok := registry[k]
	if !ok {
		m = map[string]func() Model{}
		registry[k] = m
	}
	m[name] = ctor
}

// ModelFor resolves a model name for a profile kind.
func ModelFor(k Kind, name string) (Model, error) {
	if len(registry[k]) == 0 {
		return nil, &TypeError{Kind: k, Op: "fit"}
	}
	ctor, ok := registry[k][name]
	if !ok {
		return nil, fmt.Errorf("model %q is not registered for %s profiles (have %v)", name, k, ModelNames(k))
	}
	return ctor(), nil
}

// ModelNames lists the models registered for a kind, sorted.
func ModelNames(k Kind) []string {
	var names []string
	for n := range registry[k] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Built-in models

// BetaModel is the single beta surface-brightness profile:
// S(r) = S0 * (1 + (r/rc)^2)^(-3*beta + 0.5).
type BetaModel struct{}

func (BetaModel) Name() string   { return "beta" }
func (BetaModel) NumParams() int { return 3 }
func (BetaModel) Eval(r float64, p []float64) float64 {
	beta, rc, s0 := p[0], p[1], p[2]
	return s0 * math.Pow(1+(r*r)/(rc*rc), -3*beta+0.5)
}
func (BetaModel) DefaultStart() []float64 { return []float64{1, 100, 1} }
func (BetaModel) DefaultPriors() []Prior {
	return []Prior{{0, 3}, {1, 2000}, {0, 100}}
}

// DoubleBetaModel sums two beta components with a shared normalisation ratio.
type DoubleBetaModel struct{}

func (DoubleBetaModel) Name() string   { return "double_beta" }
func (DoubleBetaModel) NumParams() int { return 6 }
func (DoubleBetaModel) Eval(r float64, p []float64) float64 {
	b1, rc1, s1, b2, rc2, s2 := p[0], p[1], p[2], p[3], p[4], p[5]
	return s1*math.Pow(1+(r*r)/(rc1*rc1), -3*b1+0.5) + s2*math.Pow(1+(r*r)/(rc2*rc2), -3*b2+0.5)
}
func (DoubleBetaModel) DefaultStart() []float64 {
	return []float64{1, 100, 1, 0.5, 400, 0.5}
}
func (DoubleBetaModel) DefaultPriors() []Prior {
	return []Prior{{0, 3}, {1, 2000}, {0, 100}, {0, 3}, {1, 2000}, {0, 100}}
}

// KingModel is the King density profile used for gas density.
type KingModel struct{}

func (KingModel) Name() string   { return "king" }
func (KingModel) NumParams() int { return 3 }
func (KingModel) Eval(r float64, p []float64) float64 {
	beta, rc, n0 := p[0], p[1], p[2]
	return n0 * math.Pow(1+(r*r)/(rc*rc), -3*beta/2)
}
func (KingModel) DefaultStart() []float64 { return []float64{1, 100, 1} }
func (KingModel) DefaultPriors() []Prior {
	return []Prior{{0, 3}, {1, 2000}, {0, 100}}
}

// SimpleVikhlininTemp is the simplified Vikhlinin temperature profile.
type SimpleVikhlininTemp struct{}

func (SimpleVikhlininTemp) Name() string   { return "simple_vikhlinin" }
func (SimpleVikhlininTemp) NumParams() int { return 5 }
func (SimpleVikhlininTemp) Eval(r float64, p []float64) float64 {
	rcool, acool, tmin, t0, rtran := p[0], p[1], p[2], p[3], p[4]
	x := math.Pow(r/rcool, acool)
	cool := (x + tmin/t0) / (x + 1)
	outer := math.Pow(1+(r*r)/(rtran*rtran), -0.5)
	return t0 * cool * outer
}
func (SimpleVikhlininTemp) DefaultStart() []float64 {
	return []float64{100, 1, 2, 6, 500}
}
func (SimpleVikhlininTemp) DefaultPriors() []Prior {
	return []Prior{{1, 1000}, {0, 5}, {0, 20}, {0, 30}, {10, 3000}}
}

// LinearModel y = m*r + c. Registered for generic profiles; used heavily by
// the fit machinery tests.
type LinearModel struct{}

func (LinearModel) Name() string                        { return "linear" }
func (LinearModel) NumParams() int                      { return 2 }
func (LinearModel) Eval(r float64, p []float64) float64 { return p[0]*r + p[1] }
func (LinearModel) DefaultStart() []float64             { return []float64{1, 1} }
func (LinearModel) DefaultPriors() []Prior {
	return []Prior{{-1e4, 1e4}, {-1e6, 1e6}}
}

// PowerLawModel y = norm * r^slope.
type PowerLawModel struct{}

func (PowerLawModel) Name() string   { return "power_law" }
func (PowerLawModel) NumParams() int { return 2 }
func (PowerLawModel) Eval(r float64, p []float64) float64 {
	if r <= 0 {
		return 0
	}
	return p[1] * math.Pow(r, p[0])
}
func (PowerLawModel) DefaultStart() []float64 { return []float64{1, 1} }
func (PowerLawModel) DefaultPriors() []Prior {
	return []Prior{{-10, 10}, {0, 1e6}}
}

func init() {
	RegisterModel(KindBrightness, "beta", func() Model { return BetaModel{} })
	RegisterModel(KindBrightness, "double_beta", func() Model { return DoubleBetaModel{} })
	RegisterModel(KindGasDensity, "king", func() Model { return KingModel{} })
	RegisterModel(KindGasDensity, "double_beta", func() Model { return DoubleBetaModel{} })
	RegisterModel(KindTemp2D, "simple_vikhlinin", func() Model { return SimpleVikhlininTemp{} })
	RegisterModel(KindTemp3D, "simple_vikhlinin", func() Model { return SimpleVikhlininTemp{} })
	RegisterModel(KindGeneric, "linear", func() Model { return LinearModel{} })
	RegisterModel(KindGeneric, "power_law", func() Model { return PowerLawModel{} })
}
