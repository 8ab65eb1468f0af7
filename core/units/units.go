// core/units/units.go
package units

import "fmt"

// Unit names the closed set of physical units the library converts between.
// Pixel conversions need a WCS and live with the products that own one;
// angle<->length conversions need a cosmology and a redshift (see cosmo.go).
type Unit string

const (
	Deg    Unit = "deg"
	ArcMin Unit = "arcmin"
	ArcSec Unit = "arcsec"

	Kpc Unit = "kpc"
	Mpc Unit = "Mpc"

	KeV Unit = "keV"
	EV  Unit = "eV"

	Pix Unit = "pix"

	// XMM-specific projected coordinate systems. Conversions to and from
	// these are only possible through a product that carries the relevant
	// WCS, never through this package alone.
	XMMSky Unit = "xmm_sky"
	XMMDet Unit = "xmm_det"

	Dimensionless Unit = ""
)

// Quantity is a value tagged with a unit. Quantities are immutable values;
// arithmetic returns new ones.
type Quantity struct {
	Value float64
	Unit  Unit
}

func NewQuantity(v float64, u Unit) Quantity { return Quantity{Value: v, Unit: u} }

func (q Quantity) String() string {
	if q.Unit == Dimensionless {
		return fmt.Sprintf("%g", q.Value)
	}
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

// ConversionError reports a dimensionally impossible unit conversion.
type ConversionError struct {
	From, To Unit
	Reason   string
}

func (e *ConversionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot convert %q to %q: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot convert %q to %q", e.From, e.To)
}

// dimension buckets units so that in-dimension scaling is table driven.
type dimension int

const (
	dimUnknown dimension = iota
	dimAngle
	dimLength
	dimEnergy
)

func dimOf(u Unit) dimension {
	switch u {
	case Deg, ArcMin, ArcSec:
		return dimAngle
	case Kpc, Mpc:
		return dimLength
	case KeV, EV:
		return dimEnergy
	}
	return dimUnknown
}

// toBase converts to the dimension's base unit: deg, kpc, keV.
var toBase = map[Unit]float64{
	Deg:    1,
	ArcMin: 1.0 / 60.0,
	ArcSec: 1.0 / 3600.0,
	Kpc:    1,
	Mpc:    1000,
	KeV:    1,
	EV:     1e-3,
}

// Convert rescales q into unit to. Both units must belong to the same
// dimension; anything else is a ConversionError.
func Convert(q Quantity, to Unit) (Quantity, error) {
	if q.Unit == to {
		return q, nil
	}
	df, dt := dimOf(q.Unit), dimOf(to)
	if df == dimUnknown || dt == dimUnknown {
		return Quantity{}, &ConversionError{From: q.Unit, To: to, Reason: "unit outside the convertible set"}
	}
	if df != dt {
		return Quantity{}, &ConversionError{From: q.Unit, To: to, Reason: "dimensions differ"}
	}
	return Quantity{Value: q.Value * toBase[q.Unit] / toBase[to], Unit: to}, nil
}

// MustConvert is Convert for callers that have already validated the units.
// It panics on error and is only used internally and in tests.
func MustConvert(q Quantity, to Unit) Quantity {
	out, err := Convert(q, to)
	if err != nil {
		panic(err)
	}
	return out
}

// Convertible reports whether from can be rescaled into to without external
// information (WCS, cosmology).
func Convertible(from, to Unit) bool {
	if from == to {
		return true
	}
	df, dt := dimOf(from), dimOf(to)
	return df != dimUnknown && df == dt
}
