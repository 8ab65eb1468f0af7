// core/units/cosmo.go
package units

import (
	"fmt"
	"math"
)

// speed of light, km/s
const cLight = 299792.458

// Cosmology is a flat Lambda-CDM background used for angle<->physical
// conversions. Zero value is not usable; construct with NewCosmology.
type Cosmology struct {
	H0  float64 // Hubble constant, km/s/Mpc
	Om0 float64 // matter density today
}

// Planck-like defaults used across the library when a source does not
// override them.
var DefaultCosmology = Cosmology{H0: 70, Om0: 0.3}

func NewCosmology(h0, om0 float64) (Cosmology, error) {
	if h0 <= 0 || om0 < 0 || om0 > 1 {
		return Cosmology{}, fmt.Errorf("invalid cosmology H0=%g Om0=%g", h0, om0)
	}
	return Cosmology{H0: h0, Om0: om0}, nil
}

// efunc is E(z) for a flat universe.
func (c Cosmology) efunc(z float64) float64 {
	return math.Sqrt(c.Om0*math.Pow(1+z, 3) + (1 - c.Om0))
}

// HubbleDistance returns c/H0 in Mpc.
func (c Cosmology) HubbleDistance() float64 { return cLight / c.H0 }

// ComovingDistance integrates c/H0 * int dz'/E(z') with Simpson's rule.
// Result in Mpc.
func (c Cosmology) ComovingDistance(z float64) float64 {
	if z <= 0 {
		return 0
	}
	const steps = 2048
	h := z / steps
	sum := 1/c.efunc(0) + 1/c.efunc(z)
	for i := 1; i < steps; i++ {
		w := 2.0
		if i%2 == 1 {
			w = 4.0
		}
		sum += w / c.efunc(float64(i)*h)
	}
	return c.HubbleDistance() * sum * h / 3
}

// AngularDiameterDistance in Mpc.
func (c Cosmology) AngularDiameterDistance(z float64) float64 {
	return c.ComovingDistance(z) / (1 + z)
}

// LuminosityDistance in Mpc.
func (c Cosmology) LuminosityDistance(z float64) float64 {
	return c.ComovingDistance(z) * (1 + z)
}

// KpcPerArcsec returns the projected physical scale at redshift z.
func (c Cosmology) KpcPerArcsec(z float64) float64 {
	da := c.AngularDiameterDistance(z) * 1000 // kpc
	return da * math.Pi / (180 * 3600)
}

// AngleToLength converts an on-sky angle to a projected physical length at
// redshift z. Fails if q is not an angle.
func (c Cosmology) AngleToLength(q Quantity, z float64, to Unit) (Quantity, error) {
	if z <= 0 {
		return Quantity{}, &ConversionError{From: q.Unit, To: to, Reason: "redshift information required"}
	}
	asec, err := Convert(q, ArcSec)
	if err != nil {
		return Quantity{}, err
	}
	kpc := Quantity{Value: asec.Value * c.KpcPerArcsec(z), Unit: Kpc}
	return Convert(kpc, to)
}

// LengthToAngle is the inverse of AngleToLength.
func (c Cosmology) LengthToAngle(q Quantity, z float64, to Unit) (Quantity, error) {
	if z <= 0 {
		return Quantity{}, &ConversionError{From: q.Unit, To: to, Reason: "redshift information required"}
	}
	kpc, err := Convert(q, Kpc)
	if err != nil {
		return Quantity{}, err
	}
	asec := Quantity{Value: kpc.Value / c.KpcPerArcsec(z), Unit: ArcSec}
	return Convert(asec, to)
}
