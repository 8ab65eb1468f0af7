// core/region/sasstring.go
package region

import (
	"fmt"
	"math"
	"strings"
)

// CoordConverter maps a celestial position (degrees) into the coordinate
// system a region string is expressed in (typically XMM sky XY), together
// with the scale of that system in units per degree.
type CoordConverter interface {
	ToSystem(ra, dec float64) (x, y float64, err error)
	UnitsPerDegree() float64
}

// shapeString renders one shape as a SAS inclusion test in the target
// system, e.g. "(X,Y) IN circle(25312.5,24871.0,320.0)".
func shapeString(conv CoordConverter, s Shape) (string, error) {
	scale := conv.UnitsPerDegree()
	switch v := s.(type) {
	case Circle:
		x, y, err := conv.ToSystem(v.RA, v.Dec)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(X,Y) IN circle(%.4f,%.4f,%.4f)", x, y, v.Radius*scale), nil
	case Ellipse:
		x, y, err := conv.ToSystem(v.RA, v.Dec)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(X,Y) IN ellipse(%.4f,%.4f,%.4f,%.4f,%.4f)",
			x, y, v.SemiMajor*scale, v.SemiMinor*scale, normAngle(v.AngleDeg)), nil
	case Annulus:
		in, ok1 := v.Inner.(Circle)
		out, ok2 := v.Outer.(Circle)
		if ok1 && ok2 {
			x, y, err := conv.ToSystem(out.RA, out.Dec)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(X,Y) IN annulus(%.4f,%.4f,%.4f,%.4f)",
				x, y, in.Radius*scale, out.Radius*scale), nil
		}
		// elliptical annulus: outer inclusion with inner subtraction
		outer, err := shapeString(conv, v.Outer)
		if err != nil {
			return "", err
		}
		inner, err := shapeString(conv, v.Inner)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s) &&! (%s)", outer, inner), nil
	}
	return "", fmt.Errorf("unsupported shape %T in region string", s)
}

func normAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// SASString builds the boolean region expression handed verbatim to the
// generation toolchain: the aperture inclusion test with every interloper
// subtracted via AND NOT.
func SASString(conv CoordConverter, aperture Shape, interlopers []Shape) (string, error) {
	base, err := shapeString(conv, aperture)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s)", base)
	for _, s := range interlopers {
		sub, err := shapeString(conv, s)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " &&! (%s)", sub)
	}
	return sb.String(), nil
}
