// core/region/region.go

// Package region implements the sky-region geometry and mask algebra used to
// define source and background apertures and to excise interloping sources
// from them. Shapes live in celestial coordinates (degrees); rasterisation
// against a pixel grid goes through a product's WCS.
package region

import (
	"fmt"
	"math"
)

// Shape is a sky-projected aperture.
type Shape interface {
	// Center returns the shape centre in degrees.
	Center() (ra, dec float64)
	// Contains tests a sky position, in degrees.
	Contains(ra, dec float64) bool
	// Scaled returns a copy with all radii multiplied by f.
	Scaled(f float64) Shape
}

// offsets returns the tangent-plane offset of (ra, dec) from (ra0, dec0) in
// degrees, with the RA axis compressed by cos(dec).
func offsets(ra, dec, ra0, dec0 float64) (dx, dy float64) {
	dra := ra - ra0
	// wrap to [-180, 180)
	for dra >= 180 {
		dra -= 360
	}
	for dra < -180 {
		dra += 360
	}
	return dra * math.Cos(dec0*math.Pi/180), dec - dec0
}

// Circle is a circular aperture. Radius in degrees.
type Circle struct {
	RA, Dec float64
	Radius  float64
}

func (c Circle) Center() (float64, float64) { return c.RA, c.Dec }

func (c Circle) Contains(ra, dec float64) bool {
	dx, dy := offsets(ra, dec, c.RA, c.Dec)
	return math.Hypot(dx, dy) <= c.Radius
}

func (c Circle) Scaled(f float64) Shape {
	c.Radius *= f
	return c
}

// Ellipse is an elliptical aperture. Semi-axes in degrees, position angle in
// degrees counter-clockwise from the RA axis.
type Ellipse struct {
	RA, Dec   float64
	SemiMajor float64
	SemiMinor float64
	AngleDeg  float64
}

func (e Ellipse) Center() (float64, float64) { return e.RA, e.Dec }

func (e Ellipse) Contains(ra, dec float64) bool {
	dx, dy := offsets(ra, dec, e.RA, e.Dec)
	th := e.AngleDeg * math.Pi / 180
	u := dx*math.Cos(th) + dy*math.Sin(th)
	v := -dx*math.Sin(th) + dy*math.Cos(th)
	if e.SemiMajor <= 0 || e.SemiMinor <= 0 {
		return false
	}
	return (u*u)/(e.SemiMajor*e.SemiMajor)+(v*v)/(e.SemiMinor*e.SemiMinor) <= 1
}

func (e Ellipse) Scaled(f float64) Shape {
	e.SemiMajor *= f
	e.SemiMinor *= f
	return e
}

// Annulus is the region between two same-shaped, concentric apertures.
type Annulus struct {
	Inner Shape
	Outer Shape
}

// NewAnnulus validates the radius ordering: every inner radius must be
// strictly smaller than its outer counterpart.
func NewAnnulus(inner, outer Shape) (Annulus, error) {
	ira, idec := inner.Center()
	ora, odec := outer.Center()
	if ira != ora || idec != odec {
		return Annulus{}, fmt.Errorf("annulus shapes are not concentric")
	}
	switch in := inner.(type) {
	case Circle:
		out, ok := outer.(Circle)
		if !ok {
			return Annulus{}, fmt.Errorf("annulus shapes differ in kind")
		}
		if in.Radius >= out.Radius {
			return Annulus{}, fmt.Errorf("annulus inner radius %g >= outer radius %g", in.Radius, out.Radius)
		}
	case Ellipse:
		out, ok := outer.(Ellipse)
		if !ok {
			return Annulus{}, fmt.Errorf("annulus shapes differ in kind")
		}
		if in.SemiMajor >= out.SemiMajor || in.SemiMinor >= out.SemiMinor {
			return Annulus{}, fmt.Errorf("annulus inner radii not strictly inside outer radii")
		}
	default:
		return Annulus{}, fmt.Errorf("unsupported annulus shape %T", inner)
	}
	return Annulus{Inner: inner, Outer: outer}, nil
}

func (a Annulus) Center() (float64, float64) { return a.Outer.Center() }

func (a Annulus) Contains(ra, dec float64) bool {
	return a.Outer.Contains(ra, dec) && !a.Inner.Contains(ra, dec)
}

func (a Annulus) Scaled(f float64) Shape {
	return Annulus{Inner: a.Inner.Scaled(f), Outer: a.Outer.Scaled(f)}
}

// Default background-annulus scale factors applied to the source region.
const (
	DefaultBackInnerFactor = 1.05
	DefaultBackOuterFactor = 1.5
)

// Background derives the background aperture from a source region: an
// annulus bounded by two scaled copies. Factors must satisfy
// 1 < inner < outer. Building from scaled copies sidesteps direct annulus
// construction, which is numerically unreliable for near-equal radii.
func Background(src Shape, innerFactor, outerFactor float64) (Annulus, error) {
	if innerFactor <= 1 || outerFactor <= innerFactor {
		return Annulus{}, fmt.Errorf("background factors must satisfy 1 < inner (%g) < outer (%g)",
			innerFactor, outerFactor)
	}
	if _, isAnn := src.(Annulus); isAnn {
		return Annulus{}, fmt.Errorf("background region of an annulus is not defined")
	}
	return NewAnnulus(src.Scaled(innerFactor), src.Scaled(outerFactor))
}
