// core/source/source.go
package source

import (
	"fmt"
	"log/slog"
	"sort"

	"xga-core/products"
	"xga-core/region"
	"xga-core/units"
)

// Source is the per-object orchestration state: identity and geometry, the
// associated observations, one product registry and one fit store.
type Source struct {
	name     string
	ra, dec  float64 // degrees, user supplied
	redshift float64 // 0 when unknown
	cosmo    units.Cosmology

	// peak coordinates; fall back to (ra, dec) until a peak is found
	peakRA, peakDec float64
	peakFound       bool

	nhAvg      float64 // 10^22 cm^-2
	nhWeighted float64
	nhSet      bool

	radii map[string]units.Quantity // e.g. "r500" -> quantity

	regions map[string][]region.Detection // per obs, as loaded
	matched map[string]region.Detection   // per obs, the source's own region

	registry *Registry
	fits     *FitStore
}

// New constructs a source at (ra, dec) degrees. A zero redshift means
// distance-dependent operations are unavailable.
func New(name string, ra, dec, redshift float64, cosmo units.Cosmology) (*Source, error) {
	if name == "" {
		return nil, fmt.Errorf("source needs a name")
	}
	if ra < 0 || ra >= 360 || dec < -90 || dec > 90 {
		return nil, fmt.Errorf("coordinates (%g, %g) are outside the sky", ra, dec)
	}
	if redshift < 0 {
		return nil, fmt.Errorf("negative redshift %g", redshift)
	}
	return &Source{
		name: name, ra: ra, dec: dec, redshift: redshift, cosmo: cosmo,
		peakRA: ra, peakDec: dec,
		radii:    map[string]units.Quantity{},
		regions:  map[string][]region.Detection{},
		matched:  map[string]region.Detection{},
		registry: NewRegistry(),
		fits:     NewFitStore(),
	}, nil
}

func (s *Source) Name() string               { return s.name }
func (s *Source) Coords() (float64, float64) { return s.ra, s.dec }
func (s *Source) Redshift() float64          { return s.redshift }
func (s *Source) Cosmology() units.Cosmology { return s.cosmo }
func (s *Source) Registry() *Registry        { return s.registry }
func (s *Source) Fits() *FitStore            { return s.fits }
func (s *Source) ObsIDs() []string           { return s.registry.ObsIDs() }

func (s *Source) Instruments(obs string) []string {
	return s.registry.Instruments(obs)
}

// Peak returns the measured emission peak, or the user coordinates while no
// peak has been found. HasPeak distinguishes the two.
func (s *Source) Peak() (ra, dec float64) { return s.peakRA, s.peakDec }

// HasPeak reports whether FindPeak has succeeded for this source.
func (s *Source) HasPeak() bool { return s.peakFound }

// AssociateObs registers an observation and its instruments.
func (s *Source) AssociateObs(obsID string, insts ...string) {
	s.registry.Associate(obsID, insts...)
}

// DisassociateObs removes an observation: its products, every combined
// product, and all stored fit results, since merges and fits may rest on the
// removed data.
func (s *Source) DisassociateObs(obsID string) {
	s.registry.Disassociate(obsID)
	s.fits.Clear()
	delete(s.regions, obsID)
	delete(s.matched, obsID)
}

// DisassociateInst removes a single observation/instrument combination. Fit
// state clears whole, exactly as for a full disassociation: stored fits may
// rest on spectra from the removed instrument.
func (s *Source) DisassociateInst(obsID, inst string) {
	s.registry.DisassociateInstrument(obsID, inst)
	s.fits.Clear()
	if len(s.registry.Instruments(obsID)) == 0 {
		delete(s.regions, obsID)
		delete(s.matched, obsID)
	}
}

// AddProduct names the product after this source (first insertion only) and
// stores it in the registry.
func (s *Source) AddProduct(p products.Product) error {
	type namer interface {
		SourceName() string
		SetSourceName(string) error
	}
	if n, ok := p.(namer); ok && n.SourceName() == "" {
		if err := n.SetSourceName(s.name); err != nil {
			return err
		}
	}
	return s.registry.Insert(p)
}

// SetNH stores the column-density lookup outcome, in 10^22 cm^-2.
func (s *Source) SetNH(avg, weighted float64) {
	s.nhAvg, s.nhWeighted, s.nhSet = avg, weighted, true
}

// NH returns the weighted-average hydrogen column density.
func (s *Source) NH() (float64, bool) { return s.nhWeighted, s.nhSet }

// NHAverage returns the simple-average column density.
func (s *Source) NHAverage() (float64, bool) { return s.nhAvg, s.nhSet }

// SetRadius stores a named analysis radius ("r200", "r500", "r2500", or a
// custom name).
func (s *Source) SetRadius(name string, r units.Quantity) {
	s.radii[name] = r
}

// Radius returns a named analysis radius.
func (s *Source) Radius(name string) (units.Quantity, bool) {
	r, ok := s.radii[name]
	return r, ok
}

// RadiusNames lists the defined radii, sorted.
func (s *Source) RadiusNames() []string {
	out := make([]string, 0, len(s.radii))
	for n := range s.radii {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// LoadRegions attaches one observation's detection list and matches the
// source's own region within it. Ambiguity (more than one same-type
// candidate) is surfaced, never auto-resolved.
func (s *Source) LoadRegions(obsID string, dets []region.Detection, want region.SourceType) error {
	match, _, found, err := region.Match(obsID, dets, s.ra, s.dec, want)
	if err != nil {
		return err
	}
	s.regions[obsID] = append([]region.Detection(nil), dets...)
	if found {
		s.matched[obsID] = match
	}
	return nil
}

// Regions returns the detection list loaded for one observation.
func (s *Source) Regions(obsID string) []region.Detection {
	return append([]region.Detection(nil), s.regions[obsID]...)
}

// MatchedRegion returns the source's own region in one observation.
func (s *Source) MatchedRegion(obsID string) (region.Detection, bool) {
	d, ok := s.matched[obsID]
	return d, ok
}

// Interlopers returns every loaded detection, across all observations, whose
// footprint overlaps the given region on the grid.
func (s *Source) Interlopers(g region.Grid, r region.Shape) []region.Shape {
	var all []region.Shape
	for obs, dets := range s.regions {
		own, hasOwn := s.matched[obs]
		for _, d := range dets {
			if hasOwn && d.Shape == own.Shape {
				continue
			}
			all = append(all, d.Shape)
		}
	}
	return region.Interlopers(g, r, all)
}

// FindPeak locates the emission peak on a ratemap under a mask: the
// brightest on-sensor masked pixel, converted to degrees. A missing or
// unusable ratemap, or an empty mask, degrades gracefully to the
// user-supplied coordinates with a warning.
func (s *Source) FindPeak(rm *products.RateMap, mask []bool) (ra, dec float64) {
	if rm == nil || !rm.Usable() {
		slog.Warn("no usable ratemap for peak finding, falling back to user coordinates",
			"source", s.name)
		return s.ra, s.dec
	}
	d, rate, err := rm.Data()
	if err != nil {
		slog.Warn("ratemap data unavailable for peak finding, falling back to user coordinates",
			"source", s.name, "err", err)
		return s.ra, s.dec
	}
	best := -1
	var bestRate float32
	for i, v := range rate {
		if mask != nil && (i >= len(mask) || !mask[i]) {
			continue
		}
		if best < 0 || v > bestRate {
			best, bestRate = i, v
		}
	}
	if best < 0 || bestRate <= 0 {
		slog.Warn("peak finding found no positive masked pixel, falling back to user coordinates",
			"source", s.name)
		return s.ra, s.dec
	}
	px := float64(best % d.Width)
	py := float64(best / d.Width)
	ra, dec = d.Radec.PixToWorld(px, py)
	s.peakRA, s.peakDec, s.peakFound = ra, dec, true
	return ra, dec
}

// AngleToRadius converts an angular extent at the source's redshift into a
// proper distance. Requires a redshift.
func (s *Source) AngleToRadius(angle units.Quantity, to units.Unit) (units.Quantity, error) {
	return s.cosmo.AngleToLength(angle, s.redshift, to)
}

// RadiusToAngle converts a proper distance at the source's redshift into an
// angular extent. Requires a redshift.
func (s *Source) RadiusToAngle(r units.Quantity, to units.Unit) (units.Quantity, error) {
	return s.cosmo.LengthToAngle(r, s.redshift, to)
}
