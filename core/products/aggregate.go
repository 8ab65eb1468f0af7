// core/products/aggregate.go
package products

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"xga-core/units"
)

// AnnularSpectra is the aggregate product: every per-(ObsID, instrument,
// annulus) spectrum of one radial extraction, sharing a set identifier and a
// boundary-radius sequence. It behaves like an ordered collection over its
// components.
type AnnularSpectra struct {
	setID  uint32
	radii  []units.Quantity // annulus boundaries, len = annuli+1
	comps  map[int]map[string]map[string]*Spectrum
	annuli []int // sorted distinct annulus idents

	srcName    string
	srcNameSet bool
}

// NewSetIdent mints a set identifier for a fresh annular extraction.
func NewSetIdent() uint32 { return uuid.New().ID() }

// NewAnnularSpectra validates that all components share one set identifier
// and assembles the aggregate. Boundary radii must be one longer than the
// number of distinct annulus idents.
func NewAnnularSpectra(components []*Spectrum, radii []units.Quantity) (*AnnularSpectra, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("annular spectra need at least one component")
	}
	set := components[0].SetIdent
	distinct := map[int]struct{}{}
	for _, c := range components {
		if c.SetIdent != set {
			return nil, fmt.Errorf("component %s has set ident %d, want %d", c, c.SetIdent, set)
		}
		distinct[c.AnnulusIdent] = struct{}{}
	}
	if len(radii) != len(distinct)+1 {
		return nil, fmt.Errorf("%d boundary radii for %d annuli", len(radii), len(distinct))
	}

	a := &AnnularSpectra{
		setID: set,
		radii: append([]units.Quantity(nil), radii...),
		comps: map[int]map[string]map[string]*Spectrum{},
	}
	for ann := range distinct {
		a.annuli = append(a.annuli, ann)
	}
	sort.Ints(a.annuli)
	insts := map[string]struct{}{}
	for _, c := range components {
		byObs, ok := a.comps[c.AnnulusIdent]
		if !ok {
			byObs = map[string]map[string]*Spectrum{}
			a.comps[c.AnnulusIdent] = byObs
		}
		byInst, ok := byObs[c.ObsID()]
		if !ok {
			byInst = map[string]*Spectrum{}
			byObs[c.ObsID()] = byInst
		}
		byInst[c.Inst()] = c
		insts[c.Inst()] = struct{}{}
	}

	// every component of an instrument cross-references the outermost
	// annulus's background, whatever its own extraction wrote there
	for inst := range insts {
		bg, ok := a.OutermostBackground(inst)
		if !ok {
			continue
		}
		for _, c := range components {
			if c.Inst() == inst {
				c.BackgroundPath = bg
			}
		}
	}
	return a, nil
}

func (a *AnnularSpectra) SetIdent() uint32        { return a.setID }
func (a *AnnularSpectra) AnnulusCount() int       { return len(a.annuli) }
func (a *AnnularSpectra) Radii() []units.Quantity { return append([]units.Quantity(nil), a.radii...) }
func (a *AnnularSpectra) AnnulusIdents() []int    { return append([]int(nil), a.annuli...) }

// Get returns one component spectrum, or nil if absent.
func (a *AnnularSpectra) Get(annulus int, obsID, inst string) *Spectrum {
	if byObs, ok := a.comps[annulus]; ok {
		if byInst, ok := byObs[obsID]; ok {
			return byInst[inst]
		}
	}
	return nil
}

// ForEach visits every component in (annulus, ObsID, instrument) order.
func (a *AnnularSpectra) ForEach(visit func(annulus int, obsID, inst string, s *Spectrum)) {
	for _, ann := range a.annuli {
		byObs := a.comps[ann]
		obsIDs := make([]string, 0, len(byObs))
		for o := range byObs {
			obsIDs = append(obsIDs, o)
		}
		sort.Strings(obsIDs)
		for _, o := range obsIDs {
			byInst := byObs[o]
			insts := make([]string, 0, len(byInst))
			for i := range byInst {
				insts = append(insts, i)
			}
			sort.Strings(insts)
			for _, i := range insts {
				visit(ann, o, i, byInst[i])
			}
		}
	}
}

// OutermostBackground returns the background spectrum path every instrument's
// components must cross-reference: the one belonging to the outermost
// annulus for that instrument (first ObsID in sorted order carrying it).
func (a *AnnularSpectra) OutermostBackground(inst string) (string, bool) {
	if len(a.annuli) == 0 {
		return "", false
	}
	outer := a.annuli[len(a.annuli)-1]
	byObs := a.comps[outer]
	obsIDs := make([]string, 0, len(byObs))
	for o := range byObs {
		obsIDs = append(obsIDs, o)
	}
	sort.Strings(obsIDs)
	for _, o := range obsIDs {
		if s, ok := byObs[o][inst]; ok && s.BackgroundPath != "" {
			return s.BackgroundPath, true
		}
	}
	return "", false
}

// Usable when every component is usable.
func (a *AnnularSpectra) Usable() bool {
	ok := true
	a.ForEach(func(_ int, _, _ string, s *Spectrum) {
		if !s.Usable() {
			ok = false
		}
	})
	return ok
}

// Errors fold-reduces the component error lists into one slice of
// human-readable strings.
func (a *AnnularSpectra) Errors() []string {
	var out []string
	a.ForEach(func(ann int, o, i string, s *Spectrum) {
		for _, e := range s.SASErrors() {
			out = append(out, fmt.Sprintf("annulus %d %s/%s: %s (%s), %s", ann, o, i, e.Originator, e.Name, e.Message))
		}
		for _, e := range s.UnclassifiedErrors() {
			out = append(out, fmt.Sprintf("annulus %d %s/%s: %s", ann, o, i, e))
		}
	})
	return out
}

// SetSourceName binds the aggregate and all components; set exactly once.
func (a *AnnularSpectra) SetSourceName(name string) error {
	if a.srcNameSet {
		return fmt.Errorf("annular spectra source name already set")
	}
	a.srcName = name
	a.srcNameSet = true
	var firstErr error
	a.ForEach(func(_ int, _, _ string, s *Spectrum) {
		if err := s.SetSourceName(name); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	return firstErr
}

func (a *AnnularSpectra) SourceName() string { return a.srcName }
