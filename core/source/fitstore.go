// core/source/fitstore.go
package source

import "sort"

// ParValue is one fitted parameter instance with asymmetric errors.
type ParValue struct {
	Value float64
	ErrLo float64
	ErrHi float64
}

// Luminosity is a band luminosity from a spectral fit.
type Luminosity struct {
	LoKeV float64
	HiKeV float64
	Value float64
	ErrLo float64
	ErrHi float64
}

// SpecRecord is the per-spectrum slice of a fit: provenance, exposure,
// count rate and band luminosities of one input spectrum.
type SpecRecord struct {
	Path      string
	Inst      string
	Exposure  float64
	CountRate float64
	Lums      []Luminosity
}

// FitRecord is the stored outcome of one spectral-model fit over one
// extraction configuration. Pars keeps every unlinked instance of a named
// parameter, in table order; Lums are the aggregate luminosities, with the
// contributing per-spectrum rows kept alongside.
type FitRecord struct {
	Model string
	Stat  float64
	DOF   float64
	Inst  string // instrument the record was read back from

	Pars    map[string][]ParValue
	Lums    []Luminosity
	Spectra []SpecRecord
}

// FitStore holds spectral-fit records keyed by (storage key, model name).
// Disassociating an observation wipes it whole, because stored fits may rest
// on spectra that no longer belong to the source.
type FitStore struct {
	records map[string]map[string]*FitRecord
}

func NewFitStore() *FitStore {
	return &FitStore{records: map[string]map[string]*FitRecord{}}
}

// Set stores or replaces a record.
func (s *FitStore) Set(storageKey string, rec *FitRecord) {
	m, ok := s.records[storageKey]
	if !ok {
		m = map[string]*FitRecord{}
		s.records[storageKey] = m
	}
	m[rec.Model] = rec
}

// Get returns the record for one (storage key, model) pair.
func (s *FitStore) Get(storageKey, model string) (*FitRecord, bool) {
	rec, ok := s.records[storageKey][model]
	return rec, ok
}

// Models lists the fitted model names under one storage key, sorted.
func (s *FitStore) Models(storageKey string) []string {
	var out []string
	for m := range s.records[storageKey] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Keys lists the storage keys holding at least one record, sorted.
func (s *FitStore) Keys() []string {
	var out []string
	for k := range s.records {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len counts stored records.
func (s *FitStore) Len() int {
	n := 0
	for _, m := range s.records {
		n += len(m)
	}
	return n
}

// Clear drops every stored record.
func (s *FitStore) Clear() {
	s.records = map[string]map[string]*FitRecord{}
}

// instrumentRank orders fit-reload preference: PN first, then MOS2, then
// MOS1, then anything else.
func instrumentRank(inst string) int {
	switch inst {
	case "pn":
		return 0
	case "mos2":
		return 1
	case "mos1":
		return 2
	}
	return 3
}

// PreferInstrument picks the instrument whose results should win when the
// same fit is available from several instruments.
func PreferInstrument(insts []string) string {
	if len(insts) == 0 {
		return ""
	}
	best := insts[0]
	for _, i := range insts[1:] {
		if instrumentRank(i) < instrumentRank(best) ||
			(instrumentRank(i) == instrumentRank(best) && i < best) {
			best = i
		}
	}
	return best
}
