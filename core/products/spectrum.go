// core/products/spectrum.go
package products

import (
	"fmt"

	"xga-core/storekey"
)

// Spectrum is one extracted spectrum with its response and background
// companions. For annular spectra the annulus index and set identifier tie
// the component to its AnnularSpectra aggregate.
type Spectrum struct {
	*Base
	Key storekey.SpectrumKey

	RMFPath        string
	ARFPath        string
	BackgroundPath string

	AnnulusIdent int
	SetIdent     uint32 // 0 for a plain, non-annular spectrum
}

// NewSpectrum wraps a generated or discovered spectrum file.
func NewSpectrum(path, obsID, inst, stdout, stderr, command string, key storekey.SpectrumKey) *Spectrum {
	return &Spectrum{
		Base: NewBase(path, obsID, inst, stdout, stderr, command, KindSpectrum),
		Key:  key,
	}
}

// StorageKey is the deterministic spectrum storage key; identical extraction
// parameters always map to the same key.
func (s *Spectrum) StorageKey() string { return s.Key.Encode() }

func (s *Spectrum) String() string {
	return fmt.Sprintf("Spectrum(%s/%s %s)", s.ObsID(), s.Inst(), s.StorageKey())
}
