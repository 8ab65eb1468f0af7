// core/products/product.go

// Package products holds the value objects wrapping generated and discovered
// toolchain output files: images, exposure maps, derived ratemaps, event
// lists, spectra and their annular aggregates. A product records where it
// came from (ObsID, instrument, generating command) and whether it is usable,
// judged once at construction from the toolchain's own diagnostics.
package products

import (
	"errors"
	"os"
)

// Kind is the closed set of product types the registry stores.
type Kind string

const (
	KindImage    Kind = "image"
	KindExpMap   Kind = "expmap"
	KindRateMap  Kind = "ratemap"
	KindEvents   Kind = "events"
	KindSpectrum Kind = "spectrum"
	KindPSF      Kind = "psf"
)

// Product is what the registry stores: enough identity to key on, plus the
// usability verdict.
type Product interface {
	Path() string
	ObsID() string
	Inst() string
	Kind() Kind
	StorageKey() string
	Usable() bool
	Reasons() []Reason
}

// Base carries the state shared by every concrete product. Construct with
// NewBase; the usability verdict is computed there and never recomputed
// silently afterwards.
type Base struct {
	path    string
	obsID   string
	inst    string
	kind    Kind
	command string

	stdout string
	sasErr []SASError
	sasWrn []SASWarning
	other  []string

	usable  bool
	reasons []Reason

	srcName    string
	srcNameSet bool
}

// NewBase classifies the generation diagnostics and computes usability:
// the path must exist, and there must be no confirmed errors and no
// unclassified error lines.
func NewBase(path, obsID, inst, stdout, stderr, command string, kind Kind) *Base {
	b := &Base{
		path:    path,
		obsID:   obsID,
		inst:    inst,
		kind:    kind,
		command: command,
		stdout:  stdout,
		usable:  true,
	}
	b.sasErr, b.sasWrn, b.other = ParseStderr(stderr)

	if !pathExists(path) {
		b.usable = false
		b.reasons = append(b.reasons, ReasonPathMissing)
	}
	if len(b.sasErr) > 0 {
		b.usable = false
		b.reasons = append(b.reasons, ReasonSASError)
	}
	if len(b.other) > 0 {
		b.usable = false
		b.reasons = append(b.reasons, ReasonOtherError)
	}
	return b
}

func pathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (b *Base) Path() string          { return b.path }
func (b *Base) ObsID() string         { return b.obsID }
func (b *Base) Inst() string          { return b.inst }
func (b *Base) Kind() Kind            { return b.kind }
func (b *Base) Command() string       { return b.command }
func (b *Base) Stdout() string        { return b.stdout }
func (b *Base) Usable() bool          { return b.usable }
func (b *Base) Reasons() []Reason     { return append([]Reason(nil), b.reasons...) }
func (b *Base) SASErrors() []SASError { return append([]SASError(nil), b.sasErr...) }
func (b *Base) SASWarnings() []SASWarning {
	return append([]SASWarning(nil), b.sasWrn...)
}
func (b *Base) UnclassifiedErrors() []string { return append([]string(nil), b.other...) }

// SetPath is the one controlled mutation of a product's location. Only the
// path-missing verdict is revisited; diagnostic verdicts stand.
func (b *Base) SetPath(path string) error {
	if !pathExists(path) {
		return &MissingError{Path: path}
	}
	b.path = path
	if len(b.sasErr) == 0 && len(b.other) == 0 {
		b.usable = true
		b.reasons = dropReason(b.reasons, ReasonPathMissing)
	}
	return nil
}

func dropReason(rs []Reason, r Reason) []Reason {
	out := rs[:0]
	for _, x := range rs {
		if x != r {
			out = append(out, x)
		}
	}
	return out
}

// SetSourceName binds the product to its owning source. Set exactly once, at
// registry insertion.
func (b *Base) SetSourceName(name string) error {
	if b.srcNameSet {
		return errors.New("product source name already set")
	}
	b.srcName = name
	b.srcNameSet = true
	return nil
}

func (b *Base) SourceName() string { return b.srcName }
