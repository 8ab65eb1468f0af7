// core/products/parse.go
package products

import (
	"strings"
)

// SASError is one confirmed diagnostic from the generation toolchain:
// an error line whose name appears in the known-error table.
type SASError struct {
	Originator string // tool that emitted the line, e.g. "evselect"
	Name       string // error name from the parenthesised marker
	Message    string
}

// SASWarning is the warning-marker equivalent of SASError.
type SASWarning struct {
	Originator string
	Name       string
	Message    string
}

// knownSASErrors is the table of error names the toolchain documents as
// genuine failures. A diagnostic line whose name is absent from this table is
// kept as an unclassified error rather than dropped.
var knownSASErrors = map[string]struct{}{
	"InvalidExpression":     {},
	"NoFilteredEvents":      {},
	"NoEvents":              {},
	"InvalidEntry":          {},
	"NotFound":              {},
	"FileNotFound":          {},
	"DatasetNotFound":       {},
	"NoSuchBlock":           {},
	"BadAttributeValue":     {},
	"UnknownColumn":         {},
	"OutOfMemory":           {},
	"NoExposures":           {},
	"badRegionSpec":         {},
	"InvalidParameter":      {},
	"NoCalibrationData":     {},
	"BadCCFComponent":       {},
	"MissingAttribute":      {},
	"SpectrumBinningFailed": {},
}

// parseDiagnostic recognises the toolchain's marker format:
//
//	** <originator>: <severity> (<name>), <message>
//
// Returns ok=false for anything else.
func parseDiagnostic(line string) (originator, severity, name, msg string, ok bool) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "**") {
		return "", "", "", "", false
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "**"))
	colon := strings.Index(s, ":")
	if colon < 0 {
		return "", "", "", "", false
	}
	originator = strings.TrimSpace(s[:colon])
	rest := strings.TrimSpace(s[colon+1:])

	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open < 0 || closeIdx < open {
		return "", "", "", "", false
	}
	severity = strings.ToLower(strings.TrimSpace(rest[:open]))
	name = strings.TrimSpace(rest[open+1 : closeIdx])
	msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest[closeIdx+1:]), ","))
	if severity != "error" && severity != "warning" {
		return "", "", "", "", false
	}
	return originator, severity, name, msg, true
}

// ParseStderr classifies toolchain stderr line by line into confirmed errors,
// confirmed warnings, and unclassified error lines. Lines that look like a
// segmentation fault get a hint appended so the eventual human reader does
// not have to recognise the pattern themselves.
func ParseStderr(stderr string) (errs []SASError, warns []SASWarning, other []string) {
	for _, raw := range strings.Split(stderr, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		orig, sev, name, msg, ok := parseDiagnostic(line)
		if ok {
			if sev == "warning" {
				warns = append(warns, SASWarning{Originator: orig, Name: name, Message: msg})
				continue
			}
			if _, known := knownSASErrors[name]; known {
				errs = append(errs, SASError{Originator: orig, Name: name, Message: msg})
				continue
			}
			// marker format but unknown name: keep verbatim
		}
		low := strings.ToLower(line)
		if strings.Contains(low, "seg") && strings.Contains(low, "fault") {
			line += " - a segmentation fault occurred, the product will be unusable"
		}
		other = append(other, line)
	}
	return errs, warns, other
}
