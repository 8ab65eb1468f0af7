// internal/xspec/script.go
package xspec

import (
	"fmt"
	"strings"
)

// Par is one model parameter in a fit script.
type Par struct {
	Name   string
	Start  float64
	Frozen bool
	// Linked ties this instance to the same-named parameter of the first
	// spectrum instead of fitting it independently.
	Linked bool
}

// Script is a filled-in fit-script template handed to the fitting engine.
// Rendering is deterministic so identical requests produce identical
// scripts.
type Script struct {
	Model    string
	Pars     []Par
	Spectra  []string
	LoCutKeV float64
	HiCutKeV float64
	Redshift float64
	H0       float64
	Om0      float64
	LumBands [][2]float64
	OutPath  string
}

// Render writes the script text the engine consumes.
func (s Script) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "model %s\n", s.Model)
	for i, p := range s.Pars {
		flags := ""
		if p.Frozen {
			flags += " frozen"
		}
		if p.Linked {
			flags += " linked"
		}
		fmt.Fprintf(&sb, "par %d %s %g%s\n", i+1, p.Name, p.Start, flags)
	}
	for i, sp := range s.Spectra {
		fmt.Fprintf(&sb, "data %d:%d %s\n", i+1, i+1, sp)
	}
	fmt.Fprintf(&sb, "ignore **-%g %g-**\n", s.LoCutKeV, s.HiCutKeV)
	fmt.Fprintf(&sb, "redshift %g\n", s.Redshift)
	fmt.Fprintf(&sb, "cosmo %g 0 %g\n", s.H0, 1-s.Om0)
	for _, b := range s.LumBands {
		fmt.Fprintf(&sb, "lumin %g %g %g\n", b[0], b[1], s.Redshift)
	}
	fmt.Fprintf(&sb, "writeresults %s\n", s.OutPath)
	return sb.String()
}

// InvokeCommand is the shell command that runs a rendered script file.
func InvokeCommand(bin, scriptPath string) string {
	return fmt.Sprintf("%s - %s", bin, scriptPath)
}
