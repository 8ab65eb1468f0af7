// internal/cli/options.go
package cli

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"strings"

	"xga/internal/version"
)

// ObsSpec is one observation association from the command line.
type ObsSpec struct {
	ObsID string
	Insts []string
}

// Options holds all CLI flags and arguments.
type Options struct {
	ConfigPath string

	// Source definition
	Name     string
	RA       float64 // degrees
	Dec      float64 // degrees
	Redshift float64

	Obs []ObsSpec

	// Actions
	Discover bool
	ReadFits bool
	LookupNH bool

	// Output
	JSON bool

	Version bool
}

// allInsts is the association applied when an --obs entry names no
// instruments.
var allInsts = []string{"pn", "mos1", "mos2"}

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: XMM product generation and source analysis

Version: %s

Usage of %s:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	fs.StringVar(&opt.ConfigPath, "config", "", "YAML configuration file (defaults apply when omitted) [*]")

	// Source definition
	fs.StringVar(&opt.Name, "name", "", "source name [*]")
	fs.Float64Var(&opt.RA, "ra", math.NaN(), "source right ascension, degrees [*]")
	fs.Float64Var(&opt.Dec, "dec", math.NaN(), "source declination, degrees [*]")
	fs.Float64Var(&opt.Redshift, "redshift", 0, "source redshift (0 = unknown) [0]")
	var obs stringSlice
	fs.Var(&obs, "obs", "observation to associate, OBSID[:inst,inst] (repeatable) [*]")

	// Actions
	fs.BoolVar(&opt.Discover, "discover", true, "scan the output directory for existing products [true]")
	fs.BoolVar(&opt.ReadFits, "read-fits", false, "also reload previous spectral-fit tables [false]")
	fs.BoolVar(&opt.LookupNH, "nh", false, "look up the hydrogen column density [false]")

	fs.BoolVar(&opt.JSON, "json", false, "emit the product summary as JSON Lines [false]")

	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}

	for _, o := range obs {
		spec, err := parseObsSpec(o)
		if err != nil {
			return opt, err
		}
		opt.Obs = append(opt.Obs, spec)
	}

	// Validation
	if opt.Name == "" {
		return opt, errors.New("--name is required")
	}
	if math.IsNaN(opt.RA) || math.IsNaN(opt.Dec) {
		return opt, errors.New("--ra and --dec are required")
	}
	if opt.RA < 0 || opt.RA >= 360 || opt.Dec < -90 || opt.Dec > 90 {
		return opt, fmt.Errorf("coordinates (%g, %g) are outside the sky", opt.RA, opt.Dec)
	}
	if opt.Redshift < 0 {
		return opt, errors.New("--redshift must be >= 0")
	}
	if len(opt.Obs) == 0 {
		return opt, errors.New("at least one --obs is required")
	}
	if opt.ReadFits && !opt.Discover {
		return opt, errors.New("--read-fits needs --discover")
	}
	return opt, nil
}

// parseObsSpec splits "OBSID:inst,inst"; a bare OBSID associates all three
// instruments.
func parseObsSpec(s string) (ObsSpec, error) {
	id, insts, hasInsts := strings.Cut(s, ":")
	if id == "" {
		return ObsSpec{}, fmt.Errorf("empty observation ID in --obs %q", s)
	}
	if !hasInsts {
		return ObsSpec{ObsID: id, Insts: append([]string(nil), allInsts...)}, nil
	}
	var out []string
	for _, inst := range strings.Split(insts, ",") {
		switch inst {
		case "pn", "mos1", "mos2":
			out = append(out, inst)
		default:
			return ObsSpec{}, fmt.Errorf("unknown instrument %q in --obs %q", inst, s)
		}
	}
	if len(out) == 0 {
		return ObsSpec{}, fmt.Errorf("no instruments in --obs %q", s)
	}
	return ObsSpec{ObsID: id, Insts: out}, nil
}

// stringSlice allows repeatable string flags.
type stringSlice []string

func (s *stringSlice) String() string     { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error { *s = append(*s, v); return nil }
