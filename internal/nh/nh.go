// internal/nh/nh.go

// Package nh wraps the external hydrogen column-density lookup tool. The
// tool prints a trailing pair of values (simple average and weighted
// average, 10^22 cm^-2 units downstream) and is expected to stay silent on
// stderr; anything it says there is treated as a failed lookup.
package nh

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// LookupError is a failed column-density lookup.
type LookupError struct {
	RA, Dec float64
	Stderr  string
	Reason  string
}

func (e *LookupError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("nH lookup at (%g, %g) failed: %s", e.RA, e.Dec, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("nH lookup at (%g, %g) failed: %s", e.RA, e.Dec, e.Reason)
}

// Runner invokes the lookup tool. Satisfied by exec-based Tool and by test
// fakes.
type Runner interface {
	Invoke(ctx context.Context, ra, dec float64) (stdout, stderr string, err error)
}

// Tool shells out to the HEASOFT nh binary.
type Tool struct {
	Bin string // "nh" when empty
}

func (t Tool) Invoke(ctx context.Context, ra, dec float64) (string, string, error) {
	bin := t.Bin
	if bin == "" {
		bin = "nh"
	}
	var out, errb strings.Builder
	c := exec.CommandContext(ctx, bin, "equinox=2000",
		fmt.Sprintf("ra=%g", ra), fmt.Sprintf("dec=%g", dec))
	c.Stdout = &out
	c.Stderr = &errb
	err := c.Run()
	return out.String(), errb.String(), err
}

// Lookup runs the tool and parses the last two non-empty stdout lines as
// the simple and weighted average column densities.
func Lookup(ctx context.Context, r Runner, ra, dec float64) (avg, weighted float64, err error) {
	stdout, stderr, err := r.Invoke(ctx, ra, dec)
	if err != nil {
		return 0, 0, &LookupError{RA: ra, Dec: dec, Reason: err.Error()}
	}
	if strings.TrimSpace(stderr) != "" {
		return 0, 0, &LookupError{RA: ra, Dec: dec, Stderr: stderr}
	}
	return parseOutput(stdout, ra, dec)
}

// parseOutput extracts the trailing value pair. Each of the last two
// non-empty lines carries the value as its final whitespace field.
func parseOutput(stdout string, ra, dec float64) (avg, weighted float64, err error) {
	var tail []string
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) != "" {
			tail = append(tail, line)
		}
	}
	if len(tail) < 2 {
		return 0, 0, &LookupError{RA: ra, Dec: dec, Reason: "output has fewer than two non-empty lines"}
	}
	vals := make([]float64, 2)
	for i, line := range tail[len(tail)-2:] {
		fields := strings.Fields(line)
		v, perr := strconv.ParseFloat(fields[len(fields)-1], 64)
		if perr != nil {
			return 0, 0, &LookupError{RA: ra, Dec: dec,
				Reason: fmt.Sprintf("cannot parse %q as a column density", fields[len(fields)-1])}
		}
		vals[i] = v
	}
	return vals[0], vals[1], nil
}
