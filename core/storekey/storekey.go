// core/storekey/storekey.go

// Package storekey is the one place that encodes and decodes the
// underscore-delimited tokens carried in product filenames and registry keys.
// The token order and spelling are inherited from the external toolchain's
// output conventions and must stay byte-compatible so that previously
// generated files are rediscovered instead of regenerated.
package storekey

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// num renders a float the way keys expect: no exponent, no trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EnergyKey is the registry extra-key for a band-limited product,
// e.g. "0.5-2keV".
func EnergyKey(loKeV, hiKeV float64) string {
	return fmt.Sprintf("%s-%skeV", num(loKeV), num(hiKeV))
}

// ParseEnergyKey inverts EnergyKey. ok is false when the token is not an
// energy band.
func ParseEnergyKey(tok string) (lo, hi float64, ok bool) {
	if !strings.HasSuffix(tok, "keV") {
		return 0, 0, false
	}
	body := strings.TrimSuffix(tok, "keV")
	parts := strings.SplitN(body, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err1 := strconv.ParseFloat(parts[0], 64)
	hi, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// PSFKey describes a PSF-correction configuration.
type PSFKey struct {
	Bins  int
	Iters int
	Model string
	Algo  string
}

// Encode renders the PSF tokens, e.g. "4bin_15iter_ELLBETAmod_rlalgo".
func (p PSFKey) Encode() string {
	return fmt.Sprintf("%dbin_%diter_%smod_%salgo", p.Bins, p.Iters, p.Model, p.Algo)
}

// ParsePSFKey recognises the four PSF tokens starting at toks[0].
func ParsePSFKey(toks []string) (PSFKey, bool) {
	if len(toks) < 4 {
		return PSFKey{}, false
	}
	var p PSFKey
	var err error
	if !strings.HasSuffix(toks[0], "bin") {
		return PSFKey{}, false
	}
	if p.Bins, err = strconv.Atoi(strings.TrimSuffix(toks[0], "bin")); err != nil {
		return PSFKey{}, false
	}
	if !strings.HasSuffix(toks[1], "iter") {
		return PSFKey{}, false
	}
	if p.Iters, err = strconv.Atoi(strings.TrimSuffix(toks[1], "iter")); err != nil {
		return PSFKey{}, false
	}
	if !strings.HasSuffix(toks[2], "mod") || !strings.HasSuffix(toks[3], "algo") {
		return PSFKey{}, false
	}
	p.Model = strings.TrimSuffix(toks[2], "mod")
	p.Algo = strings.TrimSuffix(toks[3], "algo")
	if p.Model == "" || p.Algo == "" {
		return PSFKey{}, false
	}
	return p, true
}

// PSFGridKey is the registry extra-key for a gridded PSF model product,
// e.g. "4bin_ELLBETAmod".
func PSFGridKey(bins int, model string) string {
	return fmt.Sprintf("%dbin_%smod", bins, model)
}

// ParsePSFGridKey recognises the two PSF-grid tokens starting at toks[0].
// Try ParsePSFKey first: the four-token correction key also opens with a
// "bin" token.
func ParsePSFGridKey(toks []string) (bins int, model string, ok bool) {
	if len(toks) < 2 || !strings.HasSuffix(toks[0], "bin") || !strings.HasSuffix(toks[1], "mod") {
		return 0, "", false
	}
	b, err := strconv.Atoi(strings.TrimSuffix(toks[0], "bin"))
	if err != nil {
		return 0, "", false
	}
	m := strings.TrimSuffix(toks[1], "mod")
	if m == "" {
		return 0, "", false
	}
	return b, m, true
}

// SpectrumKey holds everything that defines one extraction configuration.
// Encoding it is a pure function of these fields: identical requests always
// map onto the same key, which is what makes re-runs idempotent.
type SpectrumKey struct {
	RADeg, DecDeg float64
	InnerRadDeg   float64
	OuterRadDeg   float64
	Grouped       bool
	MinCounts     int // 0 when unset; mutually exclusive with MinSN
	MinSN         float64
	OverSample    int // 0 when unset
}

// Encode renders e.g. "ra149.59_dec-11.05_ri0_ro0.016_grpTrue_mincnt25_ovsamp4".
func (k SpectrumKey) Encode() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ra%s_dec%s_ri%s_ro%s_grp%s",
		num(k.RADeg), num(k.DecDeg), num(k.InnerRadDeg), num(k.OuterRadDeg), pyBool(k.Grouped))
	if k.Grouped {
		if k.MinCounts > 0 {
			fmt.Fprintf(&sb, "_mincnt%d", k.MinCounts)
		} else if k.MinSN > 0 {
			fmt.Fprintf(&sb, "_minsn%s", num(k.MinSN))
		}
	}
	if k.OverSample > 0 {
		fmt.Fprintf(&sb, "_ovsamp%d", k.OverSample)
	}
	return sb.String()
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseSpectrumKey scans underscore tokens for a spectrum storage key
// beginning at the "ra..." token and returns the parsed key plus the number
// of tokens consumed.
func ParseSpectrumKey(toks []string) (SpectrumKey, int, bool) {
	var k SpectrumKey
	if len(toks) < 5 || !strings.HasPrefix(toks[0], "ra") {
		return k, 0, false
	}
	fields := []struct {
		prefix string
		dst    *float64
	}{
		{"ra", &k.RADeg}, {"dec", &k.DecDeg}, {"ri", &k.InnerRadDeg}, {"ro", &k.OuterRadDeg},
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimPrefix(toks[i], f.prefix), 64)
		if !strings.HasPrefix(toks[i], f.prefix) || err != nil {
			return SpectrumKey{}, 0, false
		}
		*f.dst = v
	}
	if !strings.HasPrefix(toks[4], "grp") {
		return SpectrumKey{}, 0, false
	}
	k.Grouped = strings.TrimPrefix(toks[4], "grp") == "True"
	n := 5
	for n < len(toks) {
		tok := toks[n]
		switch {
		case strings.HasPrefix(tok, "mincnt"):
			v, err := strconv.Atoi(strings.TrimPrefix(tok, "mincnt"))
			if err != nil {
				return SpectrumKey{}, 0, false
			}
			k.MinCounts = v
		case strings.HasPrefix(tok, "minsn"):
			v, err := strconv.ParseFloat(strings.TrimPrefix(tok, "minsn"), 64)
			if err != nil {
				return SpectrumKey{}, 0, false
			}
			k.MinSN = v
		case strings.HasPrefix(tok, "ovsamp"):
			v, err := strconv.Atoi(strings.TrimPrefix(tok, "ovsamp"))
			if err != nil {
				return SpectrumKey{}, 0, false
			}
			k.OverSample = v
		default:
			return k, n, true
		}
		n++
	}
	return k, n, true
}

// SafeSourceName makes a source name filename-safe the way the toolchain
// expects: "+" becomes "x".
func SafeSourceName(name string) string {
	return strings.ReplaceAll(name, "+", "x")
}

// CombinedObsToken joins the contributing ObsIDs of a merged product into a
// single filename token. The list is sorted so the token is order independent.
func CombinedObsToken(obsIDs []string) string {
	ids := append([]string(nil), obsIDs...)
	sort.Strings(ids)
	return strings.Join(ids, "-")
}

// ParseCombinedObsToken splits a combined-product token back into ObsIDs.
func ParseCombinedObsToken(tok string) []string {
	if tok == "" {
		return nil
	}
	return strings.Split(tok, "-")
}

// CombinedMatches reports whether a merged product's embedded ObsID list is
// exactly the source's current association set. A stale merge (one of its
// constituents since removed) never re-attaches.
func CombinedMatches(tok string, current []string) bool {
	embedded := ParseCombinedObsToken(tok)
	if len(embedded) != len(current) {
		return false
	}
	cur := append([]string(nil), current...)
	sort.Strings(cur)
	for i := range cur {
		if embedded[i] != cur[i] {
			return false
		}
	}
	return true
}
