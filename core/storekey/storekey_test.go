// core/storekey/storekey_test.go
package storekey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnergyKeyRoundTrip(t *testing.T) {
	key := EnergyKey(0.5, 2.0)
	assert.Equal(t, "0.5-2keV", key)

	lo, hi, ok := ParseEnergyKey(key)
	require.True(t, ok)
	assert.Equal(t, 0.5, lo)
	assert.Equal(t, 2.0, hi)

	_, _, ok = ParseEnergyKey("ELLBETAmod")
	assert.False(t, ok)
}

func TestPSFKeyRoundTrip(t *testing.T) {
	p := PSFKey{Bins: 4, Iters: 15, Model: "ELLBETA", Algo: "rl"}
	enc := p.Encode()
	assert.Equal(t, "4bin_15iter_ELLBETAmod_rlalgo", enc)

	got, ok := ParsePSFKey(strings.Split(enc, "_"))
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestPSFGridKeyRoundTrip(t *testing.T) {
	enc := PSFGridKey(4, "ELLBETA")
	assert.Equal(t, "4bin_ELLBETAmod", enc)

	bins, model, ok := ParsePSFGridKey(strings.Split(enc, "_"))
	require.True(t, ok)
	assert.Equal(t, 4, bins)
	assert.Equal(t, "ELLBETA", model)

	_, _, ok = ParsePSFGridKey([]string{"4bin"})
	assert.False(t, ok)
	_, _, ok = ParsePSFGridKey([]string{"4bin", "mod"})
	assert.False(t, ok)
	_, _, ok = ParsePSFGridKey([]string{"xbin", "ELLBETAmod"})
	assert.False(t, ok)
}

// Identical generation parameters must always give an identical key: the key
// is the cache identity for the whole regeneration-avoidance contract.
func TestSpectrumKeyDeterministic(t *testing.T) {
	k := SpectrumKey{
		RADeg: 149.59, DecDeg: -11.05,
		InnerRadDeg: 0, OuterRadDeg: 0.016,
		Grouped: true, MinCounts: 25, OverSample: 4,
	}
	a := k.Encode()
	b := k.Encode()
	assert.Equal(t, a, b)
	assert.Equal(t, "ra149.59_dec-11.05_ri0_ro0.016_grpTrue_mincnt25_ovsamp4", a)
}

func TestSpectrumKeyRoundTrip(t *testing.T) {
	cases := []SpectrumKey{
		{RADeg: 1, DecDeg: 2, OuterRadDeg: 0.05, Grouped: false},
		{RADeg: 149.59, DecDeg: -11.05, OuterRadDeg: 0.016, Grouped: true, MinCounts: 25},
		{RADeg: 10, DecDeg: 10, InnerRadDeg: 0.01, OuterRadDeg: 0.02, Grouped: true, MinSN: 3, OverSample: 2},
	}
	for _, k := range cases {
		toks := strings.Split(k.Encode(), "_")
		got, n, ok := ParseSpectrumKey(toks)
		require.True(t, ok, "key %q", k.Encode())
		assert.Equal(t, len(toks), n)
		assert.Equal(t, k, got)
	}
}

func TestSpectrumKeyStopsAtForeignToken(t *testing.T) {
	toks := strings.Split("ra1_dec2_ri0_ro0.05_grpFalse_spec.fits", "_")
	k, n, ok := ParseSpectrumKey(toks)
	require.True(t, ok)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0.05, k.OuterRadDeg)
}

func TestSafeSourceName(t *testing.T) {
	assert.Equal(t, "SDSSJ0914x0645", SafeSourceName("SDSSJ0914+0645"))
}

func TestCombinedObsToken(t *testing.T) {
	tok := CombinedObsToken([]string{"0402", "0001", "0093"})
	assert.Equal(t, "0001-0093-0402", tok)

	assert.True(t, CombinedMatches(tok, []string{"0093", "0001", "0402"}))
	assert.False(t, CombinedMatches(tok, []string{"0001", "0402"}))
	assert.False(t, CombinedMatches(tok, []string{"0001", "0093", "0500"}))
}
