// internal/xspec/loader_test.go
package xspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xga-core/source"
	"xga-core/units"
)

const pnTable = `
RESULTS
MODEL TOTAL_STAT DOF kT|1
tbabs*apec 431.2 410 5.1

SPEC_INFO
SPEC_PATH EXPOSURE COUNT_RATE Lx_0.5_2.0
0001_pn_A907_spec.fits 25000 1.25 4.0e44
`

const mos1Table = `
RESULTS
MODEL TOTAL_STAT DOF kT|1
tbabs*apec 440.0 410 4.2

SPEC_INFO
SPEC_PATH EXPOSURE COUNT_RATE Lx_0.5_2.0
0001_mos1_A907_spec.fits 27000 0.45 4.4e44
`

func TestDecodeResultName(t *testing.T) {
	key, model, ok := decodeResultName("A907_ra149.59_dec-11.06_ri0_ro0.016_grpTrue_tbabs*apec_xspec.txt", "A907")
	require.True(t, ok)
	assert.Equal(t, "ra149.59_dec-11.06_ri0_ro0.016_grpTrue", key)
	assert.Equal(t, "tbabs*apec", model)

	// model names containing underscores survive
	_, model, ok = decodeResultName("A907_ra1_dec2_ri0_ro1_grpFalse_tbabs_apec_xspec.txt", "A907")
	require.True(t, ok)
	assert.Equal(t, "tbabs_apec", model)

	for _, bad := range []string{
		"A907_notes.txt",
		"OTHER_ra1_dec2_ri0_ro1_grpFalse_m_xspec.txt",
		"A907_ra1_dec2_ri0_ro1_grpFalse_xspec.txt", // key but no model
	} {
		_, _, ok := decodeResultName(bad, "A907")
		assert.False(t, ok, bad)
	}
}

func TestLoaderPrefersPN(t *testing.T) {
	dir := t.TempDir()
	s, err := source.New("A907", 149.59, -11.06, 0.16, units.DefaultCosmology)
	require.NoError(t, err)

	key := "ra149.59_dec-11.06_ri0_ro0.016_grpTrue"
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	// mos1 file sorts before pn; the pn record must still win
	write("A907_"+key+"_tbabs*apec_xspec.txt", mos1Table)

	require.NoError(t, Loader{}.Load(s, dir))
	rec, ok := s.Fits().Get(key, "tbabs*apec")
	require.True(t, ok)
	assert.Equal(t, "mos1", rec.Inst)

	// a second directory scan with a pn table replaces the mos1 record
	write("A907_"+key+"_tbabs*apec_xspec.txt", pnTable)
	require.NoError(t, Loader{}.Load(s, dir))
	rec, ok = s.Fits().Get(key, "tbabs*apec")
	require.True(t, ok)
	assert.Equal(t, "pn", rec.Inst)
	assert.Equal(t, 5.1, rec.Pars["kT"][0].Value)

	// a worse-ranked instrument never displaces the stored pn record
	write("A907_"+key+"_tbabs*apec_xspec.txt", mos1Table)
	require.NoError(t, Loader{}.Load(s, dir))
	rec, _ = s.Fits().Get(key, "tbabs*apec")
	assert.Equal(t, "pn", rec.Inst)
}

func TestLoaderKeepsPerSpectrumRows(t *testing.T) {
	dir := t.TempDir()
	s, err := source.New("A907", 149.59, -11.06, 0.16, units.DefaultCosmology)
	require.NoError(t, err)

	key := "ra149.59_dec-11.06_ri0_ro0.016_grpTrue"
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "A907_"+key+"_tbabs*apec_xspec.txt"), []byte(pnTable), 0o644))

	require.NoError(t, Loader{}.Load(s, dir))
	rec, ok := s.Fits().Get(key, "tbabs*apec")
	require.True(t, ok)

	// the reloaded record carries the spectrum rows, not just the averages
	require.Len(t, rec.Spectra, 1)
	sp := rec.Spectra[0]
	assert.Equal(t, "0001_pn_A907_spec.fits", sp.Path)
	assert.Equal(t, "pn", sp.Inst)
	assert.Equal(t, 25000.0, sp.Exposure)
	assert.Equal(t, 1.25, sp.CountRate)
	require.Len(t, sp.Lums, 1)
	assert.Equal(t, 4.0e44, sp.Lums[0].Value)
}
