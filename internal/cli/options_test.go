// internal/cli/options_test.go
package cli

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFS() *flag.FlagSet {
	fs := NewFlagSet("xga")
	fs.SetOutput(io.Discard)
	return fs
}

func mustParse(t *testing.T, args ...string) Options {
	t.Helper()
	opt, err := ParseArgs(newFS(), args)
	require.NoError(t, err)
	return opt
}

func TestParseMinimal(t *testing.T) {
	o := mustParse(t,
		"-name", "A907",
		"-ra", "149.59", "-dec", "-11.06",
		"-obs", "0404910601",
	)
	assert.Equal(t, "A907", o.Name)
	assert.Equal(t, 149.59, o.RA)
	assert.Equal(t, -11.06, o.Dec)
	assert.True(t, o.Discover)
	assert.False(t, o.ReadFits)
	require.Len(t, o.Obs, 1)
	assert.Equal(t, "0404910601", o.Obs[0].ObsID)
	assert.Equal(t, []string{"pn", "mos1", "mos2"}, o.Obs[0].Insts)
}

func TestParseObsInstruments(t *testing.T) {
	o := mustParse(t,
		"-name", "A907", "-ra", "149.59", "-dec", "-11.06",
		"-obs", "0404910601:pn,mos2",
		"-obs", "0201901401",
	)
	require.Len(t, o.Obs, 2)
	assert.Equal(t, []string{"pn", "mos2"}, o.Obs[0].Insts)
	assert.Equal(t, []string{"pn", "mos1", "mos2"}, o.Obs[1].Insts)
}

func TestParseValidation(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"missing name", []string{"-ra", "1", "-dec", "2", "-obs", "0001"}},
		{"missing coords", []string{"-name", "x", "-obs", "0001"}},
		{"ra out of range", []string{"-name", "x", "-ra", "400", "-dec", "2", "-obs", "0001"}},
		{"dec out of range", []string{"-name", "x", "-ra", "1", "-dec", "-91", "-obs", "0001"}},
		{"negative redshift", []string{"-name", "x", "-ra", "1", "-dec", "2", "-redshift", "-0.1", "-obs", "0001"}},
		{"no obs", []string{"-name", "x", "-ra", "1", "-dec", "2"}},
		{"unknown instrument", []string{"-name", "x", "-ra", "1", "-dec", "2", "-obs", "0001:rgs"}},
		{"empty instrument list", []string{"-name", "x", "-ra", "1", "-dec", "2", "-obs", "0001:"}},
		{"empty obsid", []string{"-name", "x", "-ra", "1", "-dec", "2", "-obs", ":pn"}},
		{"read-fits without discover", []string{"-name", "x", "-ra", "1", "-dec", "2", "-obs", "0001", "-discover=false", "-read-fits"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseArgs(newFS(), tc.args)
			assert.Error(t, err)
		})
	}
}

func TestParseHelp(t *testing.T) {
	_, err := ParseArgs(newFS(), []string{"-h"})
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestParseVersionSkipsValidation(t *testing.T) {
	o, err := ParseArgs(newFS(), []string{"-version"})
	require.NoError(t, err)
	assert.True(t, o.Version)
}
