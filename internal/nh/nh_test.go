// internal/nh/nh_test.go
package nh

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	stdout string
	stderr string
	err    error
}

func (f fakeTool) Invoke(context.Context, float64, float64) (string, string, error) {
	return f.stdout, f.stderr, f.err
}

func TestLookupParsesTrailingPair(t *testing.T) {
	out := `>> Search nH tot
preamble line

Average nH (cm**-2)          5.30E+20
Weighted average nH (cm**-2) 5.41E+20

`
	avg, weighted, err := Lookup(context.Background(), fakeTool{stdout: out}, 149.59, -11.06)
	require.NoError(t, err)
	assert.Equal(t, 5.30e20, avg)
	assert.Equal(t, 5.41e20, weighted)
}

func TestLookupStderrIsFatal(t *testing.T) {
	f := fakeTool{stdout: "1\n2\n", stderr: "FITSIO error reading map\n"}
	_, _, err := Lookup(context.Background(), f, 10, 10)
	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Error(), "FITSIO error")
	assert.Equal(t, 10.0, le.RA)
}

func TestLookupMalformedOutput(t *testing.T) {
	var le *LookupError

	_, _, err := Lookup(context.Background(), fakeTool{stdout: "only one line\n"}, 1, 2)
	require.ErrorAs(t, err, &le)

	_, _, err = Lookup(context.Background(), fakeTool{stdout: "a b\nc d\n"}, 1, 2)
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Error(), "cannot parse")

	_, _, err = Lookup(context.Background(), fakeTool{err: errors.New("executable not found")}, 1, 2)
	require.ErrorAs(t, err, &le)
}
