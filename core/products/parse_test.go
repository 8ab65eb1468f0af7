// core/products/parse_test.go
package products

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStderrClassification(t *testing.T) {
	stderr := `** evselect: error (InvalidExpression), selection expression is not boolean
** evselect: warning (NoWCS), attribute missing
something went wrong in a way the tool did not explain
`
	errs, warns, other := ParseStderr(stderr)

	require.Len(t, errs, 1)
	assert.Equal(t, "evselect", errs[0].Originator)
	assert.Equal(t, "InvalidExpression", errs[0].Name)
	assert.Equal(t, "selection expression is not boolean", errs[0].Message)

	require.Len(t, warns, 1)
	assert.Equal(t, "NoWCS", warns[0].Name)

	require.Len(t, other, 1)
	assert.Contains(t, other[0], "something went wrong")
}

func TestParseStderrUnknownErrorNameStaysUnclassified(t *testing.T) {
	errs, warns, other := ParseStderr("** emosaic: error (CompletelyMadeUpName), who knows\n")
	assert.Empty(t, errs)
	assert.Empty(t, warns)
	require.Len(t, other, 1)
}

func TestParseStderrSegfaultHint(t *testing.T) {
	_, _, other := ParseStderr("Segmentation fault (core dumped)\n")
	require.Len(t, other, 1)
	assert.Contains(t, other[0], "segmentation fault occurred")
}

func TestParseStderrEmptyAndWhitespace(t *testing.T) {
	errs, warns, other := ParseStderr("\n   \n\n")
	assert.Empty(t, errs)
	assert.Empty(t, warns)
	assert.Empty(t, other)
}
