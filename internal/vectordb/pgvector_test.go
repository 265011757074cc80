package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", VectorLiteral(nil))
	assert.Equal(t, "[0.5,-1,0.25]", VectorLiteral([]float32{0.5, -1, 0.25}))
}

func TestParseVectorLiteralRoundTrip(t *testing.T) {
	in := []float32{0.015, -0.002, 0.9}
	out, err := ParseVectorLiteral(VectorLiteral(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseVectorLiteralJSONSpacing(t *testing.T) {
	out, err := ParseVectorLiteral("[0.1, 0.2, 0.3]")
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestParseVectorLiteralErrors(t *testing.T) {
	_, err := ParseVectorLiteral("0.1,0.2")
	assert.Error(t, err)
	_, err = ParseVectorLiteral("[0.1,abc]")
	assert.Error(t, err)

	out, err := ParseVectorLiteral("[]")
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestContentOf(t *testing.T) {
	assert.Equal(t, "transcript", contentOf("transcript", "summary"))
	assert.Equal(t, "summary", contentOf("", "summary"))
	assert.Empty(t, contentOf("", ""))
}
