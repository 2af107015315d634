package asciiparse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignedInt(t *testing.T) {
	v, n, err := ParseSignedInt([]byte("  -123"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(-123), v)
	assert.Equal(t, 6, n)

	v, n, err = ParseSignedInt([]byte("42"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
	assert.Equal(t, 2, n)
}

func TestParseSignedIntNoDigits(t *testing.T) {
	_, _, err := ParseSignedInt([]byte("   "), false)
	assert.Error(t, err)
}

func TestParseSignedIntTrailingGarbageRejected(t *testing.T) {
	_, _, err := ParseSignedInt([]byte("42x"), false)
	assert.Error(t, err)
}

func TestParseSignedIntIgnoreTrailing(t *testing.T) {
	v, n, err := ParseSignedInt([]byte("42xyz"), true)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
	assert.Equal(t, 2, n)
}

func TestParseSignedIntOverflow(t *testing.T) {
	_, _, err := ParseSignedInt([]byte("99999999999999999999"), true)
	assert.Error(t, err)
}

func TestParseUnsignedIntAcceptsPlus(t *testing.T) {
	v, n, err := ParseUnsignedInt([]byte("+7"), false)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
	assert.Equal(t, 2, n)
}

func TestParseUnsignedIntRejectsMinus(t *testing.T) {
	_, _, err := ParseUnsignedInt([]byte("-7"), false)
	assert.Error(t, err)
}

func TestParseDoubleTrailingWhitespaceIgnored(t *testing.T) {
	// Spec §8 seed scenario: " -3.5e2 \t" parses to -350.0; the consumed
	// prefix (the leading space plus "-3.5e2") is 7 bytes, and
	// the remaining " \t" is accepted as trailing whitespace rather
	// than rejected.
	v, n, err := ParseDouble([]byte(" -3.5e2 \t"), false)
	require.NoError(t, err)
	assert.Equal(t, -350.0, v)
	assert.Equal(t, 7, n)
}

func TestParseDoubleNaN(t *testing.T) {
	v, n, err := ParseDouble([]byte("NaN"), false)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))
	assert.Equal(t, 3, n)
}

func TestParseDoubleInf(t *testing.T) {
	v, n, err := ParseDouble([]byte("-inf"), false)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, -1))
	assert.Equal(t, 4, n)

	v, n, err = ParseDouble([]byte("INF"), false)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
	assert.Equal(t, 3, n)
}

func TestParseDoubleNoDigits(t *testing.T) {
	_, _, err := ParseDouble([]byte("   "), false)
	assert.Error(t, err)
}

func TestParseDoublePlainMantissa(t *testing.T) {
	v, n, err := ParseDouble([]byte("3.25"), false)
	require.NoError(t, err)
	assert.Equal(t, 3.25, v)
	assert.Equal(t, 4, n)
}

func TestParseDoubleExponentOverflowClampsToInfinity(t *testing.T) {
	v, _, err := ParseDouble([]byte("1e99999999999"), true)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
}

func TestParseDoubleTrailingBytesRejectedWhenNotIgnored(t *testing.T) {
	_, _, err := ParseDouble([]byte("3.25x"), false)
	assert.Error(t, err)
}
