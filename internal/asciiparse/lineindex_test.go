package asciiparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineIndexLFConvention(t *testing.T) {
	var li LineIndex
	require.NoError(t, li.Build([]byte("abc\ndef\n")))
	assert.Equal(t, EOLLF, li.Convention())

	end, last := li.LineEnd(0)
	assert.Equal(t, int64(4), end)
	assert.False(t, last)

	end, last = li.LineEnd(4)
	assert.Equal(t, int64(8), end)
	assert.False(t, last)
}

func TestLineIndexCRLFConvention(t *testing.T) {
	var li LineIndex
	require.NoError(t, li.Build([]byte("ab\r\ncd\r\n")))
	assert.Equal(t, EOLCRLF, li.Convention())

	end, last := li.LineEnd(0)
	assert.Equal(t, int64(4), end)
	assert.False(t, last)
}

func TestLineIndexUnterminatedFinalLine(t *testing.T) {
	// Spec testable property 7: a final line with no trailing EOL is
	// still indexed, and reported as the last (possibly-unterminated) one.
	var li LineIndex
	require.NoError(t, li.Build([]byte("abc\ndef")))
	assert.Equal(t, EOLLF, li.Convention())

	end, last := li.LineEnd(4)
	assert.Equal(t, int64(7), end)
	assert.True(t, last)
}

func TestLineIndexMixedConventionRejected(t *testing.T) {
	// Spec seed scenario "End-of-line detection lock-in": the first EOL
	// observed commits the convention; a later, different EOL is an error.
	var li LineIndex
	err := li.Build([]byte("abc\ndef\r\n"))
	assert.Error(t, err)
}

func TestLineIndexBuildOnlyOnce(t *testing.T) {
	var li LineIndex
	require.NoError(t, li.Build([]byte("a\n")))
	// A second Build call, even with different content, must not re-scan:
	// sync.Once commits the first result.
	require.NoError(t, li.Build([]byte("mismatched\r\nconvention\r")))
	assert.Equal(t, EOLLF, li.Convention())
}
