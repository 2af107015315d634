package asciiparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coda-go/coda/internal/typegraph"
)

func seedMappings() []typegraph.Mapping {
	return []typegraph.Mapping{
		{Literal: []byte("N/A"), Value: -1},
		{Literal: []byte(""), Value: 0},
	}
}

func TestMatchMappingLiteral(t *testing.T) {
	// Spec §8 seed scenario: mappings [("N/A"->-1), (""->0)], default
	// bit size 24. Buffer "N/Axxx" -> -1, consumed 3.
	v, n, matched, err := MatchMapping([]byte("N/Axxx"), seedMappings(), true)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, -1.0, v)
	assert.Equal(t, 3, n)
}

func TestMatchMappingEmptyLiteral(t *testing.T) {
	v, n, matched, err := MatchMapping([]byte(""), seedMappings(), true)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, 0, n)
}

func TestMatchMappingNoMatch(t *testing.T) {
	// Buffer "007": no mapping matches; caller falls through to the parser.
	_, _, matched, err := MatchMapping([]byte("007"), seedMappings(), true)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestMatchMappingFixedSizeMismatchRejected(t *testing.T) {
	// Not dynamically sized: a matched mapping shorter than the window
	// is rejected rather than silently accepted.
	_, _, _, err := MatchMapping([]byte("N/Ax"), seedMappings(), false)
	assert.Error(t, err)
}

func TestMatchMappingFixedSizeExactMatch(t *testing.T) {
	v, n, matched, err := MatchMapping([]byte("N/A"), seedMappings(), false)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, -1.0, v)
	assert.Equal(t, 3, n)
}
