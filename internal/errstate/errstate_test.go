package errstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coda-go/coda/internal/coerr"
)

func TestSetGetClear(t *testing.T) {
	tok := Token(1)
	defer Clear(tok)

	assert.Nil(t, Get(tok))
	assert.Equal(t, "", Message(tok))

	err := coerr.New(coerr.ErrInvalidIndex, "bad index", nil)
	Set(tok, err)

	got := Get(tok)
	if assert.NotNil(t, got) {
		assert.Equal(t, coerr.ErrInvalidIndex, got.Kind)
	}
	assert.NotEmpty(t, Message(tok))

	Clear(tok)
	assert.Nil(t, Get(tok))
}

func TestTokensAreIndependent(t *testing.T) {
	a, b := Token(10), Token(11)
	defer Clear(a)
	defer Clear(b)

	Set(a, coerr.New(coerr.ErrFileOpen, "a failed", nil))
	Set(b, coerr.New(coerr.ErrFileRead, "b failed", nil))

	assert.Equal(t, coerr.ErrFileOpen, Get(a).Kind)
	assert.Equal(t, coerr.ErrFileRead, Get(b).Kind)
}

func TestSetNilClears(t *testing.T) {
	tok := Token(20)
	Set(tok, coerr.New(coerr.ErrProduct, "x", nil))
	assert.NotNil(t, Get(tok))
	Set(tok, nil)
	assert.Nil(t, Get(tok))
}
