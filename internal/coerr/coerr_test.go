package coerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageFallsBackToKindDefault(t *testing.T) {
	e := New(ErrInvalidFormat, "", nil)
	assert.Equal(t, "invalid format", e.Error())
}

func TestErrorMessageUsesContextOverDefault(t *testing.T) {
	e := New(ErrInvalidFormat, "mapping literal too short", nil)
	assert.Equal(t, "mapping literal too short", e.Error())
}

func TestErrorMessageIncludesPathAndCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	e := New(ErrFileRead, "reading header", cause).WithPath("/root/field")
	assert.Equal(t, "reading header (at /root/field): unexpected EOF", e.Error())
}

func TestWithPathOnNilIsNil(t *testing.T) {
	var e *Error
	assert.Nil(t, e.WithPath("/x"))
}

func TestWithPathDoesNotMutateOriginal(t *testing.T) {
	e := New(ErrProduct, "bad", nil)
	withPath := e.WithPath("/a/b")
	assert.Equal(t, "", e.Path)
	assert.Equal(t, "/a/b", withPath.Path)
}

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	base := New(ErrHDF5, "chunk decode failed", nil)
	wrapped := fmt.Errorf("opening dataset: %w", base)

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrHDF5, kind)
}

func TestKindOfFalseForPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorsIsCompatibleViaUnwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	e := New(ErrFileOpen, "open failed", sentinel)
	assert.True(t, errors.Is(e, sentinel))
}
