// Package coerr holds CODA's structured error type and taxonomy.
//
// It exists as its own internal package, rather than living in the
// public coda package, so that the lower backend packages
// (typegraph, bincursor, asciicursor, expr, ...) can return rich
// errors without importing the public coda package back — which
// would create an import cycle, since coda imports all of them. The
// coda package re-exports every symbol here as a type alias /
// function wrapper, so callers never see the internal/coerr path.
package coerr

import "fmt"

// ErrorKind classifies a CODA error the way the C library's error codes do.
type ErrorKind uint8

// Error kinds, as catalogued in the CODA error taxonomy (spec §7).
const (
	ErrOutOfMemory ErrorKind = iota
	ErrFileNotFound
	ErrFileOpen
	ErrFileRead
	ErrFileWrite
	ErrInvalidArgument
	ErrInvalidIndex
	ErrInvalidName
	ErrInvalidFormat
	ErrInvalidDatetime
	ErrInvalidType
	ErrArrayNumDimsMismatch
	ErrArrayOutOfBounds
	ErrNoParent
	ErrUnsupportedProduct
	ErrProduct
	ErrOutOfBoundsRead
	ErrDataDefinition
	ErrExpression
	ErrHDF4
	ErrHDF5
	ErrXML
	ErrNoHDF4Support
	ErrNoHDF5Support
)

var kindDefaults = map[ErrorKind]string{
	ErrOutOfMemory:          "out of memory",
	ErrFileNotFound:         "file not found",
	ErrFileOpen:             "could not open file",
	ErrFileRead:             "could not read file",
	ErrFileWrite:            "could not write file",
	ErrInvalidArgument:      "invalid argument",
	ErrInvalidIndex:         "invalid index",
	ErrInvalidName:          "invalid name",
	ErrInvalidFormat:        "invalid format",
	ErrInvalidDatetime:      "invalid date/time",
	ErrInvalidType:          "invalid type",
	ErrArrayNumDimsMismatch: "number of dimensions does not match",
	ErrArrayOutOfBounds:     "array index out of bounds",
	ErrNoParent:             "cursor has no parent",
	ErrUnsupportedProduct:   "unsupported product",
	ErrProduct:              "product error",
	ErrOutOfBoundsRead:      "read would cross a boundary",
	ErrDataDefinition:       "data definition error",
	ErrExpression:           "expression error",
	ErrHDF4:                 "HDF4 error",
	ErrHDF5:                 "HDF5 error",
	ErrXML:                  "XML error",
	ErrNoHDF4Support:        "no HDF4 support compiled in",
	ErrNoHDF5Support:        "no HDF5 support compiled in",
}

// Error is the structured error type returned by every fallible CODA
// operation. It follows the teacher repo's wrap-with-context shape
// (H5Error) but adds a Kind and a cursor Path.
type Error struct {
	Kind    ErrorKind
	Context string
	Cause   error
	Path    string // cursor path at the point of failure, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Context
	if msg == "" {
		msg = kindDefaults[e.Kind]
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (at %s)", msg, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap provides compatibility with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind with an optional cause.
func New(kind ErrorKind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Cause: cause}
}

// WithPath returns a copy of e with the cursor path attached, used by
// the "append path" helper when propagating errors out of a cursor
// operation.
func (e *Error) WithPath(path string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Path = path
	return &cp
}

// KindOf extracts the ErrorKind from err if it (or something it wraps)
// is a *Error; ok is false otherwise.
func KindOf(err error) (kind ErrorKind, ok bool) {
	var ce *Error
	for err != nil {
		if e, matches := err.(*Error); matches {
			ce = e
			break
		}
		u, has := err.(interface{ Unwrap() error })
		if !has {
			break
		}
		err = u.Unwrap()
	}
	if ce == nil {
		return 0, false
	}
	return ce.Kind, true
}
