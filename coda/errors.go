// Package coda is the public entry point of the CODA core: a uniform,
// random-access cursor for heterogeneous scientific data products.
package coda

import "github.com/coda-go/coda/internal/coerr"

// ErrorKind classifies a CODA error the way the C library's error codes do.
type ErrorKind = coerr.ErrorKind

// Error kinds, as catalogued in the CODA error taxonomy.
const (
	ErrOutOfMemory          = coerr.ErrOutOfMemory
	ErrFileNotFound         = coerr.ErrFileNotFound
	ErrFileOpen             = coerr.ErrFileOpen
	ErrFileRead             = coerr.ErrFileRead
	ErrFileWrite            = coerr.ErrFileWrite
	ErrInvalidArgument      = coerr.ErrInvalidArgument
	ErrInvalidIndex         = coerr.ErrInvalidIndex
	ErrInvalidName          = coerr.ErrInvalidName
	ErrInvalidFormat        = coerr.ErrInvalidFormat
	ErrInvalidDatetime      = coerr.ErrInvalidDatetime
	ErrInvalidType          = coerr.ErrInvalidType
	ErrArrayNumDimsMismatch = coerr.ErrArrayNumDimsMismatch
	ErrArrayOutOfBounds     = coerr.ErrArrayOutOfBounds
	ErrNoParent             = coerr.ErrNoParent
	ErrUnsupportedProduct   = coerr.ErrUnsupportedProduct
	ErrProduct              = coerr.ErrProduct
	ErrOutOfBoundsRead      = coerr.ErrOutOfBoundsRead
	ErrDataDefinition       = coerr.ErrDataDefinition
	ErrExpression           = coerr.ErrExpression
	ErrHDF4                 = coerr.ErrHDF4
	ErrHDF5                 = coerr.ErrHDF5
	ErrXML                  = coerr.ErrXML
	ErrNoHDF4Support        = coerr.ErrNoHDF4Support
	ErrNoHDF5Support        = coerr.ErrNoHDF5Support
)

// Error is the structured error type returned by every fallible CODA
// operation. It follows the teacher repo's wrap-with-context shape
// (H5Error) but adds a Kind and a cursor Path.
//
// Error is a type alias for internal/coerr.Error (rather than a
// wrapper) so that errors constructed deep in the backend packages —
// which cannot import this package without creating an import cycle,
// since this package imports all of them — are already *coda.Error
// values to every caller.
type Error = coerr.Error

// NewError builds an *Error of the given kind with an optional cause.
func NewError(kind ErrorKind, context string, cause error) *Error {
	return coerr.New(kind, context, cause)
}

// KindOf extracts the ErrorKind from err if it (or something it wraps)
// is a *Error; ok is false otherwise.
func KindOf(err error) (kind ErrorKind, ok bool) {
	return coerr.KindOf(err)
}
