package coda

import (
	"os"
	"sync/atomic"
)

// Process-wide toggles (spec §5). These are intended to be set once
// during initialization; concurrent reads while another goroutine
// mutates them are out of the API contract, matching the spec note
// verbatim.
var (
	performConversions     atomic.Bool
	performBoundaryChecks  atomic.Bool
	useFastSizeExpressions atomic.Bool
	useMmap                atomic.Bool
	bypassSpecialTypes     atomic.Bool
)

func init() {
	performConversions.Store(true)
	performBoundaryChecks.Store(true)
}

// SetPerformConversions toggles whether read_* operations apply a
// number type's declared linear conversion.
func SetPerformConversions(v bool) { performConversions.Store(v) }

// PerformConversions reports the current setting.
func PerformConversions() bool { return performConversions.Load() }

// SetPerformBoundaryChecks toggles index/range validation on
// goto_array_element_by_index and read_*_partial_array
// (SPEC_FULL.md supplemented feature 2).
func SetPerformBoundaryChecks(v bool) { performBoundaryChecks.Store(v) }

// PerformBoundaryChecks reports the current setting.
func PerformBoundaryChecks() bool { return performBoundaryChecks.Load() }

// SetUseFastSizeExpressions toggles whether the product check (and
// any caller requesting a fast size computation) restricts itself to
// expressions tagged IsFast() by the expression VM.
func SetUseFastSizeExpressions(v bool) { useFastSizeExpressions.Store(v) }

// UseFastSizeExpressions reports the current setting.
func UseFastSizeExpressions() bool { return useFastSizeExpressions.Load() }

// SetUseMmap toggles whether Open memory-maps file-backed products
// instead of using positioned reads.
func SetUseMmap(v bool) { useMmap.Store(v) }

// UseMmap reports the current setting.
func UseMmap() bool { return useMmap.Load() }

// SetBypassSpecialTypes toggles whether reads through a special type
// skip straight to its base type's native representation.
func SetBypassSpecialTypes(v bool) { bypassSpecialTypes.Store(v) }

// BypassSpecialTypes reports the current setting.
func BypassSpecialTypes() bool { return bypassSpecialTypes.Load() }

var definitionPath string

// SetDefinitionPath explicitly overrides the product definition search
// path, taking precedence over CODA_DEFINITION.
func SetDefinitionPath(path string) { definitionPath = path }

// DefinitionPath returns the product definition search path: an
// explicitly-set path if any, otherwise the CODA_DEFINITION
// environment variable, read once per call (spec §6 glossary entry
// "product definition files").
func DefinitionPath() string {
	if definitionPath != "" {
		return definitionPath
	}
	return os.Getenv("CODA_DEFINITION")
}
