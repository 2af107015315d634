package asciiparse

import (
	"bytes"

	"github.com/coda-go/coda/internal/coerr"
	"github.com/coda-go/coda/internal/typegraph"
)

// MatchMapping tries each mapping against the prefix of window in
// declared order (spec §4.6). dynamicSize indicates whether the
// containing type has a dynamic (non-fixed) size; when it does not,
// a matched mapping whose literal is shorter than the window is
// rejected as invalid_format, because a fixed-size field must consume
// exactly its declared width.
//
// Returns (value, consumedBytes, matched, err).
func MatchMapping(window []byte, mappings []typegraph.Mapping, dynamicSize bool) (float64, int, bool, error) {
	for _, m := range mappings {
		if len(m.Literal) == 0 {
			if len(window) == 0 {
				return m.Value, 0, true, nil
			}
			continue
		}
		if len(window) < len(m.Literal) {
			continue
		}
		if !bytes.Equal(window[:len(m.Literal)], m.Literal) {
			continue
		}
		if !dynamicSize && len(m.Literal) != len(window) {
			return 0, 0, false, coerr.New(coerr.ErrInvalidFormat,
				"mapping literal length does not match the fixed field width", nil)
		}
		return m.Value, len(m.Literal), true, nil
	}
	return 0, 0, false, nil
}
