// Package asciicursor implements CODA's ASCII cursor backend (spec
// §4.8): size resolution for variable-sized numbers, texts, and
// special-typed texts, plus the scalar reads that follow from it.
package asciicursor

import (
	"github.com/coda-go/coda/internal/coerr"
	"github.com/coda-go/coda/internal/asciiparse"
	"github.com/coda-go/coda/internal/bytesrc"
	"github.com/coda-go/coda/internal/expr"
	"github.com/coda-go/coda/internal/typegraph"
)

// Window is the byte source plus the line index shared by every
// cursor over the same ASCII product.
type Window struct {
	Src   *bytesrc.BufferSource
	Lines *asciiparse.LineIndex
}

// BitSize resolves T's bit size at byte offset byteOffset, following
// the fixed-point algorithm of spec §4.8. boundaryBits is the number
// of bits remaining in the enclosing window (spec §4.1); cur is the
// cursor to evaluate size_expr/available_expr against (may be nil for
// expression-free types).
func BitSize(w *Window, t *typegraph.Type, byteOffset int64, boundaryBits int64, cur expr.Cursor) (int64, error) {
	if t.BitSize >= 0 {
		return t.BitSize, nil
	}

	if t.Class == typegraph.ClassRecord || t.Class == typegraph.ClassArray {
		return 0, coerr.New(coerr.ErrInvalidArgument,
			"record/array bit size must be resolved by the cursor core, not asciicursor.BitSize", nil)
	}

	if t.Class == typegraph.ClassSpecial {
		base := t.Special.Base
		if base.Class == typegraph.ClassText && base.Text != nil && base.Text.Kind == typegraph.TextDefault && base.BitSize < 0 {
			return boundaryBits, nil
		}
	}

	buf := w.Src.Bytes()
	remaining := boundaryBits / 8
	maxPeek := int64(asciiparse.MaxASCIINumberLength)
	if remaining > maxPeek {
		remaining = maxPeek
	}
	end := byteOffset + remaining
	if end > int64(len(buf)) {
		end = int64(len(buf))
	}
	window := buf[byteOffset:end]

	var mappings []typegraph.Mapping
	if (t.Class == typegraph.ClassInteger || t.Class == typegraph.ClassReal) && t.Number != nil {
		mappings = t.Number.Mappings
	}

	if t.Class == typegraph.ClassText && t.Text != nil && t.SizeExpr == nil && t.Text.Kind == typegraph.TextDefault {
		return boundaryBits, nil
	}

	if len(mappings) > 0 {
		dynamicSize := t.SizeExpr != nil || t.BitSize < 0
		_, consumed, matched, err := asciiparse.MatchMapping(window, mappings, dynamicSize)
		if err != nil {
			return 0, err
		}
		if matched {
			return int64(consumed) * 8, nil
		}
	}

	if t.Class == typegraph.ClassSpecial {
		return BitSize(w, t.Special.Base, byteOffset, boundaryBits, cur)
	}

	if t.SizeExpr != nil {
		v, err := expr.EvaluateInteger(t.SizeExpr, cur)
		if err != nil {
			return 0, err
		}
		if t.BitSize == -8 {
			v *= 8
		}
		if v < 0 {
			return 0, coerr.New(coerr.ErrProduct, "size expression evaluated to a negative size", nil)
		}
		return v, nil
	}

	if t.Class == typegraph.ClassInteger || t.Class == typegraph.ClassReal {
		_, consumed, err := asciiparse.ParseDouble(window, true)
		if err != nil {
			return 0, coerr.New(coerr.ErrInvalidFormat, "could not determine size of ASCII number", err)
		}
		return int64(consumed) * 8, nil
	}

	if t.Class == typegraph.ClassText && t.Text != nil {
		return textLineSize(w, t.Text.Kind, byteOffset, boundaryBits)
	}

	return 0, coerr.New(coerr.ErrDataDefinition, "ASCII type has no size_expr and no known size rule", nil)
}

// textLineSize resolves the size of a line/whitespace-kind text
// (spec §4.8 "Line kinds and the line index").
func textLineSize(w *Window, kind typegraph.TextKind, byteOffset int64, boundaryBits int64) (int64, error) {
	buf := w.Src.Bytes()

	switch kind {
	case typegraph.TextWhitespace:
		i := byteOffset
		for i < int64(len(buf)) && isSpaceTab(buf[i]) {
			i++
		}
		return (i - byteOffset) * 8, nil

	case typegraph.TextLineSeparator:
		if err := w.Lines.Build(buf); err != nil {
			return 0, err
		}
		switch w.Lines.Convention() {
		case asciiparse.EOLCRLF:
			return 16, nil
		case asciiparse.EOLLF, asciiparse.EOLCR:
			return 8, nil
		default:
			// Still unknown (the buffer holds no EOL): size the
			// separator from the bytes at this offset. The convention
			// is not recorded; the line index keeps it unknown.
			if byteOffset < int64(len(buf)) && buf[byteOffset] == '\r' {
				if byteOffset+1 < int64(len(buf)) && buf[byteOffset+1] == '\n' {
					return 16, nil
				}
				return 8, nil
			}
			return 8, nil
		}

	case typegraph.TextLineWithEOL, typegraph.TextLineWithoutEOL:
		if err := w.Lines.Build(buf); err != nil {
			return 0, err
		}
		lineEnd, isLast := w.Lines.LineEnd(byteOffset)
		size := (lineEnd - byteOffset) * 8
		if kind == typegraph.TextLineWithoutEOL && !isLast {
			size -= int64(eolWidth(w.Lines.Convention())) * 8
		}
		return size, nil

	default:
		return 0, coerr.New(coerr.ErrDataDefinition, "unhandled text kind", nil)
	}
}

func eolWidth(c asciiparse.EOLConvention) int {
	switch c {
	case asciiparse.EOLCRLF:
		return 2
	case asciiparse.EOLLF, asciiparse.EOLCR:
		return 1
	default:
		return 0
	}
}

func isSpaceTab(b byte) bool { return b == ' ' || b == '\t' }

// ReadInt reads and range-checks a signed integer scalar (spec §4.8
// last paragraph: "Range checks on int8/16/32 ... are performed after
// parsing; overflow -> product error").
func ReadInt(w *Window, byteOffset, byteLen int64, mappings []typegraph.Mapping, nativeBits int, signed bool) (int64, error) {
	buf := w.Src.Bytes()
	end := byteOffset + byteLen
	if end > int64(len(buf)) {
		end = int64(len(buf))
	}
	window := buf[byteOffset:end]

	if len(mappings) > 0 {
		v, _, matched, err := asciiparse.MatchMapping(window, mappings, true)
		if err != nil {
			return 0, err
		}
		if matched {
			return rangeCheckInt(int64(v), nativeBits, signed)
		}
	}

	if signed {
		v, _, err := asciiparse.ParseSignedInt(window, true)
		if err != nil {
			return 0, err
		}
		return rangeCheckInt(v, nativeBits, signed)
	}
	v, _, err := asciiparse.ParseUnsignedInt(window, true)
	if err != nil {
		return 0, err
	}
	return rangeCheckInt(int64(v), nativeBits, signed)
}

func rangeCheckInt(v int64, nativeBits int, signed bool) (int64, error) {
	if nativeBits >= 64 {
		return v, nil
	}
	if signed {
		lo := -(int64(1) << uint(nativeBits-1))
		hi := int64(1)<<uint(nativeBits-1) - 1
		if v < lo || v > hi {
			return 0, coerr.New(coerr.ErrProduct, "ASCII integer value overflows the declared native type", nil)
		}
		return v, nil
	}
	hi := int64(1)<<uint(nativeBits) - 1
	if v < 0 || v > hi {
		return 0, coerr.New(coerr.ErrProduct, "ASCII integer value overflows the declared native type", nil)
	}
	return v, nil
}

// ReadFloat reads a floating-point scalar, honoring mappings first.
func ReadFloat(w *Window, byteOffset, byteLen int64, mappings []typegraph.Mapping) (float64, error) {
	buf := w.Src.Bytes()
	end := byteOffset + byteLen
	if end > int64(len(buf)) {
		end = int64(len(buf))
	}
	window := buf[byteOffset:end]

	if len(mappings) > 0 {
		v, _, matched, err := asciiparse.MatchMapping(window, mappings, true)
		if err != nil {
			return 0, err
		}
		if matched {
			return v, nil
		}
	}
	v, _, err := asciiparse.ParseDouble(window, true)
	if err != nil {
		return 0, coerr.New(coerr.ErrInvalidFormat, "could not parse ASCII float value", err)
	}
	return v, nil
}

// ReadString reads byteLen bytes verbatim as a string (ASCII text
// reads never interpret escapes; spec §4.8 applies mappings to
// numbers only).
func ReadString(w *Window, byteOffset, byteLen int64) (string, error) {
	buf := w.Src.Bytes()
	if byteOffset < 0 || byteOffset+byteLen > int64(len(buf)) {
		return "", coerr.New(coerr.ErrOutOfBoundsRead, "ASCII string read exceeds the product window", nil)
	}
	return string(buf[byteOffset : byteOffset+byteLen]), nil
}

// StringLength returns the C-string content length of a text node's
// byte window: the declared length, trimmed at the first NUL byte if
// one is present (SPEC_FULL.md supplemented feature 1, mirrored from
// coda_ascii_cursor_get_string_length).
func StringLength(w *Window, byteOffset, byteLen int64) int64 {
	buf := w.Src.Bytes()
	end := byteOffset + byteLen
	if end > int64(len(buf)) {
		end = int64(len(buf))
	}
	for i := byteOffset; i < end; i++ {
		if buf[i] == 0 {
			return i - byteOffset
		}
	}
	return byteLen
}
