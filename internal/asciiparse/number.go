// Package asciiparse implements CODA's ASCII number parsers (spec
// §4.6): signed/unsigned integer and double parsers with trailing-
// whitespace policy, plus the value-to-literal mapping lookup and the
// ASCII line index used by size resolution on the ASCII backend.
package asciiparse

import (
	"math"

	"github.com/coda-go/coda/internal/coerr"
)

func isSpaceTab(b byte) bool { return b == ' ' || b == '\t' }
func isDigit(b byte) bool    { return b >= '0' && b <= '9' }

// trailingOK checks that, when ignoreTrailing is false, everything
// after the consumed prefix is space/tab.
func trailingOK(buf []byte, consumed int, ignoreTrailing bool) error {
	if ignoreTrailing {
		return nil
	}
	for _, b := range buf[consumed:] {
		if !isSpaceTab(b) {
			return coerr.New(coerr.ErrInvalidFormat, "unexpected trailing bytes after numeric value", nil)
		}
	}
	return nil
}

// ParseSignedInt parses a signed 64-bit integer from buf per spec
// §4.6: leading space/tab, optional sign, >=1 decimal digit,
// overflow-checked accumulation.
func ParseSignedInt(buf []byte, ignoreTrailing bool) (int64, int, error) {
	i := 0
	for i < len(buf) && isSpaceTab(buf[i]) {
		i++
	}
	neg := false
	if i < len(buf) && (buf[i] == '+' || buf[i] == '-') {
		neg = buf[i] == '-'
		i++
	}
	start := i
	var v uint64
	for i < len(buf) && isDigit(buf[i]) {
		d := uint64(buf[i] - '0')
		if v > (math.MaxUint64-d)/10 {
			return 0, 0, coerr.New(coerr.ErrInvalidFormat, "integer literal overflow", nil)
		}
		v = v*10 + d
		i++
	}
	if i == start {
		return 0, 0, coerr.New(coerr.ErrInvalidFormat, "no digits in integer literal", nil)
	}
	var result int64
	if neg {
		if v > uint64(math.MaxInt64)+1 {
			return 0, 0, coerr.New(coerr.ErrInvalidFormat, "integer literal overflow", nil)
		}
		result = -int64(v)
	} else {
		if v > uint64(math.MaxInt64) {
			return 0, 0, coerr.New(coerr.ErrInvalidFormat, "integer literal overflow", nil)
		}
		result = int64(v)
	}
	if err := trailingOK(buf, i, ignoreTrailing); err != nil {
		return 0, 0, err
	}
	return result, i, nil
}

// ParseUnsignedInt parses an unsigned 64-bit integer; a leading '+' is
// accepted but no '-'.
func ParseUnsignedInt(buf []byte, ignoreTrailing bool) (uint64, int, error) {
	i := 0
	for i < len(buf) && isSpaceTab(buf[i]) {
		i++
	}
	if i < len(buf) && buf[i] == '+' {
		i++
	}
	start := i
	var v uint64
	for i < len(buf) && isDigit(buf[i]) {
		d := uint64(buf[i] - '0')
		if v > (math.MaxUint64-d)/10 {
			return 0, 0, coerr.New(coerr.ErrInvalidFormat, "integer literal overflow", nil)
		}
		v = v*10 + d
		i++
	}
	if i == start {
		return 0, 0, coerr.New(coerr.ErrInvalidFormat, "no digits in integer literal", nil)
	}
	if err := trailingOK(buf, i, ignoreTrailing); err != nil {
		return 0, 0, err
	}
	return v, i, nil
}

func hasFold(buf []byte, i int, word string) bool {
	if i+len(word) > len(buf) {
		return false
	}
	for k := 0; k < len(word); k++ {
		c := buf[i+k]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != word[k] {
			return false
		}
	}
	return true
}

// ParseDouble parses a float64 from buf per spec §4.6: leading
// space/tab, optional sign, case-insensitive nan/inf literals,
// otherwise mantissa + optional exponent with overflow-clamped
// exponent accumulation (an enormous exponent yields infinity rather
// than overflowing the exponent accumulator).
//
// With ignoreTrailing false, the returned consumed length is the
// numeric prefix only (coda_ascii_parse_double instead reports
// buffer_length - length, i.e. the trailing whitespace consumed too);
// harmless since every caller in this tree only reads the consumed
// length back on the ignoreTrailing-true, dynamic-size path.
func ParseDouble(buf []byte, ignoreTrailing bool) (float64, int, error) {
	i := 0
	for i < len(buf) && isSpaceTab(buf[i]) {
		i++
	}
	neg := false

	if hasFold(buf, i, "nan") {
		i += 3
		if err := trailingOK(buf, i, ignoreTrailing); err != nil {
			return 0, 0, err
		}
		return math.NaN(), i, nil
	}

	signLen := 0
	if i < len(buf) && (buf[i] == '+' || buf[i] == '-') {
		neg = buf[i] == '-'
		signLen = 1
	}
	if hasFold(buf, i+signLen, "inf") {
		i += signLen + 3
		if err := trailingOK(buf, i, ignoreTrailing); err != nil {
			return 0, 0, err
		}
		if neg {
			return math.Inf(-1), i, nil
		}
		return math.Inf(1), i, nil
	}
	if signLen == 1 {
		i++
	}

	mantStart := i
	var mantissa float64
	digits := 0
	for i < len(buf) && isDigit(buf[i]) {
		mantissa = mantissa*10 + float64(buf[i]-'0')
		digits++
		i++
	}
	if i < len(buf) && buf[i] == '.' {
		i++
		frac := 0.1
		for i < len(buf) && isDigit(buf[i]) {
			mantissa += float64(buf[i]-'0') * frac
			frac /= 10
			digits++
			i++
		}
	}
	if digits == 0 {
		return 0, 0, coerr.New(coerr.ErrInvalidFormat, "no digits in float literal", nil)
	}
	_ = mantStart

	exponent := 0
	if i < len(buf) && (buf[i] == 'e' || buf[i] == 'E' || buf[i] == 'd' || buf[i] == 'D') {
		save := i
		j := i + 1
		expNeg := false
		if j < len(buf) && (buf[j] == '+' || buf[j] == '-') {
			expNeg = buf[j] == '-'
			j++
		}
		expStart := j
		expOverflow := false
		for j < len(buf) && isDigit(buf[j]) {
			if exponent < 1<<30 {
				exponent = exponent*10 + int(buf[j]-'0')
			} else {
				expOverflow = true
			}
			j++
		}
		if j == expStart {
			// Not actually an exponent (e.g. trailing "e" with no
			// digits); leave the mantissa as the whole value.
			i = save
		} else {
			i = j
			if expNeg {
				exponent = -exponent
			}
			if expOverflow {
				if exponent < 0 {
					mantissa = 0
				} else {
					mantissa = math.Inf(1)
				}
				exponent = 0
			}
		}
	}

	result := mantissa * fastPow10(exponent)
	if neg {
		result = -result
	}
	if err := trailingOK(buf, i, ignoreTrailing); err != nil {
		return 0, 0, err
	}
	return result, i, nil
}

// fastPow10 is the "fast integer-power helper" spec §4.6 calls for,
// applying the parsed exponent as value *= 10^exponent.
func fastPow10(exp int) float64 {
	if exp == 0 {
		return 1
	}
	neg := exp < 0
	if neg {
		exp = -exp
	}
	result := 1.0
	base := 10.0
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	if neg {
		return 1 / result
	}
	return result
}
