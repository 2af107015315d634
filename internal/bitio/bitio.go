// Package bitio implements CODA's bit reader (spec §4.2): reading up
// to 64 bits from an arbitrary bit offset, endian-neutral.
//
// The internal representation is big-endian within the bit stream:
// bit 0 of byte k is the most significant bit of that byte. Reads
// aligned to a byte boundary and a multiple of 8 bits copy whole
// bytes; otherwise the reader shifts and masks across byte
// boundaries. The result is placed right-aligned in a big-endian
// container; callers apply the declared endianness swap afterwards.
package bitio

import (
	"fmt"

	"github.com/coda-go/coda/internal/coerr"
)

// ByteSource is the minimal interface the bit reader needs from a
// bytes source: bounded reads of whole bytes.
type ByteSource interface {
	ReadAt(offset int64, length int, dst []byte) error
}

// ReadBits reads n bits (1 <= n <= 64) starting at bitOffset from src
// and returns them right-aligned in a uint64, most-significant-bit
// first within the stream.
func ReadBits(src ByteSource, bitOffset int64, n int) (uint64, error) {
	if n < 1 || n > 64 {
		return 0, coerr.New(coerr.ErrInvalidArgument,
			fmt.Sprintf("bit read width %d out of range [1,64]", n), nil)
	}
	if bitOffset < 0 {
		return 0, coerr.New(coerr.ErrInvalidArgument, "negative bit offset", nil)
	}

	startByte := bitOffset / 8
	startBit := bitOffset % 8

	if startBit == 0 && n%8 == 0 {
		nBytes := n / 8
		buf := make([]byte, nBytes)
		if err := src.ReadAt(startByte, nBytes, buf); err != nil {
			return 0, err
		}
		var v uint64
		for _, b := range buf {
			v = (v << 8) | uint64(b)
		}
		return v, nil
	}

	// General path: read enough whole bytes to cover [bitOffset, bitOffset+n)
	// and shift/mask across the byte boundaries.
	totalBits := int(startBit) + n
	nBytes := (totalBits + 7) / 8
	buf := make([]byte, nBytes)
	if err := src.ReadAt(startByte, nBytes, buf); err != nil {
		return 0, err
	}

	var v uint64
	for _, b := range buf {
		v = (v << 8) | uint64(b)
	}
	// v now holds nBytes*8 bits; the wanted n bits start at position
	// startBit from the top and are totalBits-n bits away from the
	// bottom once the trailing padding is discounted.
	trailing := nBytes*8 - totalBits
	v >>= uint(trailing)
	mask := uint64(1)<<uint(n) - 1
	if n == 64 {
		mask = ^uint64(0)
	}
	return v & mask, nil
}

// ReadBitsInto copies n bits starting at bitOffset from src into dst,
// right-aligned in a big-endian container sized ceil(n/8) bytes (used
// by the binary cursor's raw read_bits operation). dst must be at
// least ceil(n/8) bytes.
func ReadBitsInto(src ByteSource, bitOffset int64, n int, dst []byte) error {
	need := (n + 7) / 8
	if len(dst) < need {
		return coerr.New(coerr.ErrInvalidArgument, "destination too small for bit read", nil)
	}
	if n <= 64 {
		v, err := ReadBits(src, bitOffset, n)
		if err != nil {
			return err
		}
		for i := need - 1; i >= 0; i-- {
			dst[i] = byte(v)
			v >>= 8
		}
		return nil
	}
	// Wide raw copies (read_bits over more than 64 bits) fall back to
	// byte-wise assembly; only possible when bit-aligned to a byte.
	if bitOffset%8 != 0 || n%8 != 0 {
		return coerr.New(coerr.ErrInvalidArgument,
			"raw bit reads wider than 64 bits must be byte-aligned", nil)
	}
	return src.ReadAt(bitOffset/8, n/8, dst[:n/8])
}
