// Package bincursor implements CODA's binary cursor backend (spec
// §4.7): reading typed scalars out of a raw byte stream whose shape is
// governed entirely by the declared type graph.
package bincursor

import (
	"math"

	"github.com/coda-go/coda/internal/coerr"
	"github.com/coda-go/coda/internal/bitio"
	"github.com/coda-go/coda/internal/typegraph"
)

// ReadInt reads a signed integer of bit width w at bitOffset, applying
// the endian swap and, for widths < 64, sign extension (spec §4.7
// steps 1-4).
func ReadInt(src bitio.ByteSource, bitOffset int64, w int, endian typegraph.Endian) (int64, error) {
	v, nBytes, err := readAligned(src, bitOffset, w, endian)
	if err != nil {
		return 0, err
	}
	if w == 64 {
		return int64(v), nil
	}
	_ = nBytes
	return bitio.SignExtend(v, w), nil
}

// ReadUint reads an unsigned integer of bit width w.
func ReadUint(src bitio.ByteSource, bitOffset int64, w int, endian typegraph.Endian) (uint64, error) {
	v, _, err := readAligned(src, bitOffset, w, endian)
	return v, err
}

// readAligned performs the core bit/byte read plus endian swap shared
// by integer reads (spec §4.7 steps 1-3), returning the value
// right-aligned in a uint64 and the number of bytes it occupies.
func readAligned(src bitio.ByteSource, bitOffset int64, w int, endian typegraph.Endian) (uint64, int, error) {
	if w < 1 || w > 64 {
		return 0, 0, coerr.New(coerr.ErrInvalidArgument, "binary integer width out of range", nil)
	}
	v, err := bitio.ReadBits(src, bitOffset, w)
	if err != nil {
		return 0, 0, err
	}
	nBytes := (w + 7) / 8
	if w%8 == 0 && bitOffset%8 == 0 {
		// Byte-aligned whole-byte read: the container already holds the
		// raw bytes in stream (big-endian) order; swap if declared
		// little-endian.
		if endian == typegraph.Little {
			v = bitio.SwapBytes(v, nBytes)
		}
	} else {
		// Bit-level read: spec places the bytes at the low end of a
		// zeroed big-endian container when declared big-endian, which
		// bitio.ReadBits already does (right-aligned value is exactly
		// that container read as a big-endian integer). A little-endian
		// declaration still requires a swap of the occupied bytes.
		if endian == typegraph.Little {
			v = bitio.SwapBytes(v, nBytes)
		}
	}
	return v, nBytes, nil
}

// ReadFloat32 reads a 4-byte IEEE-754 float at bitOffset, which may be
// any bit offset (spec §4.7 "Floats are read aligned-or-bit-wise").
func ReadFloat32(src bitio.ByteSource, bitOffset int64, endian typegraph.Endian) (float32, error) {
	v, err := bitio.ReadBits(src, bitOffset, 32)
	if err != nil {
		return 0, err
	}
	if endian == typegraph.Little {
		v = bitio.SwapBytes(v, 4)
	}
	return math.Float32frombits(uint32(v)), nil
}

// ReadFloat64 reads an 8-byte IEEE-754 double at bitOffset.
func ReadFloat64(src bitio.ByteSource, bitOffset int64, endian typegraph.Endian) (float64, error) {
	v, err := bitio.ReadBits(src, bitOffset, 64)
	if err != nil {
		return 0, err
	}
	if endian == typegraph.Little {
		v = bitio.SwapBytes(v, 8)
	}
	return math.Float64frombits(v), nil
}

// ReadString reads a fixed byte count as a string; the declared bit
// size must be byte-aligned (spec §4.7 "Strings have a declared bit
// size rounded to bytes (error if not byte-aligned)"). The caller
// appends any terminating zero; it is never stored here.
//
// Unlike the ASCII cursor's read_string (which rejects any
// non-byte-aligned bit offset as a product error), the binary reader
// tolerates a bit-unaligned offset for byte-multiple widths up to 64
// bits via the bit reader; wider strings still require byte alignment
// because the underlying raw copy only supports that (spec's "Open
// Questions" note: preserve this asymmetry deliberately).
func ReadString(src bitio.ByteSource, bitOffset int64, bitSize int64) (string, error) {
	if bitSize%8 != 0 {
		return "", coerr.New(coerr.ErrProduct, "string bit size is not byte-aligned", nil)
	}
	n := int(bitSize / 8)
	buf := make([]byte, n)
	if err := bitio.ReadBitsInto(src, bitOffset, int(bitSize), buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadRaw reads n raw bytes at bitOffset (must be byte-aligned).
func ReadRaw(src bitio.ByteSource, bitOffset int64, n int) ([]byte, error) {
	if bitOffset%8 != 0 {
		return nil, coerr.New(coerr.ErrInvalidArgument, "raw read is not byte-aligned", nil)
	}
	buf := make([]byte, n)
	if err := src.ReadAt(bitOffset/8, n, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
