package hdf5backend

import (
	"encoding/binary"
	"fmt"
)

// DataLayoutClass selects how a dataset's raw bytes are stored.
type DataLayoutClass uint8

// Data layout classes.
const (
	LayoutCompact DataLayoutClass = iota
	LayoutContiguous
	LayoutChunked
	LayoutVirtual
)

// DataLayout is the parsed form of a version 3/4 data layout message.
type DataLayout struct {
	Class       DataLayoutClass
	CompactData []byte
	Offset      uint64
	Size        uint64
	ChunkDims   []uint32
	BTreeAddr   uint64
}

// ParseDataLayout parses a data layout message, supporting only
// versions 3 and 4 (the teacher's own ParseDataLayoutMessage has the
// same restriction; version 1/2 layout messages predate the
// superblock versions this backend supports anyway).
func ParseDataLayout(data []byte, offsetSize uint8) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("data layout message too short")
	}
	version := data[0]
	if version != 3 && version != 4 {
		return nil, fmt.Errorf("unsupported data layout message version %d", version)
	}
	class := DataLayoutClass(data[1])
	off := 2

	dl := &DataLayout{Class: class}
	switch class {
	case LayoutCompact:
		if off+2 > len(data) {
			return nil, fmt.Errorf("compact layout truncated")
		}
		size := binary.LittleEndian.Uint16(data[off:])
		off += 2
		if off+int(size) > len(data) {
			return nil, fmt.Errorf("compact layout data truncated")
		}
		dl.CompactData = data[off : off+int(size)]
	case LayoutContiguous:
		n := int(offsetSize)
		if off+2*n > len(data) {
			return nil, fmt.Errorf("contiguous layout truncated")
		}
		dl.Offset = readUint(data[off:off+n], n, binary.LittleEndian)
		off += n
		dl.Size = readUint(data[off:off+n], n, binary.LittleEndian)
	case LayoutChunked:
		// Version 4 chunked indexing has several index-type variants
		// (single chunk, implicit, fixed array, extensible array,
		// B-tree v2); this backend parses only the version 3 B-tree v1
		// address and chunk dimensions and leaves them unset for
		// version 4. Reading any chunked dataset then fails, and the
		// builder returns that error, which fails the product open.
		if version == 3 {
			dimCount := int(data[off])
			off++
			n := int(offsetSize)
			if off+n > len(data) {
				return nil, fmt.Errorf("chunked layout truncated")
			}
			dl.BTreeAddr = readUint(data[off:off+n], n, binary.LittleEndian)
			off += n
			dl.ChunkDims = make([]uint32, dimCount)
			for i := 0; i < dimCount && off+4 <= len(data); i++ {
				dl.ChunkDims[i] = binary.LittleEndian.Uint32(data[off:])
				off += 4
			}
		}
	case LayoutVirtual:
		// Virtual datasets (mapped from other datasets/files) are out of
		// scope: no component in this tree composes multiple products
		// into one dataset's address space.
	}
	return dl, nil
}
