// Package hdf5backend is CODA's container backend adapter for HDF5
// (spec §6 "container backend protocol"): a trimmed, read-only
// adaptation of the teacher repo's pure-Go HDF5 reader, producing a
// materialized dyntype tree (groups as records, datasets as array/
// number leaves over an inline data window, attributes as each
// node's attributes record) rather than the teacher's own File/Group
// object model.
//
// Grounded on scigolib/hdf5's internal/core package; adapted to
// read-only (no WriteTo/superblock-v4 paths, since CODA has no write
// surface) and limited to object header version 2 (the teacher itself
// never implemented version 1 object headers).
package hdf5backend

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// signature is the 8-byte HDF5 file magic.
const signature = "\x89HDF\r\n\x1a\n"

// Superblock versions the teacher (and this adaptation) support.
const (
	sbVersion0 = 0
	sbVersion2 = 2
	sbVersion3 = 3
)

// Superblock holds the file-level metadata needed to locate the root
// group and interpret subsequent addresses/lengths.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8
	Endianness binary.ByteOrder
	RootGroup  uint64
}

// ReadSuperblock parses the HDF5 superblock (versions 0, 2, 3) from r.
func ReadSuperblock(r io.ReaderAt) (*Superblock, error) {
	buf := make([]byte, 128)
	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("superblock read failed: %w", err)
	}
	if n < 48 {
		return nil, errors.New("file too small to contain a superblock")
	}
	if string(buf[:8]) != signature {
		return nil, errors.New("invalid HDF5 signature")
	}

	version := buf[8]
	if version != sbVersion0 && version != sbVersion2 && version != sbVersion3 {
		return nil, fmt.Errorf("unsupported superblock version: %d", version)
	}

	var endian binary.ByteOrder
	var offsetSize, lengthSize uint8

	if version == sbVersion0 {
		offsetSize = buf[13]
		lengthSize = buf[14]
		endian = binary.LittleEndian
	} else {
		if buf[9]&0x01 == 0 {
			endian = binary.LittleEndian
		} else {
			endian = binary.BigEndian
		}
		sizesByte := buf[10]
		validDirect := map[uint8]bool{1: true, 2: true, 4: true, 8: true}
		if validDirect[sizesByte] {
			offsetSize = sizesByte
			lengthSize = 8
		} else {
			codeToSize := map[uint8]uint8{0: 1, 1: 2, 2: 4, 3: 8}
			var ok bool
			offsetSize, ok = codeToSize[sizesByte&0x0F]
			if !ok {
				return nil, fmt.Errorf("invalid offset size code: %d", sizesByte&0x0F)
			}
			lengthSize, ok = codeToSize[(sizesByte>>4)&0x0F]
			if !ok {
				return nil, fmt.Errorf("invalid length size code: %d", (sizesByte>>4)&0x0F)
			}
		}
	}
	if offsetSize == 0 {
		offsetSize = 8
	}
	if lengthSize == 0 {
		lengthSize = 8
	}

	readValue := func(offset int, size uint8) (uint64, error) {
		if offset < 0 || offset+int(size) > len(buf) {
			return 0, fmt.Errorf("superblock buffer overflow: offset=%d size=%d", offset, size)
		}
		data := buf[offset : offset+int(size)]
		switch size {
		case 1:
			return uint64(data[0]), nil
		case 2:
			return uint64(endian.Uint16(data)), nil
		case 4:
			return uint64(endian.Uint32(data)), nil
		case 8:
			return endian.Uint64(data), nil
		default:
			return 0, fmt.Errorf("unsupported superblock field size: %d", size)
		}
	}

	sb := &Superblock{Version: version, OffsetSize: offsetSize, LengthSize: lengthSize, Endianness: endian}

	if version == sbVersion0 {
		var err error
		sb.RootGroup, err = readValue(64, offsetSize)
		if err != nil {
			return nil, err
		}
		if sb.RootGroup == 0 {
			sb.RootGroup, err = readValue(80, offsetSize)
			if err != nil {
				return nil, err
			}
		}
		return sb, nil
	}

	current := 12 + int(offsetSize) // skip base address
	current += int(offsetSize)      // skip superblock extension address
	current += int(offsetSize)      // skip end-of-file address
	rootGroup, err := readValue(current, offsetSize)
	if err != nil {
		return nil, err
	}
	sb.RootGroup = rootGroup
	return sb, nil
}

func readUint(data []byte, size int, endian binary.ByteOrder) uint64 {
	switch size {
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(endian.Uint16(data))
	case 4:
		return uint64(endian.Uint32(data))
	default:
		return endian.Uint64(data)
	}
}
