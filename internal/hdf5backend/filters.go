package hdf5backend

import (
	"bytes"
	"compress/bzip2"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	lz4 "github.com/pierrec/lz4/v4"
	"github.com/valyala/gozstd"
)

// Filter identifiers (HDF5 registered filter IDs), extended beyond the
// teacher's own DEFLATE/BZIP2/SZIP/Shuffle/Fletcher32 set with the two
// third-party-codec filters wired for this project (spec's DOMAIN
// STACK table): LZ4 (32004) and Zstandard (32015).
const (
	FilterDeflate     = 1
	FilterShuffle     = 2
	FilterFletcher32  = 3
	FilterSZIP        = 4
	FilterNBit        = 5
	FilterScaleOffset = 6
	FilterBZIP2       = 307
	FilterLZ4         = 32004
	FilterZstd        = 32015
)

// Filter is one stage of a dataset's filter pipeline.
type Filter struct {
	ID       uint16
	Flags    uint16
	ClientData []uint32
}

// ParseFilterPipeline parses a version 1/2 filter pipeline message body.
func ParseFilterPipeline(data []byte) ([]Filter, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("filter pipeline message too short")
	}
	version := data[0]
	count := int(data[1])
	var off int
	switch version {
	case 1:
		off = 8
	case 2:
		off = 2
	default:
		return nil, fmt.Errorf("unsupported filter pipeline version %d", version)
	}

	filters := make([]Filter, 0, count)
	for i := 0; i < count && off+2 <= len(data); i++ {
		id := binary.LittleEndian.Uint16(data[off:])
		off += 2
		nameLen := 0
		if version == 1 || id >= 256 {
			if off+2 > len(data) {
				break
			}
			nameLen = int(binary.LittleEndian.Uint16(data[off:]))
			off += 2
		}
		if off+2 > len(data) {
			break
		}
		flags := binary.LittleEndian.Uint16(data[off:])
		off += 2
		if off+2 > len(data) {
			break
		}
		nValues := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if version == 1 {
			pad := (nameLen + 7) / 8 * 8
			off += pad
		} else {
			off += nameLen
		}
		values := make([]uint32, nValues)
		for j := 0; j < nValues && off+4 <= len(data); j++ {
			values[j] = binary.LittleEndian.Uint32(data[off:])
			off += 4
		}
		if version == 1 && nValues%2 != 0 {
			off += 4
		}
		filters = append(filters, Filter{ID: id, Flags: flags, ClientData: values})
	}
	return filters, nil
}

// ApplyFilters runs the pipeline in reverse (decode) order over raw, the
// way the teacher's ApplyFilters does, skipping an optional filter
// (flags bit 0) it cannot decode rather than failing the whole read.
func ApplyFilters(filters []Filter, raw []byte, elemSize int) ([]byte, error) {
	data := raw
	for i := len(filters) - 1; i >= 0; i-- {
		f := filters[i]
		out, err := applyFilter(f, data, elemSize)
		if err != nil {
			if f.Flags&0x01 != 0 {
				continue // optional filter, tolerate failure
			}
			return nil, fmt.Errorf("filter %d failed: %w", f.ID, err)
		}
		data = out
	}
	return data, nil
}

func applyFilter(f Filter, data []byte, elemSize int) ([]byte, error) {
	switch f.ID {
	case FilterDeflate:
		return applyDeflate(data)
	case FilterShuffle:
		return applyShuffle(data, elemSize)
	case FilterFletcher32:
		if len(data) < 4 {
			return data, nil
		}
		return data[:len(data)-4], nil
	case FilterBZIP2:
		r := bzip2.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	case FilterLZ4:
		r := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	case FilterZstd:
		return gozstd.Decompress(nil, data)
	case FilterSZIP:
		return nil, fmt.Errorf("SZIP decoding requires a proprietary library not available to this reader")
	default:
		return nil, fmt.Errorf("unsupported filter id %d", f.ID)
	}
}

func applyDeflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// applyShuffle de-interleaves bytes the shuffle filter rearranged to
// group same-significance bytes together for better downstream
// compression.
func applyShuffle(data []byte, elemSize int) ([]byte, error) {
	if elemSize <= 1 || len(data)%elemSize != 0 {
		return data, nil
	}
	n := len(data) / elemSize
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for b := 0; b < elemSize; b++ {
			out[i*elemSize+b] = data[b*n+i]
		}
	}
	return out, nil
}
