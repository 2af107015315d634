package hdf5backend

import (
	"encoding/binary"
	"fmt"
)

// DataspaceType distinguishes scalar, simple (N-D array) and null
// dataspaces (message type 0x0001).
type DataspaceType uint8

// Dataspace type constants.
const (
	DSScalar DataspaceType = iota
	DSSimple
	DSNull
)

// Dataspace is the parsed shape of a dataset.
type Dataspace struct {
	Type DataspaceType
	Dims []uint64
}

// ParseDataspace parses a dataspace message body, supporting versions
// 1 and 2 the way the teacher's ParseDataspaceMessage does, with
// automatic 4-byte/8-byte dimension sizing based on message length.
func ParseDataspace(data []byte) (*Dataspace, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("dataspace message too short: %d bytes", len(data))
	}
	version := data[0]
	rank := int(data[1])
	flags := data[2]

	var headerLen int
	var dsType DataspaceType
	switch version {
	case 1:
		headerLen = 8
		dsType = DSSimple
		if rank == 0 {
			dsType = DSScalar
		}
	case 2:
		headerLen = 4
		switch data[3] {
		case 0:
			dsType = DSScalar
		case 1:
			dsType = DSSimple
		case 2:
			dsType = DSNull
		}
	default:
		return nil, fmt.Errorf("unsupported dataspace message version %d", version)
	}

	ds := &Dataspace{Type: dsType}
	if dsType != DSSimple || rank == 0 {
		return ds, nil
	}

	remaining := len(data) - headerLen
	hasMax := flags&0x01 != 0
	denom := 1
	if hasMax {
		denom = 2
	}
	dimSize := remaining / (rank * denom)
	if dimSize != 4 && dimSize != 8 {
		dimSize = 8
	}

	ds.Dims = make([]uint64, rank)
	off := headerLen
	for i := 0; i < rank; i++ {
		if off+dimSize > len(data) {
			break
		}
		if dimSize == 4 {
			ds.Dims[i] = uint64(binary.LittleEndian.Uint32(data[off : off+4]))
		} else {
			ds.Dims[i] = binary.LittleEndian.Uint64(data[off : off+8])
		}
		off += dimSize
	}
	return ds, nil
}

// TotalElements returns the product of all declared dimensions (1 for
// a scalar dataspace).
func (ds *Dataspace) TotalElements() int64 {
	if ds.Type == DSScalar {
		return 1
	}
	total := int64(1)
	for _, d := range ds.Dims {
		total *= int64(d)
	}
	return total
}
