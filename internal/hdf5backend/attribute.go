package hdf5backend

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Attribute is one parsed attribute message (type 0x000C): a name, its
// datatype/dataspace, and its raw value bytes.
type Attribute struct {
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Raw       []byte
}

// ParseAttribute parses a version 1/3 attribute message body, the way
// the teacher's ParseAttributeMessage does for the compact
// (in-object-header) case. Dense attribute storage (message type
// 0x0015 + a fractal heap of attribute messages, used once an object
// accumulates enough attributes to outgrow its header) is not
// implemented; such objects are treated as attribute-free rather than
// erroring the whole product open.
func ParseAttribute(data []byte) (*Attribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("attribute message too short")
	}
	version := data[0]
	if version != 1 && version != 3 {
		return nil, fmt.Errorf("unsupported attribute message version %d", version)
	}

	var nameSize, dtSize, dsSize uint16
	var off int
	var nameEncoded bool
	switch version {
	case 1:
		nameSize = binary.LittleEndian.Uint16(data[2:4])
		dtSize = binary.LittleEndian.Uint16(data[4:6])
		dsSize = binary.LittleEndian.Uint16(data[6:8])
		off = 8
	case 3:
		nameSize = binary.LittleEndian.Uint16(data[2:4])
		dtSize = binary.LittleEndian.Uint16(data[4:6])
		dsSize = binary.LittleEndian.Uint16(data[6:8])
		nameEncoded = data[8] == 1
		off = 9
	}
	_ = nameEncoded

	if off+int(nameSize) > len(data) {
		return nil, fmt.Errorf("attribute name truncated")
	}
	name := trimNul(data[off : off+int(nameSize)])
	off += int(nameSize)
	if version == 1 {
		off = pad8(off, 8) // align to 8-byte boundary counted from header start
	}

	if off+int(dtSize) > len(data) {
		return nil, fmt.Errorf("attribute datatype truncated")
	}
	dt, err := ParseDatatype(data[off : off+int(dtSize)])
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, err)
	}
	off += int(dtSize)
	if version == 1 {
		off = pad8(off, 8)
	}

	if off+int(dsSize) > len(data) {
		return nil, fmt.Errorf("attribute dataspace truncated")
	}
	ds, err := ParseDataspace(data[off : off+int(dsSize)])
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, err)
	}
	off += int(dsSize)
	if version == 1 {
		off = pad8(off, 8)
	}

	valueLen := int(dt.Size) * int(ds.TotalElements())
	if off+valueLen > len(data) {
		valueLen = len(data) - off
	}
	raw := data[off : off+valueLen]
	return &Attribute{Name: name, Datatype: dt, Dataspace: ds, Raw: raw}, nil
}

func pad8(off, align int) int {
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + (align - rem)
}

func trimNul(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// ReadScalarFloat interprets raw as a single float32/float64 value,
// for the conversion-attribute shortcuts (scale_factor/add_offset
// style attributes on netCDF-over-HDF5 and plain HDF5 products alike).
func (a *Attribute) ReadScalarFloat() (float64, bool) {
	if a.Datatype.Class != DTFloat || len(a.Raw) < int(a.Datatype.Size) {
		return 0, false
	}
	bo := binary.ByteOrder(binary.LittleEndian)
	if a.Datatype.BigEndian {
		bo = binary.BigEndian
	}
	switch a.Datatype.Size {
	case 4:
		return float64(math.Float32frombits(bo.Uint32(a.Raw))), true
	case 8:
		return math.Float64frombits(bo.Uint64(a.Raw)), true
	}
	return 0, false
}

// ReadString interprets raw as a fixed-length padded string.
func (a *Attribute) ReadString() (string, bool) {
	if a.Datatype.Class != DTString {
		return "", false
	}
	return trimNul(a.Raw), true
}
