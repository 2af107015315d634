package hdf5backend

import (
	"encoding/binary"
	"fmt"

	"github.com/coda-go/coda/internal/typegraph"
)

// DatatypeClass is HDF5's datatype class code (message type 0x0003,
// byte 0 low nibble).
type DatatypeClass uint8

// Datatype classes this backend interprets.
const (
	DTFixed DatatypeClass = iota
	DTFloat
	DTTime
	DTString
	DTBitfield
	DTOpaque
	DTCompound
	DTReference
	DTEnum
	DTVarLen
	DTArray
	DTComplex
)

// Datatype is the parsed form of a version 1/3 datatype message,
// enough to map onto a typegraph.Type leaf.
type Datatype struct {
	Class      DatatypeClass
	Size       uint32 // bytes
	BigEndian  bool
	Signed     bool
	StringPad  uint8 // 0=null-terminate, 1=null-pad, 2=space-pad
}

// ParseDatatype parses a datatype message body (spec-equivalent of the
// teacher's ParseDatatypeMessage), supporting the version-1 and
// version-3 encodings the teacher itself handles.
func ParseDatatype(data []byte) (*Datatype, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("datatype message too short: %d bytes", len(data))
	}
	classAndVersion := data[0]
	class := DatatypeClass(classAndVersion & 0x0F)
	bitField0 := data[1]
	size := binary.LittleEndian.Uint32(data[4:8])

	dt := &Datatype{Class: class, Size: size}
	switch class {
	case DTFixed:
		dt.Signed = bitField0&0x08 != 0
		dt.BigEndian = bitField0&0x01 != 0
	case DTFloat:
		dt.BigEndian = bitField0&0x01 != 0
	case DTString:
		dt.StringPad = bitField0 & 0x0F
	}
	return dt, nil
}

// ToFieldType maps a parsed HDF5 datatype onto a typegraph number/text
// leaf type, the way the rest of this backend's construction walk
// expects (the teacher's own IsFloat64/IsInt32/... predicates fill the
// same role against its own Dataset wrapper).
func (dt *Datatype) ToFieldType(format typegraph.Format) *typegraph.Type {
	endian := typegraph.Little
	if dt.BigEndian {
		endian = typegraph.Big
	}
	switch dt.Class {
	case DTFixed:
		readType := typegraph.NativeInt64
		switch dt.Size {
		case 1:
			readType = typegraph.NativeInt8
		case 2:
			readType = typegraph.NativeInt16
		case 4:
			readType = typegraph.NativeInt32
		}
		if !dt.Signed {
			switch dt.Size {
			case 1:
				readType = typegraph.NativeUint8
			case 2:
				readType = typegraph.NativeUint16
			case 4:
				readType = typegraph.NativeUint32
			default:
				readType = typegraph.NativeUint64
			}
		}
		return &typegraph.Type{
			Format: format, Class: typegraph.ClassInteger,
			BitSize: int64(dt.Size) * 8, ReadType: readType,
			Number: &typegraph.NumberDetail{Endian: endian, DefaultBitSize: -1},
		}
	case DTFloat:
		readType := typegraph.NativeDouble
		if dt.Size == 4 {
			readType = typegraph.NativeFloat
		}
		return &typegraph.Type{
			Format: format, Class: typegraph.ClassReal,
			BitSize: int64(dt.Size) * 8, ReadType: readType,
			Number: &typegraph.NumberDetail{Endian: endian, DefaultBitSize: -1},
		}
	case DTString:
		return &typegraph.Type{
			Format: format, Class: typegraph.ClassText,
			BitSize: int64(dt.Size) * 8, ReadType: typegraph.NativeString,
			Text: &typegraph.TextDetail{},
		}
	default:
		// Compound/reference/enum/varlen/opaque/complex: represented as
		// raw bytes, matching the teacher's own "unsupported, return raw"
		// fallback for types it did not model as first-class.
		return &typegraph.Type{
			Format: format, Class: typegraph.ClassRaw,
			BitSize: int64(dt.Size) * 8, ReadType: typegraph.NativeBytes,
			Raw: &typegraph.RawDetail{},
		}
	}
}
