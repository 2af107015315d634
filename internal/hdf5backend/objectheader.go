package hdf5backend

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Object header message type codes (HDF5 spec III.D), limited to the
// subset this backend interprets.
const (
	msgNil          = 0x0000
	msgDataspace    = 0x0001
	msgLinkInfo     = 0x0002
	msgDatatype     = 0x0003
	msgFillValueOld = 0x0004
	msgDataLayout   = 0x0005
	msgFilterPipe   = 0x000B
	msgName         = 0x000A
	msgAttribute    = 0x000C
	msgSymbolTable  = 0x0011
	msgLinkMessage  = 0x0012
)

// HeaderMessage is one raw message inside an object header.
type HeaderMessage struct {
	Type  uint16
	Flags uint8
	Data  []byte
}

// ObjectType distinguishes groups from datasets once enough of the
// header has been read to tell.
type ObjectType uint8

// Object type constants.
const (
	ObjectUnknown ObjectType = iota
	ObjectGroup
	ObjectDataset
)

// ObjectHeader is the parsed set of messages attached to one address,
// plus its derived type.
type ObjectHeader struct {
	Messages []HeaderMessage
	Type     ObjectType
}

const v2Signature = "OHDR"

// ReadObjectHeader reads and parses the version-2 object header at
// addr. Version-1 object headers are not supported, matching the
// teacher's own limitation (internal/core/objectheader.go never
// implemented the version-1 prefix format either).
func ReadObjectHeader(r io.ReaderAt, addr uint64, sb *Superblock) (*ObjectHeader, error) {
	head := make([]byte, 16)
	if _, err := r.ReadAt(head, int64(addr)); err != nil {
		return nil, fmt.Errorf("object header read at 0x%x failed: %w", addr, err)
	}
	if string(head[:4]) != v2Signature {
		return nil, fmt.Errorf("unsupported object header: missing OHDR signature at 0x%x (only version 2 headers are supported)", addr)
	}
	version := head[4]
	if version != 2 {
		return nil, fmt.Errorf("unsupported object header version %d at 0x%x", version, addr)
	}
	flags := head[5]
	pos := int64(addr) + 6

	if flags&0x20 != 0 { // times present
		pos += 16
	}
	if flags&0x10 != 0 { // max compact/min dense attr phase change present
		pos += 4
	}

	sizeOfChunk0Bytes := 1 << (flags & 0x03)
	sizeBuf := make([]byte, 8)
	if _, err := r.ReadAt(sizeBuf[:sizeOfChunk0Bytes], pos); err != nil {
		return nil, fmt.Errorf("object header chunk0 size read failed: %w", err)
	}
	var chunk0Size uint64
	switch sizeOfChunk0Bytes {
	case 1:
		chunk0Size = uint64(sizeBuf[0])
	case 2:
		chunk0Size = uint64(sb.Endianness.Uint16(sizeBuf[:2]))
	case 4:
		chunk0Size = uint64(sb.Endianness.Uint32(sizeBuf[:4]))
	case 8:
		chunk0Size = sb.Endianness.Uint64(sizeBuf[:8])
	}
	pos += int64(sizeOfChunk0Bytes)

	creationOrderTracked := flags&0x04 != 0

	oh := &ObjectHeader{}
	data := make([]byte, chunk0Size)
	if _, err := r.ReadAt(data, pos); err != nil {
		return nil, fmt.Errorf("object header chunk0 read failed: %w", err)
	}

	off := 0
	for off+4 <= len(data) {
		mtype := data[off]
		msize := binary.LittleEndian.Uint16(data[off+1 : off+3])
		mflags := data[off+3]
		hdrLen := 4
		if creationOrderTracked {
			hdrLen += 2
		}
		start := off + hdrLen
		end := start + int(msize)
		if end > len(data) {
			break
		}
		if mtype != msgNil {
			oh.Messages = append(oh.Messages, HeaderMessage{Type: uint16(mtype), Flags: mflags, Data: data[start:end]})
		}
		off = end
	}

	oh.Type = determineObjectType(oh)
	return oh, nil
}

func determineObjectType(oh *ObjectHeader) ObjectType {
	for _, m := range oh.Messages {
		switch m.Type {
		case msgSymbolTable, msgLinkInfo, msgLinkMessage:
			return ObjectGroup
		case msgDataLayout, msgDataspace:
			// dataspace alone is ambiguous (scalar attributes groups also
			// carry it indirectly through attribute messages), so only
			// commit to Dataset once a data layout message appears.
		}
	}
	for _, m := range oh.Messages {
		if m.Type == msgDataLayout {
			return ObjectDataset
		}
	}
	return ObjectGroup
}

// Find returns the first message of the given type, or nil.
func (oh *ObjectHeader) Find(msgType uint16) *HeaderMessage {
	for i := range oh.Messages {
		if oh.Messages[i].Type == msgType {
			return &oh.Messages[i]
		}
	}
	return nil
}

// FindAll returns every message of the given type, in header order.
func (oh *ObjectHeader) FindAll(msgType uint16) []HeaderMessage {
	var out []HeaderMessage
	for _, m := range oh.Messages {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}
