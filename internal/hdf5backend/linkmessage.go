package hdf5backend

import (
	"encoding/binary"
	"fmt"
)

// LinkType distinguishes hard, soft and external links (message type
// 0x0012 flags byte low bits).
type LinkType uint8

// Link type constants.
const (
	LinkHard LinkType = iota
	LinkSoft
	LinkExternal = 64
)

// Link is one parsed group-membership entry. This backend only
// resolves hard links into the same file; soft/external links are
// recorded with their raw target but not dereferenced, since doing so
// would require opening a second product mid-traversal.
type Link struct {
	Name    string
	Type    LinkType
	Address uint64 // valid when Type == LinkHard
	Target  string // valid when Type == LinkSoft or LinkExternal
}

// ParseLinkMessage parses one compact link message body (message type
// 0x0012). Dense, fractal-heap-indexed group storage (the alternative
// to per-child compact link messages, used once a group holds enough
// children) is not implemented: such groups surface as present but
// empty, which callers can detect by comparing the link-info message's
// declared count against GotoFirstRecordField returning no fields.
func ParseLinkMessage(data []byte) (*Link, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("link message too short")
	}
	version := data[0]
	if version != 1 {
		return nil, fmt.Errorf("unsupported link message version %d", version)
	}
	flags := data[1]
	off := 2

	hasLinkType := flags&0x08 != 0
	linkType := LinkHard
	if hasLinkType {
		linkType = LinkType(data[off])
		off++
	}
	if flags&0x04 != 0 { // creation order present
		off += 8
	}
	if flags&0x10 != 0 { // charset present
		off++
	}

	nameLenSize := 1 << (flags & 0x03)
	if off+nameLenSize > len(data) {
		return nil, fmt.Errorf("link message name length truncated")
	}
	var nameLen uint64
	switch nameLenSize {
	case 1:
		nameLen = uint64(data[off])
	case 2:
		nameLen = uint64(binary.LittleEndian.Uint16(data[off:]))
	case 4:
		nameLen = uint64(binary.LittleEndian.Uint32(data[off:]))
	case 8:
		nameLen = binary.LittleEndian.Uint64(data[off:])
	}
	off += nameLenSize
	if off+int(nameLen) > len(data) {
		return nil, fmt.Errorf("link message name truncated")
	}
	name := string(data[off : off+int(nameLen)])
	off += int(nameLen)

	link := &Link{Name: name, Type: linkType}
	switch linkType {
	case LinkHard:
		if off+8 > len(data) {
			return nil, fmt.Errorf("hard link address truncated")
		}
		link.Address = binary.LittleEndian.Uint64(data[off:])
	case LinkSoft:
		if off+2 > len(data) {
			return nil, fmt.Errorf("soft link truncated")
		}
		l := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+l <= len(data) {
			link.Target = string(data[off : off+l])
		}
	case LinkExternal:
		if off+2 > len(data) {
			return nil, fmt.Errorf("external link truncated")
		}
		l := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+l <= len(data) {
			link.Target = string(data[off : off+l])
		}
	}
	return link, nil
}
