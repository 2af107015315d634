// Package memcursor implements CODA's memory cursor backend (spec
// §4.9): direct field/element access over an already-materialized
// dynamic type tree, as produced by the container backends at open
// time for metadata.
package memcursor

import (
	"github.com/coda-go/coda/internal/coerr"
	"github.com/coda-go/coda/internal/dyntype"
	"github.com/coda-go/coda/internal/typegraph"
)

// noDataSentinels holds the process-wide sentinels, one per format, landed on when
// navigating to an absent record field (spec §4.9: "on navigation to
// an absent field, the cursor lands on a process-wide no_data
// sentinel of matching format").
var noDataSentinels = map[typegraph.Format]*dyntype.Node{}

// NoData returns the shared no_data sentinel node for format, building
// it lazily on first use.
func NoData(format typegraph.Format) *dyntype.Node {
	if n, ok := noDataSentinels[format]; ok {
		return n
	}
	def := &typegraph.Type{
		Format:  format,
		Class:   typegraph.ClassSpecial,
		BitSize: -1,
		Special: &typegraph.SpecialDetail{
			Kind: typegraph.SpecialNoData,
			Base: typegraph.NewRecord(format),
		},
	}
	n := dyntype.NewNode(def, dyntype.BackendMemory)
	noDataSentinels[format] = n
	return n
}

// FieldByIndex returns the dynamic node for record field i of n,
// substituting the no_data sentinel if the field is absent.
func FieldByIndex(n *dyntype.Node, i int) (*dyntype.Node, error) {
	if n.Def.Class != typegraph.ClassRecord {
		return nil, coerr.New(coerr.ErrInvalidType, "goto_record_field on a non-record node", nil)
	}
	if i < 0 || i >= len(n.Def.Record.Fields) {
		return nil, coerr.New(coerr.ErrInvalidIndex, "record field index out of range", nil)
	}
	if !n.IsFieldAvailable(i) {
		return NoData(n.Def.Format), nil
	}
	return n.FieldAt(i), nil
}

// FieldByName resolves a field by name and delegates to FieldByIndex.
func FieldByName(n *dyntype.Node, name string) (*dyntype.Node, error) {
	if n.Def.Class != typegraph.ClassRecord {
		return nil, coerr.New(coerr.ErrInvalidType, "goto_record_field on a non-record node", nil)
	}
	i := n.Def.Record.FieldIndex(name)
	if i < 0 {
		return nil, coerr.New(coerr.ErrInvalidName, "no such record field: "+name, nil)
	}
	return FieldByIndex(n, i)
}

// ElementByIndex returns the i'th element of a materialized array,
// which may itself be a heterogeneous dynamic type (spec §4.9: "A
// materialized array may hold heterogeneous elements").
func ElementByIndex(n *dyntype.Node, i int64) (*dyntype.Node, error) {
	if n.Def.Class != typegraph.ClassArray {
		return nil, coerr.New(coerr.ErrInvalidType, "goto_array_element on a non-array node", nil)
	}
	if n.Elements != nil {
		if i < 0 || i >= int64(len(n.Elements)) {
			return nil, coerr.New(coerr.ErrArrayOutOfBounds, "materialized array index out of range", nil)
		}
		if el := n.Elements[i]; el != nil {
			return el, nil
		}
	}
	total := n.NumElements()
	if total >= 0 && (i < 0 || i >= total) {
		return nil, coerr.New(coerr.ErrArrayOutOfBounds, "array index out of range", nil)
	}
	return dyntype.NewNode(n.Def.Array.Base, dyntype.BackendMemory), nil
}

// DataWindow describes the inline byte window of a materialized
// "data" node plus the underlying-backend format it must be read
// through (spec §4.9: "delegates numeric/string reads to the ASCII or
// binary cursor as declared by the data node's format tag").
type DataWindow struct {
	Offset int64
	Length int64
	Format typegraph.Format
}

// Data returns the inline window of a materialized data node, or ok=false
// if n carries no such window.
func Data(n *dyntype.Node) (DataWindow, bool) {
	if !n.HasWindow {
		return DataWindow{}, false
	}
	return DataWindow{Offset: n.DataOffset, Length: n.DataLength, Format: n.Def.Format}, true
}
