// Package dyntype implements CODA's dynamic type layer (spec §4.4):
// per-product instantiations of a static type graph, carrying runtime
// state the definition itself lacks (sparse record field
// availability, an array's actual element count, an instantiated
// special-type base, or an inline byte window for an embedded data
// block).
package dyntype

import "github.com/coda-go/coda/internal/typegraph"

// Backend tags which concrete cursor backend a dynamic node is read
// through (spec §9 "Design Notes": dispatch via a backend tag on each
// frame, matching the teacher's per-message type tag).
type Backend uint8

// Backend constants.
const (
	BackendBinary Backend = iota
	BackendASCII
	BackendMemory
	BackendHDF4
	BackendHDF5
	BackendNetCDF
)

// Node is a dynamic type node: a static Type plus whatever per-
// product state applies to its class.
type Node struct {
	Def     *typegraph.Type
	Backend Backend

	// Record: per-instance field availability. nil means "all fields
	// available" (the common case for non-union records).
	FieldAvailable []bool

	// Array: actual element count, overriding an unfixed dimension.
	// nil means the static dimensions are authoritative.
	ActualDims []int64

	// Elements: for a materialized (memory-backend) array, each
	// element may be a distinct dynamic node (heterogeneous arrays,
	// spec §4.9).
	Elements []*Node

	// Fields: for a materialized record, the per-field dynamic nodes
	// (parallel to Def.Record.Fields; nil entries mark absent fields).
	Fields []*Node

	// SpecialBase: the instantiated base node of a special type, when
	// it differs from a fresh instantiation of Def.Special.Base.
	SpecialBase *Node

	// DataOffset/DataLength: the inline byte window of a materialized
	// "data" node (ASCII/binary block embedded inside a container
	// format), relative to the product's byte source.
	DataOffset int64
	DataLength int64
	HasWindow  bool

	// BitOffset is the node's position in the product, in bits from
	// product origin, or -1 when not applicable (e.g. container
	// backend nodes addressed by handle rather than offset).
	BitOffset int64
}

// NewNode instantiates a fresh dynamic node for def on the given backend.
func NewNode(def *typegraph.Type, backend Backend) *Node {
	return &Node{Def: def, Backend: backend, BitOffset: -1}
}

// NumElements returns the node's element count: ActualDims product if
// set, otherwise the product of the static dimensions (the caller is
// responsible for resolving any dimension expressions beforehand).
func (n *Node) NumElements() int64 {
	if n.Def.Class != typegraph.ClassArray {
		return 0
	}
	dims := n.ActualDims
	if dims == nil {
		dims = make([]int64, len(n.Def.Array.Dims))
		for i, d := range n.Def.Array.Dims {
			dims[i] = d.Fixed
		}
	}
	total := int64(1)
	for _, d := range dims {
		if d < 0 {
			return -1 // not yet resolvable without a cursor
		}
		total *= d
	}
	return total
}

// FieldAt returns the i'th field's dynamic node, materializing a
// fresh one from the definition if the record hasn't been fully
// materialized (binary/ASCII-backed records compute fields lazily).
func (n *Node) FieldAt(i int) *Node {
	if n.Fields != nil && i < len(n.Fields) && n.Fields[i] != nil {
		return n.Fields[i]
	}
	return NewNode(n.Def.Record.Fields[i].Type, n.Backend)
}

// IsFieldAvailable reports whether field i is present on this instance.
func (n *Node) IsFieldAvailable(i int) bool {
	if n.FieldAvailable == nil {
		return true
	}
	if i < 0 || i >= len(n.FieldAvailable) {
		return false
	}
	return n.FieldAvailable[i]
}

// SetFieldAvailable marks field i present/absent, allocating the
// sparse-availability slice on first use.
func (n *Node) SetFieldAvailable(i int, available bool) {
	if n.FieldAvailable == nil {
		n.FieldAvailable = make([]bool, len(n.Def.Record.Fields))
		for j := range n.FieldAvailable {
			n.FieldAvailable[j] = true
		}
	}
	n.FieldAvailable[i] = available
}
