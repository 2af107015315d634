package coda

import (
	"strconv"
	"strings"

	"github.com/coda-go/coda/internal/asciicursor"
	"github.com/coda-go/coda/internal/bincursor"
	"github.com/coda-go/coda/internal/bitio"
	"github.com/coda-go/coda/internal/dyntype"
	"github.com/coda-go/coda/internal/expr"
	"github.com/coda-go/coda/internal/memcursor"
	"github.com/coda-go/coda/internal/transpose"
	"github.com/coda-go/coda/internal/typegraph"
)

// maxCursorDepth bounds the navigation stack (spec §9 "Design Notes":
// "The stack depth is bounded (≤ 32 is ample for all known product
// definitions)").
const maxCursorDepth = 32

// frame is one level of the cursor's navigation stack.
type frame struct {
	node *dyntype.Node

	// bitOffset/boundaryBits address a stream-backend (ASCII/binary)
	// position; both are -1 for a materialized (memory-like) position,
	// which is addressed purely by the node graph.
	bitOffset    int64
	boundaryBits int64

	// index is this node's position within its parent: a record field
	// index, a flat array element index, or -1 for root/attributes.
	index int
}

// Cursor is CODA's uniform random-access cursor (spec §4.10): a
// bounded navigation stack over a product's dynamic type tree,
// dispatching reads to the ASCII, binary, or materialized-memory
// backend according to each frame's node.
type Cursor struct {
	product *Product
	stack   []frame
}

func isStreamBackend(b dyntype.Backend) bool {
	return b == dyntype.BackendASCII || b == dyntype.BackendBinary
}

func (c *Cursor) top() *frame { return &c.stack[len(c.stack)-1] }

func (c *Cursor) push(node *dyntype.Node, bitOffset, boundaryBits int64, index int) error {
	if len(c.stack) >= maxCursorDepth {
		return NewError(ErrInvalidArgument, "cursor navigation stack depth exceeded", nil)
	}
	c.stack = append(c.stack, frame{node: node, bitOffset: bitOffset, boundaryBits: boundaryBits, index: index})
	return nil
}

func (c *Cursor) setTop(node *dyntype.Node, bitOffset, boundaryBits int64, index int) {
	c.stack[len(c.stack)-1] = frame{node: node, bitOffset: bitOffset, boundaryBits: boundaryBits, index: index}
}

// childWith returns a new cursor one level deeper than c, with the
// given node/position pushed. Used for scratch size computations that
// must not mutate c itself.
func (c *Cursor) childWith(node *dyntype.Node, bitOffset, boundaryBits int64, index int) *Cursor {
	stack := make([]frame, len(c.stack), len(c.stack)+1)
	copy(stack, c.stack)
	stack = append(stack, frame{node: node, bitOffset: bitOffset, boundaryBits: boundaryBits, index: index})
	return &Cursor{product: c.product, stack: stack}
}

// withTopReplaced returns a new cursor at the same depth as c, with
// the top frame's node swapped for node (same position, not a descent).
func (c *Cursor) withTopReplaced(node *dyntype.Node) *Cursor {
	fr := c.top()
	stack := make([]frame, len(c.stack))
	copy(stack, c.stack)
	stack[len(stack)-1] = frame{node: node, bitOffset: fr.bitOffset, boundaryBits: fr.boundaryBits, index: fr.index}
	return &Cursor{product: c.product, stack: stack}
}

// Clone returns an independent copy of the cursor at the same position.
func (c *Cursor) Clone() expr.Cursor { return c.cloneConcrete() }

// cloneConcrete is Clone's underlying implementation, returning the
// concrete type for callers (the product-check cursor adapter) that
// need it rather than the expr.Cursor interface view.
func (c *Cursor) cloneConcrete() *Cursor {
	cp := &Cursor{product: c.product, stack: make([]frame, len(c.stack))}
	copy(cp.stack, c.stack)
	return cp
}

// GotoRoot repositions the cursor at the product root.
func (c *Cursor) GotoRoot() error {
	c.stack = c.stack[:1]
	return nil
}

// GotoParent moves up one stack level.
func (c *Cursor) GotoParent() error {
	if len(c.stack) <= 1 {
		return NewError(ErrNoParent, "cursor has no parent", nil)
	}
	c.stack = c.stack[:len(c.stack)-1]
	return nil
}

func (c *Cursor) pathString() string {
	var sb strings.Builder
	for _, fr := range c.stack[1:] {
		if fr.index < 0 {
			sb.WriteString("/attributes")
			continue
		}
		sb.WriteString("[")
		sb.WriteString(strconv.Itoa(fr.index))
		sb.WriteString("]")
	}
	return sb.String()
}

// -- record navigation -------------------------------------------------

func (c *Cursor) fieldAvailable(i int) (bool, error) {
	fr := c.top()
	node := fr.node
	if node.FieldAvailable != nil {
		return node.IsFieldAvailable(i), nil
	}
	fd := node.Def.Record.Fields[i]
	if fd.AvailableExpr == nil {
		return true, nil
	}
	avail, err := expr.EvaluateBoolean(fd.AvailableExpr, c)
	if err != nil {
		return false, err
	}
	node.SetFieldAvailable(i, avail)
	return avail, nil
}

// advanceFieldsOffset walks fields [0,upTo) of the current record
// frame, skipping unavailable ones, and returns the bit offset and
// remaining boundary immediately after them.
//
// A field with HasAbsoluteOffset (netCDF classic's "begin" offsets:
// variables are not laid out contiguously) supplies its own position
// rather than continuing the running sum; the sum resumes from that
// field's end for whatever follows it.
func (c *Cursor) advanceFieldsOffset(upTo int) (int64, int64, error) {
	fr := c.top()
	off := fr.bitOffset
	remain := fr.boundaryBits
	for i := 0; i < upTo; i++ {
		avail, err := c.fieldAvailable(i)
		if err != nil {
			return 0, 0, err
		}
		if !avail {
			continue
		}
		fd := fr.node.Def.Record.Fields[i]
		fieldOff := off
		if fd.HasAbsoluteOffset {
			fieldOff = fd.AbsoluteBitOffset
		}
		child := c.childWith(fr.node.FieldAt(i), fieldOff, remain, i)
		sz, err := bitSizeOf(child, c)
		if err != nil {
			return 0, 0, err
		}
		off = fieldOff + sz
		if remain >= 0 {
			remain -= sz
		}
	}
	return off, remain, nil
}

func (c *Cursor) gotoRecordField(i int) error {
	fr := c.top()
	if fr.node.Def.Class != typegraph.ClassRecord {
		return NewError(ErrInvalidType, "goto_record_field on a non-record cursor position", nil).WithPath(c.pathString())
	}
	if i < 0 || i >= len(fr.node.Def.Record.Fields) {
		return NewError(ErrInvalidIndex, "record field index out of range", nil).WithPath(c.pathString())
	}

	if !isStreamBackend(fr.node.Backend) {
		child, err := memcursor.FieldByIndex(fr.node, i)
		if err != nil {
			return err
		}
		return c.push(child, -1, -1, i)
	}

	off, remain, err := c.advanceFieldsOffset(i)
	if err != nil {
		return err
	}
	avail, err := c.fieldAvailable(i)
	if err != nil {
		return err
	}
	var node *dyntype.Node
	if avail {
		node = fr.node.FieldAt(i)
	} else {
		node = memcursor.NoData(fr.node.Def.Format)
	}
	return c.push(node, off, remain, i)
}

// GotoRecordFieldByIndex descends into record field i.
func (c *Cursor) GotoRecordFieldByIndex(i int) error { return c.gotoRecordField(i) }

// GotoRecordFieldByName resolves name against the current record and descends.
func (c *Cursor) GotoRecordFieldByName(name string) error {
	fr := c.top()
	if fr.node.Def.Class != typegraph.ClassRecord {
		return NewError(ErrInvalidType, "goto_record_field on a non-record cursor position", nil).WithPath(c.pathString())
	}
	i := fr.node.Def.Record.FieldIndex(name)
	if i < 0 {
		return NewError(ErrInvalidName, "no such record field: "+name, nil).WithPath(c.pathString())
	}
	return c.gotoRecordField(i)
}

// GotoField implements expr.Cursor's plain-identifier navigation by name.
func (c *Cursor) GotoField(name string) error { return c.GotoRecordFieldByName(name) }

// GotoFirstRecordField descends into field 0.
func (c *Cursor) GotoFirstRecordField() error {
	fr := c.top()
	if fr.node.Def.Class != typegraph.ClassRecord || len(fr.node.Def.Record.Fields) == 0 {
		return NewError(ErrInvalidIndex, "record has no fields", nil).WithPath(c.pathString())
	}
	return c.gotoRecordField(0)
}

// GotoNextRecordField advances from the current field to the next sibling.
func (c *Cursor) GotoNextRecordField() error {
	if len(c.stack) < 2 {
		return NewError(ErrNoParent, "cursor has no parent record", nil)
	}
	idx := c.top().index
	if err := c.GotoParent(); err != nil {
		return err
	}
	fr := c.top()
	if idx+1 >= len(fr.node.Def.Record.Fields) {
		// Past the last field: re-descend so the cursor stays on the
		// last valid field, then fail with invalid_index.
		if err := c.gotoRecordField(idx); err != nil {
			return err
		}
		return NewError(ErrInvalidIndex, "no more record fields", nil).WithPath(c.pathString())
	}
	return c.gotoRecordField(idx + 1)
}

// GotoAvailableUnionField resolves the first union field whose
// availability expression is true (spec §4.10): "If none or multiple
// resolve, fail with product."
func (c *Cursor) GotoAvailableUnionField() error {
	fr := c.top()
	if fr.node.Def.Class != typegraph.ClassRecord || !fr.node.Def.Record.Union {
		return NewError(ErrInvalidType, "goto_available_union_field on a non-union record", nil).WithPath(c.pathString())
	}
	found := -1
	for i := range fr.node.Def.Record.Fields {
		avail, err := c.fieldAvailable(i)
		if err != nil {
			return err
		}
		if avail {
			if found >= 0 {
				return NewError(ErrProduct, "multiple union fields resolved as available", nil).WithPath(c.pathString())
			}
			found = i
		}
	}
	if found < 0 {
		return NewError(ErrProduct, "no union field resolved as available", nil).WithPath(c.pathString())
	}
	return c.gotoRecordField(found)
}

// -- array navigation ----------------------------------------------------

func (c *Cursor) resolveDims() ([]int64, error) {
	fr := c.top()
	if fr.node.Def.Class != typegraph.ClassArray {
		return nil, NewError(ErrInvalidType, "not an array", nil).WithPath(c.pathString())
	}
	if fr.node.ActualDims != nil {
		return fr.node.ActualDims, nil
	}
	dims := make([]int64, len(fr.node.Def.Array.Dims))
	for i, d := range fr.node.Def.Array.Dims {
		if d.Fixed >= 0 {
			dims[i] = d.Fixed
			continue
		}
		v, err := expr.EvaluateInteger(d.Expr, c)
		if err != nil {
			return nil, err
		}
		dims[i] = v
	}
	return dims, nil
}

func flatIndex(dims, subs []int64) (int64, error) {
	if len(subs) != len(dims) {
		return 0, NewError(ErrArrayNumDimsMismatch, "number of subscripts does not match array rank", nil)
	}
	var idx int64
	for i, s := range subs {
		if s < 0 || s >= dims[i] {
			return 0, NewError(ErrArrayOutOfBounds, "array subscript out of bounds", nil)
		}
		idx = idx*dims[i] + s
	}
	return idx, nil
}

func (c *Cursor) advanceArrayOffset(dims []int64, upTo int64) (int64, int64, error) {
	fr := c.top()
	base := fr.node.Def.Array.Base
	if base.BitSize >= 0 {
		return fr.bitOffset + upTo*base.BitSize, subBoundary(fr.boundaryBits, upTo*base.BitSize), nil
	}
	off := fr.bitOffset
	remain := fr.boundaryBits
	for i := int64(0); i < upTo; i++ {
		child := c.childWith(dyntype.NewNode(base, fr.node.Backend), off, remain, int(i))
		sz, err := bitSizeOf(child, c)
		if err != nil {
			return 0, 0, err
		}
		off += sz
		if remain >= 0 {
			remain -= sz
		}
	}
	return off, remain, nil
}

func subBoundary(remain, consumed int64) int64 {
	if remain < 0 {
		return -1
	}
	return remain - consumed
}

func (c *Cursor) gotoArrayIndex(flat int64, dims []int64) error {
	fr := c.top()
	if !isStreamBackend(fr.node.Backend) {
		child, err := memcursor.ElementByIndex(fr.node, flat)
		if err != nil {
			return err
		}
		return c.push(child, -1, -1, int(flat))
	}
	off, remain, err := c.advanceArrayOffset(dims, flat)
	if err != nil {
		return err
	}
	base := fr.node.Def.Array.Base
	return c.push(dyntype.NewNode(base, fr.node.Backend), off, remain, int(flat))
}

// GotoArrayElementByIndex descends into the flat index'th element,
// validating the bound when boundary checks are enabled.
func (c *Cursor) GotoArrayElementByIndex(flat int64) error {
	dims, err := c.resolveDims()
	if err != nil {
		return err
	}
	if PerformBoundaryChecks() {
		total := int64(1)
		for _, d := range dims {
			total *= d
		}
		if flat < 0 || flat >= total {
			return NewError(ErrArrayOutOfBounds, "array element index out of range", nil).WithPath(c.pathString())
		}
	}
	return c.gotoArrayIndex(flat, dims)
}

// GotoArrayElement descends via a per-dimension subscript list
// (spec's goto_array_element(subs…)): "requires subs.len() == rank
// and each in range."
func (c *Cursor) GotoArrayElement(subs []int64) error {
	dims, err := c.resolveDims()
	if err != nil {
		return err
	}
	flat, err := flatIndex(dims, subs)
	if err != nil {
		return err
	}
	return c.gotoArrayIndex(flat, dims)
}

// GotoFirstArrayElement descends into element 0.
func (c *Cursor) GotoFirstArrayElement() error {
	return c.GotoArrayElementByIndex(0)
}

// GotoNextArrayElement advances to the element after the current one.
func (c *Cursor) GotoNextArrayElement() error {
	if len(c.stack) < 2 {
		return NewError(ErrNoParent, "cursor has no parent array", nil)
	}
	idx := c.top().index
	if err := c.GotoParent(); err != nil {
		return err
	}
	if err := c.GotoArrayElementByIndex(int64(idx) + 1); err != nil {
		_ = c.gotoArrayIndex(int64(idx), nil)
		return err
	}
	return nil
}

// -- attributes / special -------------------------------------------------

// GotoAttributes pushes a frame over the current node's attributes
// record, using index -1 (spec §4.10).
func (c *Cursor) GotoAttributes() error {
	fr := c.top()
	attrs := fr.node.Def.Attributes
	if attrs == nil {
		attrs = typegraph.NewRecord(fr.node.Def.Format)
	}
	node := dyntype.NewNode(attrs, fr.node.Backend)
	return c.push(node, fr.bitOffset, fr.boundaryBits, -1)
}

// UseBaseTypeOfSpecialType replaces the top frame's type with the
// special's base type in place, without navigating to a new position.
func (c *Cursor) UseBaseTypeOfSpecialType() error {
	fr := c.top()
	if fr.node.Def.Class != typegraph.ClassSpecial {
		return NewError(ErrInvalidType, "use_base_type_of_special_type on a non-special node", nil).WithPath(c.pathString())
	}
	base := fr.node.Def.Special.Base
	node := fr.node.SpecialBase
	if node == nil {
		node = dyntype.NewNode(base, fr.node.Backend)
	}
	c.setTop(node, fr.bitOffset, fr.boundaryBits, fr.index)
	return nil
}

// -- size / shape queries --------------------------------------------------

// bitSizeOf resolves the bit size of the type positioned at nodeCur's
// top frame. exprCtx is the cursor used to evaluate any size_expr or
// dimension expression attached directly to that type: per CODA's
// convention a field's own expression is evaluated from its
// *enclosing record's* position (so bare identifiers resolve to
// siblings), so callers pass the parent cursor, not nodeCur itself.
func bitSizeOf(nodeCur *Cursor, exprCtx *Cursor) (int64, error) {
	fr := nodeCur.top()
	t := fr.node.Def

	if t.BitSize >= 0 {
		return t.BitSize, nil
	}

	switch t.Class {
	case typegraph.ClassRecord:
		off, _, err := nodeCur.advanceFieldsOffset(len(t.Record.Fields))
		if err != nil {
			return 0, err
		}
		return off - fr.bitOffset, nil

	case typegraph.ClassArray:
		dims, err := nodeCur.resolveDims()
		if err != nil {
			return 0, err
		}
		total := int64(1)
		for _, d := range dims {
			total *= d
		}
		off, _, err := nodeCur.advanceArrayOffset(dims, total)
		if err != nil {
			return 0, err
		}
		return off - fr.bitOffset, nil

	case typegraph.ClassSpecial:
		base := fr.node.SpecialBase
		if base == nil {
			base = dyntype.NewNode(t.Special.Base, fr.node.Backend)
		}
		return bitSizeOf(nodeCur.withTopReplaced(base), exprCtx)

	default:
		return leafBitSize(fr, exprCtx)
	}
}

func leafBitSize(fr *frame, exprCtx *Cursor) (int64, error) {
	t := fr.node.Def
	switch fr.node.Backend {
	case dyntype.BackendASCII:
		w := exprCtx.product.ascii
		return asciicursor.BitSize(w, t, fr.bitOffset/8, fr.boundaryBits, exprCtx)
	case dyntype.BackendBinary:
		if t.SizeExpr != nil {
			v, err := expr.EvaluateInteger(t.SizeExpr, exprCtx)
			if err != nil {
				return 0, err
			}
			if t.BitSize == -8 {
				v *= 8
			}
			if v < 0 {
				return 0, NewError(ErrProduct, "size expression evaluated to a negative size", nil)
			}
			return v, nil
		}
		return 0, NewError(ErrDataDefinition, "binary type has no declared or computed bit size", nil)
	default:
		if fr.node.HasWindow {
			return fr.node.DataLength * 8, nil
		}
		return 0, nil
	}
}

// GetBitSize resolves the current node's bit size.
func (c *Cursor) GetBitSize() (int64, error) {
	ctx := &Cursor{product: c.product, stack: c.stack}
	if len(c.stack) > 1 {
		ctx = &Cursor{product: c.product, stack: c.stack[:len(c.stack)-1]}
	}
	return bitSizeOf(c, ctx)
}

// BitSize aliases GetBitSize for expr.Cursor.
func (c *Cursor) BitSize() (int64, error) { return c.GetBitSize() }

// Class returns the type class at the cursor's current position, for
// callers (the product check traversal, notably) that need to decide
// how to recurse without duplicating the cursor's own navigation.
func (c *Cursor) Class() typegraph.Class { return c.top().node.Def.Class }

// Name returns the declared name of the type at the current position
// (may be empty for anonymous/inline types).
func (c *Cursor) Name() string { return c.top().node.Def.Name }

// IsFastSizeExpr reports whether the type at the current position has
// no size expression, or one tagged fast by the expression VM's static
// analysis (SPEC_FULL.md supplemented feature 3).
func (c *Cursor) IsFastSizeExpr() bool {
	se := c.top().node.Def.SizeExpr
	return se == nil || se.IsFast()
}

// GetByteSize returns ceil(bit size / 8).
func (c *Cursor) GetByteSize() (int64, error) {
	b, err := c.GetBitSize()
	if err != nil {
		return 0, err
	}
	return (b + 7) / 8, nil
}

// GetNumElements returns the element count of the current array.
func (c *Cursor) GetNumElements() (int64, error) {
	dims, err := c.resolveDims()
	if err != nil {
		return 0, err
	}
	total := int64(1)
	for _, d := range dims {
		total *= d
	}
	return total, nil
}

// NumElements aliases GetNumElements for expr.Cursor.
func (c *Cursor) NumElements() (int64, error) { return c.GetNumElements() }

// GetArrayDim returns the size of dimension dim of the current array.
func (c *Cursor) GetArrayDim(dim int) (int64, error) {
	dims, err := c.resolveDims()
	if err != nil {
		return 0, err
	}
	if dim < 0 || dim >= len(dims) {
		return 0, NewError(ErrInvalidIndex, "array dimension index out of range", nil)
	}
	return dims[dim], nil
}

// ArrayDim aliases GetArrayDim for expr.Cursor.
func (c *Cursor) ArrayDim(dim int) (int64, error) { return c.GetArrayDim(dim) }

// GetStringLength returns a text node's C-string content length,
// trimming at the first embedded NUL (SPEC_FULL.md supplemented
// feature 1).
func (c *Cursor) GetStringLength() (int64, error) {
	fr := c.top()
	bitSize, err := c.GetBitSize()
	if err != nil {
		return 0, err
	}
	if fr.node.Backend == dyntype.BackendASCII {
		return asciicursor.StringLength(c.product.ascii, fr.bitOffset/8, bitSize/8), nil
	}
	if fr.node.Backend == dyntype.BackendBinary {
		buf, err := bincursor.ReadRaw(c.product.source, fr.bitOffset, int(bitSize/8))
		if err != nil {
			return 0, err
		}
		for i, b := range buf {
			if b == 0 {
				return int64(i), nil
			}
		}
		return bitSize / 8, nil
	}
	return bitSize / 8, nil
}

// Exists reports whether the current node is a real value rather than
// the no_data sentinel (spec §4.9).
func (c *Cursor) Exists() bool {
	fr := c.top()
	return !(fr.node.Def.Class == typegraph.ClassSpecial && fr.node.Def.Special.Kind == typegraph.SpecialNoData)
}

// -- scalar reads ----------------------------------------------------------

// readNumeric resolves the current node to a raw numeric value
// without applying a conversion, dispatching on class/backend.
func (c *Cursor) readNumeric() (float64, bool, error) {
	fr := c.top()
	t := fr.node.Def

	if t.Class == typegraph.ClassSpecial {
		if !BypassSpecialTypes() {
			switch t.Special.Kind {
			case typegraph.SpecialNoData:
				return 0, false, NewError(ErrInvalidType, "read of a no_data sentinel", nil).WithPath(c.pathString())
			}
		}
		child := c.Clone().(*Cursor)
		if err := child.UseBaseTypeOfSpecialType(); err != nil {
			return 0, false, err
		}
		return child.readNumeric()
	}

	if t.Class != typegraph.ClassInteger && t.Class != typegraph.ClassReal {
		return 0, false, NewError(ErrInvalidType, "numeric read of a non-numeric node", nil).WithPath(c.pathString())
	}

	bitSize, err := c.GetBitSize()
	if err != nil {
		return 0, false, err
	}

	switch fr.node.Backend {
	case dyntype.BackendASCII:
		var mappings []typegraph.Mapping
		if t.Number != nil {
			mappings = t.Number.Mappings
		}
		if t.Class == typegraph.ClassInteger {
			v, err := asciicursor.ReadInt(c.product.ascii, fr.bitOffset/8, bitSize/8, mappings, nativeBits(t.ReadType), nativeSigned(t.ReadType))
			if err != nil {
				return 0, false, err
			}
			return float64(v), true, nil
		}
		v, err := asciicursor.ReadFloat(c.product.ascii, fr.bitOffset/8, bitSize/8, mappings)
		return v, false, err

	case dyntype.BackendBinary:
		endian := typegraph.Little
		if t.Number != nil {
			endian = t.Number.Endian
		}
		if t.Class == typegraph.ClassInteger {
			if nativeSigned(t.ReadType) {
				v, err := bincursor.ReadInt(c.product.source, fr.bitOffset, int(bitSize), endian)
				return float64(v), true, err
			}
			v, err := bincursor.ReadUint(c.product.source, fr.bitOffset, int(bitSize), endian)
			return float64(v), true, err
		}
		if bitSize == 32 {
			v, err := bincursor.ReadFloat32(c.product.source, fr.bitOffset, endian)
			return float64(v), false, err
		}
		v, err := bincursor.ReadFloat64(c.product.source, fr.bitOffset, endian)
		return v, false, err

	default:
		if fr.node.HasWindow {
			return 0, false, NewError(ErrUnsupportedProduct, "numeric read of a container-backed data node requires delegating to its declared format", nil)
		}
		return 0, false, NewError(ErrUnsupportedProduct, "numeric read not materialized for this backend", nil).WithPath(c.pathString())
	}
}

func nativeBits(nt typegraph.NativeType) int {
	switch nt {
	case typegraph.NativeInt8, typegraph.NativeUint8:
		return 8
	case typegraph.NativeInt16, typegraph.NativeUint16:
		return 16
	case typegraph.NativeInt32, typegraph.NativeUint32:
		return 32
	default:
		return 64
	}
}

func nativeSigned(nt typegraph.NativeType) bool {
	switch nt {
	case typegraph.NativeUint8, typegraph.NativeUint16, typegraph.NativeUint32, typegraph.NativeUint64:
		return false
	default:
		return true
	}
}

func (c *Cursor) applyConversion(v float64) float64 {
	fr := c.top()
	t := fr.node.Def
	if !PerformConversions() || t.Number == nil || t.Number.Conversion == nil {
		return v
	}
	return t.Number.Conversion.Apply(v)
}

// ReadInt64 reads the current node as a 64-bit signed integer (no
// conversion applied, matching coda_cursor_read_int64).
func (c *Cursor) ReadInt64() (int64, error) {
	v, isInt, err := c.readNumeric()
	if err != nil {
		return 0, err
	}
	if !isInt {
		return 0, NewError(ErrInvalidType, "read_int64 on a floating-point node", nil).WithPath(c.pathString())
	}
	return int64(v), nil
}

// ReadUint64 reads the current node as a 64-bit unsigned integer.
func (c *Cursor) ReadUint64() (uint64, error) {
	v, err := c.ReadInt64()
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// ReadInt satisfies expr.Cursor: a widened signed-integer read.
func (c *Cursor) ReadInt() (int64, error) { return c.ReadInt64() }

// ReadDouble reads the current node as a double, applying the
// declared conversion when perform_conversions is enabled.
func (c *Cursor) ReadDouble() (float64, error) {
	v, isInt, err := c.readNumeric()
	if err != nil {
		return 0, err
	}
	if isInt {
		return c.applyConversion(v), nil
	}
	return c.applyConversion(v), nil
}

// ReadFloat satisfies expr.Cursor: a widened floating read.
func (c *Cursor) ReadFloat() (float64, error) { return c.ReadDouble() }

// ReadString reads the current text node's declared byte window as a string.
func (c *Cursor) ReadString() (string, error) {
	fr := c.top()
	t := fr.node.Def

	if t.Class == typegraph.ClassSpecial && t.Special.Kind != typegraph.SpecialNoData {
		child := c.Clone().(*Cursor)
		if err := child.UseBaseTypeOfSpecialType(); err != nil {
			return "", err
		}
		return child.ReadString()
	}
	if t.Class != typegraph.ClassText {
		return "", NewError(ErrInvalidType, "read_string of a non-text node", nil).WithPath(c.pathString())
	}

	bitSize, err := c.GetBitSize()
	if err != nil {
		return "", err
	}

	switch fr.node.Backend {
	case dyntype.BackendASCII:
		if fr.bitOffset%8 != 0 {
			return "", NewError(ErrProduct, "ASCII text read at a non-byte-aligned offset", nil).WithPath(c.pathString())
		}
		return asciicursor.ReadString(c.product.ascii, fr.bitOffset/8, bitSize/8)
	case dyntype.BackendBinary:
		return bincursor.ReadString(c.product.source, fr.bitOffset, bitSize)
	default:
		if fr.node.HasWindow {
			buf := make([]byte, fr.node.DataLength)
			if err := c.product.source.ReadAt(fr.node.DataOffset, int(fr.node.DataLength), buf); err != nil {
				return "", err
			}
			return string(buf), nil
		}
		return "", NewError(ErrUnsupportedProduct, "read_string not materialized for this backend", nil).WithPath(c.pathString())
	}
}

// ReadBits copies length bits starting at the given bit offset
// relative to the cursor's current position into dst (spec §4.10
// read_bits).
func (c *Cursor) ReadBits(dst []byte, offset, length int64) error {
	fr := c.top()
	if fr.bitOffset < 0 {
		return NewError(ErrUnsupportedProduct, "read_bits is not supported on a materialized cursor position", nil).WithPath(c.pathString())
	}
	return bitio.ReadBitsInto(c.product.source, fr.bitOffset+offset, int(length), dst)
}

// ReadBytes copies length bytes starting at the given byte offset
// relative to the cursor's current position into dst.
func (c *Cursor) ReadBytes(dst []byte, offset, length int64) error {
	fr := c.top()
	if fr.bitOffset < 0 {
		return NewError(ErrUnsupportedProduct, "read_bytes is not supported on a materialized cursor position", nil).WithPath(c.pathString())
	}
	if fr.bitOffset%8 != 0 {
		return NewError(ErrInvalidArgument, "read_bytes from a non-byte-aligned cursor position", nil)
	}
	return c.product.source.ReadAt(fr.bitOffset/8+offset, int(length), dst)
}

// -- full and partial array reads ------------------------------------------

// ReadDoubleArray reads every element of the current array in the
// requested order, delegating each element to ReadDouble (spec §4.10:
// "Full arrays iterate by visiting each element and delegating to the
// scalar reader").
func (c *Cursor) ReadDoubleArray(fortranOrder bool) ([]float64, error) {
	dims, err := c.resolveDims()
	if err != nil {
		return nil, err
	}
	total := int64(1)
	for _, d := range dims {
		total *= d
	}
	out := make([]float64, total)
	for i := int64(0); i < total; i++ {
		el := c.Clone().(*Cursor)
		if err := el.GotoArrayElementByIndex(i); err != nil {
			return nil, err
		}
		v, err := el.ReadDouble()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	if fortranOrder {
		return transpose.Float64(out, dims), nil
	}
	return out, nil
}

// ReadInt64Array reads every element of the current array as int64.
func (c *Cursor) ReadInt64Array(fortranOrder bool) ([]int64, error) {
	dims, err := c.resolveDims()
	if err != nil {
		return nil, err
	}
	total := int64(1)
	for _, d := range dims {
		total *= d
	}
	out := make([]int64, total)
	for i := int64(0); i < total; i++ {
		el := c.Clone().(*Cursor)
		if err := el.GotoArrayElementByIndex(i); err != nil {
			return nil, err
		}
		v, err := el.ReadInt64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	if fortranOrder {
		return transpose.Int64(out, dims), nil
	}
	return out, nil
}

// ReadDoublePartialArray reads length elements starting at offset,
// validating the range against the element count when boundary checks
// are enabled (spec §4.10, §4.12).
func (c *Cursor) ReadDoublePartialArray(offset, length int64) ([]float64, error) {
	total, err := c.GetNumElements()
	if err != nil {
		return nil, err
	}
	if PerformBoundaryChecks() && (offset < 0 || length < 0 || offset+length > total) {
		return nil, NewError(ErrArrayOutOfBounds, "partial array range out of bounds", nil).WithPath(c.pathString())
	}
	out := make([]float64, length)
	for i := int64(0); i < length; i++ {
		el := c.Clone().(*Cursor)
		if err := el.GotoArrayElementByIndex(offset + i); err != nil {
			return nil, err
		}
		v, err := el.ReadDouble()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ReadInt64PartialArray reads length int64 elements starting at offset.
func (c *Cursor) ReadInt64PartialArray(offset, length int64) ([]int64, error) {
	total, err := c.GetNumElements()
	if err != nil {
		return nil, err
	}
	if PerformBoundaryChecks() && (offset < 0 || length < 0 || offset+length > total) {
		return nil, NewError(ErrArrayOutOfBounds, "partial array range out of bounds", nil).WithPath(c.pathString())
	}
	out := make([]int64, length)
	for i := int64(0); i < length; i++ {
		el := c.Clone().(*Cursor)
		if err := el.GotoArrayElementByIndex(offset + i); err != nil {
			return nil, err
		}
		v, err := el.ReadInt64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
