package coda

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coda-go/coda/internal/asciicursor"
	"github.com/coda-go/coda/internal/asciiparse"
	"github.com/coda-go/coda/internal/bytesrc"
	"github.com/coda-go/coda/internal/dyntype"
	"github.com/coda-go/coda/internal/expr"
	"github.com/coda-go/coda/internal/typegraph"
)

// binaryProduct builds a Product over buf, backed purely by the binary
// cursor (no recognizer, no OS file), for scenarios that only need a
// root type and raw bytes.
func binaryProduct(t *testing.T, root *typegraph.Type, buf []byte) *Product {
	t.Helper()
	require.NoError(t, root.Validate())
	return &Product{
		Format: typegraph.FormatBinary,
		Size:   int64(len(buf)),
		Root:   dyntype.NewNode(root, dyntype.BackendBinary),
		source: bytesrc.NewBufferSource(buf),
	}
}

func asciiProduct(t *testing.T, root *typegraph.Type, buf []byte) *Product {
	t.Helper()
	require.NoError(t, root.Validate())
	return &Product{
		Format: typegraph.FormatASCII,
		Size:   int64(len(buf)),
		Root:   dyntype.NewNode(root, dyntype.BackendASCII),
		source: bytesrc.NewBufferSource(buf),
		ascii:  &asciicursor.Window{Src: bytesrc.NewBufferSource(buf), Lines: &asciiparse.LineIndex{}},
	}
}

func int16Type(endian typegraph.Endian, bits int64, signed bool) *typegraph.Type {
	rt := typegraph.NativeInt16
	if !signed {
		rt = typegraph.NativeUint16
	}
	class := typegraph.ClassInteger
	return &typegraph.Type{
		Format:   typegraph.FormatBinary,
		Class:    class,
		BitSize:  bits,
		ReadType: rt,
		Number:   &typegraph.NumberDetail{Endian: endian, DefaultBitSize: -1},
	}
}

// --- §8 scenario: binary signed 12-bit integer, big-endian, 0xFFE -> -2 ---

func TestCursor_BinarySigned12Bit(t *testing.T) {
	root := int16Type(typegraph.Big, 12, true)
	buf := []byte{0xFF, 0xE0}
	p := binaryProduct(t, root, buf)
	c := p.NewCursor()

	v, err := c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v)
}

func TestCursor_BinaryUnsigned12Bit(t *testing.T) {
	root := int16Type(typegraph.Big, 12, false)
	buf := []byte{0xFF, 0xE0}
	p := binaryProduct(t, root, buf)
	c := p.NewCursor()

	v, err := c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(0xFFE), v)
}

func TestCursor_EndiannessSymmetry(t *testing.T) {
	be := int16Type(typegraph.Big, 16, true)
	le := int16Type(typegraph.Little, 16, true)
	buf := []byte{0x01, 0x02}
	bufRev := []byte{0x02, 0x01}

	pBE := binaryProduct(t, be, buf)
	pLE := binaryProduct(t, le, bufRev)

	vBE, err := pBE.NewCursor().ReadInt64()
	require.NoError(t, err)
	vLE, err := pLE.NewCursor().ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, vBE, vLE)
}

// --- record/array navigation, cursor stack discipline (§8 item 1) ---

func intField(name string, bits int64) typegraph.FieldDef {
	return typegraph.FieldDef{Name: name, Type: int16Type(typegraph.Big, bits, true)}
}

func TestCursor_RecordFieldNavigation(t *testing.T) {
	root := typegraph.NewRecord(typegraph.FormatBinary)
	require.NoError(t, root.AddField(intField("a", 16)))
	require.NoError(t, root.AddField(intField("b", 16)))
	buf := []byte{0x00, 0x05, 0x00, 0x07}
	p := binaryProduct(t, root, buf)
	c := p.NewCursor()

	require.NoError(t, c.GotoRecordFieldByName("b"))
	v, err := c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	require.NoError(t, c.GotoParent())
	require.NoError(t, c.GotoFirstRecordField())
	v, err = c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	require.NoError(t, c.GotoNextRecordField())
	v, err = c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	err = c.GotoNextRecordField()
	assert.Error(t, err)
}

func TestCursor_StackDiscipline(t *testing.T) {
	root := typegraph.NewRecord(typegraph.FormatBinary)
	require.NoError(t, root.AddField(intField("a", 16)))
	require.NoError(t, root.AddField(intField("b", 16)))
	buf := []byte{0x00, 0x05, 0x00, 0x07}
	p := binaryProduct(t, root, buf)
	c := p.NewCursor()

	before := c.cloneConcrete()

	require.NoError(t, c.GotoFirstRecordField())
	require.NoError(t, c.GotoParent())

	assert.Equal(t, before.stack, c.stack)

	require.NoError(t, c.GotoRecordFieldByName("b"))
	require.NoError(t, c.GotoParent())
	assert.Equal(t, before.stack, c.stack)
}

func TestCursor_NoParentAtRoot(t *testing.T) {
	root := int16Type(typegraph.Big, 16, true)
	p := binaryProduct(t, root, []byte{0, 1})
	c := p.NewCursor()
	err := c.GotoParent()
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrNoParent, kind)
}

// --- array navigation ---

func TestCursor_ArrayFixedDims(t *testing.T) {
	base := int16Type(typegraph.Big, 16, true)
	arr := typegraph.NewArray(typegraph.FormatBinary, base, []typegraph.DimSpec{{Fixed: 3}})
	buf := []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03}
	p := binaryProduct(t, arr, buf)
	c := p.NewCursor()

	n, err := c.GetNumElements()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, c.GotoArrayElementByIndex(2))
	v, err := c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	require.NoError(t, c.GotoParent())
	require.NoError(t, c.GotoFirstArrayElement())
	v, err = c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	require.NoError(t, c.GotoNextArrayElement())
	v, err = c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestCursor_ArrayOutOfBounds(t *testing.T) {
	base := int16Type(typegraph.Big, 16, true)
	arr := typegraph.NewArray(typegraph.FormatBinary, base, []typegraph.DimSpec{{Fixed: 2}})
	buf := []byte{0x00, 0x01, 0x00, 0x02}
	p := binaryProduct(t, arr, buf)
	c := p.NewCursor()

	err := c.GotoArrayElementByIndex(5)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrArrayOutOfBounds, kind)
}

func TestCursor_ReadInt64Array(t *testing.T) {
	base := int16Type(typegraph.Big, 16, true)
	arr := typegraph.NewArray(typegraph.FormatBinary, base, []typegraph.DimSpec{{Fixed: 3}})
	buf := []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03}
	p := binaryProduct(t, arr, buf)
	c := p.NewCursor()

	vals, err := c.ReadInt64Array(false)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, vals)
}

func TestCursor_ReadInt64PartialArray(t *testing.T) {
	base := int16Type(typegraph.Big, 16, true)
	arr := typegraph.NewArray(typegraph.FormatBinary, base, []typegraph.DimSpec{{Fixed: 4}})
	buf := []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04}
	p := binaryProduct(t, arr, buf)
	c := p.NewCursor()

	full, err := c.ReadInt64Array(false)
	require.NoError(t, err)

	partial, err := c.ReadInt64PartialArray(1, 2)
	require.NoError(t, err)
	assert.Equal(t, full[1:3], partial)
}

// --- §8 scenario: union availability ---

func TestCursor_UnionAvailability(t *testing.T) {
	aAvail, err := expr.Parse("false")
	require.NoError(t, err)
	bAvail, err := expr.Parse("true")
	require.NoError(t, err)
	cAvail, err := expr.Parse("false")
	require.NoError(t, err)

	union := &typegraph.Type{
		Format:  typegraph.FormatBinary,
		Class:   typegraph.ClassRecord,
		BitSize: -1,
		Record:  &typegraph.RecordDetail{Union: true},
	}
	require.NoError(t, union.AddField(typegraph.FieldDef{Name: "a", Type: int16Type(typegraph.Big, 16, true), AvailableExpr: aAvail}))
	require.NoError(t, union.AddField(typegraph.FieldDef{Name: "b", Type: int16Type(typegraph.Big, 16, true), AvailableExpr: bAvail}))
	require.NoError(t, union.AddField(typegraph.FieldDef{Name: "c", Type: int16Type(typegraph.Big, 16, true), AvailableExpr: cAvail}))

	// a and c are unavailable and consume no space, so b's value sits
	// at the record's own starting offset.
	buf := []byte{0x00, 0x2A}
	p := binaryProduct(t, union, buf)
	c := p.NewCursor()

	require.NoError(t, c.GotoAvailableUnionField())
	assert.Equal(t, 1, c.top().index) // field "b", index 1
	v, err := c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestCursor_UnionNoneAvailable(t *testing.T) {
	aAvail, err := expr.Parse("false")
	require.NoError(t, err)

	union := &typegraph.Type{
		Format:  typegraph.FormatBinary,
		Class:   typegraph.ClassRecord,
		BitSize: -1,
		Record:  &typegraph.RecordDetail{Union: true},
	}
	require.NoError(t, union.AddField(typegraph.FieldDef{Name: "a", Type: int16Type(typegraph.Big, 16, true), AvailableExpr: aAvail}))

	p := binaryProduct(t, union, []byte{0x00, 0x00})
	c := p.NewCursor()

	err = c.GotoAvailableUnionField()
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrProduct, kind)
}

// --- conversion ---

func TestCursor_ConversionApplied(t *testing.T) {
	root := int16Type(typegraph.Big, 16, true)
	root.Number.Conversion = &typegraph.Conversion{Numerator: 1, Denominator: 2, AddOffset: 1}
	buf := []byte{0x00, 0x0A} // 10
	p := binaryProduct(t, root, buf)
	c := p.NewCursor()

	v, err := c.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, 6.0, v) // 10*1/2+1 = 6

	SetPerformConversions(false)
	defer SetPerformConversions(true)
	v, err = c.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestCursor_ConversionInvalidYieldsNaN(t *testing.T) {
	root := int16Type(typegraph.Big, 16, true)
	root.Number.Conversion = &typegraph.Conversion{Numerator: 1, Denominator: 1, Invalid: -1, HasInvalid: true}
	buf := []byte{0xFF, 0xFF} // -1
	p := binaryProduct(t, root, buf)
	c := p.NewCursor()

	v, err := c.ReadDouble()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))
}

// --- ASCII scenarios (§8) ---

func asciiFloatType() *typegraph.Type {
	return &typegraph.Type{
		Format:   typegraph.FormatASCII,
		Class:    typegraph.ClassReal,
		BitSize:  -1,
		ReadType: typegraph.NativeDouble,
		Number:   &typegraph.NumberDetail{DefaultBitSize: -1},
	}
}

func TestCursor_ASCIIFloatTrailingWhitespace(t *testing.T) {
	root := asciiFloatType()
	buf := []byte(" -3.5e2 \t")
	p := asciiProduct(t, root, buf)
	c := p.NewCursor()

	v, err := c.ReadDouble()
	require.NoError(t, err)
	assert.Equal(t, -350.0, v)
}

func asciiMappedIntType() *typegraph.Type {
	return &typegraph.Type{
		Format:   typegraph.FormatASCII,
		Class:    typegraph.ClassInteger,
		BitSize:  -1,
		ReadType: typegraph.NativeInt32,
		Number: &typegraph.NumberDetail{
			DefaultBitSize: 24,
			Mappings: []typegraph.Mapping{
				{Literal: []byte("N/A"), Value: -1},
				{Literal: []byte(""), Value: 0},
			},
		},
	}
}

func TestCursor_ASCIIMapping_NA(t *testing.T) {
	root := asciiMappedIntType()
	p := asciiProduct(t, root, []byte("N/Axxx"))
	c := p.NewCursor()

	v, err := c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
}

func TestCursor_ASCIIMapping_Empty(t *testing.T) {
	root := asciiMappedIntType()
	p := asciiProduct(t, root, []byte(""))
	c := p.NewCursor()

	v, err := c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestCursor_ASCIIMapping_NoMatchParses(t *testing.T) {
	root := asciiMappedIntType()
	p := asciiProduct(t, root, []byte("007"))
	c := p.NewCursor()

	v, err := c.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

// --- attributes ---

func TestCursor_AttributesDefaultEmpty(t *testing.T) {
	root := int16Type(typegraph.Big, 16, true)
	p := binaryProduct(t, root, []byte{0, 1})
	c := p.NewCursor()

	require.NoError(t, c.GotoAttributes())
	assert.Equal(t, typegraph.ClassRecord, c.Class())
	require.NoError(t, c.GotoParent())
}

// --- GetBitSize consistency (§8 item 2) ---

func TestCursor_FixedBitSizeConsistentAtAnyPosition(t *testing.T) {
	root := typegraph.NewRecord(typegraph.FormatBinary)
	require.NoError(t, root.AddField(intField("a", 12)))
	require.NoError(t, root.AddField(intField("b", 12)))
	buf := []byte{0x00, 0x00, 0x00}
	p := binaryProduct(t, root, buf)
	c := p.NewCursor()

	require.NoError(t, c.GotoFirstRecordField())
	sz, err := c.GetBitSize()
	require.NoError(t, err)
	assert.Equal(t, int64(12), sz)

	require.NoError(t, c.GotoParent())
	require.NoError(t, c.GotoRecordFieldByName("b"))
	sz, err = c.GetBitSize()
	require.NoError(t, err)
	assert.Equal(t, int64(12), sz)
}
