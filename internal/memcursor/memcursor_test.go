package memcursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coda-go/coda/internal/coerr"
	"github.com/coda-go/coda/internal/dyntype"
	"github.com/coda-go/coda/internal/typegraph"
)

func leafType() *typegraph.Type {
	return &typegraph.Type{
		Format:   typegraph.FormatHDF5,
		Class:    typegraph.ClassInteger,
		BitSize:  32,
		ReadType: typegraph.NativeInt32,
		Number:   &typegraph.NumberDetail{DefaultBitSize: -1},
	}
}

func TestFieldByIndex_Available(t *testing.T) {
	rec := typegraph.NewRecord(typegraph.FormatHDF5)
	ft := leafType()
	require.NoError(t, rec.AddField(typegraph.FieldDef{Name: "x", Type: ft}))

	n := dyntype.NewNode(rec, dyntype.BackendMemory)
	child, err := FieldByIndex(n, 0)
	require.NoError(t, err)
	assert.Same(t, ft, child.Def)
}

func TestFieldByIndex_Absent(t *testing.T) {
	rec := typegraph.NewRecord(typegraph.FormatHDF5)
	require.NoError(t, rec.AddField(typegraph.FieldDef{Name: "x", Type: leafType()}))

	n := dyntype.NewNode(rec, dyntype.BackendMemory)
	n.SetFieldAvailable(0, false)

	child, err := FieldByIndex(n, 0)
	require.NoError(t, err)
	assert.Equal(t, typegraph.ClassSpecial, child.Def.Class)
	assert.Equal(t, typegraph.SpecialNoData, child.Def.Special.Kind)
}

func TestFieldByIndex_OutOfRange(t *testing.T) {
	rec := typegraph.NewRecord(typegraph.FormatHDF5)
	n := dyntype.NewNode(rec, dyntype.BackendMemory)
	_, err := FieldByIndex(n, 0)
	require.Error(t, err)
	kind, ok := coerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coerr.ErrInvalidIndex, kind)
}

func TestFieldByName(t *testing.T) {
	rec := typegraph.NewRecord(typegraph.FormatHDF5)
	ft := leafType()
	require.NoError(t, rec.AddField(typegraph.FieldDef{Name: "x", Type: ft}))
	n := dyntype.NewNode(rec, dyntype.BackendMemory)

	child, err := FieldByName(n, "x")
	require.NoError(t, err)
	assert.Same(t, ft, child.Def)

	_, err = FieldByName(n, "nope")
	require.Error(t, err)
	kind, ok := coerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coerr.ErrInvalidName, kind)
}

func TestElementByIndex_Materialized(t *testing.T) {
	base := leafType()
	arr := typegraph.NewArray(typegraph.FormatHDF5, base, []typegraph.DimSpec{{Fixed: 2}})
	n := dyntype.NewNode(arr, dyntype.BackendMemory)

	other := dyntype.NewNode(leafType(), dyntype.BackendMemory)
	n.Elements = []*dyntype.Node{nil, other}

	el, err := ElementByIndex(n, 1)
	require.NoError(t, err)
	assert.Same(t, other, el)

	_, err = ElementByIndex(n, 5)
	require.Error(t, err)
	kind, ok := coerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coerr.ErrArrayOutOfBounds, kind)
}

func TestElementByIndex_FreshFromBase(t *testing.T) {
	base := leafType()
	arr := typegraph.NewArray(typegraph.FormatHDF5, base, []typegraph.DimSpec{{Fixed: 3}})
	n := dyntype.NewNode(arr, dyntype.BackendMemory)

	el, err := ElementByIndex(n, 0)
	require.NoError(t, err)
	assert.Same(t, base, el.Def)
}

func TestNoData_SharedPerFormat(t *testing.T) {
	a := NoData(typegraph.FormatHDF5)
	b := NoData(typegraph.FormatHDF5)
	assert.Same(t, a, b)

	c := NoData(typegraph.FormatNetCDF)
	assert.NotSame(t, a, c)
}

func TestDataWindow(t *testing.T) {
	n := dyntype.NewNode(leafType(), dyntype.BackendMemory)
	_, ok := Data(n)
	assert.False(t, ok)

	n.HasWindow = true
	n.DataOffset = 10
	n.DataLength = 20
	w, ok := Data(n)
	require.True(t, ok)
	assert.Equal(t, int64(10), w.Offset)
	assert.Equal(t, int64(20), w.Length)
	assert.Equal(t, typegraph.FormatHDF5, w.Format)
}
