package dyntype

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coda-go/coda/internal/typegraph"
)

func intType() *typegraph.Type {
	return &typegraph.Type{
		Format:   typegraph.FormatBinary,
		Class:    typegraph.ClassInteger,
		BitSize:  16,
		ReadType: typegraph.NativeInt16,
		Number:   &typegraph.NumberDetail{Endian: typegraph.Big, DefaultBitSize: -1},
	}
}

func TestNewNode(t *testing.T) {
	def := intType()
	n := NewNode(def, BackendBinary)
	assert.Same(t, def, n.Def)
	assert.Equal(t, BackendBinary, n.Backend)
	assert.Equal(t, int64(-1), n.BitOffset)
}

func TestNumElements_StaticDims(t *testing.T) {
	base := intType()
	arr := typegraph.NewArray(typegraph.FormatBinary, base, []typegraph.DimSpec{{Fixed: 2}, {Fixed: 3}})
	n := NewNode(arr, BackendBinary)
	assert.Equal(t, int64(6), n.NumElements())
}

func TestNumElements_UnresolvedDynamicDim(t *testing.T) {
	base := intType()
	arr := typegraph.NewArray(typegraph.FormatBinary, base, []typegraph.DimSpec{{Fixed: -1}})
	n := NewNode(arr, BackendBinary)
	assert.Equal(t, int64(-1), n.NumElements())
}

func TestNumElements_ActualDimsOverrides(t *testing.T) {
	base := intType()
	arr := typegraph.NewArray(typegraph.FormatBinary, base, []typegraph.DimSpec{{Fixed: 2}})
	n := NewNode(arr, BackendBinary)
	n.ActualDims = []int64{5}
	assert.Equal(t, int64(5), n.NumElements())
}

func TestNumElements_NonArray(t *testing.T) {
	n := NewNode(intType(), BackendBinary)
	assert.Equal(t, int64(0), n.NumElements())
}

func TestFieldAvailability(t *testing.T) {
	rec := typegraph.NewRecord(typegraph.FormatBinary)
	_ = rec.AddField(typegraph.FieldDef{Name: "a", Type: intType()})
	_ = rec.AddField(typegraph.FieldDef{Name: "b", Type: intType()})

	n := NewNode(rec, BackendBinary)
	assert.True(t, n.IsFieldAvailable(0))
	assert.True(t, n.IsFieldAvailable(1))

	n.SetFieldAvailable(1, false)
	assert.True(t, n.IsFieldAvailable(0))
	assert.False(t, n.IsFieldAvailable(1))
}

func TestFieldAt_LazyInstantiation(t *testing.T) {
	rec := typegraph.NewRecord(typegraph.FormatBinary)
	fieldType := intType()
	_ = rec.AddField(typegraph.FieldDef{Name: "a", Type: fieldType})

	n := NewNode(rec, BackendBinary)
	child := n.FieldAt(0)
	assert.Same(t, fieldType, child.Def)
	assert.Equal(t, BackendBinary, child.Backend)
}

func TestFieldAt_MaterializedOverridesLazy(t *testing.T) {
	rec := typegraph.NewRecord(typegraph.FormatBinary)
	fieldType := intType()
	_ = rec.AddField(typegraph.FieldDef{Name: "a", Type: fieldType})

	n := NewNode(rec, BackendMemory)
	materialized := NewNode(fieldType, BackendMemory)
	materialized.DataOffset = 42
	n.Fields = []*Node{materialized}

	child := n.FieldAt(0)
	assert.Same(t, materialized, child)
	assert.Equal(t, int64(42), child.DataOffset)
}
