package typegraph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intType() *Type {
	return &Type{Class: ClassInteger, BitSize: 32, Number: &NumberDetail{DefaultBitSize: -1}}
}

func TestConversionApply(t *testing.T) {
	c := &Conversion{Numerator: 2, Denominator: 10, AddOffset: 1}
	assert.Equal(t, 3.0, c.Apply(10)) // 10*2/10 + 1 = 3
}

func TestConversionApplyZeroDenominatorTreatedAsOne(t *testing.T) {
	c := &Conversion{Numerator: 3, AddOffset: 0}
	assert.Equal(t, 15.0, c.Apply(5)) // denominator defaults to 1
}

func TestConversionApplyInvalidValueYieldsNaN(t *testing.T) {
	c := &Conversion{Numerator: 1, Denominator: 1, HasInvalid: true, Invalid: -9999}
	assert.True(t, math.IsNaN(c.Apply(-9999)))
	assert.Equal(t, 5.0, c.Apply(5))
}

func TestRecordAddFieldAndLookup(t *testing.T) {
	rec := NewRecord(FormatBinary)
	require.NoError(t, rec.AddField(FieldDef{Name: "alpha", Type: intType()}))
	require.NoError(t, rec.AddField(FieldDef{Name: "beta", Type: intType()}))

	assert.Equal(t, 0, rec.Record.FieldIndex("alpha"))
	assert.Equal(t, 1, rec.Record.FieldIndex("beta"))
	assert.Equal(t, -1, rec.Record.FieldIndex("gamma"))
}

func TestRecordAddFieldOnNonRecordRejected(t *testing.T) {
	leaf := intType()
	err := leaf.AddField(FieldDef{Name: "x", Type: intType()})
	assert.Error(t, err)
}

func TestFieldIndexSurvivesHashCollisionBucket(t *testing.T) {
	// FieldIndex must verify the exact name, not just the hash bucket,
	// in case of an xxhash collision across differently-named fields.
	rec := NewRecord(FormatBinary)
	require.NoError(t, rec.AddField(FieldDef{Name: "one", Type: intType()}))
	require.NoError(t, rec.AddField(FieldDef{Name: "two", Type: intType()}))
	assert.Equal(t, 0, rec.Record.FieldIndex("one"))
	assert.Equal(t, 1, rec.Record.FieldIndex("two"))
}

func TestNewArrayRank(t *testing.T) {
	base := intType()
	arr := NewArray(FormatBinary, base, []DimSpec{{Fixed: 3}, {Fixed: 4}})
	assert.Equal(t, 2, arr.Rank())
	assert.Equal(t, base, arr.Array.Base)
}

func TestRankOnNonArrayIsZero(t *testing.T) {
	assert.Equal(t, 0, intType().Rank())
}

func TestValidateDuplicateFieldNameRejected(t *testing.T) {
	rec := NewRecord(FormatBinary)
	rec.Record.Fields = []FieldDef{
		{Name: "a", Type: intType()},
		{Name: "a", Type: intType()},
	}
	err := rec.Validate()
	assert.Error(t, err)
}

func TestValidateArrayWithNilBaseRejected(t *testing.T) {
	arr := NewArray(FormatBinary, nil, []DimSpec{{Fixed: 1}})
	err := arr.Validate()
	assert.Error(t, err)
}

func TestValidateSharedSubtypeNotRevisited(t *testing.T) {
	// A DAG where the same leaf type is reachable through two fields
	// must validate without infinite recursion or a false duplicate error.
	shared := intType()
	rec := NewRecord(FormatBinary)
	require.NoError(t, rec.AddField(FieldDef{Name: "a", Type: shared}))
	require.NoError(t, rec.AddField(FieldDef{Name: "b", Type: shared}))
	assert.NoError(t, rec.Validate())
}

func TestValidateWalksAttributes(t *testing.T) {
	rec := NewRecord(FormatBinary)
	rec.Attributes = NewArray(FormatBinary, nil, []DimSpec{{Fixed: 1}})
	err := rec.Validate()
	assert.Error(t, err)
}

func TestDefaultReadType(t *testing.T) {
	assert.Equal(t, NativeDouble, DefaultReadType(SpecialTime))
	assert.Equal(t, NativeDouble, DefaultReadType(SpecialVSFInteger))
	assert.Equal(t, NativeNotAvailable, DefaultReadType(SpecialComplex))
}
