// Package typegraph implements CODA's static type graph (spec §3,
// §4.3): a DAG of type nodes describing a product's shape, shared
// where subtypes repeat and immutable once constructed.
//
// A single concrete Type struct models the closed set of type
// classes as a tagged union (Class selects which of the class-
// specific detail pointers is populated), the way the teacher repo's
// DatatypeMessage/HeaderMessage model HDF5's own closed set of
// message kinds. This is deliberate: the node kinds are closed, so
// callers switch exhaustively on Class rather than relying on an
// open inheritance hierarchy.
package typegraph

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/coda-go/coda/internal/coerr"
	"github.com/coda-go/coda/internal/expr"
)

// Format is the physical backend tag (spec §3). It governs dispatch,
// not the public type Class.
type Format uint8

// Format constants.
const (
	FormatASCII Format = iota
	FormatBinary
	FormatXML
	FormatHDF4
	FormatHDF5
	FormatCDF
	FormatNetCDF
)

// Class is the user-visible type kind.
type Class uint8

// Class constants.
const (
	ClassRecord Class = iota
	ClassArray
	ClassInteger
	ClassReal
	ClassText
	ClassRaw
	ClassSpecial
)

// NativeType is the value representation requested on a typed read.
type NativeType uint8

// Native read type constants.
const (
	NativeInt8 NativeType = iota
	NativeInt16
	NativeInt32
	NativeInt64
	NativeUint8
	NativeUint16
	NativeUint32
	NativeUint64
	NativeFloat
	NativeDouble
	NativeChar
	NativeString
	NativeBytes
	NativeNotAvailable
)

// SpecialKind enumerates the logical views a special type may present.
type SpecialKind uint8

// Special kind constants.
const (
	SpecialNoData SpecialKind = iota
	SpecialVSFInteger
	SpecialTime
	SpecialComplex
)

// TextKind enumerates text special-case delimiting conventions.
type TextKind uint8

// Text kind constants.
const (
	TextDefault TextKind = iota
	TextLineSeparator
	TextLineWithEOL
	TextLineWithoutEOL
	TextWhitespace
)

// Conversion is CODA's 4-tuple linear conversion (spec §3).
type Conversion struct {
	Numerator   float64
	Denominator float64
	AddOffset   float64
	Invalid     float64
	HasInvalid  bool
}

// Apply maps a native parsed value through the conversion.
func (c *Conversion) Apply(v float64) float64 {
	if c.HasInvalid && v == c.Invalid {
		return math.NaN()
	}
	den := c.Denominator
	if den == 0 {
		den = 1
	}
	return v*c.Numerator/den + c.AddOffset
}

// Mapping binds a literal byte string to a numeric value, tried in
// declared order before the backend's own parser runs (spec §4.6).
type Mapping struct {
	Literal []byte
	Value   float64
}

// NumberDetail holds the fields specific to ClassInteger/ClassReal.
type NumberDetail struct {
	Endian         Endian
	Unit           string
	Conversion     *Conversion
	Mappings       []Mapping
	DefaultBitSize int64 // -1 means unset
}

// Endian is the declared byte order of a number type.
type Endian uint8

// Endian constants.
const (
	Little Endian = iota
	Big
)

// TextDetail holds the fields specific to ClassText.
type TextDetail struct {
	FixedValue []byte
	Kind       TextKind
}

// RawDetail holds the fields specific to ClassRaw.
type RawDetail struct {
	FixedValue []byte
}

// FieldDef is one member of a record type.
type FieldDef struct {
	Name          string
	RealName      string
	Type          *Type
	Hidden        bool
	AvailableExpr *expr.Expr

	// HasAbsoluteOffset marks a field whose bit offset is fixed by the
	// format itself rather than by summing the sizes of the fields
	// before it (netCDF classic's var_list "begin" offsets are the
	// motivating case: variables are not laid out contiguously, so the
	// generic sequential record layout does not apply to them).
	HasAbsoluteOffset bool
	AbsoluteBitOffset int64
}

// RecordDetail holds the fields specific to ClassRecord.
type RecordDetail struct {
	Fields []FieldDef
	Union  bool
	index  map[uint64][]int // xxhash(name) -> candidate field indices
}

// buildIndex populates the hashed name lookup, keeping the ordered
// Fields slice as the source of truth for index-based traversal
// (spec §4.3: "a hash index keyed by the field name, insertion order
// preserved separately").
func (r *RecordDetail) buildIndex() {
	r.index = make(map[uint64][]int, len(r.Fields))
	for i, f := range r.Fields {
		h := xxhash.Sum64String(f.Name)
		r.index[h] = append(r.index[h], i)
	}
}

// FieldIndex returns the index of the field named name, or -1 if none.
func (r *RecordDetail) FieldIndex(name string) int {
	if r.index == nil {
		r.buildIndex()
	}
	h := xxhash.Sum64String(name)
	for _, i := range r.index[h] {
		if r.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// DimSpec is one dimension of an array type: either a fixed size or
// an expression evaluated against the cursor at read time.
type DimSpec struct {
	Fixed int64 // >= 0 when static; -1 means use Expr
	Expr  *expr.Expr
}

// ArrayDetail holds the fields specific to ClassArray.
type ArrayDetail struct {
	Base *Type
	Dims []DimSpec
}

// SpecialDetail holds the fields specific to ClassSpecial.
type SpecialDetail struct {
	Kind SpecialKind
	Base *Type
}

// Type is a single node of the static type graph.
type Type struct {
	Format      Format
	Class       Class
	Name        string
	Description string

	// BitSize: >=0 is a fixed size in bits; -1 means unknown/parse at
	// read; -8 means "the size expression yields bytes, multiply by 8".
	BitSize  int64
	SizeExpr *expr.Expr

	// Attributes may be nil (NewRecord and NewArray leave it unset);
	// Cursor.GotoAttributes then substitutes an empty record
	// (SPEC_FULL.md supplemented feature 6).
	Attributes *Type

	ReadType NativeType

	Number  *NumberDetail
	Text    *TextDetail
	Raw     *RawDetail
	Record  *RecordDetail
	Array   *ArrayDetail
	Special *SpecialDetail
}

// NewRecord builds an empty record type (used, among other places, as
// the universal default Attributes value).
func NewRecord(format Format) *Type {
	return &Type{
		Format: format,
		Class:  ClassRecord,
		Record: &RecordDetail{},
		BitSize: -1,
	}
}

// AddField appends a field to a record type and rebuilds its lookup index.
func (t *Type) AddField(f FieldDef) error {
	if t.Class != ClassRecord {
		return coerr.New(coerr.ErrDataDefinition, "AddField on non-record type", nil)
	}
	t.Record.Fields = append(t.Record.Fields, f)
	t.Record.buildIndex()
	return nil
}

// NewArray builds an array type over base with the given dimensions.
func NewArray(format Format, base *Type, dims []DimSpec) *Type {
	return &Type{
		Format:  format,
		Class:   ClassArray,
		Array:   &ArrayDetail{Base: base, Dims: dims},
		BitSize: -1,
	}
}

// Rank returns the number of dimensions of an array type.
func (t *Type) Rank() int {
	if t.Class != ClassArray {
		return 0
	}
	return len(t.Array.Dims)
}

// Validate performs the DAG/invariant sanity checks described in spec
// §3: no nil subtypes, record field names unique, array and special
// types have a base. Array dimensions are not checked.
func (t *Type) Validate() error {
	return validate(t, make(map[*Type]bool))
}

func validate(t *Type, seen map[*Type]bool) error {
	if t == nil {
		return coerr.New(coerr.ErrDataDefinition, "nil type node in graph", nil)
	}
	if seen[t] {
		return nil
	}
	seen[t] = true

	switch t.Class {
	case ClassRecord:
		names := make(map[string]bool, len(t.Record.Fields))
		for _, f := range t.Record.Fields {
			if names[f.Name] {
				return coerr.New(coerr.ErrDataDefinition,
					fmt.Sprintf("duplicate field name %q in record %q", f.Name, t.Name), nil)
			}
			names[f.Name] = true
			if err := validate(f.Type, seen); err != nil {
				return err
			}
		}
	case ClassArray:
		if t.Array.Base == nil {
			return coerr.New(coerr.ErrDataDefinition, "array type with no base type", nil)
		}
		if err := validate(t.Array.Base, seen); err != nil {
			return err
		}
	case ClassSpecial:
		if t.Special.Base == nil {
			return coerr.New(coerr.ErrDataDefinition, "special type with no base type", nil)
		}
		if err := validate(t.Special.Base, seen); err != nil {
			return err
		}
	}
	if t.Attributes != nil {
		if err := validate(t.Attributes, seen); err != nil {
			return err
		}
	}
	return nil
}

// DefaultReadType derives the read type for special classes (spec §3
// invariant: time -> double, complex -> not_available,
// vsf_integer -> double).
func DefaultReadType(kind SpecialKind) NativeType {
	switch kind {
	case SpecialTime:
		return NativeDouble
	case SpecialVSFInteger:
		return NativeDouble
	case SpecialComplex:
		return NativeNotAvailable
	default:
		return NativeNotAvailable
	}
}
