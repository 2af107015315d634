// Package netcdf is CODA's container backend adapter for netCDF
// classic format (spec §6, SPEC_FULL.md supplemented feature): a
// from-scratch reader grounded on the HDF5 teacher's own header/
// message-parsing style (fixed big-endian fields, tag-delimited
// sections, version-gated field widths) applied to netCDF's simpler,
// flat classic layout rather than HDF5's object-graph one.
package netcdf

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/coda-go/coda/coda"
	"github.com/coda-go/coda/internal/bytesrc"
	"github.com/coda-go/coda/internal/dyntype"
	"github.com/coda-go/coda/internal/typegraph"
)

func init() {
	coda.RegisterContainerBackend(typegraph.FormatCDF, &Backend{})
	coda.RegisterContainerBackend(typegraph.FormatNetCDF, &Backend{})
}

const (
	magic      = "CDF"
	formatCDF1 = 1
	formatCDF2 = 2 // 64-bit offset classic format
)

// ncType is netCDF classic's primitive type tag.
type ncType uint32

// netCDF classic primitive type tags.
const (
	ncByte ncType = iota + 1
	ncChar
	ncShort
	ncInt
	ncFloat
	ncDouble
)

// tag values for the dim_list/gatt_list/att_list/var_list sections.
const (
	tagDimension = 0x0A
	tagVariable  = 0x0B
	tagAttribute = 0x0C
	tagAbsent    = 0x00
)

// Backend implements coda.ContainerBackend for netCDF classic files.
type Backend struct{}

// Open implements coda.ContainerBackend. It builds a record type for
// the file's dimensions/global attributes/variables directly, rather
// than materializing bulk variable data into a side buffer the way
// internal/hdf5backend does: classic variables (and their attribute
// values) are already laid out inside the one flat buffer this
// backend reads the whole file into, so a binary-backed leaf with
// FieldDef.HasAbsoluteOffset pointing straight into that buffer needs
// no copy at all.
func (b *Backend) Open(path string) (*dyntype.Node, bytesrc.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("netcdf: open failed: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("netcdf: stat failed: %w", err)
	}

	buf := make([]byte, info.Size())
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, nil, fmt.Errorf("netcdf: read failed: %w", err)
	}

	r := &reader{buf: buf}
	if err := r.parseHeader(); err != nil {
		return nil, nil, fmt.Errorf("netcdf: %w", err)
	}

	root := r.buildTree()
	return root, bytesrc.NewBufferSource(buf), nil
}

// reader walks a classic-format header once, left to right.
type reader struct {
	buf     []byte
	pos     int
	format  int
	numRecs uint64

	dims  []dimension
	gatts []attribute
	vars  []variable
}

type dimension struct {
	name   string
	length uint64 // 0 means the appendable (record) dimension
}

// attribute records both its decoded metadata and where its raw value
// bytes sit inside reader.buf, so the caller can point a FieldDef at
// them directly instead of copying.
type attribute struct {
	name       string
	typ        ncType
	count      int
	byteOffset int
	byteLen    int
}

type variable struct {
	name        string
	dimIDs      []int
	atts        []attribute
	typ         ncType
	begin       uint64
	isRecordVar bool
}

func (r *reader) parseHeader() error {
	if len(r.buf) < 4 || string(r.buf[:3]) != magic {
		return fmt.Errorf("missing CDF magic")
	}
	ver := r.buf[3]
	if ver != formatCDF1 && ver != formatCDF2 {
		return fmt.Errorf("unsupported classic format version %d", ver)
	}
	r.format = int(ver)
	r.pos = 4
	r.numRecs = uint64(r.u32())

	var err error
	r.dims, err = r.parseDimList()
	if err != nil {
		return fmt.Errorf("dim_list: %w", err)
	}
	r.gatts, err = r.parseAttList()
	if err != nil {
		return fmt.Errorf("gatt_list: %w", err)
	}
	r.vars, err = r.parseVarList()
	if err != nil {
		return fmt.Errorf("var_list: %w", err)
	}
	return nil
}

func (r *reader) u32() uint32 {
	if r.pos+4 > len(r.buf) {
		r.pos = len(r.buf)
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) u64offset() uint64 {
	if r.format == formatCDF2 {
		if r.pos+8 > len(r.buf) {
			r.pos = len(r.buf)
			return 0
		}
		v := binary.BigEndian.Uint64(r.buf[r.pos:])
		r.pos += 8
		return v
	}
	return uint64(r.u32())
}

// padAfter advances past the 4-byte alignment padding netCDF classic
// applies after every variable-length field.
func padAfter(pos, n int) int {
	rem := n % 4
	if rem == 0 {
		return pos
	}
	return pos + (4 - rem)
}

func (r *reader) name() (string, error) {
	n := int(r.u32())
	if n < 0 || r.pos+n > len(r.buf) {
		return "", fmt.Errorf("name field truncated")
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos = padAfter(r.pos+n, n)
	return s, nil
}

func (r *reader) parseDimList() ([]dimension, error) {
	tag := r.u32()
	count := int(r.u32())
	if tag == tagAbsent {
		return nil, nil
	}
	if tag != tagDimension {
		return nil, fmt.Errorf("unexpected dim_list tag 0x%x", tag)
	}
	dims := make([]dimension, count)
	for i := 0; i < count; i++ {
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		dims[i] = dimension{name: name, length: uint64(r.u32())}
	}
	return dims, nil
}

func (r *reader) parseAttList() ([]attribute, error) {
	tag := r.u32()
	count := int(r.u32())
	if tag == tagAbsent {
		return nil, nil
	}
	if tag != tagAttribute {
		return nil, fmt.Errorf("unexpected att_list tag 0x%x", tag)
	}
	atts := make([]attribute, count)
	for i := 0; i < count; i++ {
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		typ := ncType(r.u32())
		n := int(r.u32())
		size := n * typeSize(typ)
		if r.pos+size > len(r.buf) {
			return nil, fmt.Errorf("attribute %q values truncated", name)
		}
		atts[i] = attribute{name: name, typ: typ, count: n, byteOffset: r.pos, byteLen: size}
		r.pos = padAfter(r.pos+size, size)
	}
	return atts, nil
}

func (r *reader) parseVarList() ([]variable, error) {
	tag := r.u32()
	count := int(r.u32())
	if tag == tagAbsent {
		return nil, nil
	}
	if tag != tagVariable {
		return nil, fmt.Errorf("unexpected var_list tag 0x%x", tag)
	}
	vars := make([]variable, count)
	for i := 0; i < count; i++ {
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		ndims := int(r.u32())
		dimIDs := make([]int, ndims)
		isRecordVar := false
		for d := 0; d < ndims; d++ {
			id := int(r.u32())
			dimIDs[d] = id
			if d == 0 && id < len(r.dims) && r.dims[id].length == 0 {
				isRecordVar = true
			}
		}
		atts, err := r.parseAttList()
		if err != nil {
			return nil, fmt.Errorf("variable %q attributes: %w", name, err)
		}
		typ := ncType(r.u32())
		r.u32() // vsize: derivable from type+dims, not needed once begin is known
		begin := r.u64offset()
		vars[i] = variable{name: name, dimIDs: dimIDs, atts: atts, typ: typ, begin: begin, isRecordVar: isRecordVar}
	}
	return vars, nil
}

func typeSize(t ncType) int {
	switch t {
	case ncByte, ncChar:
		return 1
	case ncShort:
		return 2
	case ncInt, ncFloat:
		return 4
	case ncDouble:
		return 8
	default:
		return 1
	}
}

func (t ncType) toLeaf(format typegraph.Format) *typegraph.Type {
	switch t {
	case ncByte:
		return &typegraph.Type{Format: format, Class: typegraph.ClassInteger, BitSize: 8, ReadType: typegraph.NativeInt8,
			Number: &typegraph.NumberDetail{Endian: typegraph.Big, DefaultBitSize: -1}}
	case ncChar:
		return &typegraph.Type{Format: format, Class: typegraph.ClassText, BitSize: 8, ReadType: typegraph.NativeChar, Text: &typegraph.TextDetail{}}
	case ncShort:
		return &typegraph.Type{Format: format, Class: typegraph.ClassInteger, BitSize: 16, ReadType: typegraph.NativeInt16,
			Number: &typegraph.NumberDetail{Endian: typegraph.Big, DefaultBitSize: -1}}
	case ncInt:
		return &typegraph.Type{Format: format, Class: typegraph.ClassInteger, BitSize: 32, ReadType: typegraph.NativeInt32,
			Number: &typegraph.NumberDetail{Endian: typegraph.Big, DefaultBitSize: -1}}
	case ncFloat:
		return &typegraph.Type{Format: format, Class: typegraph.ClassReal, BitSize: 32, ReadType: typegraph.NativeFloat,
			Number: &typegraph.NumberDetail{Endian: typegraph.Big, DefaultBitSize: -1}}
	case ncDouble:
		return &typegraph.Type{Format: format, Class: typegraph.ClassReal, BitSize: 64, ReadType: typegraph.NativeDouble,
			Number: &typegraph.NumberDetail{Endian: typegraph.Big, DefaultBitSize: -1}}
	default:
		return &typegraph.Type{Format: format, Class: typegraph.ClassRaw, BitSize: 8, ReadType: typegraph.NativeBytes, Raw: &typegraph.RawDetail{}}
	}
}

// buildTree assembles the root record: one field per variable (an
// array over its declared dimensions, with the appendable record
// dimension resolved against the header's numrecs at graph-build time
// since the header is re-parsed on every open) plus a nested
// "attributes" record of global attributes and, per variable, its own
// attributes record.
func (r *reader) buildTree() *dyntype.Node {
	rootDef := typegraph.NewRecord(typegraph.FormatCDF)
	rootDef.Attributes = typegraph.NewRecord(typegraph.FormatCDF)
	for _, a := range r.gatts {
		addAttField(rootDef.Attributes, a)
	}
	rootNode := dyntype.NewNode(rootDef, dyntype.BackendBinary)

	for _, v := range r.vars {
		leaf := v.typ.toLeaf(typegraph.FormatCDF)
		leaf.Attributes = typegraph.NewRecord(typegraph.FormatCDF)
		for _, a := range v.atts {
			addAttField(leaf.Attributes, a)
		}
		applyNumericConversion(leaf, v.atts, r.buf)

		dimIDs := v.dimIDs
		if v.typ == ncChar && len(dimIDs) > 0 {
			// §6: "Char variables' last dimension is treated as a
			// string unless the variable is one-dimensional and that
			// dimension is the appendable one" — collapse it into the
			// leaf's own byte length instead of an outer array axis.
			lastID := dimIDs[len(dimIDs)-1]
			lastAppendable := lastID < len(r.dims) && r.dims[lastID].length == 0
			if !(len(dimIDs) == 1 && lastAppendable) {
				var strLen int64
				switch {
				case lastAppendable:
					strLen = int64(r.numRecs)
				case lastID < len(r.dims):
					strLen = int64(r.dims[lastID].length)
				}
				leaf.BitSize = strLen * 8
				dimIDs = dimIDs[:len(dimIDs)-1]
			}
		}

		fieldType := leaf
		if len(dimIDs) > 0 {
			dims := make([]typegraph.DimSpec, len(dimIDs))
			for i, id := range dimIDs {
				switch {
				case id < len(r.dims) && r.dims[id].length == 0:
					dims[i] = typegraph.DimSpec{Fixed: int64(r.numRecs)}
				case id < len(r.dims):
					dims[i] = typegraph.DimSpec{Fixed: int64(r.dims[id].length)}
				default:
					dims[i] = typegraph.DimSpec{Fixed: 0}
				}
			}
			fieldType = typegraph.NewArray(typegraph.FormatCDF, leaf, dims)
		}

		fieldNode := dyntype.NewNode(fieldType, dyntype.BackendBinary)
		fieldNode.BitOffset = int64(v.begin) * 8
		_ = rootDef.AddField(typegraph.FieldDef{
			Name: v.name, RealName: v.name, Type: fieldType,
			HasAbsoluteOffset: true, AbsoluteBitOffset: int64(v.begin) * 8,
		})
		rootNode.Fields = append(rootNode.Fields, fieldNode)
	}
	return rootNode
}

// applyNumericConversion builds leaf.Number.Conversion from a
// variable's scale_factor/add_offset/missing_value/_FillValue
// attributes, the way the original coda-netcdf.c read_att_array does
// (scale_factor -> numerator, add_offset -> add_offset,
// missing_value or, failing that, _FillValue -> invalid_value). No
// Conversion is attached when none of the four attributes are present.
func applyNumericConversion(leaf *typegraph.Type, atts []attribute, buf []byte) {
	if leaf.Number == nil {
		return
	}
	conv := typegraph.Conversion{Numerator: 1, Denominator: 1}
	have := false
	for _, a := range atts {
		switch a.name {
		case "scale_factor":
			if v, ok := attScalarFloat(buf, a); ok {
				conv.Numerator = v
				have = true
			}
		case "add_offset":
			if v, ok := attScalarFloat(buf, a); ok {
				conv.AddOffset = v
				have = true
			}
		case "missing_value":
			if v, ok := attScalarFloat(buf, a); ok {
				conv.Invalid = v
				conv.HasInvalid = true
				have = true
			}
		case "_FillValue":
			if !conv.HasInvalid {
				if v, ok := attScalarFloat(buf, a); ok {
					conv.Invalid = v
					conv.HasInvalid = true
					have = true
				}
			}
		}
	}
	if have {
		leaf.Number.Conversion = &conv
	}
}

// attScalarFloat decodes a's raw value as a single big-endian numeric
// scalar. Only single-element attributes qualify as conversion
// operands; anything else reports ok=false.
func attScalarFloat(buf []byte, a attribute) (float64, bool) {
	if a.count != 1 || a.byteOffset+a.byteLen > len(buf) {
		return 0, false
	}
	raw := buf[a.byteOffset : a.byteOffset+a.byteLen]
	switch a.typ {
	case ncByte:
		if len(raw) < 1 {
			return 0, false
		}
		return float64(int8(raw[0])), true
	case ncShort:
		if len(raw) < 2 {
			return 0, false
		}
		return float64(int16(binary.BigEndian.Uint16(raw))), true
	case ncInt:
		if len(raw) < 4 {
			return 0, false
		}
		return float64(int32(binary.BigEndian.Uint32(raw))), true
	case ncFloat:
		if len(raw) < 4 {
			return 0, false
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(raw))), true
	case ncDouble:
		if len(raw) < 8 {
			return 0, false
		}
		return math.Float64frombits(binary.BigEndian.Uint64(raw)), true
	default:
		return 0, false
	}
}

// addAttField adds a FieldDef to rec pointing at a's already-parsed
// byte range via HasAbsoluteOffset, so GotoAttributes (which always
// rebuilds a fresh dyntype.Node and so cannot carry per-instance
// state) can still resolve the value.
func addAttField(rec *typegraph.Type, a attribute) {
	leaf := a.typ.toLeaf(typegraph.FormatCDF)
	leaf.BitSize = int64(a.byteLen) * 8
	_ = rec.AddField(typegraph.FieldDef{
		Name: a.name, RealName: a.name, Type: leaf,
		HasAbsoluteOffset: true, AbsoluteBitOffset: int64(a.byteOffset) * 8,
	})
}
