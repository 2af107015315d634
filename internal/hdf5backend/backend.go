package hdf5backend

import (
	"fmt"
	"os"

	"github.com/coda-go/coda/coda"
	"github.com/coda-go/coda/internal/bytesrc"
	"github.com/coda-go/coda/internal/dyntype"
	"github.com/coda-go/coda/internal/typegraph"
)

func init() {
	coda.RegisterContainerBackend(typegraph.FormatHDF5, &Backend{})
}

// Backend implements coda.ContainerBackend for HDF5 products.
//
// Unlike the ASCII/binary backends, which read lazily through a
// byte-addressed cursor, this backend materializes the whole product
// up front into a typegraph.Type tree of groups-as-records and
// datasets-as-arrays/leaves, backed by a single flat buffer holding
// every dataset's decoded payload (filters undone, bytes kept in the
// declared byte order recorded on the leaf type).
// That lets the existing binary cursor backend (internal/bincursor)
// serve reads without modification: a decoded dataset is, at that
// point, indistinguishable from an in-place binary array (spec §6
// "a container backend may keep bulk array data addressed by an
// opaque handle rather than a byte offset" — the handle here is simply
// an offset into this backend's own buffer rather than the file's).
type Backend struct{}

// Open implements coda.ContainerBackend.
func (b *Backend) Open(path string) (*dyntype.Node, bytesrc.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("hdf5: open failed: %w", err)
	}
	defer f.Close()

	sb, err := ReadSuperblock(f)
	if err != nil {
		return nil, nil, fmt.Errorf("hdf5: %w", err)
	}

	bld := &builder{r: f, sb: sb}
	rootDef := typegraph.NewRecord(typegraph.FormatHDF5)
	rootDef.Attributes = typegraph.NewRecord(typegraph.FormatHDF5)
	rootNode := dyntype.NewNode(rootDef, dyntype.BackendBinary)

	if err := bld.fillGroup(rootDef, rootNode, sb.RootGroup, 0); err != nil {
		return nil, nil, fmt.Errorf("hdf5: %w", err)
	}

	return rootNode, bytesrc.NewBufferSource(bld.buf), nil
}

// builder walks the HDF5 object graph once, appending decoded dataset
// bytes to buf and building the parallel typegraph/dyntype tree.
type builder struct {
	r   *os.File
	sb  *Superblock
	buf []byte
}

const maxObjectDepth = 64

func (bld *builder) fillGroup(def *typegraph.Type, node *dyntype.Node, addr uint64, depth int) error {
	if depth > maxObjectDepth {
		return fmt.Errorf("object graph exceeds maximum nesting depth")
	}
	oh, err := ReadObjectHeader(bld.r, addr, bld.sb)
	if err != nil {
		return err
	}

	if err := bld.attachAttributes(def, node, oh); err != nil {
		return err
	}

	for _, lm := range oh.FindAll(msgLinkMessage) {
		link, err := ParseLinkMessage(lm.Data)
		if err != nil {
			continue // malformed single link: skip rather than fail the whole group
		}
		if link.Type != LinkHard {
			continue // soft/external links are not dereferenced (see linkmessage.go)
		}
		childOH, err := ReadObjectHeader(bld.r, link.Address, bld.sb)
		if err != nil {
			continue
		}
		switch childOH.Type {
		case ObjectGroup:
			childDef := typegraph.NewRecord(typegraph.FormatHDF5)
			childDef.Attributes = typegraph.NewRecord(typegraph.FormatHDF5)
			childNode := dyntype.NewNode(childDef, dyntype.BackendBinary)
			if err := bld.fillGroup(childDef, childNode, link.Address, depth+1); err != nil {
				return err
			}
			bld.addField(def, node, link.Name, childDef, childNode)
		case ObjectDataset:
			fieldDef, fieldNode, err := bld.buildDataset(childOH, link.Address)
			if err != nil {
				return fmt.Errorf("dataset %q: %w", link.Name, err)
			}
			bld.addField(def, node, link.Name, fieldDef, fieldNode)
		}
	}
	return nil
}

func (bld *builder) addField(def *typegraph.Type, node *dyntype.Node, name string, fieldDef *typegraph.Type, fieldNode *dyntype.Node) {
	_ = def.AddField(typegraph.FieldDef{Name: name, RealName: name, Type: fieldDef})
	node.Fields = append(node.Fields, fieldNode)
}

// attachAttributes records an object's attributes on def.Attributes.
//
// GotoAttributes (coda/cursor.go) pushes a brand new dyntype.Node over
// def.Attributes rather than any per-instance node this builder could
// populate, so an attribute's value must be locatable purely from its
// FieldDef: each gets HasAbsoluteOffset/AbsoluteBitOffset pointing at
// its decoded bytes in this backend's flat buffer, the same mechanism
// the netCDF classic backend uses for a variable's "begin" offset.
func (bld *builder) attachAttributes(def *typegraph.Type, _ *dyntype.Node, oh *ObjectHeader) error {
	for _, am := range oh.FindAll(msgAttribute) {
		attr, err := ParseAttribute(am.Data)
		if err != nil {
			continue // one malformed attribute should not fail the whole object
		}
		leafDef := attr.Datatype.ToFieldType(typegraph.FormatHDF5)
		leafDef.Name = attr.Name
		offset := len(bld.buf)
		bld.buf = append(bld.buf, attr.Raw...)
		_ = def.Attributes.AddField(typegraph.FieldDef{
			Name: attr.Name, RealName: attr.Name, Type: leafDef,
			HasAbsoluteOffset: true, AbsoluteBitOffset: int64(offset) * 8,
		})
	}
	return nil
}

// attachDatasetConversion scans a dataset object header's own
// attribute messages for scale_factor/add_offset/missing_value/
// _FillValue and, if any are present, builds elemType.Number.Conversion
// from them (spec §3 Conversion; mirrors the netCDF classic backend's
// applyNumericConversion for the same CF-convention attribute names).
// elemType.Number is nil for non-numeric classes, in which case this
// is a no-op.
func attachDatasetConversion(elemType *typegraph.Type, oh *ObjectHeader) {
	if elemType.Number == nil {
		return
	}
	conv := typegraph.Conversion{Numerator: 1, Denominator: 1}
	have := false
	for _, am := range oh.FindAll(msgAttribute) {
		attr, err := ParseAttribute(am.Data)
		if err != nil {
			continue
		}
		switch attr.Name {
		case "scale_factor":
			if v, ok := attr.ReadScalarFloat(); ok {
				conv.Numerator = v
				have = true
			}
		case "add_offset":
			if v, ok := attr.ReadScalarFloat(); ok {
				conv.AddOffset = v
				have = true
			}
		case "missing_value":
			if v, ok := attr.ReadScalarFloat(); ok {
				conv.Invalid = v
				conv.HasInvalid = true
				have = true
			}
		case "_FillValue":
			if !conv.HasInvalid {
				if v, ok := attr.ReadScalarFloat(); ok {
					conv.Invalid = v
					conv.HasInvalid = true
					have = true
				}
			}
		}
	}
	if have {
		elemType.Number.Conversion = &conv
	}
}

// buildDataset reads a dataset's datatype/dataspace/layout/filter
// messages, decodes its bytes into bld.buf, and returns the
// corresponding (possibly array-wrapped) leaf type and node.
func (bld *builder) buildDataset(oh *ObjectHeader, addr uint64) (*typegraph.Type, *dyntype.Node, error) {
	dtMsg := oh.Find(msgDatatype)
	dsMsg := oh.Find(msgDataspace)
	dlMsg := oh.Find(msgDataLayout)
	if dtMsg == nil || dsMsg == nil || dlMsg == nil {
		return nil, nil, fmt.Errorf("missing datatype/dataspace/layout message")
	}

	dt, err := ParseDatatype(dtMsg.Data)
	if err != nil {
		return nil, nil, err
	}
	ds, err := ParseDataspace(dsMsg.Data)
	if err != nil {
		return nil, nil, err
	}
	dl, err := ParseDataLayout(dlMsg.Data, bld.sb.OffsetSize)
	if err != nil {
		return nil, nil, err
	}

	var filters []Filter
	if fpMsg := oh.Find(msgFilterPipe); fpMsg != nil {
		filters, err = ParseFilterPipeline(fpMsg.Data)
		if err != nil {
			return nil, nil, err
		}
	}

	raw, err := bld.readDatasetBytes(dl, int64(dt.Size)*ds.TotalElements())
	if err != nil {
		return nil, nil, err
	}
	if len(filters) > 0 {
		raw, err = ApplyFilters(filters, raw, int(dt.Size))
		if err != nil {
			return nil, nil, err
		}
	}

	elemType := dt.ToFieldType(typegraph.FormatHDF5)
	attachDatasetConversion(elemType, oh)
	offset := len(bld.buf)
	bld.buf = append(bld.buf, raw...)

	if ds.Type == DSScalar || len(ds.Dims) == 0 {
		node := dyntype.NewNode(elemType, dyntype.BackendBinary)
		node.DataOffset = int64(offset)
		node.DataLength = int64(len(raw))
		node.HasWindow = true
		node.BitOffset = int64(offset) * 8
		return elemType, node, nil
	}

	dims := make([]typegraph.DimSpec, len(ds.Dims))
	for i, d := range ds.Dims {
		dims[i] = typegraph.DimSpec{Fixed: int64(d)}
	}
	arrDef := typegraph.NewArray(typegraph.FormatHDF5, elemType, dims)
	arrDef.BitSize = int64(len(raw)) * 8
	node := dyntype.NewNode(arrDef, dyntype.BackendBinary)
	node.DataOffset = int64(offset)
	node.DataLength = int64(len(raw))
	node.HasWindow = true
	node.BitOffset = int64(offset) * 8
	node.ActualDims = make([]int64, len(ds.Dims))
	for i, d := range ds.Dims {
		node.ActualDims[i] = int64(d)
	}
	return arrDef, node, nil
}

// readDatasetBytes extracts the raw, still-filtered bytes for a
// dataset per its layout class. Only Compact and Contiguous layouts
// are read; Chunked layouts (single- or multi-chunk) and any other
// class return a descriptive error rather than silently truncating
// data, so the caller can see which dataset it is.
func (bld *builder) readDatasetBytes(dl *DataLayout, declaredSize int64) ([]byte, error) {
	switch dl.Class {
	case LayoutCompact:
		return dl.CompactData, nil
	case LayoutContiguous:
		buf := make([]byte, dl.Size)
		if _, err := bld.r.ReadAt(buf, int64(dl.Offset)); err != nil {
			return nil, fmt.Errorf("contiguous data read failed: %w", err)
		}
		return buf, nil
	case LayoutChunked:
		// readSingleChunk checks for a v1 B-tree and then returns an
		// error in every case; no chunk data is decoded.
		return bld.readSingleChunk(dl, declaredSize)
	default:
		return nil, fmt.Errorf("unsupported data layout class %d", dl.Class)
	}
}

// readSingleChunk checks that dl.BTreeAddr points at a version 1
// B-tree node ("TREE" signature) and then reports chunked decoding as
// unimplemented; it never returns chunk data.
func (bld *builder) readSingleChunk(dl *DataLayout, declaredSize int64) ([]byte, error) {
	head := make([]byte, 24+8*len(dl.ChunkDims)+8)
	if _, err := bld.r.ReadAt(head[:4], int64(dl.BTreeAddr)); err != nil {
		return nil, fmt.Errorf("chunk b-tree read failed: %w", err)
	}
	if string(head[:4]) != "TREE" {
		return nil, fmt.Errorf("unsupported chunk index: no v1 B-tree at 0x%x", dl.BTreeAddr)
	}
	// The key/child layout varies with offset size and dimensionality;
	// without a validated sample this backend declines to guess at
	// byte offsets and instead reports the limitation explicitly.
	return nil, fmt.Errorf("chunked dataset decoding is not implemented")
}
