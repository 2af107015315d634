package coda

import (
	"os"
	"strings"

	"github.com/coda-go/coda/internal/asciicursor"
	"github.com/coda-go/coda/internal/asciiparse"
	"github.com/coda-go/coda/internal/bytesrc"
	"github.com/coda-go/coda/internal/dyntype"
	"github.com/coda-go/coda/internal/typegraph"
)

// compressedSidecarSuffix marks a product stored as a raw-DEFLATE
// sidecar (some CODA archival deployments keep rarely-accessed
// products as product.dat.defl to save space; see
// internal/bytesrc.OpenDeflated). Recognition still reports the
// uncompressed format/root type for the product; Open only consults
// the suffix to decide how to materialize its bytes.
const compressedSidecarSuffix = ".defl"

// Recognizer is the product recognition protocol (spec §6, external
// collaborator): given a path it reports the file's size and format
// and, optionally, enough of a product class/type/version match to
// select a root type. The core consumes this once per Open; it does
// not implement a catalog itself (Non-goal).
type Recognizer interface {
	Recognize(path string) (size int64, format typegraph.Format, root *typegraph.Type, err error)
}

// ContainerBackend is the per-format container backend protocol (spec
// §6): open a product into a root dynamic type, optionally keeping
// bulk array data addressed by an opaque handle rather than a byte
// offset. HDF4/HDF5/netCDF backends implement this to translate their
// own navigation primitives into CODA's unified model.
type ContainerBackend interface {
	Open(path string) (root *dyntype.Node, src bytesrc.Source, err error)
}

var containerBackends = map[typegraph.Format]ContainerBackend{}

// RegisterContainerBackend installs the backend responsible for
// opening products of the given format. Called from an init() in
// each backend package (internal/hdf5backend, internal/netcdf, ...)
// so Open never needs to import them directly.
func RegisterContainerBackend(format typegraph.Format, b ContainerBackend) {
	containerBackends[format] = b
}

// Product is an open data product: the root of its dynamic type tree,
// the bytes it is read from, and the handful of OS/derived resources
// that must be released together (spec §5: "a product holds OS
// resources ... and a lazy ascii-line index; it is scoped to a
// product handle whose close releases all of them").
type Product struct {
	Path   string
	Format typegraph.Format
	Size   int64
	Root   *dyntype.Node

	source bytesrc.Source
	ascii  *asciicursor.Window // non-nil only for FormatASCII

	file *os.File
}

// Open recognizes path via r, opens the appropriate bytes source (or
// delegates to a registered container backend for HDF4/HDF5/netCDF),
// and returns a Product positioned for cursor navigation from its root.
func Open(path string, r Recognizer) (*Product, error) {
	size, format, rootType, err := r.Recognize(path)
	if err != nil {
		return nil, NewError(ErrUnsupportedProduct, "product recognition failed", err)
	}

	if backend, ok := containerBackends[format]; ok {
		root, src, err := backend.Open(path)
		if err != nil {
			return nil, err
		}
		return &Product{Path: path, Format: format, Size: size, Root: root, source: src}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, NewError(ErrFileOpen, "could not open product file", err)
	}

	var src bytesrc.Source
	switch {
	case strings.HasSuffix(path, compressedSidecarSuffix):
		ds, err := bytesrc.OpenDeflated(f)
		f.Close()
		if err != nil {
			return nil, NewError(ErrFileRead, "could not inflate compressed product", err)
		}
		src = ds
		size = ds.Size()
		f = nil
	case UseMmap():
		m, err := bytesrc.OpenMmap(f, size)
		if err != nil {
			f.Close()
			return nil, err
		}
		src = m
	default:
		src = bytesrc.NewFileSource(f, f, size)
	}

	root := dyntype.NewNode(rootType, backendFor(format))
	p := &Product{Path: path, Format: format, Size: size, Root: root, source: src, file: f}

	if format == typegraph.FormatASCII {
		buf := bytesrc.GetBuffer(int(size))
		if err := src.ReadAt(0, int(size), buf); err != nil {
			p.Close()
			return nil, err
		}
		p.ascii = &asciicursor.Window{Src: bytesrc.NewBufferSource(buf), Lines: &asciiparse.LineIndex{}}
	}

	return p, nil
}

func backendFor(format typegraph.Format) dyntype.Backend {
	switch format {
	case typegraph.FormatASCII:
		return dyntype.BackendASCII
	case typegraph.FormatBinary:
		return dyntype.BackendBinary
	case typegraph.FormatHDF4:
		return dyntype.BackendHDF4
	case typegraph.FormatHDF5:
		return dyntype.BackendHDF5
	case typegraph.FormatCDF, typegraph.FormatNetCDF:
		return dyntype.BackendNetCDF
	default:
		return dyntype.BackendMemory
	}
}

// Close releases the product's OS resources.
func (p *Product) Close() error {
	if p.source != nil {
		return p.source.Close()
	}
	return nil
}

// NewCursor returns a cursor positioned at the product's root
// (spec §4.10 set_product).
func (p *Product) NewCursor() *Cursor {
	return &Cursor{
		product: p,
		stack: []frame{{
			node:         p.Root,
			bitOffset:    0,
			boundaryBits: p.Size * 8,
			index:        -1,
		}},
	}
}
