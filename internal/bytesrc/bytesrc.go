// Package bytesrc implements CODA's bytes source (spec §4.1): a
// uniform random-access byte reader over either a file handle or an
// in-memory buffer, bounded by the product's declared size.
package bytesrc

import (
	"fmt"
	"io"
	"sync"

	"github.com/coda-go/coda/internal/coerr"
)

// Source is a bounded random-access byte reader. It never reads past
// its declared bound; out-of-bounds requests return ErrOutOfBoundsRead.
type Source interface {
	// ReadAt copies length bytes starting at offset into dst[:length].
	ReadAt(offset int64, length int, dst []byte) error
	// Size returns the authoritative upper bound in bytes.
	Size() int64
	// Close releases any OS resources held by the source.
	Close() error
}

// bufferPool recycles scratch byte slices the way the teacher's
// utils.GetBuffer/ReleaseBuffer pool does.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 0, 4096)
	},
}

// GetBuffer returns a scratch slice of at least size bytes from the pool.
func GetBuffer(size int) []byte {
	buf, _ := bufferPool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

// ReleaseBuffer returns buf to the pool.
func ReleaseBuffer(buf []byte) {
	bufferPool.Put(buf[:0]) //nolint:staticcheck // slice descriptor reuse is intentional
}

func outOfBounds(offset int64, length int, bound int64) error {
	return coerr.New(coerr.ErrOutOfBoundsRead,
		fmt.Sprintf("read of %d bytes at offset %d exceeds window of %d bytes", length, offset, bound), nil)
}

// FileSource backs a Source with positioned file I/O, bounded by the
// file's size at open time.
type FileSource struct {
	r    io.ReaderAt
	c    io.Closer
	size int64
}

// NewFileSource wraps r (typically an *os.File) as a bounded Source.
// c may be nil if the caller manages the underlying handle's lifetime.
func NewFileSource(r io.ReaderAt, c io.Closer, size int64) *FileSource {
	return &FileSource{r: r, c: c, size: size}
}

func (f *FileSource) ReadAt(offset int64, length int, dst []byte) error {
	if offset < 0 || length < 0 || offset+int64(length) > f.size {
		return outOfBounds(offset, length, f.size)
	}
	n, err := f.r.ReadAt(dst[:length], offset)
	if err != nil && !(err == io.EOF && n == length) {
		return coerr.New(coerr.ErrFileRead, "file read failed", err)
	}
	return nil
}

func (f *FileSource) Size() int64 { return f.size }

func (f *FileSource) Close() error {
	if f.c == nil {
		return nil
	}
	return f.c.Close()
}

// BufferSource backs a Source with a pre-materialized in-memory slice
// (a slurped file, an attribute payload, or an inline block inside a
// container format). Its bound is the slice length, not a file size.
type BufferSource struct {
	buf []byte
}

// NewBufferSource wraps buf as a bounded Source.
func NewBufferSource(buf []byte) *BufferSource {
	return &BufferSource{buf: buf}
}

func (b *BufferSource) ReadAt(offset int64, length int, dst []byte) error {
	bound := int64(len(b.buf))
	if offset < 0 || length < 0 || offset+int64(length) > bound {
		return outOfBounds(offset, length, bound)
	}
	copy(dst[:length], b.buf[offset:offset+int64(length)])
	return nil
}

func (b *BufferSource) Size() int64 { return int64(len(b.buf)) }
func (b *BufferSource) Close() error { return nil }

// Bytes returns the backing slice, for backends (e.g. ASCII) that
// need direct access for scanning rather than copying.
func (b *BufferSource) Bytes() []byte { return b.buf }

// Window returns a bounded sub-Source over [offset, offset+length) of
// the underlying buffer, used for attribute payloads and inline data
// nodes embedded inside a container format (spec §4.4 "data" dynamic node).
func (b *BufferSource) Window(offset, length int64) (*BufferSource, error) {
	bound := int64(len(b.buf))
	if offset < 0 || length < 0 || offset+length > bound {
		return nil, outOfBounds(offset, length, bound)
	}
	return &BufferSource{buf: b.buf[offset : offset+length]}, nil
}
