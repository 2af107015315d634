package bytesrc

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/coda-go/coda/internal/coerr"
)

// MmapSource backs a Source with a memory-mapped file, used when the
// product-wide use_mmap toggle is enabled (spec §5). Falls back to
// ordinary file I/O is the caller's responsibility: Open here either
// succeeds with a live mapping or returns an error the caller can
// retry against NewFileSource.
type MmapSource struct {
	m    mmap.MMap
	f    *os.File
	size int64
}

// OpenMmap memory-maps f read-only. size is the file's declared size,
// used as the bound instead of the (possibly page-rounded) mapping length.
func OpenMmap(f *os.File, size int64) (*MmapSource, error) {
	if size == 0 {
		// mmap-go rejects zero-length mappings; an empty product has
		// nothing to map and nothing to read.
		return &MmapSource{f: f, size: 0}, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, coerr.New(coerr.ErrFileOpen, "mmap failed", err)
	}
	return &MmapSource{m: m, f: f, size: size}, nil
}

func (m *MmapSource) ReadAt(offset int64, length int, dst []byte) error {
	if offset < 0 || length < 0 || offset+int64(length) > m.size {
		return outOfBounds(offset, length, m.size)
	}
	if length == 0 {
		return nil
	}
	copy(dst[:length], m.m[offset:offset+int64(length)])
	return nil
}

func (m *MmapSource) Size() int64 { return m.size }

func (m *MmapSource) Close() error {
	if m.m != nil {
		if err := m.m.Unmap(); err != nil {
			return coerr.New(coerr.ErrFileRead, "munmap failed", err)
		}
	}
	return m.f.Close()
}

// Bytes exposes the mapped region directly, for ASCII scanning paths
// that want to search the buffer rather than copy out of it.
func (m *MmapSource) Bytes() []byte {
	if m.size == 0 {
		return nil
	}
	return m.m[:m.size]
}
