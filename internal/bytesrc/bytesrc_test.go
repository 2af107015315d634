package bytesrc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coda-go/coda/internal/coerr"
)

func TestBufferSource_ReadAt(t *testing.T) {
	b := NewBufferSource([]byte("hello world"))
	assert.Equal(t, int64(11), b.Size())

	dst := make([]byte, 5)
	require.NoError(t, b.ReadAt(6, 5, dst))
	assert.Equal(t, "world", string(dst))
}

func TestBufferSource_OutOfBounds(t *testing.T) {
	b := NewBufferSource([]byte("short"))
	dst := make([]byte, 10)
	err := b.ReadAt(0, 10, dst)
	require.Error(t, err)
	kind, ok := coerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, coerr.ErrOutOfBoundsRead, kind)
}

func TestBufferSource_NegativeOffset(t *testing.T) {
	b := NewBufferSource([]byte("short"))
	dst := make([]byte, 1)
	err := b.ReadAt(-1, 1, dst)
	require.Error(t, err)
}

func TestBufferSource_Window(t *testing.T) {
	b := NewBufferSource([]byte("0123456789"))
	w, err := b.Window(2, 4)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(w.Bytes()))

	_, err = b.Window(8, 5)
	require.Error(t, err)
}

func TestFileSource_ReadAt(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bytesrc")
	require.NoError(t, err)
	_, err = f.Write([]byte("abcdefgh"))
	require.NoError(t, err)

	src := NewFileSource(f, f, 8)
	defer src.Close()

	dst := make([]byte, 3)
	require.NoError(t, src.ReadAt(2, 3, dst))
	assert.Equal(t, "cde", string(dst))

	err = src.ReadAt(6, 5, dst[:5])
	require.Error(t, err)
}

func TestGetReleaseBuffer(t *testing.T) {
	buf := GetBuffer(16)
	assert.Len(t, buf, 16)
	ReleaseBuffer(buf)

	buf2 := GetBuffer(4)
	assert.Len(t, buf2, 4)
}
