package bytesrc

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/coda-go/coda/internal/coerr"
)

// DecompressingSource wraps a flate-compressed sidecar (some CODA
// archival deployments store rarely-accessed products as
// product.dat.defl to save space) by inflating it once into memory at
// open time and serving reads from the result as an ordinary
// BufferSource. It is a convenience on top of BufferSource, not a new
// backend: CODA's cursor never knows the bytes were ever compressed.
type DecompressingSource struct {
	*BufferSource
}

// OpenDeflated inflates r (a raw DEFLATE stream, no zlib/gzip header)
// fully into memory and returns a Source bounded by the inflated size.
func OpenDeflated(r io.Reader) (*DecompressingSource, error) {
	fr := flate.NewReader(r)
	defer fr.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, fr); err != nil {
		return nil, coerr.New(coerr.ErrFileRead, "inflating compressed product failed", err)
	}
	return &DecompressingSource{BufferSource: NewBufferSource(buf.Bytes())}, nil
}
