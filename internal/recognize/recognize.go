// Package recognize is a minimal coda.Recognizer: it inspects a
// product's leading bytes and reports its size and physical format.
// CODA's core deliberately has no catalog of product class/type/
// version definitions (spec.md Non-goal), so this recognizer only
// resolves the format tag a container backend is registered for
// (HDF5, netCDF classic); ASCII and binary products need an
// externally-supplied root type this package cannot invent, and
// Recognize returns an error for them rather than guessing.
package recognize

import (
	"fmt"
	"os"

	"github.com/coda-go/coda/internal/typegraph"
)

var hdf5Signature = []byte("\x89HDF\r\n\x1a\n")

// Magic is a minimal, container-format-only coda.Recognizer
// implementation for the CLI tools.
type Magic struct{}

// Recognize implements coda.Recognizer.
func (Magic) Recognize(path string) (int64, typegraph.Format, *typegraph.Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("stat %s: %w", path, err)
	}

	head := make([]byte, 4)
	n, _ := f.ReadAt(head, 0)
	head = head[:n]

	switch {
	case len(head) >= 4 && string(head[:4]) == string(hdf5Signature[:4]):
		var full [8]byte
		if fn, _ := f.ReadAt(full[:], 0); fn == 8 && string(full[:]) == string(hdf5Signature) {
			return info.Size(), typegraph.FormatHDF5, nil, nil
		}
	case len(head) >= 3 && string(head[:3]) == "CDF":
		return info.Size(), typegraph.FormatCDF, nil, nil
	}

	return 0, 0, nil, fmt.Errorf("%s: unrecognized or unsupported product format (no external product definition was supplied)", path)
}
