package asciiparse

import (
	"sort"
	"sync"

	"github.com/coda-go/coda/internal/coerr"
)

// MaxASCIINumberLength bounds the stack buffer used to peek at a
// number/mapping candidate (spec §4.8).
const MaxASCIINumberLength = 64

// EOLConvention is the end-of-line style detected for an ASCII product.
type EOLConvention uint8

// EOL convention constants.
const (
	EOLUnknown EOLConvention = iota
	EOLLF
	EOLCR
	EOLCRLF
)

func (c EOLConvention) width() int {
	switch c {
	case EOLCRLF:
		return 2
	case EOLLF, EOLCR:
		return 1
	default:
		return 0
	}
}

// LineIndex is the lazily-built ascending array of line-end byte
// offsets for an ASCII product (spec §4.8 "line index"), built by one
// scan of the file buffer and guarded by a once-init primitive so
// later reads observe the committed state without locking.
type LineIndex struct {
	once        sync.Once
	buildErr    error
	ends        []int64 // offset of the byte *after* the line's content+EOL
	convention  EOLConvention
	lastUnterm  bool // true if the final line has no trailing EOL
}

// Build lazily scans buf for line boundaries, committing the first
// EOL convention it observes and rejecting a later occurrence of a
// different one (spec testable property 7 / scenario "End-of-line
// detection lock-in").
func (li *LineIndex) Build(buf []byte) error {
	li.once.Do(func() {
		li.buildErr = li.scan(buf)
	})
	return li.buildErr
}

func (li *LineIndex) scan(buf []byte) error {
	conv := EOLUnknown
	i := 0
	n := len(buf)
	for i < n {
		c := buf[i]
		switch c {
		case '\n':
			if err := li.lock(&conv, EOLLF); err != nil {
				return err
			}
			i++
			li.ends = append(li.ends, int64(i))
		case '\r':
			if i+1 < n && buf[i+1] == '\n' {
				if err := li.lock(&conv, EOLCRLF); err != nil {
					return err
				}
				i += 2
				li.ends = append(li.ends, int64(i))
			} else {
				if err := li.lock(&conv, EOLCR); err != nil {
					return err
				}
				i++
				li.ends = append(li.ends, int64(i))
			}
		default:
			i++
		}
	}
	if len(li.ends) == 0 || li.ends[len(li.ends)-1] != int64(n) {
		li.ends = append(li.ends, int64(n))
		li.lastUnterm = true
	}
	li.convention = conv
	return nil
}

func (li *LineIndex) lock(conv *EOLConvention, observed EOLConvention) error {
	if *conv == EOLUnknown {
		*conv = observed
		return nil
	}
	if *conv != observed {
		return coerr.New(coerr.ErrProduct, "ASCII product mixes end-of-line conventions", nil)
	}
	return nil
}

// Convention returns the committed end-of-line style. Valid only after Build.
func (li *LineIndex) Convention() EOLConvention { return li.convention }

// LineEnd returns the offset of the smallest recorded line end
// strictly greater than o (spec testable property 7), and whether
// that line is the final, possibly-unterminated one.
func (li *LineIndex) LineEnd(o int64) (end int64, isLast bool) {
	idx := sort.Search(len(li.ends), func(i int) bool { return li.ends[i] > o })
	if idx >= len(li.ends) {
		idx = len(li.ends) - 1
	}
	return li.ends[idx], idx == len(li.ends)-1 && li.lastUnterm
}
