package coda

import (
	"github.com/coda-go/coda/internal/check"
	"github.com/coda-go/coda/internal/typegraph"
)

// CheckOptions configures Check (spec §4.11 "product check").
type CheckOptions struct {
	// Fast skips re-deriving values already covered by a size
	// expression the VM could not prove fast (see UseFastSizeExpressions).
	Fast bool
	// TolerateTrailingWhitespace is passed through to the check
	// traversal, which does not consult it: setting it does not change
	// what is reported, and trailing whitespace is not tolerated.
	TolerateTrailingWhitespace bool
}

// Discrepancy is one structural problem found by Check, bound to the
// cursor path at which it occurred.
type Discrepancy = check.Discrepancy

// Check performs a full structural traversal of p, calling report for
// every discrepancy it finds rather than stopping at the first one
// (spec §4.11). It always returns nil: navigation and read failures
// alike are passed to report as discrepancies and the walk continues;
// no error aborts it.
func Check(p *Product, opts CheckOptions, report func(Discrepancy)) error {
	root := checkCursor{p.NewCursor()}
	return check.Run(root, check.Options{
		Fast:                       opts.Fast,
		TolerateTrailingWhitespace: opts.TolerateTrailingWhitespace,
	}, report)
}

// checkCursor adapts *Cursor to internal/check.Cursor. Clone must
// return the same interface type, which *Cursor's own Clone (declared
// to satisfy internal/expr.Cursor instead) does not, hence this
// wrapper rather than reusing that method directly.
type checkCursor struct{ c *Cursor }

func (cc checkCursor) Clone() check.Cursor           { return checkCursor{cc.c.cloneConcrete()} }
func (cc checkCursor) Exists() bool                  { return cc.c.Exists() }
func (cc checkCursor) Class() typegraph.Class        { return cc.c.Class() }
func (cc checkCursor) Name() string                  { return cc.c.Name() }
func (cc checkCursor) IsFastSizeExpr() bool          { return cc.c.IsFastSizeExpr() }
func (cc checkCursor) GetBitSize() (int64, error)    { return cc.c.GetBitSize() }
func (cc checkCursor) GetNumElements() (int64, error) { return cc.c.GetNumElements() }
func (cc checkCursor) GotoFirstRecordField() error   { return cc.c.GotoFirstRecordField() }
func (cc checkCursor) GotoNextRecordField() error    { return cc.c.GotoNextRecordField() }
func (cc checkCursor) GotoFirstArrayElement() error  { return cc.c.GotoFirstArrayElement() }
func (cc checkCursor) GotoNextArrayElement() error   { return cc.c.GotoNextArrayElement() }
func (cc checkCursor) GotoAttributes() error         { return cc.c.GotoAttributes() }
func (cc checkCursor) ReadString() (string, error)   { return cc.c.ReadString() }
func (cc checkCursor) ReadInt64() (int64, error)     { return cc.c.ReadInt64() }
func (cc checkCursor) ReadDouble() (float64, error)  { return cc.c.ReadDouble() }
