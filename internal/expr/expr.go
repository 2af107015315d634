// Package expr implements CODA's expression VM (spec §4.5): the small
// first-order language used by size_expr, available_expr, dimension
// expressions, and user evaluation requests.
//
// Expressions are parsed once into an AST of tagged nodes (Expr) and
// evaluated by a recursive walk. The VM never constructs or mutates a
// type graph; Cursor is a caller-supplied interface so this package
// has no dependency on the concrete cursor implementation, breaking
// what would otherwise be an import cycle (the cursor dispatches into
// backends that need to evaluate size expressions against it).
package expr

import "github.com/coda-go/coda/internal/coerr"

// ValueKind is the result type of an expression.
type ValueKind uint8

// Expression value kinds.
const (
	KindVoid ValueKind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindString
	KindNode
)

// Cursor is the minimal navigation and read surface the VM needs from
// a concrete cursor to evaluate path and read operators. The concrete
// cursor type (the public coda.Cursor) implements this by duck typing.
type Cursor interface {
	// Clone returns an independent copy positioned identically to the receiver.
	Clone() Cursor
	GotoRoot() error
	GotoParent() error
	GotoField(name string) error
	GotoArrayElement(indices []int64) error
	NumElements() (int64, error)
	ArrayDim(dim int) (int64, error)
	ReadInt() (int64, error)
	ReadFloat() (float64, error)
	ReadString() (string, error)
	BitSize() (int64, error)
	Exists() bool
}

// opKind enumerates AST node kinds.
type opKind uint8

const (
	opIntLit opKind = iota
	opFloatLit
	opStringLit
	opBoolLit
	opField       // a.field or plain identifier resolved against cursor
	opIndex       // a[i, j, ...]
	opParent      // ^
	opRoot        // starts from product root
	opUnaryMinus
	opNot
	opBinary // Sym holds the operator token
	opCall   // Sym holds the function name, Args holds arguments
	opCastInt
	opCastFloat
	opCastString
)

// Expr is one node of the parsed expression AST.
type Expr struct {
	kind    opKind
	sym     string
	ival    int64
	fval    float64
	sval    string
	bval    bool
	base    *Expr
	args    []*Expr
	indices []*Expr
}

// IsConstant reports whether e can be evaluated without a cursor: it
// contains no field/index/parent/root operator anywhere in its tree.
func (e *Expr) IsConstant() bool {
	switch e.kind {
	case opIntLit, opFloatLit, opStringLit, opBoolLit:
		return true
	case opField, opIndex, opParent, opRoot:
		return false
	case opUnaryMinus, opNot, opCastInt, opCastFloat, opCastString:
		return e.base.IsConstant()
	case opBinary:
		return e.base.IsConstant() && e.args[0].IsConstant()
	case opCall:
		for _, a := range e.args {
			if !a.IsConstant() {
				return false
			}
		}
		return true
	}
	return false
}

// IsFast reports whether e counts as fast: it is fast unless it calls
// a function other than length or numelements (those two are fast when
// their argument is). Field, index, parent and root references are
// all fast. This backs the use_fast_size_expressions toggle (spec
// glossary, SPEC_FULL.md supplemented feature 3).
func (e *Expr) IsFast() bool {
	if e.kind == opCall && (e.sym == "length" || e.sym == "numelements") {
		// These only need the immediately-named node's declared size,
		// not a full element-by-element scan.
		return e.args[0].IsFast()
	}
	if e.kind == opCall {
		return false
	}
	switch e.kind {
	case opUnaryMinus, opNot, opCastInt, opCastFloat, opCastString:
		return e.base.IsFast()
	case opBinary:
		return e.base.IsFast() && e.args[0].IsFast()
	case opIndex:
		ok := e.base.IsFast()
		for _, idx := range e.indices {
			ok = ok && idx.IsFast()
		}
		return ok
	}
	return true
}

func typeErr(msg string) error {
	return coerr.New(coerr.ErrExpression, msg, nil)
}
