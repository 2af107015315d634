package expr

import "math"

// value is the VM's tagged runtime value.
type value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	node Cursor
}

func boolVal(b bool) value    { return value{kind: KindBoolean, b: b} }
func intVal(i int64) value    { return value{kind: KindInteger, i: i} }
func floatVal(f float64) value { return value{kind: KindFloat, f: f} }
func stringVal(s string) value { return value{kind: KindString, s: s} }

func (v value) asFloat() (float64, error) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), nil
	case KindFloat:
		return v.f, nil
	}
	return 0, typeErr("expected numeric value")
}

func (v value) asInt() (int64, error) {
	switch v.kind {
	case KindInteger:
		return v.i, nil
	case KindFloat:
		return int64(v.f), nil
	}
	return 0, typeErr("expected numeric value")
}

func (v value) asBool() (bool, error) {
	switch v.kind {
	case KindBoolean:
		return v.b, nil
	case KindInteger:
		return v.i != 0, nil
	}
	return false, typeErr("expected boolean value")
}

func (v value) asString() (string, error) {
	if v.kind != KindString {
		return "", typeErr("expected string value")
	}
	return v.s, nil
}

func (v value) asNode() (Cursor, error) {
	if v.kind != KindNode {
		return nil, typeErr("expected node value")
	}
	return v.node, nil
}

// EvaluateInteger evaluates e as a 64-bit signed integer, dereferencing
// a bare field/path result to the value stored at that node.
func EvaluateInteger(e *Expr, cur Cursor) (int64, error) {
	v, err := evalScalar(e, cur)
	if err != nil {
		return 0, err
	}
	return v.asInt()
}

// EvaluateFloat evaluates e as a double, dereferencing a bare
// field/path result to the value stored at that node.
func EvaluateFloat(e *Expr, cur Cursor) (float64, error) {
	v, err := evalScalar(e, cur)
	if err != nil {
		return 0, err
	}
	return v.asFloat()
}

// EvaluateBoolean evaluates e as a boolean, dereferencing a bare
// field/path result to the value stored at that node.
func EvaluateBoolean(e *Expr, cur Cursor) (bool, error) {
	v, err := evalScalar(e, cur)
	if err != nil {
		return false, err
	}
	return v.asBool()
}

// EvaluateString evaluates e as a string, dereferencing a bare
// field/path result to the value stored at that node.
func EvaluateString(e *Expr, cur Cursor) (string, error) {
	v, err := evalScalar(e, cur)
	if err != nil {
		return "", err
	}
	return v.asString()
}

// evalScalar is eval plus the node-to-scalar dereference every
// type-specific Evaluate* entry point needs: a path expression like
// "some_field" naturally evaluates to a node position (spec §4.5), and
// callers asking for its integer/float/boolean/string value expect the
// value stored there, not the position itself.
func evalScalar(e *Expr, cur Cursor) (value, error) {
	v, err := eval(e, cur)
	if err != nil {
		return value{}, err
	}
	return readScalar(v)
}

// EvaluateNode evaluates e as a cursor position.
func EvaluateNode(e *Expr, cur Cursor) (Cursor, error) {
	v, err := eval(e, cur)
	if err != nil {
		return nil, err
	}
	return v.asNode()
}

// Evaluate evaluates e without committing to a result type ahead of
// time, returning the value as whichever native Go type matches its
// runtime ValueKind (bool, int64, float64, or string; KindNode yields
// a Cursor). Used by callers such as the expression-evaluator CLI
// tool that only know the expression's type once it has run.
func Evaluate(e *Expr, cur Cursor) (interface{}, ValueKind, error) {
	v, err := eval(e, cur)
	if err != nil {
		return nil, KindVoid, err
	}
	if v.kind == KindNode {
		// A leaf field dereferences to its stored value; a record or
		// array node has no scalar contents, so it stays a node.
		if scalar, err := readScalar(v); err == nil {
			v = scalar
		}
	}
	switch v.kind {
	case KindBoolean:
		return v.b, v.kind, nil
	case KindInteger:
		return v.i, v.kind, nil
	case KindFloat:
		return v.f, v.kind, nil
	case KindString:
		return v.s, v.kind, nil
	case KindNode:
		return v.node, v.kind, nil
	default:
		return nil, v.kind, nil
	}
}

func eval(e *Expr, cur Cursor) (value, error) {
	switch e.kind {
	case opIntLit:
		return intVal(e.ival), nil
	case opFloatLit:
		return floatVal(e.fval), nil
	case opStringLit:
		return stringVal(e.sval), nil
	case opBoolLit:
		return boolVal(e.bval), nil
	case opUnaryMinus:
		v, err := eval(e.base, cur)
		if err != nil {
			return value{}, err
		}
		if v.kind == KindInteger {
			return intVal(-v.i), nil
		}
		f, err := v.asFloat()
		if err != nil {
			return value{}, err
		}
		return floatVal(-f), nil
	case opNot:
		b, err := evalBool(e.base, cur)
		if err != nil {
			return value{}, err
		}
		return boolVal(!b), nil
	case opCastInt:
		v, err := eval(e.base, cur)
		if err != nil {
			return value{}, err
		}
		i, err := v.asInt()
		if err != nil {
			return value{}, err
		}
		return intVal(i), nil
	case opCastFloat:
		v, err := eval(e.base, cur)
		if err != nil {
			return value{}, err
		}
		f, err := v.asFloat()
		if err != nil {
			return value{}, err
		}
		return floatVal(f), nil
	case opCastString:
		v, err := eval(e.base, cur)
		if err != nil {
			return value{}, err
		}
		s, err := v.asString()
		if err != nil {
			return value{}, err
		}
		return stringVal(s), nil
	case opBinary:
		return evalBinary(e, cur)
	case opField:
		return evalField(e, cur)
	case opIndex:
		return evalIndex(e, cur)
	case opParent:
		return evalParent(e, cur)
	case opRoot:
		return evalRoot(e, cur)
	case opCall:
		return evalCall(e, cur)
	}
	return value{}, typeErr("unhandled expression node")
}

func evalBool(e *Expr, cur Cursor) (bool, error) {
	v, err := eval(e, cur)
	if err != nil {
		return false, err
	}
	return v.asBool()
}

func evalBinary(e *Expr, cur Cursor) (value, error) {
	if e.sym == "&&" {
		l, err := evalBool(e.base, cur)
		if err != nil {
			return value{}, err
		}
		if !l {
			return boolVal(false), nil
		}
		r, err := evalBool(e.args[0], cur)
		if err != nil {
			return value{}, err
		}
		return boolVal(r), nil
	}
	if e.sym == "||" {
		l, err := evalBool(e.base, cur)
		if err != nil {
			return value{}, err
		}
		if l {
			return boolVal(true), nil
		}
		r, err := evalBool(e.args[0], cur)
		if err != nil {
			return value{}, err
		}
		return boolVal(r), nil
	}

	l, err := eval(e.base, cur)
	if err != nil {
		return value{}, err
	}
	r, err := eval(e.args[0], cur)
	if err != nil {
		return value{}, err
	}
	if l, err = readScalar(l); err != nil {
		return value{}, err
	}
	if r, err = readScalar(r); err != nil {
		return value{}, err
	}

	if e.sym == "==" || e.sym == "!=" {
		eq, err := valuesEqual(l, r)
		if err != nil {
			return value{}, err
		}
		if e.sym == "!=" {
			eq = !eq
		}
		return boolVal(eq), nil
	}

	if l.kind == KindString || r.kind == KindString {
		return value{}, typeErr("arithmetic/comparison operator applied to a string")
	}

	useFloat := l.kind == KindFloat || r.kind == KindFloat
	switch e.sym {
	case "<", "<=", ">", ">=":
		lf, err := l.asFloat()
		if err != nil {
			return value{}, err
		}
		rf, err := r.asFloat()
		if err != nil {
			return value{}, err
		}
		switch e.sym {
		case "<":
			return boolVal(lf < rf), nil
		case "<=":
			return boolVal(lf <= rf), nil
		case ">":
			return boolVal(lf > rf), nil
		default:
			return boolVal(lf >= rf), nil
		}
	case "+", "-", "*", "/", "%":
		if useFloat {
			lf, _ := l.asFloat()
			rf, _ := r.asFloat()
			switch e.sym {
			case "+":
				return floatVal(lf + rf), nil
			case "-":
				return floatVal(lf - rf), nil
			case "*":
				return floatVal(lf * rf), nil
			case "/":
				if rf == 0 {
					return value{}, typeErr("division by zero")
				}
				return floatVal(lf / rf), nil
			default:
				return value{}, typeErr("modulo requires integer operands")
			}
		}
		li, _ := l.asInt()
		ri, _ := r.asInt()
		switch e.sym {
		case "+":
			return intVal(li + ri), nil
		case "-":
			return intVal(li - ri), nil
		case "*":
			return intVal(li * ri), nil
		case "/":
			if ri == 0 {
				return value{}, typeErr("division by zero")
			}
			return intVal(li / ri), nil
		default:
			if ri == 0 {
				return value{}, typeErr("modulo by zero")
			}
			return intVal(li % ri), nil
		}
	}
	return value{}, typeErr("unknown operator " + e.sym)
}

func valuesEqual(l, r value) (bool, error) {
	if l.kind == KindString || r.kind == KindString {
		ls, err := l.asString()
		if err != nil {
			return false, err
		}
		rs, err := r.asString()
		if err != nil {
			return false, err
		}
		return ls == rs, nil
	}
	if l.kind == KindBoolean || r.kind == KindBoolean {
		lb, err := l.asBool()
		if err != nil {
			return false, err
		}
		rb, err := r.asBool()
		if err != nil {
			return false, err
		}
		return lb == rb, nil
	}
	lf, err := l.asFloat()
	if err != nil {
		return false, err
	}
	rf, err := r.asFloat()
	if err != nil {
		return false, err
	}
	return lf == rf, nil
}

func evalField(e *Expr, cur Cursor) (value, error) {
	if cur == nil {
		return value{}, typeErr("field reference '" + e.sym + "' requires a cursor")
	}
	c := cur.Clone()
	if e.base != nil {
		bv, err := eval(e.base, cur)
		if err != nil {
			return value{}, err
		}
		bc, err := bv.asNode()
		if err != nil {
			return value{}, err
		}
		c = bc.Clone()
	}
	if err := c.GotoField(e.sym); err != nil {
		return value{}, err
	}
	return value{kind: KindNode, node: c}, nil
}

func evalIndex(e *Expr, cur Cursor) (value, error) {
	bv, err := eval(e.base, cur)
	if err != nil {
		return value{}, err
	}
	bc, err := bv.asNode()
	if err != nil {
		return value{}, err
	}
	idxs := make([]int64, len(e.indices))
	for i, ie := range e.indices {
		v, err := EvaluateInteger(ie, cur)
		if err != nil {
			return value{}, err
		}
		idxs[i] = v
	}
	c := bc.Clone()
	if err := c.GotoArrayElement(idxs); err != nil {
		return value{}, err
	}
	return value{kind: KindNode, node: c}, nil
}

func evalParent(e *Expr, cur Cursor) (value, error) {
	bv, err := eval(e.base, cur)
	if err != nil {
		return value{}, err
	}
	bc, err := bv.asNode()
	if err != nil {
		return value{}, err
	}
	c := bc.Clone()
	if err := c.GotoParent(); err != nil {
		return value{}, err
	}
	return value{kind: KindNode, node: c}, nil
}

func evalRoot(e *Expr, cur Cursor) (value, error) {
	if cur == nil {
		return value{}, typeErr("root reference requires a cursor")
	}
	c := cur.Clone()
	if err := c.GotoRoot(); err != nil {
		return value{}, err
	}
	bv, err := eval(e.base, c)
	if err != nil {
		return value{}, err
	}
	return bv, nil
}

// readScalar resolves a node-valued argument to its scalar contents,
// matching how size/available expressions dereference a field
// reference to the value stored there.
func readScalar(v value) (value, error) {
	if v.kind != KindNode {
		return v, nil
	}
	if i, err := v.node.ReadInt(); err == nil {
		return intVal(i), nil
	}
	if f, err := v.node.ReadFloat(); err == nil {
		return floatVal(f), nil
	}
	s, err := v.node.ReadString()
	if err != nil {
		return value{}, err
	}
	return stringVal(s), nil
}

func evalCall(e *Expr, cur Cursor) (value, error) {
	arg := func(i int) (value, error) {
		v, err := eval(e.args[i], cur)
		if err != nil {
			return value{}, err
		}
		return v, nil
	}
	nodeArg := func(i int) (Cursor, error) {
		v, err := arg(i)
		if err != nil {
			return nil, err
		}
		return v.asNode()
	}

	switch e.sym {
	case "length", "numelements":
		n, err := nodeArg(0)
		if err != nil {
			return value{}, err
		}
		v, err := n.NumElements()
		if err != nil {
			return value{}, err
		}
		return intVal(v), nil
	case "bytesize":
		n, err := nodeArg(0)
		if err != nil {
			return value{}, err
		}
		b, err := n.BitSize()
		if err != nil {
			return value{}, err
		}
		return intVal(b / 8), nil
	case "dim":
		n, err := nodeArg(0)
		if err != nil {
			return value{}, err
		}
		d, err := EvaluateInteger(e.args[1], cur)
		if err != nil {
			return value{}, err
		}
		v, err := n.ArrayDim(int(d))
		if err != nil {
			return value{}, err
		}
		return intVal(v), nil
	case "exists":
		n, err := nodeArg(0)
		if err != nil {
			return boolVal(false), nil
		}
		return boolVal(n.Exists()), nil
	case "index":
		n, err := nodeArg(0)
		if err != nil {
			return value{}, err
		}
		idx, err := EvaluateInteger(e.args[1], cur)
		if err != nil {
			return value{}, err
		}
		c := n.Clone()
		if err := c.GotoArrayElement([]int64{idx}); err != nil {
			return value{}, err
		}
		return readScalar(value{kind: KindNode, node: c})
	case "abs":
		v, err := arg(0)
		if err != nil {
			return value{}, err
		}
		if v.kind == KindInteger {
			if v.i < 0 {
				return intVal(-v.i), nil
			}
			return v, nil
		}
		f, err := v.asFloat()
		if err != nil {
			return value{}, err
		}
		return floatVal(math.Abs(f)), nil
	case "floor":
		f, err := evalArgFloat(e, cur, 0)
		if err != nil {
			return value{}, err
		}
		return floatVal(math.Floor(f)), nil
	case "ceil":
		f, err := evalArgFloat(e, cur, 0)
		if err != nil {
			return value{}, err
		}
		return floatVal(math.Ceil(f)), nil
	case "round":
		f, err := evalArgFloat(e, cur, 0)
		if err != nil {
			return value{}, err
		}
		return floatVal(math.Round(f)), nil
	case "strlen":
		s, err := EvaluateString(e.args[0], cur)
		if err != nil {
			return value{}, err
		}
		return intVal(int64(len(s))), nil
	case "substr":
		s, err := EvaluateString(e.args[0], cur)
		if err != nil {
			return value{}, err
		}
		off, err := EvaluateInteger(e.args[1], cur)
		if err != nil {
			return value{}, err
		}
		length, err := EvaluateInteger(e.args[2], cur)
		if err != nil {
			return value{}, err
		}
		if off < 0 || length < 0 || off+length > int64(len(s)) {
			return value{}, typeErr("substr() out of range")
		}
		return stringVal(s[off : off+length]), nil
	case "bitand", "bitor", "bitxor":
		a, err := EvaluateInteger(e.args[0], cur)
		if err != nil {
			return value{}, err
		}
		b, err := EvaluateInteger(e.args[1], cur)
		if err != nil {
			return value{}, err
		}
		switch e.sym {
		case "bitand":
			return intVal(a & b), nil
		case "bitor":
			return intVal(a | b), nil
		default:
			return intVal(a ^ b), nil
		}
	}
	return value{}, typeErr("unknown function: " + e.sym)
}

func evalArgFloat(e *Expr, cur Cursor, i int) (float64, error) {
	v, err := eval(e.args[i], cur)
	if err != nil {
		return 0, err
	}
	return v.asFloat()
}
