package expr

// Parse compiles src into an expression AST. The grammar is a small
// first-order language: arithmetic, comparison, boolean operators,
// path selection (.field, [index], ^ for parent, a leading / for
// root), casts (int(..), float(..), string(..)), and named function
// calls from the small helper library (length, numelements, bytesize,
// exists, index, abs, floor, ceil, round, substr, strlen, bitand,
// bitor, bitxor); any other name parses but fails at evaluation as an
// unknown function.
func Parse(src string) (*Expr, error) {
	l := newLexer(src)
	p := &parser{lex: l}
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, typeErr("unexpected trailing input in expression: " + p.cur.text)
	}
	return e, nil
}

type parser struct {
	lex *lexer
	cur token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) isSym(s string) bool {
	return p.cur.kind == tokSymbol && p.cur.text == s
}

func (p *parser) expectSym(s string) error {
	if !p.isSym(s) {
		return typeErr("expected '" + s + "' in expression")
	}
	return p.advance()
}

func (p *parser) parseOr() (*Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isSym("||") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Expr{kind: opBinary, sym: "||", base: left, args: []*Expr{right}}
	}
	return left, nil
}

func (p *parser) parseAnd() (*Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.isSym("&&") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &Expr{kind: opBinary, sym: "&&", base: left, args: []*Expr{right}}
	}
	return left, nil
}

func (p *parser) parseEquality() (*Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.isSym("==") || p.isSym("!=") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &Expr{kind: opBinary, sym: op, base: left, args: []*Expr{right}}
	}
	return left, nil
}

func (p *parser) parseRelational() (*Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.isSym("<") || p.isSym("<=") || p.isSym(">") || p.isSym(">=") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &Expr{kind: opBinary, sym: op, base: left, args: []*Expr{right}}
	}
	return left, nil
}

func (p *parser) parseAdditive() (*Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isSym("+") || p.isSym("-") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Expr{kind: opBinary, sym: op, base: left, args: []*Expr{right}}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isSym("*") || p.isSym("/") || p.isSym("%") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Expr{kind: opBinary, sym: op, base: left, args: []*Expr{right}}
	}
	return left, nil
}

func (p *parser) parseUnary() (*Expr, error) {
	if p.isSym("-") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{kind: opUnaryMinus, base: inner}, nil
	}
	if p.isSym("!") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{kind: opNot, base: inner}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (*Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isSym("."):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tokIdent {
				return nil, typeErr("expected field name after '.'")
			}
			e = &Expr{kind: opField, sym: p.cur.text, base: e}
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.isSym("["):
			if err := p.advance(); err != nil {
				return nil, err
			}
			var idxs []*Expr
			for {
				idx, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				idxs = append(idxs, idx)
				if p.isSym(",") {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
			if err := p.expectSym("]"); err != nil {
				return nil, err
			}
			e = &Expr{kind: opIndex, base: e, indices: idxs}
		default:
			return e, nil
		}
	}
}

var castNames = map[string]opKind{
	"int":    opCastInt,
	"float":  opCastFloat,
	"string": opCastString,
}

func (p *parser) parsePrimary() (*Expr, error) {
	switch {
	case p.cur.kind == tokInt:
		v := p.cur.ival
		return p.wrap(&Expr{kind: opIntLit, ival: v})
	case p.cur.kind == tokFloat:
		v := p.cur.fval
		return p.wrap(&Expr{kind: opFloatLit, fval: v})
	case p.cur.kind == tokString:
		v := p.cur.text
		return p.wrap(&Expr{kind: opStringLit, sval: v})
	case p.cur.kind == tokIdent && p.cur.text == "true":
		return p.wrap(&Expr{kind: opBoolLit, bval: true})
	case p.cur.kind == tokIdent && p.cur.text == "false":
		return p.wrap(&Expr{kind: opBoolLit, bval: false})
	case p.isSym("^"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &Expr{kind: opParent, base: inner}, nil
	case p.isSym("/"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &Expr{kind: opRoot, base: inner}, nil
	case p.isSym("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSym(")"); err != nil {
			return nil, err
		}
		return inner, nil
	case p.cur.kind == tokIdent:
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isSym("(") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			var args []*Expr
			if !p.isSym(")") {
				for {
					a, err := p.parseOr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if p.isSym(",") {
						if err := p.advance(); err != nil {
							return nil, err
						}
						continue
					}
					break
				}
			}
			if err := p.expectSym(")"); err != nil {
				return nil, err
			}
			if kind, ok := castNames[name]; ok {
				if len(args) != 1 {
					return nil, typeErr("cast " + name + "() takes exactly one argument")
				}
				return &Expr{kind: kind, base: args[0]}, nil
			}
			return &Expr{kind: opCall, sym: name, args: args}, nil
		}
		return &Expr{kind: opField, sym: name}, nil
	}
	return nil, typeErr("unexpected token in expression: " + p.cur.text)
}

func (p *parser) wrap(e *Expr) (*Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	return e, nil
}
