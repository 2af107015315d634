package expr

import (
	"strconv"
	"strings"

	"github.com/coda-go/coda/internal/coerr"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokSymbol // operators and punctuation, literal text kept in .text
)

type token struct {
	kind tokKind
	text string
	ival int64
	fval float64
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.pos++
			continue
		}
		break
	}
}

var multiCharSymbols = []string{"==", "!=", "<=", ">=", "&&", "||", "<<", ">>"}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}, nil
	}
	c := l.src[l.pos]

	switch {
	case c >= '0' && c <= '9':
		return l.lexNumber()
	case c == '"':
		return l.lexString()
	case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		return l.lexIdent(), nil
	}

	for _, sym := range multiCharSymbols {
		if l.pos+len(sym) <= len(l.src) && string(l.src[l.pos:l.pos+len(sym)]) == sym {
			l.pos += len(sym)
			return token{kind: tokSymbol, text: sym}, nil
		}
	}

	l.pos++
	return token{kind: tokSymbol, text: string(c)}, nil
}

func (l *lexer) lexIdent() token {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			l.pos++
			continue
		}
		break
	}
	return token{kind: tokIdent, text: string(l.src[start:l.pos])}
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	isFloat := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c >= '0' && c <= '9':
			l.pos++
		case c == '.' && !isFloat:
			isFloat = true
			l.pos++
		case (c == 'e' || c == 'E') && l.pos+1 < len(l.src):
			isFloat = true
			l.pos++
			if l.peekRune() == '+' || l.peekRune() == '-' {
				l.pos++
			}
		default:
			goto done
		}
	}
done:
	text := string(l.src[start:l.pos])
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, typeErr("malformed float literal: " + text)
		}
		return token{kind: tokFloat, fval: f, text: text}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, typeErr("malformed integer literal: " + text)
	}
	return token{kind: tokInt, ival: i, text: text}, nil
}

func (l *lexer) lexString() (token, error) {
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '"' {
			l.pos++
			return token{kind: tokString, text: sb.String()}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			switch l.src[l.pos] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(l.src[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteRune(c)
		l.pos++
	}
	return token{}, coerr.New(coerr.ErrExpression, "unterminated string literal", nil)
}
