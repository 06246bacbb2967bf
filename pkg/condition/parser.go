package condition

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokDot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func parseErrorf(pos int, format string, args ...interface{}) error {
	return errors.Errorf("condition: %s at position %d", fmt.Sprintf(format, args...), pos)
}

type scanner struct {
	input string
	pos   int
}

func (s *scanner) next() (token, error) {
	for s.pos < len(s.input) && (s.input[s.pos] == ' ' || s.input[s.pos] == '\t' || s.input[s.pos] == '\n' || s.input[s.pos] == '\r') {
		s.pos++
	}
	if s.pos >= len(s.input) {
		return token{kind: tokEOF, pos: s.pos}, nil
	}

	start := s.pos
	c := s.input[s.pos]
	switch c {
	case '(':
		s.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ')':
		s.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case '[':
		s.pos++
		return token{kind: tokLBracket, text: "[", pos: start}, nil
	case ']':
		s.pos++
		return token{kind: tokRBracket, text: "]", pos: start}, nil
	case ',':
		s.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case '.':
		s.pos++
		return token{kind: tokDot, text: ".", pos: start}, nil
	case '\'':
		return s.scanString()
	}

	if isIdentStart(c) {
		for s.pos < len(s.input) && isIdentPart(s.input[s.pos]) {
			s.pos++
		}
		return token{kind: tokIdent, text: s.input[start:s.pos], pos: start}, nil
	}
	if c >= '0' && c <= '9' {
		for s.pos < len(s.input) && (s.input[s.pos] >= '0' && s.input[s.pos] <= '9' || s.input[s.pos] == '.') {
			s.pos++
		}
		return token{kind: tokNumber, text: s.input[start:s.pos], pos: start}, nil
	}
	return token{}, parseErrorf(start, "unexpected character '%c'", c)
}

// scanString reads a single-quoted string. A doubled quote is the escape
// for a literal quote.
func (s *scanner) scanString() (token, error) {
	start := s.pos
	s.pos++
	var b strings.Builder
	for s.pos < len(s.input) {
		c := s.input[s.pos]
		if c == '\'' {
			if s.pos+1 < len(s.input) && s.input[s.pos+1] == '\'' {
				b.WriteByte('\'')
				s.pos += 2
				continue
			}
			s.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		}
		b.WriteByte(c)
		s.pos++
	}
	return token{}, parseErrorf(start, "unterminated string")
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// arity bounds per function; max -1 means unbounded.
var functionArity = map[string][2]int{
	"eq":         {2, 2},
	"ne":         {2, 2},
	"not":        {1, 1},
	"and":        {2, -1},
	"or":         {2, -1},
	"startswith": {2, 2},
	"endswith":   {2, 2},
	"contains":   {2, 2},
	"always":     {0, 0},
	"succeeded":  {0, -1},
	"failed":     {0, -1},
}

type parser struct {
	s   *scanner
	tok token
}

func (p *parser) advance() error {
	t, err := p.s.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.tok.kind != kind {
		return parseErrorf(p.tok.pos, "expected %s", what)
	}
	return p.advance()
}

func (p *parser) parseExpr() (expr, error) {
	switch p.tok.kind {
	case tokString, tokNumber:
		e := &literalExpr{val: stringValue(p.tok.text)}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return e, nil
	case tokIdent:
		switch strings.ToLower(p.tok.text) {
		case "true":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &literalExpr{val: boolValue(true)}, nil
		case "false":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &literalExpr{val: boolValue(false)}, nil
		case "variables":
			return p.parseVariables()
		default:
			return p.parseCall()
		}
	default:
		return nil, parseErrorf(p.tok.pos, "expected an expression")
	}
}

func (p *parser) parseCall() (expr, error) {
	fn := strings.ToLower(p.tok.text)
	pos := p.tok.pos
	arity, known := functionArity[fn]
	if !known {
		return nil, parseErrorf(pos, "unknown function '%s'", p.tok.text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(tokLParen, "'(' after function name"); err != nil {
		return nil, err
	}

	var args []expr
	if p.tok.kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok.kind != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}

	if len(args) < arity[0] {
		return nil, parseErrorf(pos, "function '%s' needs at least %d arguments, got %d", fn, arity[0], len(args))
	}
	if arity[1] >= 0 && len(args) > arity[1] {
		return nil, parseErrorf(pos, "function '%s' takes at most %d arguments, got %d", fn, arity[1], len(args))
	}
	return &callExpr{fn: fn, args: args, pos: pos}, nil
}

// parseVariables reads either form of a variables lookup:
// variables['Build.SourceBranch'] or variables.Build.SourceBranch.
func (p *parser) parseVariables() (expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	switch p.tok.kind {
	case tokLBracket:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokString {
			return nil, parseErrorf(p.tok.pos, "expected a quoted variable name")
		}
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		return &varExpr{name: name}, nil
	case tokDot:
		var parts []string
		for p.tok.kind == tokDot {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokIdent && p.tok.kind != tokNumber {
				return nil, parseErrorf(p.tok.pos, "expected a variable name after '.'")
			}
			parts = append(parts, p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		return &varExpr{name: strings.Join(parts, ".")}, nil
	default:
		return nil, parseErrorf(p.tok.pos, "expected '.' or '[' after variables")
	}
}
