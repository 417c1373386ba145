// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrSyntax          = errors.New("calc: syntax error")
	ErrUnknownConstant = errors.New("calc: unknown constant")
	ErrUnknownFunction = errors.New("calc: unknown function")
	ErrArity           = errors.New("calc: invalid number of arguments")
)

// Parse reduces the expression text to a constant or to a function of
// the parameter value PV.
//
// The grammar is, from lowest to highest precedence:
//
//	cond    := sum ['?' cond ':' cond]
//	sum     := product (('+'|'-') product)*
//	product := unary (('*'|'/') unary)*
//	unary   := ('-'|'+') unary | power
//	power   := primary ['**' unary]
//	primary := number | 'PV' | 'E' | 'PI' | name '(' args ')' | '(' cond ')'
//
// Function names are case-insensitive.
func Parse(text string) (Value, error) {
	p := &parser{input: text}
	v, err := p.parseCond()
	if err != nil {
		return v, err
	}
	if p.peek() != 0 {
		return v, p.errorf("unexpected %q", p.input[p.pos:])
	}
	if !v.IsConst() {
		v.src = strings.TrimSpace(text)
	}
	return v, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Value {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseList reduces a comma-separated list of expressions.
// Commas nested in function calls do not split the list.
func ParseList(text string) ([]Value, error) {
	p := &parser{input: text}
	var vs []Value
	for {
		beg := p.pos
		v, err := p.parseCond()
		if err != nil {
			return nil, err
		}
		if !v.IsConst() {
			v.src = strings.TrimSpace(p.input[beg:p.pos])
		}
		vs = append(vs, v)
		switch p.peek() {
		case ',':
			p.pos++
		case 0:
			return vs, nil
		default:
			return nil, p.errorf("unexpected %q", p.input[p.pos:])
		}
	}
}

type parser struct {
	input string
	pos   int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf(
		"%w at offset %d in %q: %s",
		ErrSyntax, p.pos, p.input, fmt.Sprintf(format, args...),
	)
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) peekStr(n int) string {
	p.skipSpaces()
	end := p.pos + n
	if end > len(p.input) {
		end = len(p.input)
	}
	return p.input[p.pos:end]
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		if p.pos >= len(p.input) {
			return p.errorf("expected %q, got end of input", c)
		}
		return p.errorf("expected %q, got %q", c, p.input[p.pos])
	}
	p.pos++
	return nil
}

func (p *parser) parseCond() (Value, error) {
	c, err := p.parseSum()
	if err != nil {
		return c, err
	}
	if p.peek() != '?' {
		return c, nil
	}
	p.pos++
	a, err := p.parseCond()
	if err != nil {
		return a, err
	}
	err = p.expect(':')
	if err != nil {
		return a, err
	}
	b, err := p.parseCond()
	if err != nil {
		return b, err
	}
	return nary(funcs["if"].eval, []Value{c, a, b}), nil
}

func (p *parser) parseSum() (Value, error) {
	lhs, err := p.parseProduct()
	if err != nil {
		return lhs, err
	}
	for {
		var op func(x, y float64) float64
		switch p.peek() {
		case '+':
			op = func(x, y float64) float64 { return x + y }
		case '-':
			op = func(x, y float64) float64 { return x - y }
		default:
			return lhs, nil
		}
		p.pos++
		rhs, err := p.parseProduct()
		if err != nil {
			return rhs, err
		}
		lhs = binary(op, lhs, rhs)
	}
}

func (p *parser) parseProduct() (Value, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return lhs, err
	}
	for {
		var op func(x, y float64) float64
		switch {
		case p.peekStr(2) == "**":
			return lhs, nil
		case p.peek() == '*':
			op = func(x, y float64) float64 { return x * y }
		case p.peek() == '/':
			op = func(x, y float64) float64 { return x / y }
		default:
			return lhs, nil
		}
		p.pos++
		rhs, err := p.parseUnary()
		if err != nil {
			return rhs, err
		}
		lhs = binary(op, lhs, rhs)
	}
}

func (p *parser) parseUnary() (Value, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return v, err
		}
		return unary(func(x float64) float64 { return -x }, v), nil
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Value, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return base, err
	}
	if p.peekStr(2) != "**" {
		return base, nil
	}
	p.pos += 2
	exp, err := p.parseUnary()
	if err != nil {
		return exp, err
	}
	return binary(math.Pow, base, exp), nil
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func (p *parser) parsePrimary() (Value, error) {
	c := p.peek()
	switch {
	case c == 0:
		return Value{}, p.errorf("unexpected end of input")

	case c == '(':
		p.pos++
		v, err := p.parseCond()
		if err != nil {
			return v, err
		}
		return v, p.expect(')')

	case isDigit(c) || c == '.':
		return p.parseNumber()

	case isLetter(c):
		beg := p.pos
		for p.pos < len(p.input) && (isLetter(p.input[p.pos]) || isDigit(p.input[p.pos])) {
			p.pos++
		}
		name := p.input[beg:p.pos]
		if p.peek() == '(' {
			return p.parseCall(name)
		}
		if name == "PV" {
			return PV(), nil
		}
		if v, ok := consts[name]; ok {
			return Const(v), nil
		}
		return Value{}, fmt.Errorf("%w %q at offset %d in %q", ErrUnknownConstant, name, beg, p.input)
	}

	return Value{}, p.errorf("unexpected %q", c)
}

func (p *parser) parseNumber() (Value, error) {
	beg := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos < len(p.input) && (p.input[p.pos] == 'e' || p.input[p.pos] == 'E') {
		end := p.pos + 1
		if end < len(p.input) && (p.input[end] == '+' || p.input[end] == '-') {
			end++
		}
		if end < len(p.input) && isDigit(p.input[end]) {
			for end < len(p.input) && isDigit(p.input[end]) {
				end++
			}
			p.pos = end
		}
	}
	txt := p.input[beg:p.pos]
	v, err := strconv.ParseFloat(txt, 64)
	if err != nil {
		p.pos = beg
		return Value{}, p.errorf("invalid number %q", txt)
	}
	return Const(v), nil
}

func (p *parser) parseCall(name string) (Value, error) {
	beg := p.pos
	fct, ok := funcs[strings.ToLower(name)]
	if !ok {
		return Value{}, fmt.Errorf("%w %q at offset %d in %q", ErrUnknownFunction, name, beg, p.input)
	}
	err := p.expect('(')
	if err != nil {
		return Value{}, err
	}

	var args []Value
	if p.peek() != ')' {
		for {
			v, err := p.parseCond()
			if err != nil {
				return v, err
			}
			args = append(args, v)
			if p.peek() != ',' {
				break
			}
			p.pos++
		}
	}
	err = p.expect(')')
	if err != nil {
		return Value{}, err
	}

	switch {
	case fct.arity == variadic && len(args) == 0,
		fct.arity != variadic && len(args) != fct.arity:
		want := strconv.Itoa(fct.arity)
		if fct.arity == variadic {
			want = "at least 1"
		}
		return Value{}, fmt.Errorf(
			"%w: %s takes %s argument(s), got %d",
			ErrArity, name, want, len(args),
		)
	}
	return nary(fct.eval, args), nil
}
