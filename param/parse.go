// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-lpc/decom/words"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLBrack
	tokRBrack
	tokPlus
	tokMinus
	tokInc
	tokDec
	tokColon
	tokComma
	tokTilde
	tokLess
	tokNum
	tokConst
	tokIdent
)

var tokenNames = [...]string{
	tokEOF:    "end of input",
	tokLBrack: "'['",
	tokRBrack: "']'",
	tokPlus:   "'+'",
	tokMinus:  "'-'",
	tokInc:    "'++'",
	tokDec:    "'--'",
	tokColon:  "':'",
	tokComma:  "','",
	tokTilde:  "'~'",
	tokLess:   "'<'",
	tokNum:    "number",
	tokConst:  "constant",
	tokIdent:  "identifier",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	pos  int
	text string

	// constants
	value uint64
	size  int
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func isDigitOf(base int, c byte) bool {
	switch base {
	case 2:
		return c == '0' || c == '1'
	case 8:
		return '0' <= c && c <= '7'
	case 10:
		return '0' <= c && c <= '9'
	case 16:
		return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
	}
	return false
}

func constBase(c byte) (base, bitsPerDigit int) {
	switch c {
	case 'x':
		return 16, 4
	case 'o':
		return 8, 3
	case 'b':
		return 2, 1
	}
	return 0, 0
}

func (lex *lexer) errorf(pos int, format string, args ...interface{}) error {
	return fmt.Errorf("%w at offset %d in %q: %s", ErrSyntax, pos, lex.src, fmt.Sprintf(format, args...))
}

func tokenize(src string) ([]token, error) {
	lex := &lexer{src: src}
	err := lex.run()
	return lex.toks, err
}

func (lex *lexer) emit(kind tokenKind, beg int) {
	lex.toks = append(lex.toks, token{kind: kind, pos: beg, text: lex.src[beg:lex.pos]})
}

func (lex *lexer) run() error {
	src := lex.src
	for lex.pos < len(src) {
		beg := lex.pos
		c := src[lex.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lex.pos++
		case c == '[':
			lex.pos++
			lex.emit(tokLBrack, beg)
		case c == ']':
			lex.pos++
			lex.emit(tokRBrack, beg)
		case c == ':':
			lex.pos++
			lex.emit(tokColon, beg)
		case c == ',':
			lex.pos++
			lex.emit(tokComma, beg)
		case c == '~':
			lex.pos++
			lex.emit(tokTilde, beg)
		case c == '<':
			lex.pos++
			lex.emit(tokLess, beg)
		case c == '+':
			lex.pos++
			if lex.pos < len(src) && src[lex.pos] == '+' {
				lex.pos++
				lex.emit(tokInc, beg)
				continue
			}
			lex.emit(tokPlus, beg)
		case c == '-':
			lex.pos++
			if lex.pos < len(src) && src[lex.pos] == '-' {
				lex.pos++
				lex.emit(tokDec, beg)
				continue
			}
			lex.emit(tokMinus, beg)
		case c == '\'' || c == '"':
			lex.pos++
			tok, err := lex.constant()
			if err != nil {
				return err
			}
			if lex.pos >= len(src) || src[lex.pos] != c {
				return lex.errorf(lex.pos, "unterminated quoted constant")
			}
			lex.pos++
			tok.pos = beg
			tok.text = src[beg:lex.pos]
			lex.toks = append(lex.toks, tok)
		case isDigitOf(10, c):
			for lex.pos < len(src) && isDigitOf(10, src[lex.pos]) {
				lex.pos++
			}
			v, err := strconv.ParseUint(src[beg:lex.pos], 10, 64)
			if err != nil {
				return lex.errorf(beg, "invalid number %q: %v", src[beg:lex.pos], err)
			}
			lex.emit(tokNum, beg)
			lex.toks[len(lex.toks)-1].value = v
		case c < unicode.MaxASCII && unicode.IsLetter(rune(c)):
			if base, _ := constBase(c); base != 0 && lex.pos+1 < len(src) && isDigitOf(base, src[lex.pos+1]) {
				tok, err := lex.constant()
				if err != nil {
					return err
				}
				lex.toks = append(lex.toks, tok)
				continue
			}
			for lex.pos < len(src) && src[lex.pos] < unicode.MaxASCII && unicode.IsLetter(rune(src[lex.pos])) {
				lex.pos++
			}
			lex.emit(tokIdent, beg)
		default:
			return lex.errorf(beg, "unexpected character %q", c)
		}
	}
	lex.emit(tokEOF, lex.pos)
	return nil
}

// constant lexes a x.., o.. or b.. literal.
// Its size is the number of bits carried by its digits.
func (lex *lexer) constant() (token, error) {
	beg := lex.pos
	if lex.pos >= len(lex.src) {
		return token{}, lex.errorf(beg, "missing constant")
	}
	base, bpd := constBase(lex.src[lex.pos])
	if base == 0 {
		return token{}, lex.errorf(beg, "invalid constant prefix %q", lex.src[lex.pos])
	}
	lex.pos++
	for lex.pos < len(lex.src) && isDigitOf(base, lex.src[lex.pos]) {
		lex.pos++
	}
	digits := lex.src[beg+1 : lex.pos]
	if digits == "" {
		return token{}, lex.errorf(beg, "constant without digits")
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return token{}, fmt.Errorf("%w: %q: %v", ErrConstant, lex.src[beg:lex.pos], err)
	}
	return token{
		kind:  tokConst,
		pos:   beg,
		text:  lex.src[beg:lex.pos],
		value: v,
		size:  bpd * len(digits),
	}, nil
}

type parser struct {
	src  string
	toks []token
	cur  int
}

// Parse parses the textual definition of a parameter.
func Parse(text string) (Parameter, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{src: text, toks: toks}
	param, err := p.parameter()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %v after parameter", tok.kind)
	}
	return param, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Parameter {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *parser) errorf(tok token, format string, args ...interface{}) error {
	return fmt.Errorf("%w at offset %d in %q: %s", ErrSyntax, tok.pos, p.src, fmt.Sprintf(format, args...))
}

func (p *parser) peek() token { return p.toks[p.cur] }

func (p *parser) next() token {
	tok := p.toks[p.cur]
	if tok.kind != tokEOF {
		p.cur++
	}
	return tok
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, p.errorf(tok, "expected %v, got %v", kind, tok.kind)
	}
	return tok, nil
}

func (p *parser) int() (int, error) {
	tok, err := p.expect(tokNum)
	if err != nil {
		return 0, err
	}
	if tok.value > 1<<31 {
		return 0, p.errorf(tok, "number %s too large", tok.text)
	}
	return int(tok.value), nil
}

// span checks the range beg-end holds at most as many elements as a
// parameter may hold bits.
func (p *parser) span(tok token, kind string, beg, end int) error {
	n := end - beg
	if n < 0 {
		n = -n
	}
	if n >= words.MaxWordSize {
		return p.errorf(tok, "%s range %d-%d spans more than %d %ss", kind, beg, end, words.MaxWordSize, kind)
	}
	return nil
}

func (p *parser) parameter() (Parameter, error) {
	_, err := p.expect(tokLBrack)
	if err != nil {
		return nil, err
	}
	frags, err := p.fragments()
	if err != nil {
		return nil, err
	}

	var (
		gen *Iterator
		sup *Iterator
	)
	if k := p.peek().kind; k == tokInc || k == tokDec {
		it, err := p.iterator()
		if err != nil {
			return nil, err
		}
		gen = &it
	}

	_, err = p.expect(tokRBrack)
	if err != nil {
		return nil, err
	}

	var op *BitOperator
	if p.peek().kind == tokIdent {
		op, err = p.bitop()
		if err != nil {
			return nil, err
		}
	}

	if k := p.peek().kind; k == tokInc || k == tokDec {
		tok := p.peek()
		if gen != nil {
			return nil, p.errorf(tok, "parameter has two iterators")
		}
		it, err := p.iterator()
		if err != nil {
			return nil, err
		}
		sup = &it
	}

	tmpl, err := NewBasic(frags, op)
	if err != nil {
		return nil, err
	}

	switch {
	case gen != nil:
		return NewGenerator(tmpl, *gen)
	case sup != nil:
		return NewSupercom(tmpl, *sup)
	default:
		return tmpl, nil
	}
}

func (p *parser) fragments() ([]Fragment, error) {
	var frags []Fragment
	for {
		grp, err := p.group()
		if err != nil {
			return nil, err
		}
		frags = append(frags, grp...)
		if !p.accept(tokPlus) {
			return frags, nil
		}
	}
}

// group parses an optionally complemented and/or reversed item.
// The flags apply to every fragment of the item.
func (p *parser) group() ([]Fragment, error) {
	complement := p.accept(tokTilde)
	mk, err := p.item()
	if err != nil {
		return nil, err
	}
	reverse := false
	if tok := p.peek(); tok.kind == tokIdent && tok.text == "R" {
		p.next()
		reverse = true
	}
	return mk(complement, reverse)
}

type fragMaker func(complement, reverse bool) ([]Fragment, error)

func (p *parser) item() (fragMaker, error) {
	tok := p.next()
	switch tok.kind {
	case tokConst:
		return func(complement, reverse bool) ([]Fragment, error) {
			c, err := NewConstant(tok.value, tok.size, complement, reverse)
			if err != nil {
				return nil, err
			}
			return []Fragment{c}, nil
		}, nil

	case tokNum:
		if tok.value > 1<<31 {
			return nil, p.errorf(tok, "number %s too large", tok.text)
		}
		beg := int(tok.value)
		end := beg
		if p.accept(tokMinus) {
			v, err := p.int()
			if err != nil {
				return nil, err
			}
			end = v
		}

		var bits []int
		if p.accept(tokColon) {
			var err error
			bits, err = p.bitspec()
			if err != nil {
				return nil, err
			}
			if p.peek().kind == tokMinus {
				dash := p.next()
				if end != beg {
					return nil, p.errorf(dash, "word range given twice")
				}
				end, err = p.int()
				if err != nil {
					return nil, err
				}
			}
		}

		err := p.span(tok, "word", beg, end)
		if err != nil {
			return nil, err
		}
		slots := irange(beg, end)
		return func(complement, reverse bool) ([]Fragment, error) {
			frags := make([]Fragment, 0, len(slots))
			for _, w := range slots {
				f, err := NewWord(w, bits...)
				if err != nil {
					return nil, err
				}
				f.Complement = complement
				f.Reverse = reverse
				frags = append(frags, f)
			}
			return frags, nil
		}, nil
	}

	return nil, p.errorf(tok, "expected word or constant, got %v", tok.kind)
}

// bitspec parses a mask constant or a list of bits and bit ranges.
func (p *parser) bitspec() ([]int, error) {
	if tok := p.peek(); tok.kind == tokConst {
		p.next()
		bits := bitMask(tok.value)
		if len(bits) == 0 {
			return nil, p.errorf(tok, "empty bit mask %s", tok.text)
		}
		return bits, nil
	}

	var bits []int
	for {
		tok := p.peek()
		beg, err := p.int()
		if err != nil {
			return nil, err
		}
		end := beg
		if p.accept(tokMinus) {
			end, err = p.int()
			if err != nil {
				return nil, err
			}
		}
		err = p.span(tok, "bit", beg, end)
		if err != nil {
			return nil, err
		}
		bits = append(bits, irange(beg, end)...)
		if !p.accept(tokComma) {
			return bits, nil
		}
	}
}

func (p *parser) iterator() (Iterator, error) {
	tok := p.next()
	step, err := p.int()
	if err != nil {
		return Iterator{}, err
	}
	if tok.kind == tokDec {
		step = -step
	}
	if !p.accept(tokLess) {
		return NewIterator(step)
	}
	stop, err := p.int()
	if err != nil {
		return Iterator{}, err
	}
	return NewIteratorTo(step, stop)
}

func (p *parser) bitop() (*BitOperator, error) {
	tok := p.next()
	mode := strings.ToUpper(tok.text)
	switch mode {
	case "AND", "OR", "XOR":
	default:
		return nil, p.errorf(tok, "%v: unknown mode %q", ErrBitOp, tok.text)
	}
	arg := p.next()
	switch arg.kind {
	case tokConst, tokNum:
		return NewBitOperator(mode, arg.value)
	}
	return nil, p.errorf(arg, "expected bit operator operand, got %v", arg.kind)
}
