package sql

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Literal
	TkTrue = iota
	TkFalse
	TkInt
	TkStr
	TkId
	TkQId // quoted identifier, text kept verbatim including quotes

	// Keywords
	TkSelect
	TkFrom
	TkAs
	TkWhere
	TkGroupBy
	TkHaving
	TkOrderBy
	TkLimit
	TkOffset
	TkDistinct
	TkAll
	TkJoin
	TkInner
	TkOn
	TkLateral
	TkWith
	TkShow
	TkCopy
	TkTo
	TkDrop
	TkTable
	TkCreate
	TkAsc
	TkDesc

	// Punctuation
	TkComma
	TkSemicolon
	TkDot

	TkLPar
	TkRPar

	TkAdd
	TkSub
	TkMul
	TkDiv
	TkMod

	TkLt
	TkLe
	TkGt
	TkGe
	TkEq
	TkNe

	TkAnd
	TkOr
	TkNot

	TkError
	TkEof
)

type Lexeme struct {
	Text string
	Int  int64
}

type Lexer struct {
	Source string
	Cursor int
	Token  int
	Lexeme Lexeme
}

func (self *Lexer) nextRune() (rune, int) {
	if self.Cursor == len(self.Source) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(self.Source[self.Cursor:])
}

func (self *Lexer) nextRune2() rune {
	r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+1:])
	return r
}

func (self *Lexer) yield(tk int, sz int) int {
	self.Token = tk
	self.Cursor += sz
	return tk
}

func (self *Lexer) eof() int {
	self.Token = TkEof
	return TkEof
}

// generate a debug position for diagnostic information output
func (self *Lexer) pos(where int, source string) (int, int) {
	line := 1
	col := 1
	idx := 0

	for idx < where {
		r, _ := utf8.DecodeRuneInString(source[idx:])
		if r == '\n' {
			line++
			col = 1
		}
		idx++
		col++
	}

	return line, col
}

func (self *Lexer) dinfo() string {
	line, col := self.pos(self.Cursor, self.Source)
	return fmt.Sprintf("around position(%d: %d)", line, col)
}

func (self *Lexer) err(msg string) int {
	self.Lexeme.Text = fmt.Sprintf("%s: %s", self.dinfo(), msg)
	self.Token = TkError
	return TkError
}

func (self *Lexer) errE(err error) int {
	self.Lexeme.Text = fmt.Sprintf("%s: %s", self.dinfo(), err)
	self.Token = TkError
	return TkError
}

func (self *Lexer) errUtf8() int {
	return self.err("invalid utf8 character")
}

func (self *Lexer) lexLineComment() bool {
	for {
		r, sz := utf8.DecodeRuneInString(self.Source[self.Cursor:])
		if r == utf8.RuneError {
			if sz == 0 {
				return true
			}
			self.errUtf8()
			return false
		}

		self.Cursor += sz

		if r == '\n' {
			break
		}
	}

	return true
}

func (self *Lexer) lexBlockComment() bool {
	for {
		r, sz := utf8.DecodeRuneInString(self.Source[self.Cursor:])
		if r == utf8.RuneError {
			if sz == 0 {
				self.err("block comment is not closed properly")
			} else {
				self.errUtf8()
			}
			return false
		}

		if r == '*' && self.nextRune2() == '/' {
			self.Cursor += 2
			break
		}

		self.Cursor += sz
	}

	return true
}

func (self *Lexer) lexNum(c rune) int {
	buf := &bytes.Buffer{}
	buf.WriteRune(c)
	self.Cursor++

	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				break
			}
			return self.errUtf8()
		}
		if r < '0' || r > '9' {
			break
		}
		buf.WriteRune(r)
		self.Cursor += sz
	}

	i, err := strconv.ParseInt(buf.String(), 10, 64)
	if err != nil {
		return self.errE(err)
	}
	self.Lexeme.Int = i
	self.Token = TkInt
	return TkInt
}

// single quoted string literal, escape via backslash
func (self *Lexer) lexStr() int {
	buf := &bytes.Buffer{}

	self.Cursor++
	self.Lexeme.Text = ""

	for {
		c, sz := self.nextRune()

		if c == utf8.RuneError {
			if sz == 0 {
				return self.err("string literal is not closed by quote properly")
			}
			return self.errUtf8()
		}

		if c == '\'' {
			self.Cursor += sz
			break
		}

		if c == '\\' {
			cc := self.nextRune2()
			switch cc {
			case 't':
				buf.WriteRune('\t')
			case 'n':
				buf.WriteRune('\n')
			case 'r':
				buf.WriteRune('\r')
			case '\'':
				buf.WriteRune('\'')
			case '"':
				buf.WriteRune('"')
			case '\\':
				buf.WriteRune('\\')
			default:
				return self.err("unknown escape sequences inside of string literal")
			}
			self.Cursor++
		} else {
			buf.WriteRune(c)
		}

		self.Cursor += sz
	}

	self.Lexeme.Text = buf.String()
	self.Token = TkStr
	return self.Token
}

// double quoted identifier, kept verbatim with its quotes so the namespace
// splitter can undo the quoting later
func (self *Lexer) lexQuotedId() int {
	start := self.Cursor
	self.Cursor++

	for {
		c, sz := self.nextRune()
		if c == utf8.RuneError {
			if sz == 0 {
				return self.err("quoted identifier is not closed properly")
			}
			return self.errUtf8()
		}
		if c == '\\' {
			self.Cursor += sz
			_, sz2 := self.nextRune()
			self.Cursor += sz2
			continue
		}
		self.Cursor += sz
		if c == '"' {
			break
		}
	}

	self.Lexeme.Text = self.Source[start:self.Cursor]
	self.Token = TkQId
	return TkQId
}

func (self *Lexer) matchkeyword(str string, offset int) bool {
	c := self.Cursor + offset
	tar := []rune(str)

	for idx := 0; idx < len(tar); idx++ {
		if c >= len(self.Source) {
			return false
		}
		r, sz := utf8.DecodeRuneInString(self.Source[c:]) // case insensitive
		if unicode.ToLower(r) != tar[idx] {
			return false
		}
		c += sz
	}

	r, _ := utf8.DecodeRuneInString(self.Source[c:])
	return !self.isIdChar(r)
}

func (self *Lexer) matchKeyword(w string) bool {
	return self.matchkeyword(w, 1)
}

func (self *Lexer) matchKeyword2(w1, w2 string) (bool, int) {
	if !self.matchKeyword(w1) {
		return false, -1
	}

	off := 1 + len(w1)

	for {
		if self.Cursor+off >= len(self.Source) {
			return false, -1
		}
		r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+off:])
		if self.isWS(r) {
			off++
		} else {
			break
		}
	}

	if self.matchkeyword(w2, off) {
		return true, off + len(w2)
	}
	return false, -1
}

func (self *Lexer) isWS(r rune) bool {
	switch r {
	case ' ', '\r', '\t', '\n', '\b', '\v':
		return true
	default:
		return false
	}
}

func (self *Lexer) isIdChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func (self *Lexer) isIdLeadingChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func (self *Lexer) tryKeyword(c rune) (bool, int) {
	switch c {
	case 'a', 'A':
		if self.matchKeyword("ll") {
			return true, self.yield(TkAll, 3)
		}
		if self.matchKeyword("nd") {
			return true, self.yield(TkAnd, 3)
		}
		if self.matchKeyword("sc") {
			return true, self.yield(TkAsc, 3)
		}
		if self.matchKeyword("s") {
			return true, self.yield(TkAs, 2)
		}
		break

	case 'c', 'C':
		if self.matchKeyword("opy") {
			return true, self.yield(TkCopy, 4)
		}
		if self.matchKeyword("reate") {
			return true, self.yield(TkCreate, 6)
		}
		break

	case 'd', 'D':
		if self.matchKeyword("istinct") {
			return true, self.yield(TkDistinct, 8)
		}
		if self.matchKeyword("rop") {
			return true, self.yield(TkDrop, 4)
		}
		if self.matchKeyword("esc") {
			return true, self.yield(TkDesc, 4)
		}
		break

	case 'f', 'F':
		if self.matchKeyword("alse") {
			return true, self.yield(TkFalse, 5)
		}
		if self.matchKeyword("rom") {
			return true, self.yield(TkFrom, 4)
		}
		break

	case 'g', 'G':
		if yes, length := self.matchKeyword2("roup", "by"); yes {
			return true, self.yield(TkGroupBy, length)
		}
		break

	case 'h', 'H':
		if self.matchKeyword("aving") {
			return true, self.yield(TkHaving, 6)
		}
		break

	case 'i', 'I':
		if self.matchKeyword("nner") {
			return true, self.yield(TkInner, 5)
		}
		break

	case 'j', 'J':
		if self.matchKeyword("oin") {
			return true, self.yield(TkJoin, 4)
		}
		break

	case 'l', 'L':
		if self.matchKeyword("imit") {
			return true, self.yield(TkLimit, 5)
		}
		if self.matchKeyword("ateral") {
			return true, self.yield(TkLateral, 7)
		}
		break

	case 'n', 'N':
		if self.matchKeyword("ot") {
			return true, self.yield(TkNot, 3)
		}
		break

	case 'o', 'O':
		if yes, l := self.matchKeyword2("rder", "by"); yes {
			return true, self.yield(TkOrderBy, l)
		}
		if self.matchKeyword("ffset") {
			return true, self.yield(TkOffset, 6)
		}
		if self.matchKeyword("n") {
			return true, self.yield(TkOn, 2)
		}
		if self.matchKeyword("r") {
			return true, self.yield(TkOr, 2)
		}
		break

	case 's', 'S':
		if self.matchKeyword("elect") {
			return true, self.yield(TkSelect, 6)
		}
		if self.matchKeyword("how") {
			return true, self.yield(TkShow, 4)
		}
		break

	case 't', 'T':
		if self.matchKeyword("rue") {
			return true, self.yield(TkTrue, 4)
		}
		if self.matchKeyword("able") {
			return true, self.yield(TkTable, 5)
		}
		if self.matchKeyword("o") {
			return true, self.yield(TkTo, 2)
		}
		break

	case 'w', 'W':
		if self.matchKeyword("here") {
			return true, self.yield(TkWhere, 5)
		}
		if self.matchKeyword("ith") {
			return true, self.yield(TkWith, 4)
		}
		break

	default:
		break
	}

	return false, 0
}

func (self *Lexer) lexId(c rune) int {
	if !self.isIdLeadingChar(c) {
		return self.err("invalid leading character of identifier")
	}

	buf := &bytes.Buffer{}
	buf.WriteRune(unicode.ToLower(c))
	self.Cursor++

	for {
		c, sz := self.nextRune()
		if c == utf8.RuneError {
			break
		}
		if !self.isIdChar(c) {
			break
		}
		self.Cursor += sz
		buf.WriteRune(unicode.ToLower(c))
	}

	self.Lexeme.Text = buf.String()
	self.Token = TkId
	return TkId
}

func (self *Lexer) lexKeywordOrId(c rune) int {
	yes, tk := self.tryKeyword(c)
	if yes {
		return tk
	}

	return self.lexId(c)
}

func (self *Lexer) Next() int {
	if self.Token == TkEof {
		return TkEof
	}

	if self.Cursor == len(self.Source) {
		self.Token = TkEof
		return TkEof
	}

	return self.next()
}

func (self *Lexer) next() int {
	for {
		if self.Cursor == len(self.Source) {
			return self.eof()
		}

		c, sz := self.nextRune()
		if c == utf8.RuneError {
			if sz == 0 {
				return self.eof()
			}
			return self.errUtf8()
		}

		switch c {
		case ',':
			return self.yield(TkComma, 1)

		case ';':
			return self.yield(TkSemicolon, 1)

		case '.':
			return self.yield(TkDot, 1)

		case '(':
			return self.yield(TkLPar, 1)
		case ')':
			return self.yield(TkRPar, 1)

		case '+':
			return self.yield(TkAdd, 1)
		case '-':
			if self.nextRune2() == '-' {
				self.Cursor += 2
				if !self.lexLineComment() {
					return self.Token
				}
				break
			}
			return self.yield(TkSub, 1)
		case '*':
			return self.yield(TkMul, 1)
		case '/':
			if self.nextRune2() == '*' {
				self.Cursor += 2
				if !self.lexBlockComment() {
					return self.Token
				}
				break
			}
			return self.yield(TkDiv, 1)

		case '%':
			return self.yield(TkMod, 1)

		case '=':
			return self.yield(TkEq, 1)

		case '>':
			if self.nextRune2() == '=' {
				return self.yield(TkGe, 2)
			}
			return self.yield(TkGt, 1)

		case '<':
			if self.nextRune2() == '=' {
				return self.yield(TkLe, 2)
			} else if self.nextRune2() == '>' {
				return self.yield(TkNe, 2)
			}
			return self.yield(TkLt, 1)

		case '!':
			if self.nextRune2() == '=' {
				return self.yield(TkNe, 2)
			}
			return self.yield(TkNot, 1)

		case ' ', '\r', '\t', '\n', '\b', '\v':
			self.Cursor++
			break

		case '\'':
			return self.lexStr()

		case '"':
			return self.lexQuotedId()

		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return self.lexNum(c)

		default:
			return self.lexKeywordOrId(c)
		}
	}
}

func (self *Lexer) lowerText() string {
	return strings.ToLower(self.Lexeme.Text)
}

func newLexer(source string) *Lexer {
	return &Lexer{
		Source: source,
		Cursor: 0,
		Token:  TkError,
	}
}
