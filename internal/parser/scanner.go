package parser

import "strings"

// Region classifies a byte of C source text.
type Region int

const (
	RegionCode Region = iota
	RegionString
	RegionChar
	RegionLineComment
	RegionBlockComment
)

func (r Region) String() string {
	switch r {
	case RegionCode:
		return "code"
	case RegionString:
		return "string"
	case RegionChar:
		return "char"
	case RegionLineComment:
		return "line-comment"
	case RegionBlockComment:
		return "block-comment"
	default:
		return "unknown"
	}
}

// Lexer walks C source one byte at a time and reports which region each
// byte belongs to. It assumes the starting position is plain code.
//
// An unescaped newline closes an open string or character literal so a stray
// quote cannot swallow the rest of a file.
type Lexer struct {
	src   string
	pos   int
	state Region
	carry bool // next byte stays in the current region without transitions
	close bool // the carried byte ends the region
}

// NewLexer creates a lexer positioned at pos.
func NewLexer(src string, pos int) *Lexer {
	if pos < 0 {
		pos = 0
	}
	return &Lexer{src: src, pos: pos}
}

// Next classifies the byte at the current position and advances past it.
func (l *Lexer) Next() (int, Region, bool) {
	if l.pos >= len(l.src) {
		return 0, RegionCode, false
	}
	i := l.pos
	c := l.src[i]
	l.pos++

	if l.carry {
		l.carry = false
		region := l.state
		if l.close {
			l.close = false
			l.state = RegionCode
		}
		return i, region, true
	}

	switch l.state {
	case RegionString, RegionChar:
		region := l.state
		switch {
		case c == '\\':
			l.carry = true
		case c == '\n':
			l.state = RegionCode
			return i, RegionCode, true
		case c == '"' && region == RegionString, c == '\'' && region == RegionChar:
			l.state = RegionCode
		}
		return i, region, true
	case RegionLineComment:
		if c == '\n' {
			l.state = RegionCode
			return i, RegionCode, true
		}
		return i, RegionLineComment, true
	case RegionBlockComment:
		if c == '*' && l.peek() == '/' {
			l.carry = true
			l.close = true
		}
		return i, RegionBlockComment, true
	}

	switch {
	case c == '"':
		l.state = RegionString
	case c == '\'':
		l.state = RegionChar
	case c == '/' && l.peek() == '/':
		l.state = RegionLineComment
		l.carry = true
	case c == '/' && l.peek() == '*':
		l.state = RegionBlockComment
		l.carry = true
	default:
		return i, RegionCode, true
	}
	return i, l.state, true
}

// Unterminated reports whether a block comment or literal is still open.
func (l *Lexer) Unterminated() bool {
	switch l.state {
	case RegionBlockComment, RegionString, RegionChar:
		return true
	}
	return false
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// MatchBrace returns the index of the brace closing the one at open.
// When no match exists it returns the last index of src and false.
func MatchBrace(src string, open int) (int, bool) {
	if open < 0 || open >= len(src) || src[open] != '{' {
		return len(src) - 1, false
	}
	lx := NewLexer(src, open)
	depth := 0
	for {
		i, region, ok := lx.Next()
		if !ok {
			break
		}
		if region != RegionCode {
			continue
		}
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return len(src) - 1, false
}

// FindMatchingBrace is MatchBrace without the found flag.
func FindMatchingBrace(src string, open int) int {
	end, _ := MatchBrace(src, open)
	return end
}

// MaskNonCode returns src with every literal and comment byte replaced by a
// space. Newlines are kept so offsets and line numbers are preserved.
func MaskNonCode(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	lx := NewLexer(src, 0)
	for {
		i, region, ok := lx.Next()
		if !ok {
			break
		}
		c := src[i]
		if region != RegionCode && c != '\n' {
			c = ' '
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Regions classifies every byte of src.
func Regions(src string) []Region {
	out := make([]Region, len(src))
	lx := NewLexer(src, 0)
	for {
		i, region, ok := lx.Next()
		if !ok {
			break
		}
		out[i] = region
	}
	return out
}

// LineAt returns the 1-based line number of offset within src.
func LineAt(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	return strings.Count(src[:offset], "\n") + 1
}
