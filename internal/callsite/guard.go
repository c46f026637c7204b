package callsite

import (
	"regexp"
	"strings"

	"github.com/Zhao-zixi/Canalysis/internal/parser"
)

var (
	ifPattern   = regexp.MustCompile(`\bif\s*\(`)
	elsePattern = regexp.MustCompile(`^\s*else\b`)
	jumpPattern = regexp.MustCompile(`\b(return|goto|break|continue)\b`)
)

// ifConstruct is one if statement located in masked source. All offsets are
// inclusive byte positions into the function text.
type ifConstruct struct {
	start     int
	condOpen  int
	condClose int
	condition string

	bodyStart int
	bodyEnd   int
	braced    bool

	elseStart int // -1 without an else branch
	elseEnd   int

	// early exit: the then-branch leaves the enclosing block
	jump bool
	// brace-less jump on the if's line or the line after the condition
	shortJump bool
}

// findIfs locates every if statement whose condition parentheses close.
// Conditions are read from src so literals survive; structure comes from masked.
func findIfs(src, masked string, regions []parser.Region) []ifConstruct {
	var out []ifConstruct
	for _, loc := range ifPattern.FindAllStringIndex(masked, -1) {
		if isPreprocessorLine(masked, loc[0]) {
			continue
		}
		open := loc[1] - 1
		closeAt, ok := matchParen(masked, open)
		if !ok {
			continue
		}
		c := ifConstruct{
			start:     loc[0],
			condOpen:  open,
			condClose: closeAt,
			condition: conditionText(src, regions, open+1, closeAt),
			elseStart: -1,
			elseEnd:   -1,
		}

		c.bodyStart, c.bodyEnd, c.braced = statementSpan(src, masked, closeAt+1)
		if c.bodyStart < 0 {
			continue
		}

		if m := elsePattern.FindStringIndex(masked[c.bodyEnd+1:]); m != nil {
			elseAt := c.bodyEnd + 1 + m[1]
			c.elseStart, c.elseEnd, _ = statementSpan(src, masked, elseAt)
		}

		body := masked[c.bodyStart : c.bodyEnd+1]
		if !c.braced {
			if m := jumpPattern.FindStringIndex(body); m != nil {
				c.shortJump = strings.Count(masked[closeAt:c.bodyStart+m[0]], "\n") <= 1
			}
		}
		switch {
		case c.elseStart >= 0:
		case !c.braced:
			c.jump = jumpPattern.MatchString(body)
		default:
			c.jump = endsWithJump(body)
		}
		out = append(out, c)
	}
	return out
}

// guardNearest returns the condition under which the call at offset pos
// runs, judged by the nearest if whose condition closes before pos. Its
// brace block yields the condition; a brace-less early jump ahead of pos
// yields the negation. Anything else is unconditional.
func guardNearest(ifs []ifConstruct, pos int) string {
	for i := len(ifs) - 1; i >= 0; i-- {
		c := ifs[i]
		if c.condClose >= pos {
			continue
		}
		switch {
		case c.braced && pos >= c.bodyStart && pos <= c.bodyEnd:
			return c.condition
		case c.shortJump && pos > c.bodyEnd:
			return Negate(c.condition)
		}
		return parser.Unconditional
	}
	return parser.Unconditional
}

// guardBlock returns the condition under which the call at offset pos runs.
// The nearest preceding if that encloses pos, or that exits early before it
// in the same block, decides. Ifs that do neither are skipped.
func guardBlock(ifs []ifConstruct, masked string, pos int) string {
	for i := len(ifs) - 1; i >= 0; i-- {
		c := ifs[i]
		if c.start >= pos {
			continue
		}
		if pos >= c.condOpen && pos <= c.condClose {
			continue
		}
		if pos >= c.bodyStart && pos <= c.bodyEnd {
			return c.condition
		}
		if c.elseStart >= 0 && pos >= c.elseStart && pos <= c.elseEnd {
			return Negate(c.condition)
		}
		if c.jump && pos > c.bodyEnd && sameBlock(masked, c.bodyEnd+1, pos) {
			return Negate(c.condition)
		}
	}
	return parser.Unconditional
}

// statementSpan returns the span of the statement starting at or after from:
// either a brace block or everything up to the terminating ';'.
func statementSpan(src, masked string, from int) (int, int, bool) {
	start := from
	for start < len(masked) && isSpace(masked[start]) {
		start++
	}
	if start >= len(masked) {
		return -1, -1, false
	}
	if masked[start] == '{' {
		end, _ := parser.MatchBrace(src, start)
		return start, end, true
	}

	parens, braces := 0, 0
	for i := start; i < len(masked); i++ {
		switch masked[i] {
		case '(', '[':
			parens++
		case ')', ']':
			parens--
			if parens < 0 {
				return start, i - 1, false
			}
		case '{':
			braces++
		case '}':
			braces--
			if braces < 0 {
				return start, i - 1, false
			}
			if braces == 0 && parens == 0 {
				return start, i, false
			}
		case ';':
			if parens == 0 && braces == 0 {
				return start, i, false
			}
		}
	}
	return start, len(masked) - 1, false
}

// endsWithJump reports whether a flat brace block finishes with a jump.
func endsWithJump(block string) bool {
	inner := strings.TrimSpace(block)
	inner = strings.TrimPrefix(inner, "{")
	inner = strings.TrimSuffix(inner, "}")
	if strings.ContainsAny(inner, "{}") {
		return false
	}
	inner = strings.TrimSpace(inner)
	inner = strings.TrimSuffix(inner, ";")
	if idx := strings.LastIndex(inner, ";"); idx >= 0 {
		inner = inner[idx+1:]
	}
	inner = strings.TrimSpace(inner)
	m := jumpPattern.FindStringIndex(inner)
	return m != nil && m[0] == 0
}

// sameBlock reports whether pos is reachable from from without leaving the
// block that contains from.
func sameBlock(masked string, from, pos int) bool {
	depth := 0
	for i := from; i < pos && i < len(masked); i++ {
		switch masked[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return true
}

func matchParen(masked string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(masked); i++ {
		switch masked[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		case ';', '{', '}':
			if depth > 0 {
				return -1, false
			}
		}
	}
	return -1, false
}

// conditionText returns src[from:to] with comments dropped. Single-line
// conditions stay verbatim; wrapped ones are joined with single spaces.
func conditionText(src string, regions []parser.Region, from, to int) string {
	var b strings.Builder
	inComment := false
	for i := from; i < to; i++ {
		switch regions[i] {
		case parser.RegionLineComment, parser.RegionBlockComment:
			if !inComment {
				b.WriteByte(' ')
			}
			inComment = true
			continue
		}
		inComment = false
		b.WriteByte(src[i])
	}
	raw := b.String()
	if !strings.Contains(raw, "\n") {
		return strings.TrimSpace(raw)
	}
	lines := strings.Split(raw, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func isPreprocessorLine(masked string, pos int) bool {
	lineStart := strings.LastIndexByte(masked[:pos], '\n') + 1
	return strings.HasPrefix(strings.TrimLeft(masked[lineStart:pos], " \t"), "#")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
