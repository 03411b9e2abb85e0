package asm

import (
	"strings"
)

// token is a piece of a source line with its 1-based column.
type token struct {
	text string
	col  int
}

// line is one source line split into its parts.
type line struct {
	row     int
	label   token
	head    token   // mnemonic or directive
	args    []token // comma separated operands
	body    string  // head and operands as written
	comment string
}

// splitComment cuts the line at the first ';' outside a string literal.
func splitComment(s string) (code, comment string) {
	inString := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return s[:i], strings.TrimSpace(s[i+1:])
			}
		}
	}
	return s, ""
}

// lex splits a raw source line.
func lex(row int, raw string) line {
	l := line{row: row}

	code, comment := splitComment(raw)
	l.comment = comment

	pos := skipSpace(code, 0)

	// label:
	if end := labelEnd(code, pos); end > 0 {
		l.label = token{text: code[pos:end], col: pos + 1}
		pos = skipSpace(code, end+1)
	}

	if pos >= len(code) {
		return l
	}

	end := pos
	for end < len(code) && !isSpace(code[end]) {
		end++
	}
	l.head = token{text: code[pos:end], col: pos + 1}
	l.body = strings.TrimSpace(code[pos:])

	l.args = splitArgs(code, end)

	return l
}

// labelEnd returns the index of the ':' ending a label starting at pos, or
// -1.
func labelEnd(s string, pos int) int {
	i := pos
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	if i == pos || i >= len(s) || s[i] != ':' {
		return -1
	}
	return i
}

// splitArgs splits s[from:] on commas that are outside string literals and
// parentheses.
func splitArgs(s string, from int) []token {
	var (
		args     []token
		depth    int
		inString bool
		start    = from
	)

	flush := func(end int) {
		raw := s[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" && len(args) == 0 && end == len(s) {
			return
		}
		lead := len(raw) - len(strings.TrimLeft(raw, " \t"))
		args = append(args, token{text: trimmed, col: start + lead + 1})
	}

	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(s))

	return args
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '.' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func validLabel(s string) bool {
	if s == "" || ('0' <= s[0] && s[0] <= '9') || s[0] == '.' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) || s[i] == '.' {
			return false
		}
	}
	return true
}
