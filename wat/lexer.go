package wat

import (
	"fmt"
	"strconv"
	"strings"
)

type tokKind int

const (
	tokLParen tokKind = iota
	tokRParen
	tokAtom   // keywords, identifiers, numbers
	tokString // decoded string literal
)

type token struct {
	kind tokKind
	text string
	line int
}

// lex splits WAT source into tokens, dropping ;; line comments and
// nestable (; ;) block comments. String escapes are decoded here so the
// parser only ever sees final byte content.
func lex(src string) ([]token, error) {
	var toks []token
	line := 1
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == ';' && i+1 < len(src) && src[i+1] == ';':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '(' && i+1 < len(src) && src[i+1] == ';':
			depth := 1
			i += 2
			for i < len(src) && depth > 0 {
				switch {
				case src[i] == '(' && i+1 < len(src) && src[i+1] == ';':
					depth++
					i += 2
				case src[i] == ';' && i+1 < len(src) && src[i+1] == ')':
					depth--
					i += 2
				default:
					if src[i] == '\n' {
						line++
					}
					i++
				}
			}
			if depth > 0 {
				return nil, fmt.Errorf("line %d: unterminated block comment", line)
			}
		case c == '(':
			toks = append(toks, token{tokLParen, "(", line})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", line})
			i++
		case c == '"':
			s, n, err := lexString(src[i:], line)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, s, line})
			i += n
		default:
			start := i
			for i < len(src) && !isDelim(src[i]) {
				i++
			}
			if i == start {
				return nil, fmt.Errorf("line %d: unexpected character %q", line, c)
			}
			toks = append(toks, token{tokAtom, src[start:i], line})
		}
	}
	return toks, nil
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '(', ')', '"', ';':
		return true
	}
	return false
}

// lexString decodes the string literal starting at src[0] == '"' and
// returns the decoded content and the number of source bytes consumed.
func lexString(src string, line int) (string, int, error) {
	var b strings.Builder
	i := 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == '"':
			return b.String(), i + 1, nil
		case c == '\n':
			return "", 0, fmt.Errorf("line %d: newline in string literal", line)
		case c == '\\':
			if i+1 >= len(src) {
				return "", 0, fmt.Errorf("line %d: unterminated escape", line)
			}
			e := src[i+1]
			switch e {
			case 'n':
				b.WriteByte('\n')
				i += 2
			case 't':
				b.WriteByte('\t')
				i += 2
			case 'r':
				b.WriteByte('\r')
				i += 2
			case '"', '\'', '\\':
				b.WriteByte(e)
				i += 2
			case 'u':
				if i+2 >= len(src) || src[i+2] != '{' {
					return "", 0, fmt.Errorf("line %d: malformed \\u escape", line)
				}
				end := strings.IndexByte(src[i+3:], '}')
				if end < 0 {
					return "", 0, fmt.Errorf("line %d: malformed \\u escape", line)
				}
				cp, err := strconv.ParseUint(src[i+3:i+3+end], 16, 32)
				if err != nil {
					return "", 0, fmt.Errorf("line %d: malformed \\u escape: %w", line, err)
				}
				b.WriteRune(rune(cp))
				i += 3 + end + 1
			default:
				if i+2 >= len(src) {
					return "", 0, fmt.Errorf("line %d: unterminated escape", line)
				}
				v, err := strconv.ParseUint(src[i+1:i+3], 16, 8)
				if err != nil {
					return "", 0, fmt.Errorf("line %d: invalid escape \\%c", line, e)
				}
				b.WriteByte(byte(v))
				i += 3
			}
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("line %d: unterminated string literal", line)
}
