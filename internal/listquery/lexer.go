package listquery

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokOp
	tokAnd
	tokOr
	tokWord
	tokString
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of query"
	}
	return fmt.Sprintf("%q at offset %d", t.text, t.pos)
}

// lex splits a structured query into tokens
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(input[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated string at offset %d", ErrSyntax, i)
			}
			tokens = append(tokens, token{tokString, input[i+1 : i+1+end], i})
			i += end + 2
		case c == '&' || c == '|':
			if i+1 >= len(input) || input[i+1] != c {
				return nil, fmt.Errorf("%w: stray %q at offset %d", ErrSyntax, c, i)
			}
			kind := tokAnd
			if c == '|' {
				kind = tokOr
			}
			tokens = append(tokens, token{kind, input[i : i+2], i})
			i += 2
		case c == '=' || c == '!' || c == '<' || c == '>':
			op := operatorAt(input[i:])
			if op == "" {
				return nil, fmt.Errorf("%w: stray %q at offset %d", ErrSyntax, c, i)
			}
			tokens = append(tokens, token{tokOp, op, i})
			i += len(op)
		default:
			start := i
			for i < len(input) && isWordByte(input[i]) {
				i++
			}
			word := input[start:i]
			switch strings.ToLower(word) {
			case "and":
				tokens = append(tokens, token{tokAnd, word, start})
			case "or":
				tokens = append(tokens, token{tokOr, word, start})
			default:
				tokens = append(tokens, token{tokWord, word, start})
			}
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(input)})
	return tokens, nil
}

var operators = []string{"==", "<>", "!=", "<=", ">=", "=", "<", ">"}

func operatorAt(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isWordByte(c byte) bool {
	if c >= 0x80 {
		return true
	}
	r := rune(c)
	if unicode.IsSpace(r) {
		return false
	}
	return !strings.ContainsRune(`()"'=!<>&|`, r)
}
