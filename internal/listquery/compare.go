package listquery

import (
	"strconv"
	"strings"
	"unicode"
)

// evalCondition evaluates a single comparison of a cell against a literal
func evalCondition(cell, operator, literal string) bool {
	switch operator {
	case "=", "==":
		return compareEqual(cell, literal)
	case "<>", "!=":
		return !compareEqual(cell, literal)
	case ">":
		return compareValues(cell, literal) > 0
	case ">=":
		return compareValues(cell, literal) >= 0
	case "<":
		return compareValues(cell, literal) < 0
	case "<=":
		return compareValues(cell, literal) <= 0
	default:
		return false
	}
}

// compareEqual compares two cells for equality, numerically when both are numbers
func compareEqual(a, b string) bool {
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			return x == y
		}
	}
	return a == b
}

// compareValues orders two cells, numerically when both are numbers
func compareValues(a, b string) int {
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(a, b)
}

// toNumber parses a cell as a number
func toNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// lookup resolves a column by exact name, then by list-feed normalization
// (lowercase, alphanumerics only), so "firstname" addresses "First Name".
func lookup(fields map[string]string, column string) (string, bool) {
	if v, ok := fields[column]; ok {
		return v, true
	}
	want := normalize(column)
	for k, v := range fields {
		if normalize(k) == want {
			return v, true
		}
	}
	return "", false
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
