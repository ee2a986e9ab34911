package sheetrows

import (
	"fmt"
	"strings"
)

// SortDirection is an optional sort order. SortDefault leaves the choice to the feed.
type SortDirection int

const (
	SortDefault SortDirection = iota
	SortAscending
	SortDescending
)

// String returns the wire form used by the list query language ("", "false", "true")
func (d SortDirection) String() string {
	switch d {
	case SortAscending:
		return "false"
	case SortDescending:
		return "true"
	default:
		return ""
	}
}

// ParseDirection converts a boolean-like reverse flag into a SortDirection
func ParseDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SortDefault, nil
	case "true", "1", "desc", "descending":
		return SortDescending, nil
	case "false", "0", "asc", "ascending":
		return SortAscending, nil
	default:
		return SortDefault, fmt.Errorf("invalid sort direction %q", s)
	}
}

// QuerySpec is the remote query representation. It is passed through to the
// feed untouched; the filter grammar is never validated here.
type QuerySpec struct {
	Filter    string        // Structured query, e.g. `name = "Alice" and age > 30`
	OrderBy   string        // "position" or "column:<name>"
	Direction SortDirection // Reverse flag
}

// BuildQuery returns nil when no constraint is given, otherwise a QuerySpec
// carrying only the given fields.
func BuildQuery(filter, orderBy string, direction SortDirection) *QuerySpec {
	if filter == "" && orderBy == "" && direction == SortDefault {
		return nil
	}
	return &QuerySpec{
		Filter:    filter,
		OrderBy:   orderBy,
		Direction: direction,
	}
}

// Equal reports whether q and other describe the same query. Two nil queries are equal.
func (q *QuerySpec) Equal(other *QuerySpec) bool {
	if q == nil || other == nil {
		return q == nil && other == nil
	}
	return *q == *other
}

// String renders the query for logs
func (q *QuerySpec) String() string {
	if q == nil {
		return "<none>"
	}
	return fmt.Sprintf("sq=%q orderby=%q reverse=%q", q.Filter, q.OrderBy, q.Direction.String())
}
