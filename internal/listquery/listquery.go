// Package listquery evaluates the list-feed query language (structured
// query, orderby, reverse) against rows held on the client side. Backends
// without server-side row queries use it to answer sheetrows.Feed.FetchRows.
package listquery

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	sheetrows "github.com/ideamans/go-sheetrows"
)

var (
	ErrSyntax         = errors.New("invalid structured query")
	ErrInvalidOrderBy = errors.New("invalid orderby")
)

const (
	orderByPosition     = "position"
	orderByColumnPrefix = "column:"
)

// Apply filters and orders entries as described by query. entries is taken
// to be in sheet order. A nil query returns entries unchanged.
func Apply(entries []*sheetrows.RowEntry, query *sheetrows.QuerySpec) ([]*sheetrows.RowEntry, error) {
	if query == nil {
		return entries, nil
	}

	expr, err := Parse(query.Filter)
	if err != nil {
		return nil, err
	}

	results := make([]*sheetrows.RowEntry, 0, len(entries))
	for _, entry := range entries {
		if expr.Match(entry.Fields) {
			results = append(results, entry)
		}
	}

	column, err := sortColumn(query.OrderBy)
	if err != nil {
		return nil, err
	}
	if column != "" {
		slices.SortStableFunc(results, func(a, b *sheetrows.RowEntry) int {
			x, _ := lookup(a.Fields, column)
			y, _ := lookup(b.Fields, column)
			return compareValues(x, y)
		})
	}

	if query.Direction == sheetrows.SortDescending {
		slices.Reverse(results)
	}
	return results, nil
}

// sortColumn extracts the column of a "column:<name>" orderby, "" for position
func sortColumn(orderBy string) (string, error) {
	switch {
	case orderBy == "" || orderBy == orderByPosition:
		return "", nil
	case strings.HasPrefix(orderBy, orderByColumnPrefix):
		column := strings.TrimPrefix(orderBy, orderByColumnPrefix)
		if column == "" {
			return "", fmt.Errorf("%w: empty column in %q", ErrInvalidOrderBy, orderBy)
		}
		return column, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidOrderBy, orderBy, orderByPosition, orderByColumnPrefix+"<name>")
	}
}
