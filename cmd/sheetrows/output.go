package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	sheetrows "github.com/ideamans/go-sheetrows"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().Options.DrawBorder = false
	return t
}

// printSheets renders discovery results
func (a *app) printSheets(w io.Writer, sheets []sheetrows.SheetInfo) error {
	if a.jsonOut {
		return writeJSON(w, sheets)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Title", "Key"})
	for _, s := range sheets {
		t.AppendRow(table.Row{s.Title, s.Key})
	}
	t.Render()
	return nil
}

// printRows renders rows with the identifier first and the other columns sorted
func (a *app) printRows(w io.Writer, rows []sheetrows.Row) error {
	if a.jsonOut {
		return writeJSON(w, rows)
	}

	columns := rowColumns(rows)
	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col
	}

	t := newTable(w)
	t.AppendHeader(header)
	for _, row := range rows {
		values := make(table.Row, len(columns))
		for i, col := range columns {
			values[i] = row[col]
		}
		t.AppendRow(values)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(rows))})
	t.Render()
	return nil
}

func rowColumns(rows []sheetrows.Row) []string {
	seen := make(map[string]bool)
	var columns []string
	hasID := false
	for _, row := range rows {
		for col := range row {
			if col == sheetrows.IDField {
				hasID = true
				continue
			}
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	slices.Sort(columns)
	if hasID {
		columns = append([]string{sheetrows.IDField}, columns...)
	}
	return columns
}

// parseAssignments turns col=value arguments into a row. Values may contain '='.
func parseAssignments(args []string) (sheetrows.Row, error) {
	row := make(sheetrows.Row, len(args))
	for _, arg := range args {
		col, value, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid assignment %q (want column=value)", arg)
		}
		row[col] = value
	}
	return row, nil
}
