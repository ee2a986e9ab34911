package main

import (
	"errors"
	"fmt"

	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/spf13/cobra"
)

// queryFlags are the remote query parameters shared by the row commands
type queryFlags struct {
	filter  string
	orderBy string
	reverse bool
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&q.filter, "query", "q", "", `structured query, e.g. "age > 25 and name = Bob"`)
	cmd.Flags().StringVar(&q.orderBy, "order-by", "", `"position" or "column:<name>"`)
	cmd.Flags().BoolVar(&q.reverse, "reverse", false, "reverse the sort order")
}

func (q *queryFlags) options(cmd *cobra.Command) sheetrows.RowsOptions {
	opts := sheetrows.RowsOptions{Filter: q.filter, OrderBy: q.orderBy}
	if cmd.Flags().Changed("reverse") {
		opts.Direction = sheetrows.SortAscending
		if q.reverse {
			opts.Direction = sheetrows.SortDescending
		}
	}
	return opts
}

// target selects one row either by identifier or by position in a query result
type target struct {
	queryFlags
	id    string
	index int
}

func (t *target) register(cmd *cobra.Command) {
	t.queryFlags.register(cmd)
	cmd.Flags().StringVar(&t.id, "id", "", "row identifier")
	cmd.Flags().IntVar(&t.index, "index", -1, "zero-based position in the query result")
	cmd.MarkFlagsMutuallyExclusive("id", "index")
	cmd.MarkFlagsOneRequired("id", "index")
}

func (t *target) byIndex() bool {
	return t.id == ""
}

func newRowsCmd(a *app) *cobra.Command {
	var q queryFlags
	var where []string

	cmd := &cobra.Command{
		Use:   "rows <spreadsheet> <worksheet>",
		Short: "List the rows of a worksheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := q.options(cmd)
			if len(where) > 0 {
				want, err := parseAssignments(where)
				if err != nil {
					return err
				}
				opts.Predicate = func(row sheetrows.Row) bool {
					for col, value := range want {
						if row.GetAsString(col, "") != value {
							return false
						}
					}
					return true
				}
			}

			rows, err := a.client.Worksheet(args[0], args[1]).Rows(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.printRows(a.out(cmd), rows)
		},
	}
	q.register(cmd)
	cmd.Flags().StringArrayVar(&where, "where", nil, "keep rows where column=value (repeatable)")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <spreadsheet> <worksheet> <id>",
		Short: "Show one row by identifier",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := a.client.Worksheet(args[0], args[1]).GetRow(cmd.Context(), args[2])
			if err != nil {
				return err
			}
			return a.printRows(a.out(cmd), []sheetrows.Row{row})
		},
	}
}

func newInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <spreadsheet> <worksheet> <column=value>...",
		Short: "Append a row",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			inserted, err := a.client.Worksheet(args[0], args[1]).InsertRow(cmd.Context(), row)
			if err != nil {
				return err
			}
			return a.printRows(a.out(cmd), []sheetrows.Row{inserted})
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var t target

	cmd := &cobra.Command{
		Use:   "update <spreadsheet> <worksheet> <column=value>...",
		Short: "Change fields of one row",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}

			ws := a.client.Worksheet(args[0], args[1])
			var updated sheetrows.Row
			if t.byIndex() {
				if _, err := ws.Rows(cmd.Context(), t.options(cmd)); err != nil {
					return err
				}
				updated, err = ws.UpdateRowByIndex(cmd.Context(), t.index, patch)
			} else {
				patch[sheetrows.IDField] = t.id
				updated, err = ws.UpdateRow(cmd.Context(), patch)
			}
			if err != nil {
				return err
			}
			return a.printRows(a.out(cmd), []sheetrows.Row{updated})
		},
	}
	t.register(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var t target

	cmd := &cobra.Command{
		Use:   "delete <spreadsheet> <worksheet>",
		Short: "Delete one row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.client.Worksheet(args[0], args[1])
			var err error
			if t.byIndex() {
				if _, err := ws.Rows(cmd.Context(), t.options(cmd)); err != nil {
					return err
				}
				err = ws.DeleteRowByIndex(cmd.Context(), t.index)
			} else {
				err = ws.DeleteRow(cmd.Context(), sheetrows.Row{sheetrows.IDField: t.id})
			}
			if err != nil {
				return err
			}
			a.log.WithField("worksheet", args[1]).Debug("row deleted")
			fmt.Fprintln(a.out(cmd), "deleted")
			return nil
		},
	}
	t.register(cmd)
	return cmd
}

func newDeleteAllCmd(a *app) *cobra.Command {
	var q queryFlags
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-all <spreadsheet> <worksheet>",
		Short: "Delete every row matching the query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}

			ws := a.client.Worksheet(args[0], args[1])
			rows, err := ws.Rows(cmd.Context(), q.options(cmd))
			if err != nil {
				return err
			}
			if err := ws.DeleteAllRows(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out(cmd), "deleted %d rows\n", len(rows))
			return nil
		},
	}
	q.register(cmd)
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}
