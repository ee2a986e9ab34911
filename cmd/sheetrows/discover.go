package main

import (
	"github.com/spf13/cobra"
)

func newSpreadsheetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "spreadsheets",
		Short: "List the spreadsheets visible to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := a.client.ListSpreadsheets(cmd.Context())
			if err != nil {
				return err
			}
			return a.printSheets(a.out(cmd), sheets)
		},
	}
}

func newWorksheetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worksheets <spreadsheet>",
		Short: "List the worksheets of a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := a.client.ListWorksheets(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printSheets(a.out(cmd), sheets)
		},
	}
}
