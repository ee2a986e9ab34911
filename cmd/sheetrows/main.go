// Package main provides the sheetrows CLI: row-level access to Google Sheets
// worksheets or Excel workbooks, and a REST server over the same sessions.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
