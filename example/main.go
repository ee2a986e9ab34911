package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/ideamans/go-sheetrows/adapters/googlesheets"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	// Worksheet keys are the sheetId values shown by ListWorksheets
	spreadsheetKey := os.Getenv("SHEETROWS_SPREADSHEET")
	worksheetKey := os.Getenv("SHEETROWS_WORKSHEET")
	if spreadsheetKey == "" || worksheetKey == "" {
		return fmt.Errorf("set SHEETROWS_SPREADSHEET and SHEETROWS_WORKSHEET")
	}

	// Credentials fall back to GOOGLE_APPLICATION_CREDENTIALS
	feed, err := googlesheets.NewWithJSONKeyFile(ctx, googlesheets.DefaultConfig(), "")
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}

	client := sheetrows.New(feed, googlesheets.DefaultClientConfig())

	worksheets, err := client.ListWorksheets(ctx, spreadsheetKey)
	if err != nil {
		return fmt.Errorf("failed to list worksheets: %w", err)
	}
	for _, ws := range worksheets {
		fmt.Printf("worksheet %s (key %s)\n", ws.Title, ws.Key)
	}

	ws, err := client.GetWorksheet(ctx, spreadsheetKey, worksheetKey)
	if err != nil {
		return err
	}

	// Append a row; new columns are added to the header
	user := sheetrows.Row{}
	user.SetString("name", "John Doe")
	user.SetString("email", "john@example.com")
	user.SetInt64("age", 30)
	user.SetTime("created_at", time.Now())

	inserted, err := ws.InsertRow(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}
	id, _ := inserted.ID()
	fmt.Printf("Added row %s\n", id)

	// Query rows, oldest first
	results, err := ws.Rows(ctx, sheetrows.RowsOptions{
		Filter:  "age >= 25 and age <= 35",
		OrderBy: "column:created_at",
	})
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}

	fmt.Printf("Found %d users aged 25-35:\n", len(results))
	for _, row := range results {
		rowID, _ := row.ID()
		fmt.Printf("  %s: %s (age: %d)\n", rowID, row.GetAsString("name", "Unknown"), row.GetAsInt64("age", 0))
	}

	// Update the first result by position; unspecified fields keep their value
	if len(results) > 0 {
		patch := sheetrows.Row{}
		patch.SetTime("last_login", time.Now())
		patch.SetInt64("login_count", results[0].GetAsInt64("login_count", 0)+1)
		if _, err := ws.UpdateRowByIndex(ctx, 0, patch); err != nil {
			log.Printf("Failed to update row: %v", err)
		}
	}

	return nil
}
