package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/ideamans/go-sheetrows/adapters/excel"
)

const (
	dataDir   = "./example_data"
	bookName  = "company.xlsx"
	sheetName = "users"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// prepareWorkbook creates an empty workbook with a header row on first run
func prepareWorkbook() error {
	path := filepath.Join(dataDir, bookName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	header := []interface{}{"name", "email", "age", "department", "active"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func run() error {
	if err := prepareWorkbook(); err != nil {
		return fmt.Errorf("failed to prepare workbook: %w", err)
	}

	// Excel feed over a directory of workbooks (no authentication required)
	feed, err := excel.New(&excel.Config{Dir: dataDir})
	if err != nil {
		return fmt.Errorf("failed to create Excel feed: %w", err)
	}

	client := sheetrows.New(feed, nil)
	ctx := context.Background()

	ws, err := client.GetWorksheet(ctx, bookName, sheetName)
	if err != nil {
		return err
	}

	// 1. Add some rows
	fmt.Println("Adding rows...")
	users := []sheetrows.Row{
		{"name": "Alice Johnson", "email": "alice@example.com", "age": "30", "department": "Engineering", "active": "true"},
		{"name": "Bob Smith", "email": "bob@example.com", "age": "25", "department": "Marketing", "active": "true"},
		{"name": "Charlie Brown", "email": "charlie@example.com", "age": "35", "department": "Engineering", "active": "false"},
	}
	for _, user := range users {
		inserted, err := ws.InsertRow(ctx, user)
		if err != nil {
			log.Printf("Failed to insert user: %v", err)
			continue
		}
		id, _ := inserted.ID()
		fmt.Printf("Added user: %s (%s)\n", inserted.GetAsString("name", ""), id)
	}

	// 2. Query rows
	fmt.Println("\nQuerying active engineers...")
	engineers, err := ws.Rows(ctx, sheetrows.RowsOptions{
		Filter: `department = "Engineering" and active = true`,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	for _, r := range engineers {
		fmt.Printf("- %s (age: %d)\n", r.GetAsString("name", ""), r.GetAsInt64("age", 0))
	}

	// 3. Update a row found by a local predicate
	fmt.Println("\nUpdating Bob's department...")
	bob, err := ws.Rows(ctx, sheetrows.RowsOptions{
		Predicate: func(r sheetrows.Row) bool { return r.GetAsString("name", "") == "Bob Smith" },
	})
	if err != nil {
		return err
	}
	if len(bob) > 0 {
		patch := bob[0].Clone()
		patch.SetString("department", "Sales")
		patch.SetTime("updated_at", time.Now())
		if _, err := ws.UpdateRow(ctx, patch); err != nil {
			log.Printf("Update failed: %v", err)
		} else {
			fmt.Println("Updated successfully")
		}
	}

	// 4. Typed setters
	record := sheetrows.Row{}
	record.SetString("name", "Diana Prince")
	record.SetInt64("age", 28)
	record.SetBool("active", true)
	record.SetStrings("skills", []string{"Java", "Python", "Go"})
	if _, err := ws.InsertRow(ctx, record); err != nil {
		log.Printf("Failed to insert row: %v", err)
	}

	// 5. Ordered listing, youngest last
	fmt.Println("\nAll users by age, descending...")
	rows, err := ws.Rows(ctx, sheetrows.RowsOptions{
		OrderBy:   "column:age",
		Direction: sheetrows.SortDescending,
	})
	if err != nil {
		return err
	}
	for i, r := range rows {
		fmt.Printf("%d. %s (age: %d, skills: %v)\n", i, r.GetAsString("name", ""), r.GetAsInt64("age", 0), r.GetAsStrings("skills", nil))
	}

	// 6. Remove the last row of that result by position
	if len(rows) > 0 {
		if err := ws.DeleteRowByIndex(ctx, len(rows)-1); err != nil {
			return err
		}
		fmt.Println("\nRemoved the youngest user")
	}

	fmt.Printf("\nExample completed. Check %s for the data.\n", filepath.Join(dataDir, bookName))
	return nil
}
