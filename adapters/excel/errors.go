package excel

import "errors"

var (
	// ErrMissingDir is returned when the workbook directory is not usable
	ErrMissingDir = errors.New("workbook directory is required")

	// ErrSpreadsheetNotFound is returned when no workbook matches a spreadsheet key
	ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

	// ErrInvalidSpreadsheetKey is returned for keys that are not a plain *.xlsx file name
	ErrInvalidSpreadsheetKey = errors.New("invalid spreadsheet key")

	// ErrInvalidFileFormat is returned when the file is not a valid Excel file
	ErrInvalidFileFormat = errors.New("invalid Excel file format")
)
