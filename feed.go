package sheetrows

import "context"

// WorksheetKeys addresses one worksheet within one spreadsheet
type WorksheetKeys struct {
	SpreadsheetKey string
	WorksheetKey   string
}

// SheetInfo is a (title, key) pair returned by discovery calls
type SheetInfo struct {
	Title string `json:"title"`
	Key   string `json:"key"`
}

// RowEntry is the feed's representation of one row. Identity is ID, not position.
type RowEntry struct {
	ID     string
	Fields map[string]string
}

// Feed interface defines the remote calls a spreadsheet backend must provide
type Feed interface {
	// ListSpreadsheets enumerates the spreadsheets visible to the credentials
	ListSpreadsheets(ctx context.Context) ([]SheetInfo, error)

	// ListWorksheets enumerates the worksheets of a spreadsheet
	ListWorksheets(ctx context.Context, spreadsheetKey string) ([]SheetInfo, error)

	// FetchRows returns the rows matching query in result order. A nil query
	// means no constraints and sheet order.
	FetchRows(ctx context.Context, keys WorksheetKeys, query *QuerySpec) ([]*RowEntry, error)

	// FetchRowByID returns a single row. A missing row is reported either as
	// ErrRowNotFound or as a nil entry with a nil error.
	FetchRowByID(ctx context.Context, keys WorksheetKeys, id string) (*RowEntry, error)

	// InsertRow appends a row and returns it with its freshly assigned ID
	InsertRow(ctx context.Context, keys WorksheetKeys, fields map[string]string) (*RowEntry, error)

	// UpdateRow replaces the values of entry with fields
	UpdateRow(ctx context.Context, keys WorksheetKeys, entry *RowEntry, fields map[string]string) (*RowEntry, error)

	// DeleteRow removes entry from the worksheet
	DeleteRow(ctx context.Context, keys WorksheetKeys, entry *RowEntry) error
}
