package sheetrows_test

import (
	"context"
	"errors"
	"fmt"

	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/ideamans/go-sheetrows/internal/listquery"
)

var errTransport = errors.New("connection reset by peer")

// fakeFeed is an in-memory worksheet that counts remote calls
type fakeFeed struct {
	rows   []*sheetrows.RowEntry
	nextID int

	sheets     []sheetrows.SheetInfo
	worksheets map[string][]sheetrows.SheetInfo

	fetchCalls     int
	fetchByIDCalls int
	insertCalls    int
	updateCalls    int
	deleteCalls    int
	lastQuery      *sheetrows.QuerySpec

	fetchErr        error
	listErr         error
	failDeleteAfter int // fail the delete call after this many successes; 0 disables
	rejectUpdate    bool
	rejectInsert    bool
}

func newFakeFeed(rows ...map[string]string) *fakeFeed {
	f := &fakeFeed{}
	for _, fields := range rows {
		f.add(fields)
	}
	return f
}

func (f *fakeFeed) add(fields map[string]string) *sheetrows.RowEntry {
	f.nextID++
	entry := &sheetrows.RowEntry{ID: fmt.Sprintf("r%d", f.nextID), Fields: copyFields(fields)}
	f.rows = append(f.rows, entry)
	return cloneEntry(entry)
}

func (f *fakeFeed) ListSpreadsheets(ctx context.Context) ([]sheetrows.SheetInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sheets, nil
}

func (f *fakeFeed) ListWorksheets(ctx context.Context, spreadsheetKey string) ([]sheetrows.SheetInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.worksheets[spreadsheetKey], nil
}

func (f *fakeFeed) FetchRows(ctx context.Context, keys sheetrows.WorksheetKeys, query *sheetrows.QuerySpec) ([]*sheetrows.RowEntry, error) {
	f.fetchCalls++
	f.lastQuery = query
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	matched, err := listquery.Apply(f.rows, query)
	if err != nil {
		return nil, err
	}
	out := make([]*sheetrows.RowEntry, len(matched))
	for i, e := range matched {
		out[i] = cloneEntry(e)
	}
	return out, nil
}

func (f *fakeFeed) FetchRowByID(ctx context.Context, keys sheetrows.WorksheetKeys, id string) (*sheetrows.RowEntry, error) {
	f.fetchByIDCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if i := f.indexOf(id); i >= 0 {
		return cloneEntry(f.rows[i]), nil
	}
	return nil, sheetrows.ErrRowNotFound
}

func (f *fakeFeed) InsertRow(ctx context.Context, keys sheetrows.WorksheetKeys, fields map[string]string) (*sheetrows.RowEntry, error) {
	f.insertCalls++
	if f.rejectInsert {
		return &sheetrows.RowEntry{}, nil
	}
	return f.add(fields), nil
}

func (f *fakeFeed) UpdateRow(ctx context.Context, keys sheetrows.WorksheetKeys, entry *sheetrows.RowEntry, fields map[string]string) (*sheetrows.RowEntry, error) {
	f.updateCalls++
	if f.rejectUpdate {
		return nil, nil
	}
	i := f.indexOf(entry.ID)
	if i < 0 {
		return nil, sheetrows.ErrRowNotFound
	}
	f.rows[i] = &sheetrows.RowEntry{ID: entry.ID, Fields: copyFields(fields)}
	return cloneEntry(f.rows[i]), nil
}

func (f *fakeFeed) DeleteRow(ctx context.Context, keys sheetrows.WorksheetKeys, entry *sheetrows.RowEntry) error {
	f.deleteCalls++
	if f.failDeleteAfter > 0 && f.deleteCalls > f.failDeleteAfter {
		return errTransport
	}
	i := f.indexOf(entry.ID)
	if i < 0 {
		return sheetrows.ErrRowNotFound
	}
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return nil
}

func (f *fakeFeed) indexOf(id string) int {
	for i, e := range f.rows {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func cloneEntry(e *sheetrows.RowEntry) *sheetrows.RowEntry {
	return &sheetrows.RowEntry{ID: e.ID, Fields: copyFields(e.Fields)}
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
