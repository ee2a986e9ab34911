package googlesheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/ideamans/go-sheetrows/internal/listquery"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// RowIDKey is the developer metadata key that carries the identifier of a row
const RowIDKey = "sheetrows.rowid"

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// SheetsAdaptor implements sheetrows.Feed on top of the Sheets and Drive APIs.
//
// Row 1 of a worksheet is the header. Every data row carries its identifier as
// row-level developer metadata, so identifiers follow rows through inserts,
// sorts and deletions made in the browser.
type SheetsAdaptor struct {
	sheets *sheets.Service
	drive  *drive.Service
	config Config
	log    logrus.FieldLogger

	mu     sync.Mutex
	layout map[string][]*sheets.SheetProperties // spreadsheet ID -> worksheets
}

// sheetRef is a resolved worksheet
type sheetRef struct {
	spreadsheetID string
	sheetID       int64
	title         string
}

// a1 returns an A1 range within the worksheet, the whole sheet for ""
func (r sheetRef) a1(cells string) string {
	quoted := "'" + strings.ReplaceAll(r.title, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

// NewSheetsAdaptor creates a new Google Sheets adaptor with provided options
func NewSheetsAdaptor(ctx context.Context, config Config, opts ...option.ClientOption) (*SheetsAdaptor, error) {
	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	config = config.withDefaults()
	return &SheetsAdaptor{
		sheets: sheetsService,
		drive:  driveService,
		config: config,
		log:    config.Logger.WithField("adaptor", "googlesheets"),
		layout: make(map[string][]*sheets.SheetProperties),
	}, nil
}

// ListSpreadsheets lists the spreadsheets visible in Drive
func (a *SheetsAdaptor) ListSpreadsheets(ctx context.Context) ([]sheetrows.SheetInfo, error) {
	var infos []sheetrows.SheetInfo
	err := a.retry(ctx, "list spreadsheets", func() error {
		infos = infos[:0]
		return a.drive.Files.List().
			Q(fmt.Sprintf("mimeType='%s' and trashed=false", spreadsheetMimeType)).
			Fields("nextPageToken", "files(id,name)").
			OrderBy("name").
			Context(ctx).
			Pages(ctx, func(page *drive.FileList) error {
				for _, f := range page.Files {
					infos = append(infos, sheetrows.SheetInfo{Title: f.Name, Key: f.Id})
				}
				return nil
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list spreadsheets: %w", err)
	}
	return infos, nil
}

// ListWorksheets lists the worksheets of a spreadsheet, keyed by sheet ID
func (a *SheetsAdaptor) ListWorksheets(ctx context.Context, spreadsheetKey string) ([]sheetrows.SheetInfo, error) {
	props, err := a.loadLayout(ctx, spreadsheetKey)
	if err != nil {
		return nil, err
	}

	infos := make([]sheetrows.SheetInfo, 0, len(props))
	for _, p := range props {
		infos = append(infos, sheetrows.SheetInfo{Title: p.Title, Key: strconv.FormatInt(p.SheetId, 10)})
	}
	return infos, nil
}

// FetchRows reads the whole worksheet, assigns identifiers to rows that lack
// one and evaluates query locally
func (a *SheetsAdaptor) FetchRows(ctx context.Context, keys sheetrows.WorksheetKeys, query *sheetrows.QuerySpec) ([]*sheetrows.RowEntry, error) {
	ref, err := a.resolve(ctx, keys)
	if err != nil {
		return nil, err
	}

	var values [][]interface{}
	err = a.retry(ctx, "get values", func() error {
		resp, err := a.sheets.Spreadsheets.Values.Get(ref.spreadsheetID, ref.a1("")).Context(ctx).Do()
		if err != nil {
			return err
		}
		values = resp.Values
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet data: %w", err)
	}
	if len(values) == 0 {
		return []*sheetrows.RowEntry{}, nil
	}

	ids, err := a.rowIDs(ctx, ref, "")
	if err != nil {
		return nil, err
	}

	header := headerOf(values[0])
	entries := make([]*sheetrows.RowEntry, 0, len(values)-1)
	var missing []*sheets.Request
	for i := 1; i < len(values); i++ {
		fields := rowFields(header, values[i])
		if len(fields) == 0 {
			continue
		}

		id, ok := ids[int64(i)]
		if !ok {
			id, err = newRowID()
			if err != nil {
				return nil, err
			}
			missing = append(missing, createRowID(ref, int64(i), id))
		}
		entries = append(entries, &sheetrows.RowEntry{ID: id, Fields: fields})
	}

	if len(missing) > 0 {
		if err := a.batchUpdate(ctx, ref, "assign row ids", missing); err != nil {
			return nil, err
		}
		a.log.WithFields(logrus.Fields{"worksheet": ref.title, "rows": len(missing)}).Info("row ids assigned")
	}

	return listquery.Apply(entries, query)
}

// FetchRowByID reads the single row carrying id
func (a *SheetsAdaptor) FetchRowByID(ctx context.Context, keys sheetrows.WorksheetKeys, id string) (*sheetrows.RowEntry, error) {
	ref, err := a.resolve(ctx, keys)
	if err != nil {
		return nil, err
	}
	index, err := a.locate(ctx, ref, id)
	if err != nil {
		return nil, err
	}

	var ranges []*sheets.ValueRange
	err = a.retry(ctx, "batch get values", func() error {
		resp, err := a.sheets.Spreadsheets.Values.BatchGet(ref.spreadsheetID).
			Ranges(ref.a1("1:1"), ref.a1(rowRange(index))).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		ranges = resp.ValueRanges
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get row %q: %w", id, err)
	}
	if len(ranges) != 2 || len(ranges[0].Values) == 0 || len(ranges[1].Values) == 0 {
		return nil, fmt.Errorf("row ID %q: %w", id, sheetrows.ErrRowNotFound)
	}

	header := headerOf(ranges[0].Values[0])
	return &sheetrows.RowEntry{ID: id, Fields: rowFields(header, ranges[1].Values[0])}, nil
}

// InsertRow appends fields after the last row and tags it with a new identifier
func (a *SheetsAdaptor) InsertRow(ctx context.Context, keys sheetrows.WorksheetKeys, fields map[string]string) (*sheetrows.RowEntry, error) {
	ref, err := a.resolve(ctx, keys)
	if err != nil {
		return nil, err
	}
	header, err := a.ensureHeader(ctx, ref, fields)
	if err != nil {
		return nil, err
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{rowValues(header, fields)}}
	var updatedRange string
	err = a.retry(ctx, "append values", func() error {
		resp, err := a.sheets.Spreadsheets.Values.Append(ref.spreadsheetID, ref.a1("A1"), vr).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if resp.Updates != nil {
			updatedRange = resp.Updates.UpdatedRange
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append row: %w", err)
	}

	row, err := rowNumber(updatedRange)
	if err != nil {
		return nil, err
	}
	id, err := newRowID()
	if err != nil {
		return nil, err
	}
	if err := a.batchUpdate(ctx, ref, "tag inserted row", []*sheets.Request{createRowID(ref, row-1, id)}); err != nil {
		return nil, err
	}

	return &sheetrows.RowEntry{ID: id, Fields: copyFields(fields)}, nil
}

// UpdateRow overwrites the row of entry with fields. Columns absent from
// fields are cleared.
func (a *SheetsAdaptor) UpdateRow(ctx context.Context, keys sheetrows.WorksheetKeys, entry *sheetrows.RowEntry, fields map[string]string) (*sheetrows.RowEntry, error) {
	ref, err := a.resolve(ctx, keys)
	if err != nil {
		return nil, err
	}
	index, err := a.locate(ctx, ref, entry.ID)
	if err != nil {
		return nil, err
	}
	header, err := a.ensureHeader(ctx, ref, fields)
	if err != nil {
		return nil, err
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{rowValues(header, fields)}}
	err = a.retry(ctx, "update values", func() error {
		_, err := a.sheets.Spreadsheets.Values.Update(ref.spreadsheetID, ref.a1(fmt.Sprintf("A%d", index+1)), vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update row %q: %w", entry.ID, err)
	}

	return &sheetrows.RowEntry{ID: entry.ID, Fields: copyFields(fields)}, nil
}

// DeleteRow removes the row of entry, shifting the rows below it up
func (a *SheetsAdaptor) DeleteRow(ctx context.Context, keys sheetrows.WorksheetKeys, entry *sheetrows.RowEntry) error {
	ref, err := a.resolve(ctx, keys)
	if err != nil {
		return err
	}
	index, err := a.locate(ctx, ref, entry.ID)
	if err != nil {
		return err
	}

	req := &sheets.Request{DeleteDimension: &sheets.DeleteDimensionRequest{
		Range: &sheets.DimensionRange{
			SheetId:         ref.sheetID,
			Dimension:       "ROWS",
			StartIndex:      index,
			EndIndex:        index + 1,
			ForceSendFields: []string{"SheetId", "StartIndex"},
		},
	}}
	return a.batchUpdate(ctx, ref, "delete row", []*sheets.Request{req})
}

// resolve maps keys to a worksheet. The worksheet key is a numeric sheet ID or
// a title; the layout is reloaded once when the key is unknown.
func (a *SheetsAdaptor) resolve(ctx context.Context, keys sheetrows.WorksheetKeys) (sheetRef, error) {
	a.mu.Lock()
	props, cached := a.layout[keys.SpreadsheetKey]
	a.mu.Unlock()

	if ref, ok := findSheet(keys, props); ok {
		return ref, nil
	}
	if cached {
		a.mu.Lock()
		delete(a.layout, keys.SpreadsheetKey)
		a.mu.Unlock()
	}

	props, err := a.loadLayout(ctx, keys.SpreadsheetKey)
	if err != nil {
		return sheetRef{}, err
	}
	if ref, ok := findSheet(keys, props); ok {
		return ref, nil
	}
	return sheetRef{}, fmt.Errorf("worksheet %q in spreadsheet %q: %w", keys.WorksheetKey, keys.SpreadsheetKey, sheetrows.ErrWorksheetNotFound)
}

func findSheet(keys sheetrows.WorksheetKeys, props []*sheets.SheetProperties) (sheetRef, bool) {
	id, numeric := strconv.ParseInt(keys.WorksheetKey, 10, 64)
	for _, p := range props {
		if (numeric == nil && p.SheetId == id) || p.Title == keys.WorksheetKey {
			return sheetRef{spreadsheetID: keys.SpreadsheetKey, sheetID: p.SheetId, title: p.Title}, true
		}
	}
	return sheetRef{}, false
}

func (a *SheetsAdaptor) loadLayout(ctx context.Context, spreadsheetID string) ([]*sheets.SheetProperties, error) {
	var props []*sheets.SheetProperties
	err := a.retry(ctx, "get spreadsheet", func() error {
		resp, err := a.sheets.Spreadsheets.Get(spreadsheetID).
			Fields("sheets.properties(sheetId,title,index)").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		props = props[:0]
		for _, s := range resp.Sheets {
			if s.Properties != nil {
				props = append(props, s.Properties)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %q: %w", spreadsheetID, err)
	}

	a.mu.Lock()
	a.layout[spreadsheetID] = props
	a.mu.Unlock()
	return props, nil
}

// rowIDs maps 0-based row indexes of ref to identifiers. A non-empty id
// restricts the search to that identifier.
func (a *SheetsAdaptor) rowIDs(ctx context.Context, ref sheetRef, id string) (map[int64]string, error) {
	req := &sheets.SearchDeveloperMetadataRequest{
		DataFilters: []*sheets.DataFilter{{
			DeveloperMetadataLookup: &sheets.DeveloperMetadataLookup{
				MetadataKey:   RowIDKey,
				MetadataValue: id,
				LocationType:  "ROW",
			},
		}},
	}

	var matched []*sheets.MatchedDeveloperMetadata
	err := a.retry(ctx, "search row ids", func() error {
		resp, err := a.sheets.Spreadsheets.DeveloperMetadata.Search(ref.spreadsheetID, req).Context(ctx).Do()
		if err != nil {
			return err
		}
		matched = resp.MatchedDeveloperMetadata
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search row ids: %w", err)
	}

	ids := make(map[int64]string, len(matched))
	for _, m := range matched {
		md := m.DeveloperMetadata
		if md == nil || md.Location == nil || md.Location.DimensionRange == nil {
			continue
		}
		dr := md.Location.DimensionRange
		if dr.SheetId != ref.sheetID {
			continue
		}
		ids[dr.StartIndex] = md.MetadataValue
	}
	return ids, nil
}

// locate returns the 0-based row index carrying id
func (a *SheetsAdaptor) locate(ctx context.Context, ref sheetRef, id string) (int64, error) {
	ids, err := a.rowIDs(ctx, ref, id)
	if err != nil {
		return 0, err
	}
	for index, got := range ids {
		if got == id {
			return index, nil
		}
	}
	return 0, fmt.Errorf("row ID %q: %w", id, sheetrows.ErrRowNotFound)
}

// ensureHeader returns the header row, extended and written back when fields
// name columns it does not have yet
func (a *SheetsAdaptor) ensureHeader(ctx context.Context, ref sheetRef, fields map[string]string) ([]string, error) {
	var header []string
	err := a.retry(ctx, "get header", func() error {
		resp, err := a.sheets.Spreadsheets.Values.Get(ref.spreadsheetID, ref.a1("1:1")).Context(ctx).Do()
		if err != nil {
			return err
		}
		header = nil
		if len(resp.Values) > 0 {
			header = headerOf(resp.Values[0])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get header: %w", err)
	}

	extended, changed := extendHeader(header, fields)
	if !changed {
		return header, nil
	}

	row := make([]interface{}, len(extended))
	for i, col := range extended {
		row[i] = col
	}
	err = a.retry(ctx, "update header", func() error {
		_, err := a.sheets.Spreadsheets.Values.Update(ref.spreadsheetID, ref.a1("A1"), &sheets.ValueRange{Values: [][]interface{}{row}}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update header: %w", err)
	}

	a.log.WithFields(logrus.Fields{"worksheet": ref.title, "columns": len(extended)}).Info("header extended")
	return extended, nil
}

func (a *SheetsAdaptor) batchUpdate(ctx context.Context, ref sheetRef, op string, requests []*sheets.Request) error {
	body := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	err := a.retry(ctx, op, func() error {
		_, err := a.sheets.Spreadsheets.BatchUpdate(ref.spreadsheetID, body).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

// retry runs call, retrying rate limits and server errors with exponential
// backoff capped at RetryInterval
func (a *SheetsAdaptor) retry(ctx context.Context, op string, call func() error) error {
	var err error
	for i := 0; i <= a.config.MaxRetries; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 100 * time.Millisecond
			if backoff > a.config.RetryInterval {
				backoff = a.config.RetryInterval
			}
			a.log.WithFields(logrus.Fields{"op": op, "attempt": i, "backoff": backoff}).
				WithError(err).Warn("retrying Google API call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err = call()
		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	switch gerr.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func createRowID(ref sheetRef, index int64, id string) *sheets.Request {
	return &sheets.Request{CreateDeveloperMetadata: &sheets.CreateDeveloperMetadataRequest{
		DeveloperMetadata: &sheets.DeveloperMetadata{
			MetadataKey:   RowIDKey,
			MetadataValue: id,
			Visibility:    "DOCUMENT",
			Location: &sheets.DeveloperMetadataLocation{
				DimensionRange: &sheets.DimensionRange{
					SheetId:         ref.sheetID,
					Dimension:       "ROWS",
					StartIndex:      index,
					EndIndex:        index + 1,
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		},
	}}
}

func newRowID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate row id: %w", err)
	}
	return id.String(), nil
}

// rowRange is the A1 range of a whole row given its 0-based index
func rowRange(index int64) string {
	return fmt.Sprintf("%d:%d", index+1, index+1)
}

// rowNumber extracts the 1-based row of the first cell of an A1 range such as
// 'People'!A5:C5
func rowNumber(a1 string) (int64, error) {
	cells := a1[strings.LastIndex(a1, "!")+1:]
	if i := strings.Index(cells, ":"); i >= 0 {
		cells = cells[:i]
	}
	digits := strings.TrimLeft(cells, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("unexpected updated range %q", a1)
	}
	return n, nil
}

func headerOf(row []interface{}) []string {
	header := make([]string, len(row))
	for i, v := range row {
		header[i] = strings.TrimSpace(cellString(v))
	}
	return header
}

// rowFields maps a value row onto header. Blank cells and unnamed columns are
// dropped, so an empty map means an empty row.
func rowFields(header []string, row []interface{}) map[string]string {
	fields := make(map[string]string)
	for i := 0; i < len(row) && i < len(header); i++ {
		if header[i] == "" {
			continue
		}
		if s := cellString(row[i]); s != "" {
			fields[header[i]] = s
		}
	}
	return fields
}

// rowValues lays fields out in header order
func rowValues(header []string, fields map[string]string) []interface{} {
	row := make([]interface{}, len(header))
	for i, col := range header {
		row[i] = fields[col]
	}
	return row
}

// extendHeader appends the columns of fields missing from header, in sorted
// order so that the layout does not depend on map iteration
func extendHeader(header []string, fields map[string]string) ([]string, bool) {
	known := make(map[string]bool, len(header))
	for _, col := range header {
		known[col] = true
	}

	var added []string
	for col := range fields {
		if !known[col] && col != "" {
			added = append(added, col)
		}
	}
	if len(added) == 0 {
		return header, false
	}

	slices.Sort(added)
	extended := make([]string, 0, len(header)+len(added))
	extended = append(extended, header...)
	return append(extended, added...), true
}

// cellString renders a formatted cell value
func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func copyFields(fields map[string]string) map[string]string {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}
