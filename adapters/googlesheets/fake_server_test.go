package googlesheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheet is one worksheet held by fakeServer. rows[0] is the header.
type fakeSheet struct {
	id    int64
	title string
	rows  [][]string
	ids   map[int64]string // row index -> developer metadata value
}

// fakeServer emulates the subset of the Sheets v4 and Drive v3 REST APIs the
// adaptor uses, for a single spreadsheet
type fakeServer struct {
	t             *testing.T
	spreadsheetID string
	files         []*drive.File

	mu           sync.Mutex
	sheets       []*fakeSheet
	calls        map[string]int
	failNext     int // answer the next n requests with failStatus
	failStatus   int
	batchUpdates int
}

func newFakeServer(t *testing.T, sheets ...*fakeSheet) *fakeServer {
	for _, s := range sheets {
		if s.ids == nil {
			s.ids = make(map[int64]string)
		}
	}
	return &fakeServer{
		t:             t,
		spreadsheetID: "book",
		sheets:        sheets,
		calls:         make(map[string]int),
		failStatus:    http.StatusServiceUnavailable,
	}
}

// adaptor starts the server and returns an adaptor pointed at it
func (f *fakeServer) adaptor(t *testing.T, config Config) *SheetsAdaptor {
	server := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(server.Close)

	if config.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		config.Logger = logger
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = time.Millisecond
	}

	a, err := NewSheetsAdaptor(context.Background(), config, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewSheetsAdaptor() error = %v", err)
	}
	return a
}

func (f *fakeServer) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[call]
}

// snapshot returns a copy of the rows of a sheet and its identifier count
func (f *fakeServer) snapshot(title string) ([][]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sheet(title)
	rows := make([][]string, len(s.rows))
	copy(rows, s.rows)
	return rows, len(s.ids)
}

func (f *fakeServer) updates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchUpdates
}

func (f *fakeServer) fail(n, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
	if status != 0 {
		f.failStatus = status
	}
}

func (f *fakeServer) sheet(title string) *fakeSheet {
	for _, s := range f.sheets {
		if s.title == title {
			return s
		}
	}
	return nil
}

func (f *fakeServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext > 0 {
		f.failNext--
		w.WriteHeader(f.failStatus)
		fmt.Fprintf(w, `{"error": {"code": %d, "message": "injected failure"}}`, f.failStatus)
		return
	}

	if r.URL.Path == "/files" {
		f.calls["files.list"]++
		f.reply(w, &drive.FileList{Files: f.files})
		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if id, ok := strings.CutSuffix(rest, ":batchUpdate"); ok && r.Method == http.MethodPost {
		f.calls["batchUpdate"]++
		f.batchUpdate(w, r, id)
		return
	}

	id, tail, _ := strings.Cut(rest, "/")
	if id != f.spreadsheetID {
		f.notFound(w)
		return
	}

	switch {
	case tail == "" && r.Method == http.MethodGet:
		f.calls["get"]++
		resp := &sheets.Spreadsheet{}
		for i, s := range f.sheets {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{SheetId: s.id, Title: s.title, Index: int64(i)}})
		}
		f.reply(w, resp)

	case tail == "values:batchGet":
		f.calls["values.batchGet"]++
		resp := &sheets.BatchGetValuesResponse{}
		for _, rng := range r.URL.Query()["ranges"] {
			resp.ValueRanges = append(resp.ValueRanges, f.valueRange(rng))
		}
		f.reply(w, resp)

	case tail == "developerMetadata:search":
		f.calls["developerMetadata.search"]++
		f.search(w, r)

	case strings.HasPrefix(tail, "values/"):
		rng := strings.TrimPrefix(tail, "values/")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
			f.calls["values.append"]++
			f.appendRow(w, r, strings.TrimSuffix(rng, ":append"))
		case r.Method == http.MethodPut:
			f.calls["values.update"]++
			f.update(w, r, rng)
		default:
			f.calls["values.get"]++
			f.reply(w, f.valueRange(rng))
		}

	default:
		http.NotFound(w, r)
	}
}

// splitRange splits 'Title'!cells into the sheet and the cell part
func (f *fakeServer) splitRange(rng string) (*fakeSheet, string) {
	title, cells := rng, ""
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		title, cells = rng[:i], rng[i+1:]
	}
	title = strings.TrimSuffix(strings.TrimPrefix(title, "'"), "'")
	title = strings.ReplaceAll(title, "''", "'")

	s := f.sheet(title)
	if s == nil {
		f.t.Errorf("fake server: unknown sheet in range %q", rng)
	}
	return s, cells
}

// rowOf returns the 0-based row of the first cell of an A1 reference such as
// "5:5" or "A5"
func rowOf(cells string) int {
	cells, _, _ = strings.Cut(cells, ":")
	cells = strings.TrimLeft(cells, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	var n int
	fmt.Sscanf(cells, "%d", &n)
	return n - 1
}

func (f *fakeServer) valueRange(rng string) *sheets.ValueRange {
	s, cells := f.splitRange(rng)
	vr := &sheets.ValueRange{Range: rng, MajorDimension: "ROWS"}
	if s == nil {
		return vr
	}

	from, to := 0, len(s.rows)
	if cells != "" {
		from = rowOf(cells)
		to = from + 1
	}
	for i := from; i < to && i < len(s.rows); i++ {
		vr.Values = append(vr.Values, toValues(s.rows[i]))
	}
	return vr
}

func (f *fakeServer) search(w http.ResponseWriter, r *http.Request) {
	var req sheets.SearchDeveloperMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("fake server: bad search body: %v", err)
	}

	resp := &sheets.SearchDeveloperMetadataResponse{}
	for _, filter := range req.DataFilters {
		lookup := filter.DeveloperMetadataLookup
		if lookup == nil || lookup.MetadataKey != RowIDKey {
			continue
		}
		for _, s := range f.sheets {
			for index, id := range s.ids {
				if lookup.MetadataValue != "" && lookup.MetadataValue != id {
					continue
				}
				resp.MatchedDeveloperMetadata = append(resp.MatchedDeveloperMetadata, &sheets.MatchedDeveloperMetadata{
					DeveloperMetadata: &sheets.DeveloperMetadata{
						MetadataKey:   RowIDKey,
						MetadataValue: id,
						Location: &sheets.DeveloperMetadataLocation{
							LocationType: "ROW",
							DimensionRange: &sheets.DimensionRange{
								SheetId: s.id, Dimension: "ROWS", StartIndex: index, EndIndex: index + 1,
							},
						},
					},
				})
			}
		}
	}
	f.reply(w, resp)
}

func (f *fakeServer) batchUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req sheets.BatchUpdateSpreadsheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("fake server: bad batchUpdate body: %v", err)
	}
	f.batchUpdates++

	byID := func(sheetID int64) *fakeSheet {
		for _, s := range f.sheets {
			if s.id == sheetID {
				return s
			}
		}
		f.t.Errorf("fake server: unknown sheet ID %d", sheetID)
		return &fakeSheet{ids: map[int64]string{}}
	}

	for _, req := range req.Requests {
		switch {
		case req.CreateDeveloperMetadata != nil:
			md := req.CreateDeveloperMetadata.DeveloperMetadata
			dr := md.Location.DimensionRange
			byID(dr.SheetId).ids[dr.StartIndex] = md.MetadataValue

		case req.DeleteDimension != nil:
			dr := req.DeleteDimension.Range
			s := byID(dr.SheetId)
			if int(dr.StartIndex) < len(s.rows) {
				s.rows = append(s.rows[:dr.StartIndex], s.rows[dr.StartIndex+1:]...)
			}
			shifted := make(map[int64]string, len(s.ids))
			for index, rowID := range s.ids {
				switch {
				case index < dr.StartIndex:
					shifted[index] = rowID
				case index > dr.StartIndex:
					shifted[index-1] = rowID
				}
			}
			s.ids = shifted

		default:
			f.t.Errorf("fake server: unsupported batchUpdate request %+v", req)
		}
	}
	f.reply(w, &sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: id})
}

func (f *fakeServer) appendRow(w http.ResponseWriter, r *http.Request, rng string) {
	var vr sheets.ValueRange
	if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
		f.t.Errorf("fake server: bad append body: %v", err)
	}
	s, _ := f.splitRange(rng)
	for _, row := range vr.Values {
		s.rows = append(s.rows, toStrings(row))
	}
	n := len(s.rows)
	f.reply(w, &sheets.AppendValuesResponse{Updates: &sheets.UpdateValuesResponse{
		UpdatedRange: fmt.Sprintf("'%s'!A%d:Z%d", s.title, n, n),
	}})
}

func (f *fakeServer) update(w http.ResponseWriter, r *http.Request, rng string) {
	var vr sheets.ValueRange
	if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
		f.t.Errorf("fake server: bad update body: %v", err)
	}
	s, cells := f.splitRange(rng)
	index := rowOf(cells)
	for len(s.rows) <= index {
		s.rows = append(s.rows, nil)
	}
	s.rows[index] = toStrings(vr.Values[0])
	f.reply(w, &sheets.UpdateValuesResponse{UpdatedRange: rng})
}

func (f *fakeServer) reply(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Errorf("fake server: encode: %v", err)
	}
}

func (f *fakeServer) notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error": {"code": 404, "message": "Requested entity was not found."}}`))
}

func toValues(row []string) []interface{} {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return values
}

func toStrings(row []interface{}) []string {
	values := make([]string, len(row))
	for i, v := range row {
		values[i] = cellString(v)
	}
	return values
}
