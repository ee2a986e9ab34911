package excel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/ideamans/go-sheetrows/internal/listquery"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// IDColumn is the header of the hidden column A that stores row identifiers
const IDColumn = "_sheetrows_id"

const workbookExt = ".xlsx"

// Adapter implements sheetrows.Feed over a directory of Excel workbooks.
// A workbook is a spreadsheet and each of its sheets is a worksheet.
type Adapter struct {
	config *Config
	log    logrus.FieldLogger
	mu     sync.RWMutex
}

// New creates a new Excel adapter with the given configuration
func New(config *Config) (*Adapter, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create a copy of config to avoid external modifications
	configCopy := *config
	if configCopy.Logger == nil {
		configCopy.Logger = logrus.StandardLogger()
	}

	return &Adapter{
		config: &configCopy,
		log:    configCopy.Logger.WithField("adapter", "excel"),
	}, nil
}

// ListSpreadsheets lists the workbooks in the directory, keyed by file name
func (a *Adapter) ListSpreadsheets(ctx context.Context) ([]sheetrows.SheetInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(a.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	infos := make([]sheetrows.SheetInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		// "~$" files are Excel lock files
		if e.IsDir() || filepath.Ext(name) != workbookExt || strings.HasPrefix(name, "~$") {
			continue
		}
		infos = append(infos, sheetrows.SheetInfo{Title: strings.TrimSuffix(name, workbookExt), Key: name})
	}
	return infos, nil
}

// ListWorksheets lists the sheets of a workbook. Sheet names are both title and key.
func (a *Adapter) ListWorksheets(ctx context.Context, spreadsheetKey string) ([]sheetrows.SheetInfo, error) {
	var infos []sheetrows.SheetInfo
	err := a.withFile(ctx, spreadsheetKey, false, func(f *excelize.File) (bool, error) {
		for _, name := range f.GetSheetList() {
			infos = append(infos, sheetrows.SheetInfo{Title: name, Key: name})
		}
		return false, nil
	})
	return infos, err
}

// FetchRows reads a sheet and evaluates query locally. The identifier column
// is created, and identifiers assigned, for rows that lack them.
func (a *Adapter) FetchRows(ctx context.Context, keys sheetrows.WorksheetKeys, query *sheetrows.QuerySpec) ([]*sheetrows.RowEntry, error) {
	var entries []*sheetrows.RowEntry
	err := a.withFile(ctx, keys.SpreadsheetKey, true, func(f *excelize.File) (bool, error) {
		s, err := openSheet(f, keys.WorksheetKey)
		if err != nil {
			return false, err
		}
		if len(s.rows) == 0 {
			entries = []*sheetrows.RowEntry{}
			return false, nil
		}

		changed, err := s.ensureIDColumn()
		if err != nil {
			return false, err
		}
		if changed {
			a.log.WithFields(logrus.Fields{"spreadsheet": keys.SpreadsheetKey, "worksheet": keys.WorksheetKey}).Info("id column added")
		}

		entries = make([]*sheetrows.RowEntry, 0, len(s.rows)-1)
		for i := 1; i < len(s.rows); i++ {
			fields := s.fields(i)
			if len(fields) == 0 {
				continue
			}

			id := s.id(i)
			if id == "" {
				if id, err = newRowID(); err != nil {
					return false, err
				}
				if err := f.SetCellValue(s.name, cellName(1, i+1), id); err != nil {
					return false, fmt.Errorf("failed to write row id: %w", err)
				}
				changed = true
			}
			entries = append(entries, &sheetrows.RowEntry{ID: id, Fields: fields})
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}

	return listquery.Apply(entries, query)
}

// FetchRowByID returns the row carrying id
func (a *Adapter) FetchRowByID(ctx context.Context, keys sheetrows.WorksheetKeys, id string) (*sheetrows.RowEntry, error) {
	var entry *sheetrows.RowEntry
	err := a.withFile(ctx, keys.SpreadsheetKey, false, func(f *excelize.File) (bool, error) {
		s, err := openSheet(f, keys.WorksheetKey)
		if err != nil {
			return false, err
		}
		i, err := s.locate(id)
		if err != nil {
			return false, err
		}
		entry = &sheetrows.RowEntry{ID: id, Fields: s.fields(i)}
		return false, nil
	})
	return entry, err
}

// InsertRow writes fields below the last used row
func (a *Adapter) InsertRow(ctx context.Context, keys sheetrows.WorksheetKeys, fields map[string]string) (*sheetrows.RowEntry, error) {
	id, err := newRowID()
	if err != nil {
		return nil, err
	}

	err = a.withFile(ctx, keys.SpreadsheetKey, true, func(f *excelize.File) (bool, error) {
		s, err := openSheet(f, keys.WorksheetKey)
		if err != nil {
			return false, err
		}
		if len(s.rows) > 0 {
			if _, err := s.ensureIDColumn(); err != nil {
				return false, err
			}
		}
		if err := s.extendHeader(fields); err != nil {
			return false, err
		}
		return true, s.writeRow(len(s.rows), id, fields)
	})
	if err != nil {
		return nil, err
	}
	return &sheetrows.RowEntry{ID: id, Fields: copyFields(fields)}, nil
}

// UpdateRow overwrites the row of entry with fields
func (a *Adapter) UpdateRow(ctx context.Context, keys sheetrows.WorksheetKeys, entry *sheetrows.RowEntry, fields map[string]string) (*sheetrows.RowEntry, error) {
	err := a.withFile(ctx, keys.SpreadsheetKey, true, func(f *excelize.File) (bool, error) {
		s, err := openSheet(f, keys.WorksheetKey)
		if err != nil {
			return false, err
		}
		i, err := s.locate(entry.ID)
		if err != nil {
			return false, err
		}
		if err := s.extendHeader(fields); err != nil {
			return false, err
		}
		return true, s.writeRow(i, entry.ID, fields)
	})
	if err != nil {
		return nil, err
	}
	return &sheetrows.RowEntry{ID: entry.ID, Fields: copyFields(fields)}, nil
}

// DeleteRow removes the row of entry, shifting the rows below it up
func (a *Adapter) DeleteRow(ctx context.Context, keys sheetrows.WorksheetKeys, entry *sheetrows.RowEntry) error {
	return a.withFile(ctx, keys.SpreadsheetKey, true, func(f *excelize.File) (bool, error) {
		s, err := openSheet(f, keys.WorksheetKey)
		if err != nil {
			return false, err
		}
		i, err := s.locate(entry.ID)
		if err != nil {
			return false, err
		}
		if err := f.RemoveRow(s.name, i+1); err != nil {
			return false, fmt.Errorf("failed to remove row: %w", err)
		}
		return true, nil
	})
}

// withFile opens the workbook of key and runs fn on it, saving when fn
// reports a change. Writers hold the lock exclusively.
func (a *Adapter) withFile(ctx context.Context, key string, write bool, fn func(f *excelize.File) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := a.path(key)
	if err != nil {
		return err
	}

	if write {
		a.mu.Lock()
		defer a.mu.Unlock()
	} else {
		a.mu.RLock()
		defer a.mu.RUnlock()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("spreadsheet %q: %w", key, ErrSpreadsheetNotFound)
		}
		return fmt.Errorf("%w: failed to open %s: %w", ErrInvalidFileFormat, key, err)
	}
	defer f.Close()

	changed, err := fn(f)
	if err != nil {
		return err
	}
	if changed {
		if err := f.Save(); err != nil {
			return fmt.Errorf("failed to save Excel file: %w", err)
		}
	}
	return nil
}

func (a *Adapter) path(key string) (string, error) {
	if key == "" || filepath.Base(key) != key || filepath.Ext(key) != workbookExt {
		return "", fmt.Errorf("%w: %q", ErrInvalidSpreadsheetKey, key)
	}
	return filepath.Join(a.config.Dir, key), nil
}

// sheet is the in-memory view of one worksheet during a call. rows[0] is the
// header; rows are 0-based, so rows[i] lives on Excel row i+1.
type sheet struct {
	f    *excelize.File
	name string
	rows [][]string
}

func openSheet(f *excelize.File, name string) (*sheet, error) {
	index, err := f.GetSheetIndex(name)
	if err != nil || index == -1 {
		return nil, fmt.Errorf("worksheet %q: %w", name, sheetrows.ErrWorksheetNotFound)
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return &sheet{f: f, name: name, rows: rows}, nil
}

func (s *sheet) header() []string {
	if len(s.rows) == 0 {
		return nil
	}
	return s.rows[0]
}

// ensureIDColumn inserts the hidden identifier column in front of the data
func (s *sheet) ensureIDColumn() (bool, error) {
	if h := s.header(); len(h) > 0 && h[0] == IDColumn {
		return false, nil
	}

	if err := s.f.InsertCols(s.name, "A", 1); err != nil {
		return false, fmt.Errorf("failed to insert id column: %w", err)
	}
	if err := s.f.SetCellValue(s.name, "A1", IDColumn); err != nil {
		return false, fmt.Errorf("failed to write id header: %w", err)
	}
	if err := s.f.SetColVisible(s.name, "A", false); err != nil {
		return false, fmt.Errorf("failed to hide id column: %w", err)
	}

	for i, row := range s.rows {
		first := ""
		if i == 0 {
			first = IDColumn
		}
		s.rows[i] = append([]string{first}, row...)
	}
	return true, nil
}

// extendHeader appends columns of fields the header does not have yet. An
// empty sheet gets a header made of the identifier column and fields.
func (s *sheet) extendHeader(fields map[string]string) error {
	header := s.header()
	if len(header) == 0 {
		header = []string{IDColumn}
	}

	var added []string
	for col := range fields {
		if col != "" && col != IDColumn && !slices.Contains(header, col) {
			added = append(added, col)
		}
	}
	if len(added) == 0 && len(s.rows) > 0 {
		return nil
	}
	slices.Sort(added)
	header = append(slices.Clone(header), added...)

	values := make([]interface{}, len(header))
	for i, col := range header {
		values[i] = col
	}
	if err := s.f.SetSheetRow(s.name, "A1", &values); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if len(s.rows) == 0 {
		if err := s.f.SetColVisible(s.name, "A", false); err != nil {
			return fmt.Errorf("failed to hide id column: %w", err)
		}
		s.rows = [][]string{header}
	} else {
		s.rows[0] = header
	}
	return nil
}

// writeRow lays out id and fields on row i in header order
func (s *sheet) writeRow(i int, id string, fields map[string]string) error {
	header := s.header()
	values := make([]interface{}, len(header))
	values[0] = id
	for j := 1; j < len(header); j++ {
		values[j] = fields[header[j]]
	}
	if err := s.f.SetSheetRow(s.name, cellName(1, i+1), &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", i+1, err)
	}
	return nil
}

func (s *sheet) id(i int) string {
	if len(s.rows[i]) == 0 {
		return ""
	}
	return s.rows[i][0]
}

// fields maps row i onto the header, skipping the identifier column and blank cells
func (s *sheet) fields(i int) map[string]string {
	header := s.header()
	fields := make(map[string]string)
	for j := 1; j < len(s.rows[i]) && j < len(header); j++ {
		if header[j] == "" || s.rows[i][j] == "" {
			continue
		}
		fields[header[j]] = s.rows[i][j]
	}
	return fields
}

func (s *sheet) locate(id string) (int, error) {
	if h := s.header(); len(h) > 0 && h[0] == IDColumn {
		for i := 1; i < len(s.rows); i++ {
			if s.id(i) == id {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("row ID %q: %w", id, sheetrows.ErrRowNotFound)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func newRowID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate row id: %w", err)
	}
	return id.String(), nil
}

func copyFields(fields map[string]string) map[string]string {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}
