package sheetrows

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Predicate filters decoded rows locally, after the feed applied the query
type Predicate func(Row) bool

// RowsOptions holds the parameters of a Rows call. The zero value lists every
// row in sheet order.
type RowsOptions struct {
	Filter    string        // Structured query evaluated by the feed
	OrderBy   string        // "position" (default) or "column:<name>"
	Direction SortDirection // Reverse flag
	Predicate Predicate     // Optional in-memory filter
}

// WorksheetOption customizes a Worksheet at construction
type WorksheetOption func(*Worksheet)

// WithCacheState starts the worksheet from a prepared cache. The state's bound
// query also becomes the current query, so positional calls address it.
func WithCacheState(state CacheState) WorksheetOption {
	return func(w *Worksheet) {
		w.cache = NewEntryCache(state)
		w.query = copyQuery(state.Bound)
	}
}

// Worksheet is a row-level session over one worksheet. It caches the entries
// of the last query and patches that cache after single-row mutations.
//
// A Worksheet is not safe for concurrent use: a remote call and the cache
// patch that follows it are not atomic together.
type Worksheet struct {
	feed     Feed
	keys     WorksheetKeys
	cache    *EntryCache
	query    *QuerySpec
	annotate bool
	log      logrus.FieldLogger
}

// NewWorksheet creates a session for keys on feed
func NewWorksheet(feed Feed, keys WorksheetKeys, config *Config, opts ...WorksheetOption) *Worksheet {
	w := &Worksheet{
		feed:     feed,
		keys:     keys,
		cache:    NewEntryCache(CacheState{}),
		annotate: config == nil || !config.OmitRowID,
		log: config.logger().WithFields(logrus.Fields{
			"spreadsheet": keys.SpreadsheetKey,
			"worksheet":   keys.WorksheetKey,
		}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Keys returns the worksheet address
func (w *Worksheet) Keys() WorksheetKeys {
	return w.keys
}

// Query returns the query of the last Rows call, nil for none
func (w *Worksheet) Query() *QuerySpec {
	return copyQuery(w.query)
}

// State returns a snapshot of the entry cache
func (w *Worksheet) State() CacheState {
	return w.cache.State()
}

// FlushCache forces the next read to go to the feed
func (w *Worksheet) FlushCache() {
	w.log.Debug("cache flushed")
	w.cache.Invalidate()
}

// Rows returns the rows matching opts. The feed is only consulted when the
// query differs from the cached one or the cache was invalidated.
func (w *Worksheet) Rows(ctx context.Context, opts RowsOptions) ([]Row, error) {
	w.query = BuildQuery(opts.Filter, opts.OrderBy, opts.Direction)

	entries, err := w.entries(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(entries))
	for _, entry := range entries {
		row := w.decode(entry)
		if opts.Predicate != nil && !opts.Predicate(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GetRow returns the row with id, from the cache when possible
func (w *Worksheet) GetRow(ctx context.Context, id string) (Row, error) {
	entry, err := w.entryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.decode(entry), nil
}

// UpdateRow updates the row identified by row[IDField]. Only the supplied
// fields change; the others keep their current value.
func (w *Worksheet) UpdateRow(ctx context.Context, row Row) (Row, error) {
	id, ok := row.ID()
	if !ok {
		return nil, fmt.Errorf("failed to update row: %w; update by index instead", ErrMissingIdentifier)
	}

	entry, err := w.entryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := w.update(ctx, entry, row)
	if err != nil {
		return nil, err
	}

	w.cache.ReplaceByID(updated)
	return w.decode(updated), nil
}

// UpdateRowByIndex updates the row at index within the current query's result
// set. The index is relative to that result set, not to the sheet.
func (w *Worksheet) UpdateRowByIndex(ctx context.Context, index int, row Row) (Row, error) {
	entry, err := w.entryAt(ctx, index)
	if err != nil {
		return nil, err
	}

	updated, err := w.update(ctx, entry, row)
	if err != nil {
		return nil, err
	}

	w.cache.ReplaceAt(index, updated)
	return w.decode(updated), nil
}

// InsertRow appends a row and returns it with its new identifier
func (w *Worksheet) InsertRow(ctx context.Context, row Row) (Row, error) {
	entry, err := w.feed.InsertRow(ctx, w.keys, row.Fields())
	if err != nil {
		return nil, w.remoteErr("insert row", err)
	}
	if !validEntry(entry) {
		return nil, fmt.Errorf("failed to insert row: %w", ErrInsertRejected)
	}

	w.cache.Append(entry)
	w.log.WithField("id", entry.ID).Debug("row inserted")
	return w.decode(entry), nil
}

// DeleteRow deletes the row identified by row[IDField]
func (w *Worksheet) DeleteRow(ctx context.Context, row Row) error {
	id, ok := row.ID()
	if !ok {
		return fmt.Errorf("failed to delete row: %w; delete by index instead", ErrMissingIdentifier)
	}

	entry, err := w.entryByID(ctx, id)
	if err != nil {
		return err
	}

	if err := w.feed.DeleteRow(ctx, w.keys, entry); err != nil {
		return w.remoteErr("delete row", err)
	}

	w.cache.RemoveByID(entry.ID)
	w.log.WithField("id", entry.ID).Debug("row deleted")
	return nil
}

// DeleteRowByIndex deletes the row at index within the current query's result set
func (w *Worksheet) DeleteRowByIndex(ctx context.Context, index int) error {
	entry, err := w.entryAt(ctx, index)
	if err != nil {
		return err
	}

	if err := w.feed.DeleteRow(ctx, w.keys, entry); err != nil {
		return w.remoteErr("delete row", err)
	}

	w.cache.RemoveAt(index)
	w.log.WithField("id", entry.ID).Debug("row deleted")
	return nil
}

// DeleteAllRows deletes every row of the current query's result set, one call
// per row. It stops at the first failure; rows already deleted stay deleted.
// The cache is invalidated in every case.
func (w *Worksheet) DeleteAllRows(ctx context.Context) error {
	defer w.cache.Invalidate()

	entries, err := w.entries(ctx)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		if err := w.feed.DeleteRow(ctx, w.keys, entry); err != nil {
			return w.remoteErr(fmt.Sprintf("delete row %d of %d", i+1, len(entries)), err)
		}
	}

	w.log.WithField("entries", len(entries)).Debug("all rows deleted")
	return nil
}

// entries reads the current query's entries through the cache
func (w *Worksheet) entries(ctx context.Context) ([]*RowEntry, error) {
	if w.cache.Valid(w.query) {
		w.log.WithField("entries", w.cache.Len()).Debug("cache hit")
	} else {
		w.log.WithField("query", w.query.String()).Debug("cache miss")
	}

	return w.cache.Get(ctx, w.query, func(ctx context.Context, query *QuerySpec) ([]*RowEntry, error) {
		entries, err := w.feed.FetchRows(ctx, w.keys, query)
		if err != nil {
			return nil, w.remoteErr("fetch rows", err)
		}
		return entries, nil
	})
}

func (w *Worksheet) entryAt(ctx context.Context, index int) (*RowEntry, error) {
	entries, err := w.entries(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(entries) {
		return nil, fmt.Errorf("index %d not in [0, %d): %w", index, len(entries), ErrIndexOutOfRange)
	}
	return entries[index], nil
}

// entryByID scans the cache first, then asks the feed for the single row
func (w *Worksheet) entryByID(ctx context.Context, id string) (*RowEntry, error) {
	if i := w.cache.IndexOf(id); i >= 0 {
		return w.cache.At(i), nil
	}

	entry, err := w.feed.FetchRowByID(ctx, w.keys, id)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return nil, fmt.Errorf("row ID %q: %w", id, ErrRowNotFound)
		}
		return nil, w.remoteErr("fetch row", err)
	}
	if !validEntry(entry) {
		return nil, fmt.Errorf("row ID %q: %w", id, ErrRowNotFound)
	}
	return entry, nil
}

func (w *Worksheet) update(ctx context.Context, entry *RowEntry, patch Row) (*RowEntry, error) {
	merged := Merge(DecodeEntry(entry, false), patch)

	updated, err := w.feed.UpdateRow(ctx, w.keys, entry, merged.Fields())
	if err != nil {
		return nil, w.remoteErr("update row", err)
	}
	if !validEntry(updated) {
		return nil, fmt.Errorf("failed to update row %q: %w", entry.ID, ErrUpdateRejected)
	}

	w.log.WithField("id", updated.ID).Debug("row updated")
	return updated, nil
}

func (w *Worksheet) decode(entry *RowEntry) Row {
	return DecodeEntry(entry, w.annotate)
}

func (w *Worksheet) remoteErr(op string, err error) error {
	if errors.Is(err, ErrRemoteUnavailable) {
		return err
	}
	return fmt.Errorf("%w: failed to %s: %w", ErrRemoteUnavailable, op, err)
}
