package sheetrows

import "context"

// FetchFunc loads the row entries for a query from the feed
type FetchFunc func(ctx context.Context, query *QuerySpec) ([]*RowEntry, error)

// CacheState is the value form of an EntryCache. Entries are only meaningful
// when Loaded is set, and then they were fetched under exactly Bound.
type CacheState struct {
	Entries []*RowEntry
	Bound   *QuerySpec
	Loaded  bool
}

// EntryCache remembers the row entries last fetched and the query they were
// fetched under. It is not safe for concurrent use.
//
// Mutation points: Get (fill on miss), Invalidate, and the in-place patches
// ReplaceAt, ReplaceByID, Append, RemoveAt, RemoveByID. Patches are no-ops
// while the cache is unpopulated.
type EntryCache struct {
	entries []*RowEntry
	bound   *QuerySpec
	loaded  bool
}

// NewEntryCache creates a cache holding state. The zero CacheState gives an empty cache.
func NewEntryCache(state CacheState) *EntryCache {
	c := &EntryCache{}
	if state.Loaded {
		c.entries = copyEntries(state.Entries)
		c.bound = copyQuery(state.Bound)
		c.loaded = true
	}
	return c
}

// State returns a snapshot of the cache
func (c *EntryCache) State() CacheState {
	if !c.loaded {
		return CacheState{}
	}
	return CacheState{
		Entries: copyEntries(c.entries),
		Bound:   copyQuery(c.bound),
		Loaded:  true,
	}
}

// Loaded reports whether the cache currently holds a fetched sequence
func (c *EntryCache) Loaded() bool {
	return c.loaded
}

// Valid reports whether a Get for query would be served without fetching
func (c *EntryCache) Valid(query *QuerySpec) bool {
	return c.loaded && c.bound.Equal(query)
}

// Get returns the entries for query, calling fetch only when the cache is
// empty or bound to a different query.
func (c *EntryCache) Get(ctx context.Context, query *QuerySpec, fetch FetchFunc) ([]*RowEntry, error) {
	if c.Valid(query) {
		return copyEntries(c.entries), nil
	}

	c.Invalidate()
	entries, err := fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	c.entries = copyEntries(entries)
	c.bound = copyQuery(query)
	c.loaded = true
	return copyEntries(c.entries), nil
}

// Invalidate drops the entries and the bound query
func (c *EntryCache) Invalidate() {
	c.entries = nil
	c.bound = nil
	c.loaded = false
}

// Len returns the number of cached entries
func (c *EntryCache) Len() int {
	return len(c.entries)
}

// At returns the entry at index, or nil when out of range or unpopulated
func (c *EntryCache) At(index int) *RowEntry {
	if !c.loaded || index < 0 || index >= len(c.entries) {
		return nil
	}
	return c.entries[index]
}

// IndexOf returns the position of the entry with id, or -1
func (c *EntryCache) IndexOf(id string) int {
	if !c.loaded {
		return -1
	}
	for i, e := range c.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// ReplaceAt swaps the entry at index
func (c *EntryCache) ReplaceAt(index int, entry *RowEntry) {
	if !c.loaded || index < 0 || index >= len(c.entries) {
		return
	}
	c.entries[index] = entry
}

// ReplaceByID swaps every entry sharing entry's ID
func (c *EntryCache) ReplaceByID(entry *RowEntry) {
	if !c.loaded {
		return
	}
	for i, e := range c.entries {
		if e.ID == entry.ID {
			c.entries[i] = entry
		}
	}
}

// Append adds entry to the end of the cached sequence
func (c *EntryCache) Append(entry *RowEntry) {
	if !c.loaded {
		return
	}
	c.entries = append(c.entries, entry)
}

// RemoveAt deletes the entry at index
func (c *EntryCache) RemoveAt(index int) {
	if !c.loaded || index < 0 || index >= len(c.entries) {
		return
	}
	c.entries = append(c.entries[:index:index], c.entries[index+1:]...)
}

// RemoveByID deletes every entry with id
func (c *EntryCache) RemoveByID(id string) {
	if !c.loaded {
		return
	}
	kept := make([]*RowEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}

func copyEntries(entries []*RowEntry) []*RowEntry {
	out := make([]*RowEntry, len(entries))
	copy(out, entries)
	return out
}

func copyQuery(q *QuerySpec) *QuerySpec {
	if q == nil {
		return nil
	}
	cp := *q
	return &cp
}
