package sheetrows

// DecodeEntry flattens entry into a Row. When annotate is set the entry ID is
// stored under IDField. A column literally named IDField is undefined behavior:
// its value is overwritten by the identifier.
func DecodeEntry(entry *RowEntry, annotate bool) Row {
	row := make(Row, len(entry.Fields)+1)
	for k, v := range entry.Fields {
		row[k] = v
	}
	if annotate {
		row[IDField] = entry.ID
	}
	return row
}

// Merge overlays patch on snapshot. Keys absent from patch keep their snapshot
// value. Neither argument is modified.
func Merge(snapshot, patch Row) Row {
	merged := make(Row, len(snapshot)+len(patch))
	for k, v := range snapshot {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// validEntry reports whether a feed response is a usable row entry
func validEntry(entry *RowEntry) bool {
	return entry != nil && entry.ID != ""
}
