package sheetrows

import (
	"strconv"
	"strings"
	"time"
)

// IDField is the reserved key carrying a row's remote identifier in a Row
const IDField = "__rowid__"

// Row maps column names to cell text. It may carry IDField.
type Row map[string]string

// ID returns the row identifier and whether it is present
func (r Row) ID() (string, bool) {
	id, ok := r[IDField]
	return id, ok
}

// Fields returns a copy of the row without IDField, suitable for a feed
func (r Row) Fields() map[string]string {
	fields := make(map[string]string, len(r))
	for k, v := range r {
		if k == IDField {
			continue
		}
		fields[k] = v
	}
	return fields
}

// Clone returns a shallow copy
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// GetAsString returns the value as string or defaultValue if not found
func (r Row) GetAsString(col string, defaultValue string) string {
	v, ok := r[col]
	if !ok {
		return defaultValue
	}
	return v
}

// GetAsInt64 returns the value as int64 or defaultValue if not found or not an integer
func (r Row) GetAsInt64(col string, defaultValue int64) int64 {
	v, ok := r[col]
	if !ok {
		return defaultValue
	}
	if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
		return i
	}
	// Sheets often render integers as "30.0"
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f == float64(int64(f)) {
		return int64(f)
	}
	return defaultValue
}

// GetAsFloat64 returns the value as float64 or defaultValue if not found or not a number
func (r Row) GetAsFloat64(col string, defaultValue float64) float64 {
	v, ok := r[col]
	if !ok {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return f
	}
	return defaultValue
}

// GetAsStrings returns a comma-separated value as []string or defaultValue if not found
func (r Row) GetAsStrings(col string, defaultValue []string) []string {
	v, ok := r[col]
	if !ok {
		return defaultValue
	}
	if v == "" {
		return []string{}
	}
	return strings.Split(v, ",")
}

// GetAsBool returns the value as bool or defaultValue if not found or not boolean-like
func (r Row) GetAsBool(col string, defaultValue bool) bool {
	v, ok := r[col]
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}

// GetAsTime returns the value as time.Time or defaultValue if not found or unparsable
func (r Row) GetAsTime(col string, defaultValue time.Time) time.Time {
	v, ok := r[col]
	if !ok {
		return defaultValue
	}

	// Try various formats
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"1/2/2006 15:04:05",
		"1/2/2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, v); err == nil {
			return t
		}
	}
	return defaultValue
}

// SetString sets a string value
func (r Row) SetString(col string, value string) {
	r[col] = value
}

// SetInt64 sets an int64 value
func (r Row) SetInt64(col string, value int64) {
	r[col] = strconv.FormatInt(value, 10)
}

// SetFloat64 sets a float64 value
func (r Row) SetFloat64(col string, value float64) {
	r[col] = strconv.FormatFloat(value, 'g', -1, 64)
}

// SetStrings sets a []string value (stored as comma-separated string)
func (r Row) SetStrings(col string, value []string) {
	r[col] = strings.Join(value, ",")
}

// SetBool sets a bool value
func (r Row) SetBool(col string, value bool) {
	r[col] = strconv.FormatBool(value)
}

// SetTime sets a time.Time value (stored as RFC 3339 string)
func (r Row) SetTime(col string, value time.Time) {
	r[col] = value.Format(time.RFC3339)
}
