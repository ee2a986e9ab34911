package sheetrows

import "errors"

var (
	// ErrMissingIdentifier is returned when a mutation by identifier is requested
	// for a row that does not carry IDField. Use the by-index variant instead.
	ErrMissingIdentifier = errors.New("row does not contain " + IDField + " field")

	// ErrRowNotFound is returned when an identifier matches neither a cached entry
	// nor a row on the remote feed.
	ErrRowNotFound = errors.New("row not found")

	// ErrIndexOutOfRange is returned when a positional address falls outside the
	// current result set.
	ErrIndexOutOfRange = errors.New("row index out of range")

	// ErrUpdateRejected is returned when the feed answers an update with something
	// that is not a row entry.
	ErrUpdateRejected = errors.New("row update rejected")

	// ErrInsertRejected is returned when the feed answers an insert with something
	// that is not a row entry.
	ErrInsertRejected = errors.New("row insert rejected")

	// ErrRemoteUnavailable wraps every transport or auth failure coming from a feed.
	ErrRemoteUnavailable = errors.New("remote feed unavailable")

	ErrWorksheetNotFound = errors.New("worksheet not found")
)
