package ledger

import "errors"

var (
	// ErrNotFound is returned when an id does not resolve to a record
	ErrNotFound = errors.New("ledger: record not found")
	// ErrVersionConflict is returned by Commit when a record changed after it was read
	ErrVersionConflict = errors.New("ledger: version conflict")
)
