package baseline

import "errors"

// Baseline Store error kinds, checked with errors.Is by callers.
var (
	// ErrNotFound means the path has no baseline record.
	ErrNotFound = errors.New("baseline: record not found")

	// ErrStorageCorrupt means verify_self_integrity found a structural
	// inconsistency; the daemon must refuse to run until an admin intervenes.
	ErrStorageCorrupt = errors.New("baseline: store integrity check failed")

	// ErrPermission means the store directory or database file has the
	// wrong ownership or mode.
	ErrPermission = errors.New("baseline: invalid storage permissions")

	// ErrInvariant means a record's hash-vector length doesn't match its
	// blocks_count; the record is left untouched and the caller should log
	// a critical event rather than act on it (spec.md §7 "bug" disposition).
	ErrInvariant = errors.New("baseline: record invariant violated")
)
