package integrity

import "errors"

// Error kinds surfaced by the Integrity Engine. The engine never panics on
// unreadable content — callers get one of these instead.
var (
	ErrFileNotFound     = errors.New("integrity: file not found")
	ErrPermissionDenied = errors.New("integrity: permission denied")
	ErrIoError          = errors.New("integrity: io error")
)
