package recovery

import "errors"

// Recovery Engine error kinds, checked with errors.Is by callers.
var (
	// ErrSourceNotFound means the file to back up or quarantine doesn't exist.
	ErrSourceNotFound = errors.New("recovery: source file not found")

	// ErrNotRegularFile means the path exists but isn't a regular file.
	ErrNotRegularFile = errors.New("recovery: path is not a regular file")

	// ErrBackupNotFound means the referenced backup path doesn't exist.
	ErrBackupNotFound = errors.New("recovery: backup not found")

	// ErrQuarantineNotFound means the referenced quarantine path doesn't exist.
	ErrQuarantineNotFound = errors.New("recovery: quarantine file not found")

	// ErrProcessNotFound means the pid no longer has a live process.
	ErrProcessNotFound = errors.New("recovery: process not found")
)
