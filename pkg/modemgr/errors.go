package modemgr

import "errors"

// Mode Manager error kinds, checked with errors.Is by callers.
var (
	// ErrInvalidTransition means the requested transition isn't legal from
	// the current mode (spec.md §4.5's transition table).
	ErrInvalidTransition = errors.New("modemgr: invalid mode transition")

	// ErrNotAdmin means the caller failed admin verification: process-level
	// privileged identity AND username in the allowed set.
	ErrNotAdmin = errors.New("modemgr: caller is not a verified admin")

	// ErrBadTimeout means the requested Update-mode timeout falls outside
	// [60, 3600] seconds.
	ErrBadTimeout = errors.New("modemgr: timeout out of range [60, 3600]")

	// ErrEmergencyActive means the system is in Emergency mode and the
	// requested operation requires leaving it first.
	ErrEmergencyActive = errors.New("modemgr: system is in emergency mode")
)
