// Package watcher produces deduplicated WatchEvents for a dynamic set of
// protected paths, fed by a kernel-notification source and a periodic-scan
// fallback that funnel into one serialized queue consumed by a single
// worker, per spec.md §4.3.
package watcher

import "time"

// Type is the normalized event kind a caller-supplied handler receives.
type Type string

const (
	Modify Type = "Modify"
	Delete Type = "Delete"
	Create Type = "Create"
	Move   Type = "Move"
)

// WatchEvent is a transient, normalized filesystem change notification.
type WatchEvent struct {
	Type      Type
	FilePath  string
	Timestamp time.Time
}

// Handler processes one WatchEvent. Handlers MUST NOT block indefinitely —
// the watcher invokes them serially on its single worker goroutine.
type Handler func(WatchEvent)
