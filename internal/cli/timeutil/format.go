// Package timeutil formats durations and timestamps for CLI display.
package timeutil

import (
	"fmt"
	"time"
)

// LocalTimeFormat renders a timestamp the way `filewardend info` and
// `filewardend files` print it.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatSeconds renders a count of seconds (e.g. an Update-mode countdown)
// as "1h 2m 3s", dropping leading zero units.
func FormatSeconds(total int) string {
	if total <= 0 {
		return "0s"
	}
	d := time.Duration(total) * time.Second
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatTime parses an RFC3339 timestamp and renders it in local time.
// Returns the original string if it doesn't parse.
func FormatTime(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Local().Format(LocalTimeFormat)
}
