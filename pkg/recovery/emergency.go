package recovery

import "github.com/filewarden/filewarden/pkg/events"

// EmergencyBlockAll iterates paths and best-effort permanently blocks each,
// returning the count that succeeded and the count that failed. A single
// failure never aborts the sweep — every path is attempted.
func (e *Engine) EmergencyBlockAll(paths []string) (blocked, failed int) {
	for _, path := range paths {
		if err := e.BlockFile(path, true); err != nil {
			e.logWarn("emergency block failed for path", path, err)
			failed++
			continue
		}
		blocked++
	}

	e.emit(events.TypeEmergencyModeActivated, events.SeverityEmergency, "", map[string]any{
		"files_affected": len(paths),
		"blocked":        blocked,
		"failed":         failed,
	})
	return blocked, failed
}
