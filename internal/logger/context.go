package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds operation-scoped logging context: which protected path
// and mode-manager state an in-flight integrity check or recovery action is
// operating under, so every log line in that call chain carries it without
// threading the fields through every function signature.
type LogContext struct {
	RunID     string // correlates one watch-event-to-recovery transaction
	Path      string // protected file path under inspection
	Mode      string // mode-manager state at the time the operation started
	StartTime time.Time
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a transaction over the given path.
func NewLogContext(path string) *LogContext {
	return &LogContext{
		Path:      path,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithMode returns a copy with the mode set
func (lc *LogContext) WithMode(mode string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Mode = mode
	}
	return clone
}

// WithRunID returns a copy with the run ID set
func (lc *LogContext) WithRunID(runID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RunID = runID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
