package events

import (
	"log/slog"

	"github.com/filewarden/filewarden/internal/logger"
)

// LoggerEmitter publishes events through internal/logger at a level derived
// from Severity, with Path and every Fields entry attached as structured attrs.
type LoggerEmitter struct{}

// NewLoggerEmitter returns an Emitter backed by the package-level structured logger.
func NewLoggerEmitter() LoggerEmitter {
	return LoggerEmitter{}
}

// Emit implements Emitter.
func (LoggerEmitter) Emit(e Event) {
	attrs := make([]any, 0, 2+2*len(e.Fields))
	attrs = append(attrs, logger.EventType(string(e.Type)))
	if e.Path != "" {
		attrs = append(attrs, logger.Path(e.Path))
	}
	for k, v := range e.Fields {
		attrs = append(attrs, slog.Any(k, v))
	}

	msg := string(e.Type)
	switch e.Severity {
	case SeverityCritical, SeverityEmergency:
		logger.Error(msg, attrs...)
	case SeverityWarning:
		logger.Warn(msg, attrs...)
	default:
		logger.Info(msg, attrs...)
	}
}
