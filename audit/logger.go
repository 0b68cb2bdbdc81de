package audit

import (
	"context"
	"log/slog"
)

// Logger is a Sink that forwards events to a slog.Logger.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a Logger sink. A nil logger discards all events.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Logger{logger: logger}
}

var _ Sink = &Logger{}

// Emit logs the event at the level matching its severity.
func (x *Logger) Emit(ctx context.Context, event *Event) error {
	level := slog.LevelInfo
	switch event.Severity {
	case SeverityDebug:
		level = slog.LevelDebug
	case SeverityWarn:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}

	x.logger.Log(ctx, level, event.Message,
		"audit.event_id", event.ID,
		"audit.correlation_id", event.CorrelationID,
		"audit.metadata", event.Metadata,
	)
	return nil
}
