// Package audit provides best-effort structured-event sinks for the planning
// engine. Sinks are fire-and-forget collaborators: the engine swallows every
// sink error, so an implementation may fail freely without ever becoming a
// source of planning failure.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity classifies an audit event.
type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is a single structured audit record.
type Event struct {
	ID            string         `json:"id"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Severity      Severity       `json:"severity"`
	Message       string         `json:"message"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Time          time.Time      `json:"time"`
}

// NewEvent creates an Event with a fresh ID and the current time.
func NewEvent(correlationID string, severity Severity, message string, metadata map[string]any) *Event {
	return &Event{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Severity:      severity,
		Message:       message,
		Metadata:      metadata,
		Time:          time.Now(),
	}
}

// Sink receives audit events. Emit may be called concurrently; returned
// errors are advisory only.
type Sink interface {
	Emit(ctx context.Context, event *Event) error
}
