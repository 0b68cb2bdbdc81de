package audit

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Multi fans an event out to several sinks. Every sink receives the event
// even if an earlier one fails; the first error is returned.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a Multi from the given sinks. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &Multi{sinks: filtered}
}

var _ Sink = &Multi{}

// Emit delivers the event to all sinks.
func (x *Multi) Emit(ctx context.Context, event *Event) error {
	var firstErr error
	for _, s := range x.sinks {
		if err := s.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = goerr.Wrap(err, "audit sink emit failed")
		}
	}
	return firstErr
}
