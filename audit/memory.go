package audit

import (
	"context"
	"sync"
)

// Memory is an in-memory Sink, mainly for tests and inspection.
type Memory struct {
	mu     sync.Mutex
	events []*Event
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

var _ Sink = &Memory{}

// Emit appends the event.
func (x *Memory) Emit(_ context.Context, event *Event) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, event)
	return nil
}

// Events returns a copy of all recorded events.
func (x *Memory) Events() []*Event {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]*Event(nil), x.events...)
}
