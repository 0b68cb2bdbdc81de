package audit_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/stepwise/audit"
)

func TestNewEvent(t *testing.T) {
	event := audit.NewEvent("run-1", audit.SeverityInfo, "hello", map[string]any{"k": "v"})
	gt.Value(t, event.ID).NotEqual("")
	gt.Equal(t, "run-1", event.CorrelationID)
	gt.Equal(t, audit.SeverityInfo, event.Severity)
	gt.Equal(t, "hello", event.Message)
	gt.False(t, event.Time.IsZero())

	other := audit.NewEvent("run-1", audit.SeverityInfo, "hello", nil)
	gt.Value(t, other.ID).NotEqual(event.ID)
}

func TestMemorySink(t *testing.T) {
	sink := audit.NewMemory()
	ctx := context.Background()

	gt.NoError(t, sink.Emit(ctx, audit.NewEvent("a", audit.SeverityDebug, "one", nil)))
	gt.NoError(t, sink.Emit(ctx, audit.NewEvent("b", audit.SeverityError, "two", nil)))

	events := sink.Events()
	gt.Equal(t, 2, len(events))
	gt.Equal(t, "one", events[0].Message)
	gt.Equal(t, "two", events[1].Message)

	// Events returns a copy.
	events[0] = nil
	gt.NotNil(t, sink.Events()[0])
}

type failSink struct{ err error }

func (s *failSink) Emit(ctx context.Context, event *audit.Event) error { return s.err }

func TestMultiSink(t *testing.T) {
	t.Run("fan-out with nil skipped", func(t *testing.T) {
		a := audit.NewMemory()
		b := audit.NewMemory()
		multi := audit.NewMulti(a, nil, b)

		gt.NoError(t, multi.Emit(context.Background(), audit.NewEvent("x", audit.SeverityInfo, "m", nil)))
		gt.Equal(t, 1, len(a.Events()))
		gt.Equal(t, 1, len(b.Events()))
	})

	t.Run("every sink receives despite earlier failure", func(t *testing.T) {
		failing := &failSink{err: errors.New("broken")}
		mem := audit.NewMemory()
		multi := audit.NewMulti(failing, mem)

		err := multi.Emit(context.Background(), audit.NewEvent("x", audit.SeverityInfo, "m", nil))
		gt.Error(t, err)
		gt.Equal(t, 1, len(mem.Events()))
	})
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "audit.jsonl")
	sink := audit.NewFile(path)
	ctx := context.Background()

	gt.NoError(t, sink.Emit(ctx, audit.NewEvent("run-1", audit.SeverityInfo, "first", map[string]any{"n": 1})))
	gt.NoError(t, sink.Emit(ctx, audit.NewEvent("run-1", audit.SeverityWarn, "second", nil)))

	f, err := os.Open(path)
	gt.NoError(t, err)
	defer f.Close()

	var lines []audit.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event audit.Event
		gt.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		lines = append(lines, event)
	}
	gt.NoError(t, scanner.Err())

	gt.Equal(t, 2, len(lines))
	gt.Equal(t, "first", lines[0].Message)
	gt.Equal(t, audit.SeverityWarn, lines[1].Severity)
}

func TestLoggerSink(t *testing.T) {
	// A nil logger must not panic.
	sink := audit.NewLogger(nil)
	gt.NoError(t, sink.Emit(context.Background(), audit.NewEvent("x", audit.SeverityError, "m", nil)))
}
