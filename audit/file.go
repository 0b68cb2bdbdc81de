package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// File is a Sink that appends events as JSON lines to a file.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a File sink writing to the given path. The parent directory
// is created on first emit.
func NewFile(path string) *File {
	return &File{path: path}
}

var _ Sink = &File{}

// Emit appends one JSON line.
func (x *File) Emit(_ context.Context, event *Event) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if dir := filepath.Dir(x.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return goerr.Wrap(err, "failed to create audit directory", goerr.V("dir", dir))
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal audit event")
	}

	f, err := os.OpenFile(x.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return goerr.Wrap(err, "failed to open audit file", goerr.V("path", x.path))
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return goerr.Wrap(err, "failed to write audit event", goerr.V("path", x.path))
	}
	return nil
}
