// Package data handles the on-disk artifacts of a collection run: the
// append-only newline-delimited JSON logs and the raw capture directory
// tree.
package data

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Writer appends JSON records, one per line, to a file. The file is
// opened in append mode so repeated sessions extend, never truncate. A
// Writer is safe for use from one goroutine; the session loop is
// single-threaded by contract.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	buf  *bufio.Writer
	path string
}

// NewWriter opens (creating if needed) the JSONL file at path for
// appending.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open log %q", path)
	}
	return &Writer{f: f, buf: bufio.NewWriter(f), path: path}, nil
}

// Path returns the file path the writer appends to.
func (w *Writer) Path() string { return w.path }

// Write marshals v and appends it as one line.
func (w *Writer) Write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return errors.Errorf("log %q already closed", w.path)
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "cannot marshal log record")
	}
	if _, err := w.buf.Write(append(bs, '\n')); err != nil {
		return errors.Wrapf(err, "cannot append to log %q", w.path)
	}
	return nil
}

// Flush pushes buffered records down to the OS and syncs the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.f.Sync()
}

// Close flushes and closes the underlying file. Safe to call more than
// once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.buf.Flush()
	err = multierr.Combine(err, w.f.Close())
	w.f = nil
	return err
}
