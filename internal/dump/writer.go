package dump

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrClosed is returned by Append once the handle has been released.
// Late best-effort records (the enrichment race) hit this and are dropped
// by the caller.
var ErrClosed = errors.New("dump: writer closed")

// Writer is the append handle for one session's dump. Append order is
// preserved; the handle is safe for concurrent use because the location
// enrichment may race the close.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	bw     *bufio.Writer
	closed bool
	path   string
}

// NewWriter creates the dump file for the given session identifier. The
// identifier is the file key; opening an existing identifier is an error.
func NewWriter(dir, id string) (*Writer, error) {
	path := Path(dir, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("dump: %w", err)
	}
	return &Writer{f: f, bw: bufio.NewWriter(f), path: path}, nil
}

// Append serializes v to a single JSON line and writes it without
// reordering relative to prior appends.
func (w *Writer) Append(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.bw.Write(b); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

// Close flushes and releases the handle, making the file available for
// read-only consumption. Idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	ferr := w.bw.Flush()
	cerr := w.f.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// Discard releases the handle and deletes the file without a close
// record. Used when a session received no events.
func (w *Writer) Discard() error {
	if err := w.Close(); err != nil {
		return err
	}
	return os.Remove(w.path)
}

// Path returns the dump file path for a session identifier.
func Path(dir, id string) string {
	return filepath.Join(dir, id+".jsonl")
}

// Read returns the raw bytes of a completed dump.
func Read(dir, id string) ([]byte, error) {
	return os.ReadFile(Path(dir, id))
}

// Remove deletes a completed dump.
func Remove(dir, id string) error {
	return os.Remove(Path(dir, id))
}

// Reset recreates dir empty, purging any dumps left over from a previous
// run. Crash recovery favors discarding partial state over resuming it.
func Reset(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	return os.MkdirAll(dir, 0o755)
}
