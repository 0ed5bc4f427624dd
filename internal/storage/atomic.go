package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AtomicWriter writes to a temporary sibling of the target path, and
// only replaces the target once Commit is called. Readers of the target
// path therefore never observe a partially written file.
type AtomicWriter struct {
	path    string
	tmpPath string
	file    *os.File
	done    bool
}

// NewAtomicWriter creates a writer for atomic file updates. The parent
// directory of path is created if missing.
func NewAtomicWriter(path string) (*AtomicWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*"+TempSuffix)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	return &AtomicWriter{
		path:    path,
		tmpPath: tmpFile.Name(),
		file:    tmpFile,
	}, nil
}

// TempSuffix is the extension used by in-flight atomic writes.
const TempSuffix = ".tmp"

// IsTemp reports whether the path provided looks like an in-flight
// AtomicWriter temporary file.
func IsTemp(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && strings.HasSuffix(base, TempSuffix)
}

// Path returns the final path this writer commits to.
func (w *AtomicWriter) Path() string { return w.path }

// Write writes data to the temporary file.
func (w *AtomicWriter) Write(p []byte) (n int, err error) {
	return w.file.Write(p)
}

// Commit syncs the temporary file and renames it over the target.
func (w *AtomicWriter) Commit() error {
	if w.done {
		return fmt.Errorf("atomic write to %s already finished", w.path)
	}
	w.done = true

	if err := w.file.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("sync: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// Abort discards the temporary file without touching the target. It is
// safe to call Abort after Commit (it is a no-op), which allows callers
// to 'defer w.Abort()'.
func (w *AtomicWriter) Abort() {
	if w.done {
		return
	}

	w.done = true
	w.discard()
}

func (w *AtomicWriter) discard() {
	w.file.Close()
	os.Remove(w.tmpPath)
}
