// Package atomicfile implements the write-temp-fsync-rename idiom used for
// every piece of durable metadata in the repository: config.json,
// index.json, and snapshot manifests. Combines a temp-write-then-rename
// pattern with an explicit Sync before Close and before the rename, so a
// crash never leaves a torn or unflushed file in place of the original.
package atomicfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile writes data to path atomically: it creates a temp file in the
// same directory, writes and fsyncs it, then renames it over path. On any
// failure the temp file is removed and path is left untouched.
func WriteFile(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp file for %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file into %s: %w", path, err)
	}
	return nil
}

// ErrTooLarge is returned by ReadFileLimit when a file exceeds maxBytes.
type ErrTooLarge struct {
	Path     string
	MaxBytes int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("%s exceeds size cap of %d bytes", e.Path, e.MaxBytes)
}

// ReadFileLimit reads path in full, failing with *ErrTooLarge if it exceeds
// maxBytes. Callers use this to cap how much untrusted on-disk state they
// will pull into memory per artifact (config.json, index.json, a manifest).
func ReadFileLimit(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxBytes {
		return nil, &ErrTooLarge{Path: path, MaxBytes: maxBytes}
	}

	// Read one byte beyond the cap so a file that grows between Stat and
	// Read is still caught.
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, &ErrTooLarge{Path: path, MaxBytes: maxBytes}
	}
	return data, nil
}
