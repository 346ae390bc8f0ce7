package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Writer replaces the snapshot file atomically: temp file in the same directory,
// fsync, then rename over the target. A failure at any step leaves the previous
// file untouched.
type Writer struct {
	Path   string
	rename func(oldpath, newpath string) error
}

// NewWriter returns a Writer for path.
func NewWriter(path string) *Writer {
	return &Writer{Path: path, rename: os.Rename}
}

// Write persists s unless the current file already holds the same content.
// written is false when the file was left as is.
func (w *Writer) Write(s *Snapshot) (written bool, err error) {
	prev, err := Load(w.Path)
	if err != nil {
		// A corrupt previous snapshot is simply replaced.
		prev = nil
	}
	if prev != nil && prev.SameContent(s) {
		return false, nil
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.Path)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("snapshot temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return false, fmt.Errorf("snapshot write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return false, fmt.Errorf("snapshot sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return false, fmt.Errorf("snapshot close: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return false, fmt.Errorf("snapshot chmod: %w", err)
	}
	if err = w.rename(tmpName, w.Path); err != nil {
		return false, fmt.Errorf("snapshot rename: %w", err)
	}
	return true, nil
}
