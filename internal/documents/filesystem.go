package documents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"flightres/internal/fr"
)

// FileSystemDocuments stores each document as a JSON file:
//
//	<dir>/
//	  flights.json
//	  reservations.json
//
// Writes go to a temp file in the same directory and are renamed into place,
// so readers see either the old or the new document.
type FileSystemDocuments struct {
	dir string

	// mu serializes writers targeting the same directory.
	mu sync.Mutex
}

// NewFileSystemDocuments creates the directory if needed.
func NewFileSystemDocuments(dir string) (*FileSystemDocuments, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileSystemDocuments{dir: dir}, nil
}

func (d *FileSystemDocuments) path(name string) string {
	return filepath.Join(d.dir, name+".json")
}

func (d *FileSystemDocuments) ReadDocument(name string) ([]byte, bool, error) {
	data, err := os.ReadFile(d.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", d.path(name), err)
	}
	return data, true, nil
}

func (d *FileSystemDocuments) WriteDocument(name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return writeFile(d.path(name), bytes.NewReader(data), int64(len(data)))
}

func (d *FileSystemDocuments) DeleteDocument(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", d.path(name), err)
	}
	return nil
}

func (d *FileSystemDocuments) Location(name string) string {
	return d.path(name)
}

func (d *FileSystemDocuments) Close() error { return nil }

// writeFile writes data from r to destPath using atomic write (temp file + rename).
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ fr.DocumentStore = (*FileSystemDocuments)(nil)
