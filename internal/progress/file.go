package progress

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON file per key inside a directory. Writes go to a
// temporary file that is renamed into place.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("unable to create progress directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get implements Store.
func (f *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("unable to read %s: %w", key, err)
	}
	return b, true, nil
}

// Set implements Store.
func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(value)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("unable to write %s: %w", key, err)
	}

	if err := os.Rename(tmpPath, f.path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("unable to replace %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (f *FileStore) Close() error { return nil }
