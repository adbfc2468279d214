package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roasbeef/midnight/internal/interview"
)

// FSStore keeps blobs as files in a single directory.
type FSStore struct {
	dir string
	log *slog.Logger
}

// A compile-time check that FSStore satisfies Store.
var _ Store = (*FSStore)(nil)

// NewFSStore creates the directory if needed.
func NewFSStore(dir string, log *slog.Logger) (*FSStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create blob dir: %v",
			interview.ErrStorage, err)
	}

	return &FSStore{
		dir: dir,
		log: log.With("component", "blob", "backend", BackendFS),
	}, nil
}

// Dir returns the backing directory.
func (s *FSStore) Dir() string {
	return s.dir
}

// Put writes the blob through a temp file so a reader never sees a partial
// recording.
func (s *FSStore) Put(_ context.Context, key string, data []byte,
	_ string) error {

	if err := validKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp blob: %v",
			interview.ErrStorage, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, filepath.Join(s.dir, key))
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: write blob %s: %v",
			interview.ErrStorage, key, err)
	}

	return nil
}

// Get reads the blob stored under key.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, key))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: blob %s", interview.ErrNotFound, key)

	case err != nil:
		return nil, fmt.Errorf("%w: read blob %s: %v",
			interview.ErrStorage, key, err)
	}

	return data, nil
}

// Delete removes the blob file.
func (s *FSStore) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: delete blob %s: %v",
			interview.ErrStorage, key, err)
	}

	return nil
}
