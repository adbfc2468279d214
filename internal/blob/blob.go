// Package blob stores the original audio recordings of ingested interviews.
package blob

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/roasbeef/midnight/internal/interview"
)

const (
	// BackendFS keeps blobs as files in a local directory.
	BackendFS = "fs"

	// BackendMinio keeps blobs in an S3 compatible bucket.
	BackendMinio = "minio"

	// DefaultDir is where the fs backend keeps recordings.
	DefaultDir = "data/audio"

	// defaultExt is used when an upload has no usable extension.
	defaultExt = ".mp3"
)

// Store holds audio blobs by key.
type Store interface {
	// Put stores data under key, replacing any existing blob.
	Put(ctx context.Context, key string, data []byte,
		contentType string) error

	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// unsafeChars matches everything not allowed in a key.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitize replaces every character outside [a-zA-Z0-9_-] with '_'.
func sanitize(s string) string {
	return unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
}

// Key derives the blob key for an interview's recording. The id keeps keys
// unique across suspects that share a name.
func Key(id, subjectName, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || sanitize(ext[1:]) != ext[1:] {
		ext = defaultExt
	}

	return fmt.Sprintf("%s_%s%s", sanitize(id), sanitize(subjectName), ext)
}

// validKey rejects keys that could escape the blob namespace.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) {

		return fmt.Errorf("%w: invalid blob key %q",
			interview.ErrInvalidInput, key)
	}

	return nil
}

// Config selects and configures a blob backend.
type Config struct {
	// Backend is BackendFS or BackendMinio.
	Backend string

	// Dir is the fs backend directory.
	Dir string

	Minio MinioConfig
}

// DefaultConfig returns a Config using the local fs backend.
func DefaultConfig() Config {
	return Config{
		Backend: BackendFS,
		Dir:     DefaultDir,
	}
}

// Open creates the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (Store, error) {
	if log == nil {
		log = slog.Default()
	}

	switch strings.ToLower(cfg.Backend) {
	case BackendFS, "":
		return NewFSStore(cfg.Dir, log)

	case BackendMinio:
		return NewMinioStore(ctx, cfg.Minio, log)

	default:
		return nil, fmt.Errorf("%w: unknown blob backend %q",
			interview.ErrInvalidInput, cfg.Backend)
	}
}
