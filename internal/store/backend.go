package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roasbeef/midnight/internal/interview"
)

// Backend names a Store implementation.
type Backend string

const (
	// BackendJSON keeps everything in one atomically replaced JSON
	// document.
	BackendJSON Backend = "json"

	// BackendSQLite keeps records in a SQLite database.
	BackendSQLite Backend = "sqlite"

	// BackendMemory keeps records in process memory only.
	BackendMemory Backend = "memory"
)

// Open creates the store for the named backend. path is the JSON document or
// SQLite database location and is ignored by the memory backend.
func Open(backend Backend, path string, log *slog.Logger,
	opts ...Option) (Store, error) {

	switch Backend(strings.ToLower(string(backend))) {
	case BackendJSON, "":
		return NewJSONStore(path, log, opts...)

	case BackendSQLite:
		return NewSQLiteStore(path, log, opts...)

	case BackendMemory:
		return NewMockStore(opts...), nil

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q",
			interview.ErrInvalidInput, backend)
	}
}
