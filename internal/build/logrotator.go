package build

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
)

const (
	// DefaultMaxLogFiles is how many rotated log files are kept.
	DefaultMaxLogFiles = 10

	// DefaultMaxLogFileSize is the log file size in MB that triggers a
	// rotation.
	DefaultMaxLogFileSize = 20

	// DefaultLogFilename is the daemon's log file name.
	DefaultLogFilename = "midnightd.log"
)

// RotatingLogWriter feeds a jrick/logrotate rotator through a pipe. Rotated
// files are gzip compressed.
type RotatingLogWriter struct {
	pipe    *io.PipeWriter
	rotator *rotator.Rotator
	done    chan struct{}
}

// NewRotatingLogWriter creates the log directory and starts a rotator
// writing to dir/filename.
func NewRotatingLogWriter(dir, filename string, maxFiles,
	maxSizeMB int) (*RotatingLogWriter, error) {

	if filename == "" {
		filename = DefaultLogFilename
	}
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxLogFileSize
	}

	logFile := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// The rotator takes its threshold in kilobytes.
	rot, err := rotator.New(
		logFile, int64(maxSizeMB*1024), false, maxFiles,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create file rotator: %w", err)
	}
	rot.SetCompressor(gzip.NewWriter(nil), ".gz")

	pr, pw := io.Pipe()
	w := &RotatingLogWriter{
		pipe:    pw,
		rotator: rot,
		done:    make(chan struct{}),
	}

	// The rotator is the log destination, so its own failures can only
	// go to stderr.
	go func() {
		defer close(w.done)

		if err := rot.Run(pr); err != nil {
			_, _ = fmt.Fprintf(
				os.Stderr, "log rotator stopped: %v\n", err,
			)
		}
	}()

	return w, nil
}

// Write hands b to the rotator.
func (r *RotatingLogWriter) Write(b []byte) (int, error) {
	return r.pipe.Write(b)
}

// Close flushes pending writes and waits for the rotator to exit.
func (r *RotatingLogWriter) Close() error {
	err := r.pipe.Close()
	<-r.done

	return err
}
