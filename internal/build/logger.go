// Package build assembles the process logger: a console stream plus an
// optional rotating log file, both rendered by btclog.
package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error, critical or off.
	Level string

	// Dir enables the rotating log file when non-empty.
	Dir string

	Filename    string
	MaxFiles    int
	MaxFileSize int

	// Console is where console logs go. Defaults to stderr so stdout
	// stays free for the MCP stdio transport.
	Console io.Writer
}

// DefaultLogConfig returns the default logger configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Filename:    DefaultLogFilename,
		MaxFiles:    DefaultMaxLogFiles,
		MaxFileSize: DefaultMaxLogFileSize,
	}
}

// ParseLevel maps a level name onto a btclog level.
func ParseLevel(s string) (btclog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return btclog.LevelInfo, nil
	}

	lvl, ok := btclog.LevelFromString(s)
	if !ok {
		return btclog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}

	return lvl, nil
}

// NewLogger builds the process logger. The returned closer flushes the log
// file, and is a no-op when file logging is off.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	handlers := []btclogv2.Handler{btclogv2.NewDefaultHandler(console)}

	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		w, err := NewRotatingLogWriter(
			cfg.Dir, cfg.Filename, cfg.MaxFiles, cfg.MaxFileSize,
		)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, btclogv2.NewDefaultHandler(w))
		closer = w
	}

	set := newHandlerSet(handlers...)
	set.SetLevel(lvl)

	return slog.New(set), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// handlerSet fans every record out to each of its handlers.
type handlerSet struct {
	level btclog.Level
	set   []btclogv2.Handler
}

var _ btclogv2.Handler = (*handlerSet)(nil)

func newHandlerSet(handlers ...btclogv2.Handler) *handlerSet {
	h := &handlerSet{set: handlers}
	h.SetLevel(btclog.LevelInfo)

	return h
}

// Enabled reports whether any handler accepts the level.
func (h *handlerSet) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.set {
		if handler.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle dispatches the record to every handler that accepts it.
func (h *handlerSet) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.set {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}

	return nil
}

func (h *handlerSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(b btclogv2.Handler) btclogv2.Handler {
		return asBtcHandler(b.WithAttrs(attrs), b)
	})
}

func (h *handlerSet) WithGroup(name string) slog.Handler {
	return h.derive(func(b btclogv2.Handler) btclogv2.Handler {
		return asBtcHandler(b.WithGroup(name), b)
	})
}

func (h *handlerSet) SubSystem(tag string) btclogv2.Handler {
	return h.derive(func(b btclogv2.Handler) btclogv2.Handler {
		return b.SubSystem(tag)
	})
}

func (h *handlerSet) WithPrefix(prefix string) btclogv2.Handler {
	return h.derive(func(b btclogv2.Handler) btclogv2.Handler {
		return b.WithPrefix(prefix)
	})
}

func (h *handlerSet) SetLevel(level btclog.Level) {
	for _, handler := range h.set {
		handler.SetLevel(level)
	}
	h.level = level
}

func (h *handlerSet) Level() btclog.Level {
	return h.level
}

// derive builds a new set by transforming every handler.
func (h *handlerSet) derive(
	f func(btclogv2.Handler) btclogv2.Handler) *handlerSet {

	out := &handlerSet{
		level: h.level,
		set:   make([]btclogv2.Handler, len(h.set)),
	}
	for i, handler := range h.set {
		out.set[i] = f(handler)
	}

	return out
}

// asBtcHandler keeps a derived handler in the set. btclog's default handler
// returns itself from WithAttrs and WithGroup, so the assertion holds; the
// fallback keeps the original handler rather than dropping output.
func asBtcHandler(derived slog.Handler,
	orig btclogv2.Handler) btclogv2.Handler {

	if b, ok := derived.(btclogv2.Handler); ok {
		return b
	}

	return orig
}
