// Package app wires the configured collaborators into the interview
// service. The daemon and the CLI's direct mode share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roasbeef/midnight/internal/analyzer"
	"github.com/roasbeef/midnight/internal/blob"
	"github.com/roasbeef/midnight/internal/casefile"
	"github.com/roasbeef/midnight/internal/config"
	"github.com/roasbeef/midnight/internal/store"
	"github.com/roasbeef/midnight/internal/summary"
	"github.com/roasbeef/midnight/internal/transcribe"
)

// App owns the interview service and everything it holds open.
type App struct {
	Service *casefile.Service
	Store   store.Store

	closers []io.Closer
}

// Open builds the service described by cfg. A transcriber that cannot be
// built is logged and left out, which disables audio intake only.
func Open(ctx context.Context, cfg *config.Config,
	log *slog.Logger) (*App, error) {

	if log == nil {
		log = slog.Default()
	}

	st, err := store.Open(cfg.StoreBackend, cfg.StorePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a := &App{Store: st, closers: []io.Closer{st}}

	blobs, err := blob.Open(ctx, cfg.Blob, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	aiClient := analyzer.New(cfg.Analyzer, log)
	if !aiClient.Configured() {
		log.Warn("No analyzer API key set, analysis and summaries " +
			"will be unavailable")
	}

	deps := casefile.Deps{
		Store:    st,
		Analyzer: aiClient,
		Blobs:    blobs,
		Summary:  summary.NewService(cfg.Summary, st, aiClient, log),
	}

	tr, err := transcribe.New(ctx, cfg.Transcribe, log)
	if err != nil {
		log.Warn("Transcriber unavailable, audio intake disabled",
			"provider", cfg.Transcribe.Provider, "error", err)
	} else {
		deps.Transcriber = tr
		if c, ok := tr.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
	}

	a.Service = casefile.NewService(deps, log)

	return a, nil
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
