package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

const (
	// defaultMaxRetries bounds how often WithTx retries a transaction
	// that failed because the database was busy.
	defaultMaxRetries = 5

	// retryBackoff is the base delay between retries.
	retryBackoff = 20 * time.Millisecond
)

// Store wraps a migrated SQLite connection with transaction support.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens the database at dbPath and applies any pending migrations.
func Open(dbPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if dbPath == "" {
		dbPath = DefaultDBPath
	}

	sqlDB, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	log = log.With("component", "db", "path", dbPath)
	if err := ApplyMigrations(sqlDB, dbPath, log); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: sqlDB, log: log}, nil
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// TxFunc is the function signature for transaction callbacks.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx executes the given function within a database transaction. If the
// function returns an error, the transaction is rolled back. Otherwise, it is
// committed. Transactions that fail because the database is busy or locked
// are retried with a linear backoff.
func (s *Store) WithTx(ctx context.Context, fn TxFunc) error {
	for attempt := 0; attempt < defaultMaxRetries; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}

		if !IsBusy(MapSQLError(err)) {
			return err
		}

		s.log.DebugContext(ctx, "Retrying busy transaction",
			"attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}

	return ErrRetriesExceeded
}

// runTx runs fn in a single transaction attempt.
func (s *Store) runTx(ctx context.Context, fn TxFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Execute the callback.
	if err := fn(ctx, tx); err != nil {
		// Attempt rollback, but prioritize returning the original error.
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err,
				rbErr)
		}

		return err
	}

	// Commit the transaction.
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
