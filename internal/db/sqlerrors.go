package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrRetriesExceeded is returned when a transaction kept failing with
	// SQLITE_BUSY or SQLITE_LOCKED after every retry.
	ErrRetriesExceeded = errors.New("db tx retries exceeded")

	// ErrSchemaMissing is returned when a query hits a table the
	// migrations should have created.
	ErrSchemaMissing = errors.New("database schema missing")
)

// BusyError marks a failure caused by another writer holding the database.
// The transaction that hit it can be retried as a whole.
type BusyError struct {
	Code sqlite3.ErrNo
	Err  error
}

// Error returns the error message.
func (e *BusyError) Error() string {
	return fmt.Sprintf("database busy (%v): %v", e.Code, e.Err)
}

// Unwrap returns the driver error.
func (e *BusyError) Unwrap() error {
	return e.Err
}

// IsBusy reports whether err, or anything it wraps, is a BusyError.
func IsBusy(err error) bool {
	var busy *BusyError
	return errors.As(err, &busy)
}

// MapSQLError classifies a go-sqlite3 error. Errors from anywhere else are
// returned unchanged.
func MapSQLError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return &BusyError{Code: sqliteErr.Code, Err: err}

	// Upserts never collide on the primary key, so this is a CHECK.
	case sqlite3.ErrConstraint:
		return fmt.Errorf("constraint violated: %w", err)

	case sqlite3.ErrError:
		if strings.Contains(sqliteErr.Error(), "no such table") {
			return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
		}
	}

	return fmt.Errorf("sqlite error: %w", err)
}
