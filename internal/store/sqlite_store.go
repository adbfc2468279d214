package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/midnight/internal/db"
	"github.com/roasbeef/midnight/internal/interview"
)

// summarySlot is the only row the summary_cache table may hold.
const summarySlot = 1

// SQLiteStore keeps interviews in a SQLite database. Each record is stored
// as its JSON payload alongside the columns needed for ordering and lookup,
// so the on-disk payload matches what the JSON store writes.
type SQLiteStore struct {
	db   *db.Store
	opts *options
	log  *slog.Logger
}

// A compile-time check that SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string, log *slog.Logger,
	opts ...Option) (*SQLiteStore, error) {

	if log == nil {
		log = slog.Default()
	}

	dbStore, err := db.Open(path, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interview.ErrStorage, err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &SQLiteStore{
		db:   dbStore,
		opts: o,
		log:  log.With("component", "sqlite_store"),
	}, nil
}

// storageErr wraps a database failure in ErrStorage.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", interview.ErrStorage, op,
		db.MapSQLError(err))
}

// decodePayload parses a stored row, logging and skipping it if the payload
// is malformed.
func (s *SQLiteStore) decodePayload(id, payload string) (interview.Interview,
	bool) {

	var iv interview.Interview
	if err := json.Unmarshal([]byte(payload), &iv); err != nil {
		s.log.Warn("Skipping malformed interview row",
			"interview_id", id, "error", err)
		return interview.Interview{}, false
	}
	if iv.ID == "" {
		iv.ID = id
	}
	if iv.Source == "" {
		iv.Source = interview.SourceLive
	}
	if iv.Utterances == nil {
		iv.Utterances = []interview.Utterance{}
	}

	return iv, true
}

// List returns every readable interview, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]interview.Interview,
	error) {

	rows, err := s.db.DB().QueryContext(ctx,
		"SELECT id, payload FROM interviews",
	)
	if err != nil {
		return nil, storageErr("list interviews", err)
	}
	defer rows.Close()

	var ivs []interview.Interview
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, storageErr("scan interview", err)
		}
		if iv, ok := s.decodePayload(id, payload); ok {
			ivs = append(ivs, iv)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list interviews", err)
	}

	// The sort happens in Go so ties break exactly like the other
	// backends.
	sortByRecency(ivs)
	if ivs == nil {
		ivs = []interview.Interview{}
	}

	return ivs, nil
}

// Get returns the interview with the given id.
func (s *SQLiteStore) Get(ctx context.Context,
	id string) (fn.Option[interview.Interview], error) {

	var payload string
	err := s.db.DB().QueryRowContext(ctx,
		"SELECT payload FROM interviews WHERE id = ?", id,
	).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fn.None[interview.Interview](), nil

	case err != nil:
		return fn.None[interview.Interview](),
			storageErr("get interview", err)
	}

	iv, ok := s.decodePayload(id, payload)
	if !ok {
		return fn.None[interview.Interview](), nil
	}

	return fn.Some(iv), nil
}

// Upsert inserts or replaces the interview.
func (s *SQLiteStore) Upsert(ctx context.Context,
	iv interview.Interview) (interview.Interview, error) {

	stored := iv.Clone()
	stamp(&stored, s.opts.clock())
	if err := stored.Validate(); err != nil {
		return interview.Interview{}, err
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return interview.Interview{}, fmt.Errorf("%w: encode "+
			"interview: %v", interview.ErrStorage, err)
	}

	err = s.db.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO interviews (
				id, subject_name, payload, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				subject_name = excluded.subject_name,
				payload = excluded.payload,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at`,
			stored.ID, stored.SubjectName, string(payload),
			stored.CreatedAt.UnixNano(), stored.UpdatedAt.UnixNano(),
		)

		return err
	})
	if err != nil {
		return interview.Interview{}, storageErr("upsert interview", err)
	}

	return stored, nil
}

// Delete removes the interview with the given id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	var removed int64
	err := s.db.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM interviews WHERE id = ?", id,
		)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()

		return err
	})
	if err != nil {
		return false, storageErr("delete interview", err)
	}

	return removed > 0, nil
}

// Reset clears all interviews and the summary cache in one transaction.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	err := s.db.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM interviews"); err != nil {

			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM summary_cache")

		return err
	})
	if err != nil {
		return storageErr("reset store", err)
	}

	return nil
}

// SummaryCache returns the stored summary cache entry.
func (s *SQLiteStore) SummaryCache(
	ctx context.Context) (fn.Option[SummaryEntry], error) {

	var (
		hash, result string
		updated      int64
	)
	err := s.db.DB().QueryRowContext(ctx, `
		SELECT content_hash, result, updated_at
		FROM summary_cache WHERE slot = ?`, summarySlot,
	).Scan(&hash, &result, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fn.None[SummaryEntry](), nil

	case err != nil:
		return fn.None[SummaryEntry](),
			storageErr("read summary cache", err)
	}

	return fn.Some(SummaryEntry{
		ContentHash: hash,
		Result:      json.RawMessage(result),
		UpdatedAt:   time.Unix(0, updated).UTC(),
	}), nil
}

// PutSummaryCache replaces the stored summary cache entry.
func (s *SQLiteStore) PutSummaryCache(ctx context.Context,
	entry SummaryEntry) error {

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = s.opts.clock().UTC()
	}

	err := s.db.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO summary_cache (
				slot, content_hash, result, updated_at
			) VALUES (?, ?, ?, ?)
			ON CONFLICT (slot) DO UPDATE SET
				content_hash = excluded.content_hash,
				result = excluded.result,
				updated_at = excluded.updated_at`,
			summarySlot, entry.ContentHash, string(entry.Result),
			entry.UpdatedAt.UnixNano(),
		)

		return err
	})
	if err != nil {
		return storageErr("write summary cache", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
