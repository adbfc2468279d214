package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a migrated database in a temp dir.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "interviews.db")
	store, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, path
}

// TestOpenAppliesMigrations checks the schema exists after Open.
func TestOpenAppliesMigrations(t *testing.T) {
	store, _ := newTestStore(t)

	for _, table := range []string{"interviews", "summary_cache"} {
		var name string
		err := store.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' "+
				"AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, table)
		require.Equal(t, table, name)
	}
}

// TestReopenIsIdempotent verifies migrating an up to date database is a
// no-op.
func TestReopenIsIdempotent(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, store.Close())

	again, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

// TestWithTxRollsBack ensures a failing callback leaves no trace.
func TestWithTxRollsBack(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO interviews (id, subject_name, payload, "+
				"created_at, updated_at) VALUES ('a', 'A', '{}', "+
				"1, 1)",
		)
		require.NoError(t, err)

		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, store.DB().QueryRow(
		"SELECT COUNT(*) FROM interviews",
	).Scan(&count))
	require.Zero(t, count)
}

// TestSummaryCacheSingleSlot checks the cache table only accepts slot 1.
func TestSummaryCacheSingleSlot(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.DB().Exec(
		"INSERT INTO summary_cache (slot, content_hash, result, " +
			"updated_at) VALUES (2, 'h', '{}', 1)",
	)
	require.Error(t, err)
}

// TestRefusesNewerSchema protects a database written by a newer release.
func TestRefusesNewerSchema(t *testing.T) {
	store, path := newTestStore(t)

	err := ApplyMigrations(store.DB(), path, store.log,
		WithLatestVersion(0), WithoutBackup())
	require.ErrorIs(t, err, ErrMigrationDowngrade)
}

// TestBusyErrorsAreRetryable classifies driver busy errors.
func TestBusyErrorsAreRetryable(t *testing.T) {
	busy := MapSQLError(sqlite3.Error{Code: sqlite3.ErrBusy})
	require.True(t, IsBusy(busy))

	locked := MapSQLError(sqlite3.Error{Code: sqlite3.ErrLocked})
	require.True(t, IsBusy(locked))

	other := errors.New("plain")
	require.Equal(t, other, MapSQLError(other))
	require.False(t, IsBusy(other))
}
