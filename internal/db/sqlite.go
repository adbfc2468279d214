package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	// Registers the "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDBPath is the default location of the SQLite database.
const DefaultDBPath = "data/interviews.db"

// sqliteParams are the go-sqlite3 connection settings. FULL sync makes a
// committed upsert as durable as the JSON store's fsync and rename.
var sqliteParams = url.Values{
	"_foreign_keys": {"on"},
	"_journal_mode": {"WAL"},
	"_synchronous":  {"FULL"},
	"_busy_timeout": {"5000"},
	"_txlock":       {"immediate"},
}

// OpenSQLite opens the database file at dbPath, creating its directory if
// needed.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w",
			err)
	}

	db, err := sql.Open(
		"sqlite3", "file:"+dbPath+"?"+sqliteParams.Encode(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection means our own goroutines queue in database/sql
	// instead of racing each other into SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
