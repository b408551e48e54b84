// Package db provides the SQLite connection and schema for gesturehue.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Light history - append-only record of what gestures did to the lights
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS light_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			target TEXT,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_history_type_ts ON light_history(event_type, timestamp);
		CREATE INDEX IF NOT EXISTS idx_history_session ON light_history(session_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create light_history table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
