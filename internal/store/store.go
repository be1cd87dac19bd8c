package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for a persisted call graph.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// graphTables lists the tables a build replaces, children first.
var graphTables = []string{"diagnostics", "callbacks", "calls", "blocks", "definitions", "files"}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  status          TEXT NOT NULL,
  hash            TEXT,
  exports         TEXT,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS definitions (
  id              INTEGER PRIMARY KEY,
  key             TEXT NOT NULL UNIQUE,
  uuid            TEXT NOT NULL,
  file_id         INTEGER REFERENCES files(id),
  variant         TEXT NOT NULL,
  origin          TEXT,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS blocks (
  id              INTEGER PRIMARY KEY,
  key             TEXT NOT NULL UNIQUE,
  uuid            TEXT NOT NULL,
  definition_id   INTEGER NOT NULL REFERENCES definitions(id),
  parent_block_id INTEGER REFERENCES blocks(id),
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS calls (
  id                   INTEGER PRIMARY KEY,
  key                  TEXT NOT NULL UNIQUE,
  uuid                 TEXT NOT NULL,
  block_id             INTEGER NOT NULL REFERENCES blocks(id),
  caller_definition_id INTEGER NOT NULL REFERENCES definitions(id),
  callee_definition_id INTEGER NOT NULL REFERENCES definitions(id),
  ordinal              INTEGER NOT NULL,
  parameter            INTEGER,
  line                 INTEGER,
  col                  INTEGER
);

CREATE TABLE IF NOT EXISTS callbacks (
  id              INTEGER PRIMARY KEY,
  call_id         INTEGER NOT NULL REFERENCES calls(id),
  definition_id   INTEGER NOT NULL REFERENCES definitions(id),
  position        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL,
  line            INTEGER,
  col             INTEGER,
  severity        TEXT NOT NULL,
  message         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_definitions_file ON definitions(file_id);
CREATE INDEX IF NOT EXISTS idx_definitions_name ON definitions(name);
CREATE INDEX IF NOT EXISTS idx_blocks_definition ON blocks(definition_id);
CREATE INDEX IF NOT EXISTS idx_blocks_parent ON blocks(parent_block_id);
CREATE INDEX IF NOT EXISTS idx_calls_caller ON calls(caller_definition_id);
CREATE INDEX IF NOT EXISTS idx_calls_callee ON calls(callee_definition_id);
CREATE INDEX IF NOT EXISTS idx_calls_block ON calls(block_id);
CREATE INDEX IF NOT EXISTS idx_callbacks_call ON callbacks(call_id);
CREATE INDEX IF NOT EXISTS idx_callbacks_definition ON callbacks(definition_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_path ON diagnostics(path);
`

// clearTx removes the persisted graph inside tx. Metadata is kept.
func clearTx(tx *sql.Tx) error {
	for _, table := range graphTables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// GetMetadata returns the value stored under key, or "" when unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}
