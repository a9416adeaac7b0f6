package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite index sink: files, their needles, and the project's
// inheritance edges.
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

// DB returns the underlying *sql.DB.
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

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT,
  line_count      INTEGER,
  last_indexed    TIMESTAMP
);

-- start_line IS NULL marks a file-scoped needle.
CREATE TABLE IF NOT EXISTS needles (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  tag             TEXT NOT NULL,
  value           TEXT NOT NULL,
  key             TEXT NOT NULL DEFAULT '',
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS inheritance (
  id              INTEGER PRIMARY KEY,
  parent          TEXT NOT NULL,
  child           TEXT NOT NULL,
  UNIQUE(parent, child)
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_needles_file ON needles(file_id);
CREATE INDEX IF NOT EXISTS idx_needles_file_line ON needles(file_id, start_line);
CREATE INDEX IF NOT EXISTS idx_needles_tag_value ON needles(tag, value);
CREATE INDEX IF NOT EXISTS idx_needles_value ON needles(value);
CREATE INDEX IF NOT EXISTS idx_inheritance_parent ON inheritance(parent);
CREATE INDEX IF NOT EXISTS idx_inheritance_child ON inheritance(child);
`

// GetMetadata returns the value stored under key, or "" when unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return v, nil
}

// SetMetadata upserts key.
func (s *Store) SetMetadata(key, value string) error {
	return setMetadata(s.db, key, value)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setMetadata(e execer, key, value string) error {
	_, err := e.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}

// Clear transactionally removes every indexed row, keeping metadata.
// Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := clearTx(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearTx(tx *sql.Tx) error {
	for _, q := range []string{
		"DELETE FROM needles",
		"DELETE FROM inheritance",
		"DELETE FROM files",
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}
	return nil
}
