package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite cache of previous inspection results.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
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

// Migrate creates the cache tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS inspections (
  path            TEXT PRIMARY KEY,
  content_hash    TEXT NOT NULL,
  config_hash     TEXT NOT NULL,
  offenses        BLOB NOT NULL,
  inspected_at    TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_inspections_config ON inspections(config_hash);
`

// Forget transactionally removes the cached results for paths.
func (s *Store) Forget(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, chunk := range chunkStrings(paths, maxParams) {
		q := "DELETE FROM inspections WHERE path IN (" + placeholderList(len(chunk)) + ")"
		if _, err := tx.Exec(q, stringsToArgs(chunk)...); err != nil {
			return fmt.Errorf("forget inspections: %w", err)
		}
	}
	return tx.Commit()
}

// PruneConfig removes every result recorded under a configuration other
// than configHash and returns how many rows went.
func (s *Store) PruneConfig(configHash string) (int64, error) {
	res, err := s.db.Exec("DELETE FROM inspections WHERE config_hash <> ?", configHash)
	if err != nil {
		return 0, fmt.Errorf("prune inspections: %w", err)
	}
	return res.RowsAffected()
}
