// Package memory persists the QNTM key vocabulary. The engine only
// needs the flat key list per collection; richer chunk storage lives
// outside this module.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"atlas/internal/domain"
)

// Compile-time interface assertion.
var _ domain.KeyStore = (*SQLiteKeyStore)(nil)

// SQLiteKeyStore implements domain.KeyStore backed by a local SQLite
// database.
type SQLiteKeyStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteKeyStore opens (or creates) the database at dbPath and runs
// migrations.
func NewSQLiteKeyStore(dbPath string, logger *slog.Logger) (*SQLiteKeyStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrKeyStore, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrKeyStore, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrKeyStore, err)
	}

	return &SQLiteKeyStore{db: db, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS qntm_keys (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			level      INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			UNIQUE(collection, key)
		);
		CREATE INDEX IF NOT EXISTS idx_qntm_keys_collection ON qntm_keys(collection);
	`
	_, err := db.Exec(schema)
	return err
}

// AllKeys implements domain.KeyStore. Keys come back oldest first, so a
// last-N slice yields the most recently added vocabulary.
func (s *SQLiteKeyStore) AllKeys(ctx context.Context, collection string) ([]string, error) {
	const query = `SELECT key FROM qntm_keys WHERE collection = ? ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: query keys: %v", domain.ErrKeyStore, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: scan key: %v", domain.ErrKeyStore, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate keys: %v", domain.ErrKeyStore, err)
	}
	return keys, nil
}

// SaveKeys implements domain.KeyStore. Re-saving an existing key in the
// same collection is a no-op rather than an error.
func (s *SQLiteKeyStore) SaveKeys(ctx context.Context, collection string, keys []string, level domain.AbstractionLevel) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrKeyStore, err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO qntm_keys (collection, key, level, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, key) DO NOTHING
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, key := range keys {
		if !domain.ValidKey(key) {
			s.logger.Warn("skipping malformed key", "collection", collection, "key", key)
			continue
		}
		if _, err := tx.ExecContext(ctx, insert, collection, key, int(level), now); err != nil {
			return fmt.Errorf("%w: insert key: %v", domain.ErrKeyStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrKeyStore, err)
	}
	return nil
}

// Close implements domain.KeyStore.
func (s *SQLiteKeyStore) Close() error {
	return s.db.Close()
}
