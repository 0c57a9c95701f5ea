// Package nvmstore implements the out-of-scope NVM object store as a
// local SQLite database, satisfying the shekeys.Backend contract used
// by the keystore adapter.
package nvmstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shecore/hsm/internal/shekeys"
)

// Store is a SQLite-backed shekeys.Backend: every SHE key object is a
// single row keyed by its packed 32-bit id.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dsn and
// ensures its schema and PRAGMAs are in place.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	st := &Store{db: db}
	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("nvmstore: set %s: %w", p, err)
		}
	}
	const schema = `
CREATE TABLE IF NOT EXISTS she_objects (
  id   INTEGER PRIMARY KEY,
  meta BLOB NOT NULL,
  data BLOB NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("nvmstore: create schema: %w", err)
	}
	return st, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements shekeys.Backend.
func (s *Store) Get(id uint32) ([]byte, []byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var meta, data []byte
	err := s.db.QueryRowContext(ctx, `SELECT meta, data FROM she_objects WHERE id = ?`, id).Scan(&meta, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, shekeys.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return meta, data, nil
}

// Put implements shekeys.Backend.
func (s *Store) Put(id uint32, meta, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO she_objects(id, meta, data) VALUES(?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET meta=excluded.meta, data=excluded.data`,
		id, meta, data); err != nil {
		return err
	}
	return tx.Commit()
}
