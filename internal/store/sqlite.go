// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of the [Store] interface.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new [SQLiteStore] and connects to the database.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);
	`); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// Get retrieves a value for a given key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	if err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv WHERE key = ?;
	`, key).Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set stores a value for a given key.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value;
	`, key, value)
	return err
}

// Delete removes a value for a given key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?;`, key)
	return err
}

// List returns all key-value pairs whose keys start with prefix.
func (s *SQLiteStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM kv WHERE key LIKE ? || '%';
	`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[string][]byte)
	for rows.Next() {
		var (
			key  string
			data []byte
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, err
		}
		res[key] = data
	}
	return res, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
