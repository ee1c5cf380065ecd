package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type dialect struct {
	create string
	get    string
	upsert string
	delete string
}

var postgresDialect = dialect{
	create: `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL)`,
	get:    `SELECT value FROM kv WHERE key = $1`,
	upsert: `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	delete: `DELETE FROM kv WHERE key = $1`,
}

var sqliteDialect = dialect{
	create: `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at DATETIME NOT NULL)`,
	get:    `SELECT value FROM kv WHERE key = ?`,
	upsert: `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	delete: `DELETE FROM kv WHERE key = ?`,
}

// SQLStore keeps keys in a kv table of a postgres or sqlite database.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

func NewPostgresStore(db *sql.DB) (*SQLStore, error) {
	return newSQLStore(db, postgresDialect)
}

func NewSQLiteStore(db *sql.DB) (*SQLStore, error) {
	return newSQLStore(db, sqliteDialect)
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, d.create); err != nil {
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &SQLStore{db: db, d: d}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v string
	err := s.db.QueryRowContext(ctx, s.d.get, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.d.upsert, key, value, time.Now().UTC())
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.d.delete, key)
	return err
}
