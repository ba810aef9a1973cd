package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect holds the driver name and the statements that differ between SQL backends
type Dialect struct {
	Driver string
	schema string
	get    string
	upsert string
	remove string
}

// DialectSQLite uses a local sqlite file via mattn/go-sqlite3
var DialectSQLite = Dialect{
	Driver: "sqlite3",
	schema: `CREATE TABLE IF NOT EXISTS records (
		record_key   TEXT PRIMARY KEY,
		record_value BLOB NOT NULL,
		updated_at   TIMESTAMP NOT NULL
	)`,
	get: `SELECT record_value FROM records WHERE record_key = ?`,
	upsert: `
		INSERT INTO records (record_key, record_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (record_key) DO UPDATE
		SET record_value = excluded.record_value, updated_at = excluded.updated_at
	`,
	remove: `DELETE FROM records WHERE record_key = ?`,
}

// DialectPostgres uses lib/pq
var DialectPostgres = Dialect{
	Driver: "postgres",
	schema: `CREATE TABLE IF NOT EXISTS records (
		record_key   TEXT PRIMARY KEY,
		record_value BYTEA NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	get: `SELECT record_value FROM records WHERE record_key = $1`,
	upsert: `
		INSERT INTO records (record_key, record_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (record_key) DO UPDATE
		SET record_value = EXCLUDED.record_value, updated_at = EXCLUDED.updated_at
	`,
	remove: `DELETE FROM records WHERE record_key = $1`,
}

// SQLStore keeps records in a single key/value table
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore opens dsn with the dialect's driver and creates the records table
func NewSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	if dialect.Driver == DialectSQLite.Driver {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", dialect.Driver, err)
	}
	if dialect.Driver == DialectSQLite.Driver {
		// sqlite allows one writer; a single connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s store: %w", dialect.Driver, err)
	}
	if _, err := db.ExecContext(ctx, dialect.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create records table: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

// Get retrieves the value stored under key
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value); err != nil {
		return nil, readError(key, err)
	}
	return value, nil
}

// readError maps a missing row to ErrKeyNotFound. Drivers may wrap sql.ErrNoRows.
func readError(key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrKeyNotFound
	}
	return fmt.Errorf("failed to read %s: %w", key, err)
}

// Set upserts value under key
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Remove deletes key
func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.remove, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Ping verifies the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
