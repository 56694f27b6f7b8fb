package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS embeddings (
	key        TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	text       TEXT NOT NULL,
	vector     TEXT NOT NULL,
	created_at INTEGER NOT NULL
)`

// SQLiteStore keeps vectors in a SQLite file, JSON-encoded.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dsn.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "data/embeddings.db"
	}

	dir := filepath.Dir(dsn)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer keeps modernc from returning SQLITE_BUSY under concurrent Puts
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get looks up a record by key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Record, bool, error) {
	var (
		rec     Record
		encoded string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, model, text, vector, created_at FROM embeddings WHERE key = ?`, key,
	).Scan(&rec.Key, &rec.Model, &rec.Text, &encoded, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query embedding: %w", err)
	}

	if err := json.Unmarshal([]byte(encoded), &rec.Vector); err != nil {
		return Record{}, false, fmt.Errorf("decode vector %s: %w", key, err)
	}
	rec.CreatedAt = time.UnixMilli(created)
	return rec, true, nil
}

// Put inserts or replaces a record.
func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	encoded, err := json.Marshal(rec.Vector)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (key, model, text, vector, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Key, rec.Model, rec.Text, string(encoded), rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
