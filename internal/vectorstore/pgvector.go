package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PgVectorStore keeps vectors in a PostgreSQL table with a pgvector column.
type PgVectorStore struct {
	db        *sql.DB
	dimension int
}

// NewPgVectorStore connects to dsn and creates the table if missing.
// dimension is the embedding width of the configured model (e.g. 1536).
func NewPgVectorStore(dsn string, dimension int) (*PgVectorStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("pgvector store needs a positive dimension, got %d", dimension)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PgVectorStore{db: db, dimension: dimension}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PgVectorStore) migrate() error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS embedding_cache (
			key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, s.dimension),
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}
	return nil
}

// Get looks up a record by key.
func (s *PgVectorStore) Get(ctx context.Context, key string) (Record, bool, error) {
	var (
		rec     Record
		encoded string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, model, content, embedding::text, created_at FROM embedding_cache WHERE key = $1`, key,
	).Scan(&rec.Key, &rec.Model, &rec.Text, &encoded, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query embedding: %w", err)
	}

	rec.Vector, err = parseEmbedding(encoded)
	if err != nil {
		return Record{}, false, fmt.Errorf("decode vector %s: %w", key, err)
	}
	return rec, true, nil
}

// Put inserts or replaces a record.
func (s *PgVectorStore) Put(ctx context.Context, rec Record) error {
	if len(rec.Vector) != s.dimension {
		return fmt.Errorf("vector has %d dimensions, column expects %d", len(rec.Vector), s.dimension)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (key, model, content, embedding)
		VALUES ($1, $2, $3, $4::vector)
		ON CONFLICT (key) DO UPDATE SET
			model = EXCLUDED.model,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding
	`, rec.Key, rec.Model, rec.Text, formatEmbedding(rec.Vector))
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

// formatEmbedding converts a vector to pgvector text form: "[0.1,0.2,0.3]"
func formatEmbedding(embedding []float64) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseEmbedding converts pgvector text form back to a vector.
func parseEmbedding(s string) ([]float64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	result := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}
