// Package vectorstore persists embedding vectors between runs so that a batch
// re-run does not pay for the same provider calls twice.
package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Supported drivers for Open
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Record is one persisted embedding
type Record struct {
	Key       string    `json:"key"`
	Model     string    `json:"model"`
	Text      string    `json:"text"`
	Vector    []float64 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides keyed storage of embedding records.
type Store interface {
	// Get returns the record for key; the bool is false when absent.
	Get(ctx context.Context, key string) (Record, bool, error)

	// Put inserts or replaces a record.
	Put(ctx context.Context, rec Record) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// Key derives the storage key of a text embedded with model
func Key(model, text string) string {
	h := xxhash.New()
	_, _ = h.WriteString(model)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(text)
	return strconv.FormatUint(h.Sum64(), 16)
}

// Open creates a store for driver. dimension is only used by postgres.
func Open(driver, dsn string, dimension int) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(dsn)
	case DriverPostgres, "pgvector":
		return NewPgVectorStore(dsn, dimension)
	default:
		return nil, fmt.Errorf("unknown vector store driver %q", driver)
	}
}

func cloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
