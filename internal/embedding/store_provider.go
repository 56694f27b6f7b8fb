package embedding

import (
	"context"
	"time"

	"github.com/csplab/linkage/internal/debug"
	"github.com/csplab/linkage/internal/vectorstore"
)

// StoreProvider puts a persistent vectorstore.Store in front of another
// Provider so vectors survive between runs. It is usually wrapped by a Cache.
type StoreProvider struct {
	next  Provider
	store vectorstore.Store
	model string
}

// NewStoreProvider persists vectors from next under model
func NewStoreProvider(next Provider, store vectorstore.Store, model string) *StoreProvider {
	return &StoreProvider{next: next, store: store, model: model}
}

// Embed serves text from the store, falling back to the wrapped provider.
// Store read and write failures are logged and otherwise ignored.
func (p *StoreProvider) Embed(ctx context.Context, text string) (Vector, error) {
	key := vectorstore.Key(p.model, text)

	rec, ok, err := p.store.Get(ctx, key)
	if err != nil {
		debug.LogEmbed("vector store read failed for %s: %v\n", key, err)
	} else if ok {
		return Vector(rec.Vector), nil
	}

	v, err := p.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	err = p.store.Put(ctx, vectorstore.Record{
		Key:       key,
		Model:     p.model,
		Text:      text,
		Vector:    []float64(v),
		CreatedAt: time.Now(),
	})
	if err != nil {
		debug.LogEmbed("vector store write failed for %s: %v\n", key, err)
	}
	return v, nil
}
