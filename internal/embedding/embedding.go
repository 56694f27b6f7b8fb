// Package embedding turns text into vectors through an injected provider and
// memoizes the results.
//
// Cache is the only component of the engine with an outbound effect: each
// miss costs one provider call. Concurrent misses for the same text share a
// single call.
package embedding

import "context"

// Vector is a fixed-width embedding. Vectors handed out by this package are
// copies; callers may modify them freely.
type Vector []float64

// Clone returns an independent copy of v
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Provider embeds one text. Retry and timeout policy belong to the provider.
type Provider interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, text string) (Vector, error)

// Embed calls f
func (f ProviderFunc) Embed(ctx context.Context, text string) (Vector, error) {
	return f(ctx, text)
}
