// Package matcher decides whether two free-text spans denote the same thing,
// either by edit distance or by embedding cosine similarity.
//
// The boolean and score helpers degrade failures to "no match" and 0.0 so a
// long unattended batch keeps going. Evaluate returns the same decision as a
// tri-state Result for callers that must tell a real mismatch from a failure.
package matcher

import (
	"context"
	"errors"
	"strings"

	"github.com/csplab/linkage/internal/debug"
	"github.com/csplab/linkage/internal/embedding"
	"github.com/csplab/linkage/internal/similarity"
)

// Default thresholds
const (
	DefaultSemanticThreshold = 0.8
	DefaultWindowThreshold   = 0.85
)

// ErrNoEmbeddings is reported when an embedding strategy runs without a cache
var ErrNoEmbeddings = errors.New("no embedding provider configured")

// SemanticMatcher scores text pairs through an embedding cache
type SemanticMatcher struct {
	cache *embedding.Cache
}

// New creates a matcher. cache may be nil when only edit-distance strategies are used.
func New(cache *embedding.Cache) *SemanticMatcher {
	return &SemanticMatcher{cache: cache}
}

// Cache returns the embedding cache, nil when none is configured
func (m *SemanticMatcher) Cache() *embedding.Cache {
	return m.cache
}

// StripAnchor returns the part of text after the last occurrence of anchor.
// text is returned unchanged when anchor is empty or absent.
func StripAnchor(text, anchor string) string {
	if anchor == "" {
		return text
	}
	idx := strings.LastIndex(text, anchor)
	if idx < 0 {
		return text
	}
	return strings.TrimSpace(text[idx+len(anchor):])
}

// Evaluate embeds text1 and text2 (text2 reduced by anchor) and compares them
func (m *SemanticMatcher) Evaluate(ctx context.Context, text1, text2 string, threshold float64, anchor string) Result {
	score, err := m.score(ctx, text1, StripAnchor(text2, anchor))
	if err != nil {
		return indeterminate(err)
	}
	return decide(score, threshold)
}

// SemanticMatch reports whether the cosine score reaches threshold.
// Any embedding or vector failure yields false.
func (m *SemanticMatcher) SemanticMatch(ctx context.Context, text1, text2 string, threshold float64, anchor string) bool {
	res := m.Evaluate(ctx, text1, text2, threshold, anchor)
	if res.Err != nil {
		debug.LogMatch("semantic match degraded to false: %v\n", res.Err)
	}
	return res.Matched()
}

// SimilarityScore returns the cosine score in [0,1], or 0.0 on failure
func (m *SemanticMatcher) SimilarityScore(ctx context.Context, text1, text2, anchor string) float64 {
	score, err := m.score(ctx, text1, StripAnchor(text2, anchor))
	if err != nil {
		debug.LogMatch("similarity score degraded to 0: %v\n", err)
		return 0
	}
	return score
}

// EvaluateWindows slides a window of short's word count across long and
// stops at the first window reaching threshold. When long has fewer words
// than short the whole texts are compared. Windows whose embedding fails
// are skipped; the result is Indeterminate only if nothing could be scored.
func (m *SemanticMatcher) EvaluateWindows(ctx context.Context, short, long string, threshold float64) Result {
	size := similarity.NewTextSpan(short).Len()
	if size == 0 {
		return Result{Outcome: NoMatch}
	}

	ref, err := m.embed(ctx, short)
	if err != nil {
		return indeterminate(err)
	}

	windows := similarity.NewTextSpan(long).Windows(size)
	if len(windows) == 0 {
		windows = []string{long}
	}

	best := 0.0
	var lastErr error
	scored := false
	for _, window := range windows {
		vec, err := m.embed(ctx, window)
		if err != nil {
			lastErr = err
			continue
		}
		cos, err := CosineSimilarity(ref, vec)
		if err != nil {
			lastErr = err
			continue
		}
		score := clampScore(cos)
		scored = true
		if score >= threshold {
			return Result{Outcome: Match, Score: score}
		}
		if score > best {
			best = score
		}
	}

	if !scored {
		return indeterminate(lastErr)
	}
	return decide(best, threshold)
}

// SlidingWindowSemanticMatch reports whether some window of long matches short
func (m *SemanticMatcher) SlidingWindowSemanticMatch(ctx context.Context, short, long string, threshold float64) bool {
	res := m.EvaluateWindows(ctx, short, long, threshold)
	if res.Err != nil {
		debug.LogMatch("window match degraded to false: %v\n", res.Err)
	}
	return res.Matched()
}

// LevenshteinMatch is similarity.Matches
func (m *SemanticMatcher) LevenshteinMatch(a, b string, threshold float64) bool {
	return similarity.Matches(a, b, threshold)
}

// FuzzyContains is similarity.ContainsFuzzy
func (m *SemanticMatcher) FuzzyContains(needle, haystack string, threshold float64) bool {
	return similarity.ContainsFuzzy(needle, haystack, threshold)
}

func (m *SemanticMatcher) score(ctx context.Context, a, b string) (float64, error) {
	u, err := m.embed(ctx, a)
	if err != nil {
		return 0, err
	}
	v, err := m.embed(ctx, b)
	if err != nil {
		return 0, err
	}
	cos, err := CosineSimilarity(u, v)
	if err != nil {
		return 0, err
	}
	return clampScore(cos), nil
}

func (m *SemanticMatcher) embed(ctx context.Context, text string) (embedding.Vector, error) {
	if m.cache == nil {
		return nil, ErrNoEmbeddings
	}
	return m.cache.GetVector(ctx, text)
}
