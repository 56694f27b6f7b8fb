package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csplab/linkage/internal/embedding"
	"github.com/csplab/linkage/internal/similarity"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		anchor    string
		expected  Strategy
	}{
		{"edit", 0, "x", Edit(similarity.DefaultMatchThreshold)},
		{"Levenshtein", 0.9, "", Edit(0.9)},
		{"contains", 0, "", Contains(similarity.DefaultContainsThreshold)},
		{"semantic", 0, "statut", Semantic(DefaultSemanticThreshold, "statut")},
		{"window", 0, "ignored", SlidingWindow(DefaultWindowThreshold)},
		{" sliding_window ", 0.5, "", SlidingWindow(0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.name, tt.threshold, tt.anchor)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseStrategyErrors(t *testing.T) {
	_, err := ParseStrategy("soundex", 0, "")
	assert.Error(t, err)

	_, err = ParseStrategy("edit", 1.5, "")
	assert.Error(t, err)
}

func TestStrategyNeedsEmbeddings(t *testing.T) {
	assert.False(t, Edit(0.6).NeedsEmbeddings())
	assert.False(t, Contains(0.7).NeedsEmbeddings())
	assert.True(t, Semantic(0.8, "").NeedsEmbeddings())
	assert.True(t, SlidingWindow(0.85).NeedsEmbeddings())
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "edit(0.60)", Edit(0.6).String())
	assert.Equal(t, `semantic(0.80, "corps des")`, Semantic(0.8, "corps des").String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestMatchesEditStrategies(t *testing.T) {
	m := New(nil)
	ctx := context.Background()

	assert.True(t, m.Matches(ctx, Edit(0.6), "attaché", "Attache"))
	assert.False(t, m.Matches(ctx, Edit(0.6), "attaché", "magistrat"))
	assert.True(t, m.Matches(ctx, Contains(0.6), "chat", "le chat noir"))
	assert.False(t, m.Matches(ctx, Contains(0.9), "chien", "le chat noir"))

	res := m.EvaluateStrategy(ctx, Edit(0.6), "kitten", "sitting")
	assert.Equal(t, NoMatch, res.Outcome)
	assert.InDelta(t, 1-3.0/7.0, res.Score, 1e-9)

	res = m.EvaluateStrategy(ctx, Contains(0.6), "chat", "le chat noir")
	assert.Equal(t, Match, res.Outcome)
	assert.Equal(t, 1.0, res.Score)
}

func TestMatchesEmbeddingStrategies(t *testing.T) {
	provider := &tableProvider{
		vectors: map[string]embedding.Vector{
			"attachés":           {1, 0},
			"corps des attachés": {0.9, 0.1},
			"décret statut particulier du corps des attachés": {0, 1},
		},
		fallback: embedding.Vector{0, 1},
	}
	m := newTestMatcher(provider)
	ctx := context.Background()

	text := "décret statut particulier du corps des attachés"
	assert.True(t, m.Matches(ctx, Semantic(0.99, "statut particulier du corps des"), "attachés", text))
	assert.False(t, m.Matches(ctx, Semantic(0.99, ""), "attachés", text))
	assert.True(t, m.Matches(ctx, SlidingWindow(0.99), "attachés", text))
}

func TestMatchesSemanticWithoutProvider(t *testing.T) {
	m := New(nil)
	ctx := context.Background()

	assert.False(t, m.Matches(ctx, Semantic(0.1, ""), "a", "a"))
	assert.False(t, m.Matches(ctx, SlidingWindow(0.1), "a", "a b"))

	res := m.EvaluateStrategy(ctx, Strategy{Kind: Kind(42)}, "a", "a")
	assert.Equal(t, Indeterminate, res.Outcome)
	assert.Error(t, res.Err)
}
