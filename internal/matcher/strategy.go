package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/csplab/linkage/internal/similarity"
)

// Kind names a matching strategy
type Kind int

const (
	KindEdit Kind = iota + 1
	KindContains
	KindSemantic
	KindSlidingWindow
)

var kindNames = map[Kind]string{
	KindEdit:          "edit",
	KindContains:      "contains",
	KindSemantic:      "semantic",
	KindSlidingWindow: "window",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Strategy selects how two texts are compared. Build one with Edit, Contains,
// Semantic or SlidingWindow.
type Strategy struct {
	Kind      Kind    `json:"kind"`
	Threshold float64 `json:"threshold"`
	Anchor    string  `json:"anchor,omitempty"` // Semantic only
}

// Edit compares whole strings by edit-distance ratio
func Edit(threshold float64) Strategy {
	return Strategy{Kind: KindEdit, Threshold: threshold}
}

// Contains looks for the first text inside the second by word windows
func Contains(threshold float64) Strategy {
	return Strategy{Kind: KindContains, Threshold: threshold}
}

// Semantic compares embeddings, the second text optionally cut after anchor
func Semantic(threshold float64, anchor string) Strategy {
	return Strategy{Kind: KindSemantic, Threshold: threshold, Anchor: anchor}
}

// SlidingWindow compares the first text's embedding against windows of the second
func SlidingWindow(threshold float64) Strategy {
	return Strategy{Kind: KindSlidingWindow, Threshold: threshold}
}

// NeedsEmbeddings reports whether the strategy calls the embedding provider
func (s Strategy) NeedsEmbeddings() bool {
	return s.Kind == KindSemantic || s.Kind == KindSlidingWindow
}

func (s Strategy) String() string {
	if s.Anchor != "" {
		return fmt.Sprintf("%s(%.2f, %q)", s.Kind, s.Threshold, s.Anchor)
	}
	return fmt.Sprintf("%s(%.2f)", s.Kind, s.Threshold)
}

// DefaultThreshold returns the threshold used for kind when none is given
func DefaultThreshold(kind Kind) float64 {
	switch kind {
	case KindEdit:
		return similarity.DefaultMatchThreshold
	case KindContains:
		return similarity.DefaultContainsThreshold
	case KindSemantic:
		return DefaultSemanticThreshold
	case KindSlidingWindow:
		return DefaultWindowThreshold
	}
	return 0
}

// ParseStrategy builds a strategy from its name. threshold <= 0 picks the
// kind's default; anchor is kept only for semantic.
func ParseStrategy(name string, threshold float64, anchor string) (Strategy, error) {
	var kind Kind
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "edit", "levenshtein":
		kind = KindEdit
	case "contains", "fuzzy_contains":
		kind = KindContains
	case "semantic":
		kind = KindSemantic
	case "window", "sliding_window":
		kind = KindSlidingWindow
	default:
		return Strategy{}, fmt.Errorf("unknown match strategy %q (want edit, contains, semantic or window)", name)
	}

	if threshold <= 0 {
		threshold = DefaultThreshold(kind)
	}
	if threshold > 1 {
		return Strategy{}, fmt.Errorf("threshold %.2f out of range (0,1]", threshold)
	}

	s := Strategy{Kind: kind, Threshold: threshold}
	if kind == KindSemantic {
		s.Anchor = anchor
	}
	return s, nil
}

// EvaluateStrategy applies s to a and b. Edit-distance strategies never
// return Indeterminate.
func (m *SemanticMatcher) EvaluateStrategy(ctx context.Context, s Strategy, a, b string) Result {
	switch s.Kind {
	case KindEdit:
		return decide(similarity.Ratio(a, b), s.Threshold)
	case KindContains:
		return decide(similarity.ContainsScore(a, b), s.Threshold)
	case KindSemantic:
		return m.Evaluate(ctx, a, b, s.Threshold, s.Anchor)
	case KindSlidingWindow:
		return m.EvaluateWindows(ctx, a, b, s.Threshold)
	}
	return indeterminate(fmt.Errorf("unknown match strategy %s", s.Kind))
}

// Matches is the boolean entry point over every strategy; failures yield false
func (m *SemanticMatcher) Matches(ctx context.Context, s Strategy, a, b string) bool {
	return m.EvaluateStrategy(ctx, s, a, b).Matched()
}
