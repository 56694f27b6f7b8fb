package similarity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// Supported FuzzyMatcher algorithms
const (
	AlgorithmLevenshtein = "levenshtein"
	AlgorithmJaroWinkler = "jaro-winkler"
)

// FuzzyMatcher ranks candidate strings against a target
type FuzzyMatcher struct {
	threshold float64
	algorithm string
}

// FuzzyMatch is one ranked candidate
type FuzzyMatch struct {
	Term       string  `json:"term"`
	Similarity float64 `json:"similarity"`
}

// NewFuzzyMatcher creates a matcher. An out-of-range threshold falls back to
// DefaultMatchThreshold and an empty algorithm to levenshtein.
func NewFuzzyMatcher(threshold float64, algorithm string) *FuzzyMatcher {
	if threshold < 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	if algorithm == "" {
		algorithm = AlgorithmLevenshtein
	}
	return &FuzzyMatcher{threshold: threshold, algorithm: algorithm}
}

// Threshold returns the configured similarity threshold
func (fm *FuzzyMatcher) Threshold() float64 {
	return fm.threshold
}

// Algorithm returns the configured algorithm name
func (fm *FuzzyMatcher) Algorithm() string {
	return fm.algorithm
}

// Similarity returns the score between a and b under the configured algorithm
func (fm *FuzzyMatcher) Similarity(a, b string) float64 {
	switch fm.algorithm {
	case AlgorithmJaroWinkler:
		return jaroWinkler(a, b)
	default:
		return Ratio(a, b)
	}
}

// Match checks if two strings are similar within the configured threshold
func (fm *FuzzyMatcher) Match(a, b string) bool {
	return fm.Similarity(a, b) >= fm.threshold
}

// FindMatches returns candidates scoring at or above the threshold, best first.
// Equal scores are ordered by candidate text so the ranking is reproducible.
func (fm *FuzzyMatcher) FindMatches(target string, candidates []string) []FuzzyMatch {
	var matches []FuzzyMatch

	for _, candidate := range candidates {
		similarity := fm.Similarity(target, candidate)
		if similarity >= fm.threshold {
			matches = append(matches, FuzzyMatch{
				Term:       candidate,
				Similarity: similarity,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Term < matches[j].Term
	})

	return matches
}

// Best returns the top-ranked candidate, if any reaches the threshold
func (fm *FuzzyMatcher) Best(target string, candidates []string) (FuzzyMatch, bool) {
	matches := fm.FindMatches(target, candidates)
	if len(matches) == 0 {
		return FuzzyMatch{}, false
	}
	return matches[0], true
}

// ValidateConfig validates fuzzy matcher configuration
func (fm *FuzzyMatcher) ValidateConfig() error {
	if fm.threshold < 0 || fm.threshold > 1 {
		return fmt.Errorf("invalid threshold: %.2f (must be 0-1)", fm.threshold)
	}
	switch fm.algorithm {
	case AlgorithmLevenshtein, AlgorithmJaroWinkler:
		return nil
	}
	return fmt.Errorf("invalid algorithm: %s (must be levenshtein or jaro-winkler)", fm.algorithm)
}

// jaroWinkler scores case-folded inputs with go-edlib
func jaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	score, err := edlib.StringsSimilarity(strings.ToLower(a), strings.ToLower(b), edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(score)
}
