package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

const (
	// DefaultMatchThreshold is the ratio at or above which two strings match
	DefaultMatchThreshold = 0.6

	// DefaultContainsThreshold is the ratio used by ContainsFuzzy
	DefaultContainsThreshold = 0.7
)

// EditDistance returns the Levenshtein distance between a and b, counted in runes.
// The comparison is case-sensitive.
func EditDistance(a, b string) int {
	if a == b {
		return 0
	}
	return edlib.LevenshteinDistance(a, b)
}

// Ratio returns 1 - distance/maxLen over the lowercased inputs.
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)

	maxLen := utf8.RuneCountInString(la)
	if n := utf8.RuneCountInString(lb); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(EditDistance(la, lb))/float64(maxLen)
}

// Matches reports whether Ratio(a, b) reaches threshold
func Matches(a, b string, threshold float64) bool {
	return Ratio(a, b) >= threshold
}

// ContainsFuzzy reports whether needle matches haystack as a whole or matches
// any contiguous run of haystack words as long as needle itself (in words).
func ContainsFuzzy(needle, haystack string, threshold float64) bool {
	if Matches(needle, haystack, threshold) {
		return true
	}

	size := len(strings.Fields(needle))
	for _, window := range NewTextSpan(haystack).Windows(size) {
		if Matches(needle, window, threshold) {
			return true
		}
	}
	return false
}

// ContainsScore returns the best ratio between needle and either the whole
// haystack or one of its needle-sized word windows.
// ContainsFuzzy(n, h, t) == (ContainsScore(n, h) >= t).
func ContainsScore(needle, haystack string) float64 {
	best := Ratio(needle, haystack)
	size := len(strings.Fields(needle))
	for _, window := range NewTextSpan(haystack).Windows(size) {
		if r := Ratio(needle, window); r > best {
			best = r
		}
	}
	return best
}
