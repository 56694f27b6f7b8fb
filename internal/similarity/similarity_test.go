package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"flaw", "lawn", 2},
		{"Chat", "chat", 1}, // case-sensitive
		{"été", "ete", 2},   // counted in runes, not bytes
		{"attaché", "attaché", 0},
	}

	for _, test := range tests {
		got := EditDistance(test.a, test.b)
		if got != test.expected {
			t.Errorf("EditDistance(%q, %q) = %d, expected %d", test.a, test.b, got, test.expected)
		}
	}
}

func TestEditDistanceSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"corps des attachés", "corps des attaches d'administration"},
		{"", "x"},
		{"MENH2435486A", "MENH2506115A"},
	}

	for _, p := range pairs {
		assert.Equal(t, EditDistance(p[0], p[1]), EditDistance(p[1], p[0]), "pair %v", p)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b     string
		expected float64
	}{
		{"", "", 1.0},
		{"abc", "", 0.0},
		{"", "abc", 0.0},
		{"same", "same", 1.0},
		{"Kitten", "kitten", 1.0}, // folds case
		{"kitten", "sitting", 1.0 - 3.0/7.0},
		{"abcd", "abce", 0.75},
	}

	for _, test := range tests {
		got := Ratio(test.a, test.b)
		if math.Abs(got-test.expected) > 1e-9 {
			t.Errorf("Ratio(%q, %q) = %.4f, expected %.4f", test.a, test.b, got, test.expected)
		}
	}
}

func TestRatioSelfIsOne(t *testing.T) {
	for _, s := range []string{"", "a", "Ingénieur des mines", "  spaced  ", "ÉTAT"} {
		assert.Equal(t, 1.0, Ratio(s, s), "Ratio(%q, %q)", s, s)
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("abcd", "abce", DefaultMatchThreshold))
	assert.True(t, Matches("abcd", "abce", 0.75), "threshold is inclusive")
	assert.False(t, Matches("abcd", "abce", 0.76))
	assert.False(t, Matches("administrateur", "ingénieur", DefaultMatchThreshold))
}

func TestContainsFuzzy(t *testing.T) {
	tests := []struct {
		name      string
		needle    string
		haystack  string
		threshold float64
		expected  bool
	}{
		{"word inside sentence", "chat", "le chat noir", 0.6, true},
		{"typo inside sentence", "attaches", "corps des attachés d'administration", DefaultContainsThreshold, true},
		{"multi word needle", "ingénieurs des mines", "décret portant statut particulier du corps des ingénieurs des mines", DefaultContainsThreshold, true},
		{"direct match", "secrétaire", "secretaire", DefaultContainsThreshold, true},
		{"absent", "magistrat", "corps des professeurs certifiés", DefaultContainsThreshold, false},
		{"needle longer than haystack", "corps des ingénieurs", "mines", DefaultContainsThreshold, false},
		{"empty needle", "", "le chat noir", DefaultContainsThreshold, false},
		{"both empty", "", "", DefaultContainsThreshold, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsFuzzy(tt.needle, tt.haystack, tt.threshold))
		})
	}
}

func BenchmarkEditDistance(b *testing.B) {
	a := "décret portant statut particulier du corps des attachés d'administration de l'État"
	c := "statut particulier du corps interministériel des attachés d'administration"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = EditDistance(a, c)
	}
}

func TestContainsScoreAgreesWithContainsFuzzy(t *testing.T) {
	cases := [][2]string{
		{"chat", "le chat noir"},
		{"attaches", "corps des attachés d'administration"},
		{"magistrat", "corps des professeurs certifiés"},
		{"", ""},
	}

	for _, c := range cases {
		score := ContainsScore(c[0], c[1])
		for _, threshold := range []float64{0.5, 0.6, DefaultContainsThreshold, 0.9} {
			assert.Equal(t, score >= threshold, ContainsFuzzy(c[0], c[1], threshold),
				"needle %q haystack %q threshold %.2f", c[0], c[1], threshold)
		}
	}
	assert.Equal(t, 1.0, ContainsScore("chat", "le chat noir"))
}
