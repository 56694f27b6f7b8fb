package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortKey(t *testing.T) {
	tests := []struct {
		id       string
		expected int64
	}{
		{"MENH2435486A", 2435486},
		{"MENH2506115A", 2506115},
		{"ABCD9999999Z", 9999999}, // implausible but decodable
		{"abcd0000001x", 1},       // layout only, letters are not checked
		{"", 0},
		{"MENH2435486", 0},
		{"MENH2435486AB", 0},
		{"MENHAB35486A", 0},
		{"MENH24354X6A", 0},
		{"MENH24 5486A", 0},
	}

	for _, tt := range tests {
		if got := SortKey(tt.id); got != tt.expected {
			t.Errorf("SortKey(%q) = %d, expected %d", tt.id, got, tt.expected)
		}
	}
}

func TestSortKeyOrdersChronologically(t *testing.T) {
	assert.Greater(t, SortKey("MENH2506115A"), SortKey("MENH2435486A"))
	assert.Greater(t, SortKey("MENH2400002A"), SortKey("MENH2400001A"))
	assert.Greater(t, SortKey("MENH2400001A"), SortKey("garbage"))
}

func TestParseNOR(t *testing.T) {
	n, err := ParseNOR("MENH2435486A")
	require.NoError(t, err)
	assert.Equal(t, 2024, n.Year())
	assert.Equal(t, 35486, n.Sequence())
	assert.Equal(t, "MENH2435486A", n.String())

	for _, bad := range []string{"", "menh2435486a", "MENH243548A", "MEN12435486A", "MENH2435486AA", "MENH2435486 "} {
		_, err := ParseNOR(bad)
		assert.Error(t, err, "ParseNOR(%q)", bad)
		assert.False(t, IsValidNOR(bad))
	}
}
