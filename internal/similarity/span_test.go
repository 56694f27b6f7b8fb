package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTextSpan(t *testing.T) {
	span := NewTextSpan("  le   chat\tnoir \n")
	assert.Equal(t, []string{"le", "chat", "noir"}, span.Words)
	assert.Equal(t, 3, span.Len())
	assert.Equal(t, "  le   chat\tnoir \n", span.Text, "original text is kept verbatim")
}

func TestTextSpanWindows(t *testing.T) {
	span := NewTextSpan("a b c d")

	assert.Equal(t, []string{"a", "b", "c", "d"}, span.Windows(1))
	assert.Equal(t, []string{"a b", "b c", "c d"}, span.Windows(2))
	assert.Equal(t, []string{"a b c d"}, span.Windows(4))
	assert.Empty(t, span.Windows(5))
	assert.Empty(t, span.Windows(0))
	assert.Empty(t, span.Windows(-1))
	assert.Empty(t, NewTextSpan("").Windows(1))
}
