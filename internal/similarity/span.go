package similarity

import "strings"

// TextSpan is an immutable string together with its whitespace-split words
type TextSpan struct {
	Text  string
	Words []string
}

// NewTextSpan tokenizes s on whitespace, preserving word order
func NewTextSpan(s string) TextSpan {
	return TextSpan{Text: s, Words: strings.Fields(s)}
}

// Len returns the number of words in the span
func (s TextSpan) Len() int {
	return len(s.Words)
}

// Windows returns every contiguous run of size words joined by single spaces.
// There are Len()-size+1 windows; none when size is not positive or exceeds Len().
func (s TextSpan) Windows(size int) []string {
	if size <= 0 {
		return nil
	}
	count := len(s.Words) - size + 1
	if count <= 0 {
		return nil
	}

	windows := make([]string, 0, count)
	for i := 0; i < count; i++ {
		windows = append(windows, strings.Join(s.Words[i:i+size], " "))
	}
	return windows
}
