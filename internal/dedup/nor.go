package dedup

import (
	"fmt"
	"regexp"
	"strconv"
)

// norLength is the fixed width of a NOR: AAAA YY SSSSS L
const norLength = 12

var norPattern = regexp.MustCompile(`^[A-Z]{4}\d{7}[A-Z]$`)

// NOR is a validated French official-text identifier, e.g. MENH2435486A:
// four letters for the issuing office, two year digits, a five digit
// sequence and a control letter.
type NOR string

// ParseNOR validates s
func ParseNOR(s string) (NOR, error) {
	if !norPattern.MatchString(s) {
		return "", fmt.Errorf("invalid NOR format: %q", s)
	}
	return NOR(s), nil
}

// IsValidNOR reports whether s has the NOR layout
func IsValidNOR(s string) bool {
	return norPattern.MatchString(s)
}

// Year returns the full year, assuming 20YY
func (n NOR) Year() int {
	yy, _ := strconv.Atoi(string(n[4:6]))
	return 2000 + yy
}

// Sequence returns the five digit sequence number
func (n NOR) Sequence() int {
	seq, _ := strconv.Atoi(string(n[6:11]))
	return seq
}

func (n NOR) String() string {
	return string(n)
}

// SortKey orders identifiers most-recent-last: yy*100000 + sequence, read
// at the NOR offsets. Anything that is not 12 characters long or whose
// fragments are not digits scores 0 and so never wins a group. A key that
// decodes is accepted even when implausible.
func SortKey(id string) int64 {
	if len(id) != norLength {
		return 0
	}
	yy, ok := digits(id[4:6])
	if !ok {
		return 0
	}
	seq, ok := digits(id[6:11])
	if !ok {
		return 0
	}
	return yy*100000 + seq
}

func digits(s string) (int64, bool) {
	var v int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	return v, true
}
