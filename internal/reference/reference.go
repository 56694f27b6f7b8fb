// Package reference picks the canonical legal text of an entity among the
// texts it cites.
//
// Corpus frequency is an inverse proxy for specificity: a text cited by many
// entities of the batch is an umbrella text, not the one defining any of
// them. Selection therefore drops frequent texts, keeps well-formed
// identifiers, then prefers originating texts over amendments and rarer
// texts over common ones.
package reference

import (
	"regexp"
	"sort"
	"strings"

	"github.com/csplab/linkage/internal/debug"
)

// DefaultThreshold is the highest corpus frequency a selectable text may have
const DefaultThreshold = 20

// DefaultFormat accepts identifiers such as 2007-119 or 90-973
var DefaultFormat = regexp.MustCompile(`^\d{2,4}-\d+$`)

// Nature of a cited text
type Nature int

const (
	Other Nature = iota
	Origin
	Amending
)

func (n Nature) String() string {
	switch n {
	case Origin:
		return "origin"
	case Amending:
		return "amending"
	default:
		return "other"
	}
}

// MarshalText renders the nature name in JSON output
func (n Nature) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// ParseNature maps a nature label ("Texte d'origine", "Texte modificatif",
// "origin", ...) to a Nature. Unknown labels are Other.
func ParseNature(label string) Nature {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "origin"):
		return Origin
	case strings.Contains(l, "modificatif"), strings.Contains(l, "amend"):
		return Amending
	}
	return Other
}

// Candidate is one text cited by an entity
type Candidate struct {
	ReferenceID     string `json:"reference_id"`
	Nature          Nature `json:"nature"`
	CorpusFrequency int    `json:"corpus_frequency"`
	Description     string `json:"description,omitempty"`
}

// Selector runs the selection cascade
type Selector struct {
	Threshold int
	Format    *regexp.Regexp
}

// NewSelector creates a selector with DefaultFormat. threshold <= 0 selects DefaultThreshold.
func NewSelector(threshold int) *Selector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Selector{Threshold: threshold, Format: DefaultFormat}
}

// Select returns the canonical candidate, or false when none is acceptable:
//  1. candidates cited more than Threshold times are dropped
//  2. identifiers not matching Format are dropped; there is no fallback to them
//  3. the rarest Origin text wins, else the rarest Amending text, else the rarest of any nature
//
// Equal frequencies are ordered by ReferenceID.
func (s *Selector) Select(candidates []Candidate) (Candidate, bool) {
	format := s.Format
	if format == nil {
		format = DefaultFormat
	}

	var eligible []Candidate
	frequent, malformed := 0, 0
	for _, c := range candidates {
		switch {
		case c.CorpusFrequency > s.Threshold:
			frequent++
		case !format.MatchString(c.ReferenceID):
			malformed++
		default:
			eligible = append(eligible, c)
		}
	}

	if len(eligible) == 0 {
		debug.LogDedup("no reference selected among %d candidates (%d too frequent, %d malformed)\n",
			len(candidates), frequent, malformed)
		return Candidate{}, false
	}

	if c, ok := rarest(eligible, Origin); ok {
		return c, true
	}
	if c, ok := rarest(eligible, Amending); ok {
		return c, true
	}
	c, _ := rarest(eligible, anyNature)
	return c, true
}

// anyNature matches every nature in rarest
const anyNature Nature = -1

// rarest returns the lowest-frequency candidate of nature
func rarest(candidates []Candidate, nature Nature) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range candidates {
		if nature != anyNature && c.Nature != nature {
			continue
		}
		if !found || less(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

func less(a, b Candidate) bool {
	if a.CorpusFrequency != b.CorpusFrequency {
		return a.CorpusFrequency < b.CorpusFrequency
	}
	return a.ReferenceID < b.ReferenceID
}

// RawCitation is a text cited by an entity, before frequencies are known
type RawCitation struct {
	ReferenceID string `json:"reference_id"`
	Nature      Nature `json:"nature"`
	Description string `json:"description,omitempty"`
}

// CorpusFrequencies counts, for each reference, the distinct entities citing it
func CorpusFrequencies(entities map[string][]string) map[string]int {
	freq := make(map[string]int)
	for _, refs := range entities {
		seen := make(map[string]struct{}, len(refs))
		for _, ref := range refs {
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			freq[ref]++
		}
	}
	return freq
}

// Candidates attaches batch frequencies to citations
func Candidates(citations []RawCitation, freq map[string]int) []Candidate {
	out := make([]Candidate, 0, len(citations))
	for _, c := range citations {
		out = append(out, Candidate{
			ReferenceID:     c.ReferenceID,
			Nature:          c.Nature,
			CorpusFrequency: freq[c.ReferenceID],
			Description:     c.Description,
		})
	}
	return out
}

// SelectAll computes frequencies over the whole batch and selects a reference
// per entity. Entities without an acceptable reference are absent.
func (s *Selector) SelectAll(entities map[string][]RawCitation) map[string]Candidate {
	ids := make(map[string][]string, len(entities))
	for entity, citations := range entities {
		for _, c := range citations {
			ids[entity] = append(ids[entity], c.ReferenceID)
		}
	}
	freq := CorpusFrequencies(ids)

	selected := make(map[string]Candidate, len(entities))
	for entity, citations := range entities {
		if c, ok := s.Select(Candidates(citations, freq)); ok {
			selected[entity] = c
		}
	}
	return selected
}

// SortedEntities returns the keys of entities in lexical order
func SortedEntities[T any](entities map[string]T) []string {
	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
