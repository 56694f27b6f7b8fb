// Package dedup collapses raw registry rows that describe the same entity.
//
// Rows are grouped by an identity key (the reference key when present,
// otherwise the row's own key), the most recent row of each group wins, and
// every merged raw identifier is kept on the survivor. The result does not
// depend on input order.
package dedup

import (
	"sort"
	"strings"

	"github.com/csplab/linkage/internal/debug"
)

// Row is one raw input record
type Row struct {
	PrimaryKey   string            `json:"primary_key"`
	SecondaryKey string            `json:"secondary_key,omitempty"`
	Group        string            `json:"group"`
	Fields       map[string]string `json:"fields,omitempty"`

	// Merged carries identifiers folded into this row by an earlier run
	Merged []string `json:"merged,omitempty"`
}

// MergedEntity is the surviving row of a duplicate group
type MergedEntity struct {
	Key            string   `json:"key"`
	Row            Row      `json:"row"`
	AllIdentifiers []string `json:"all_identifiers"`
}

// AsRow turns the entity back into an input row that remembers its merged
// identifiers. The row's identity key is e.Key: when the entity fell back to
// its primary key, the reference key is dropped so a later run cannot
// re-key it once the competing groups are gone.
func (e MergedEntity) AsRow() Row {
	r := e.Row
	if candidateKey(r) != e.Key {
		r.SecondaryKey = ""
	}
	r.Merged = append([]string(nil), e.AllIdentifiers...)
	return r
}

// Summary describes one deduplication run
type Summary struct {
	Input         int `json:"input"`
	Output        int `json:"output"`
	Merged        int `json:"merged"`
	AmbiguousKeys int `json:"ambiguous_keys"`
	MalformedKeys int `json:"malformed_keys"`
}

func candidateKey(r Row) string {
	if r.SecondaryKey != "" {
		return r.SecondaryKey
	}
	return r.PrimaryKey
}

// ambiguousKeys returns the candidate keys shared by rows of more than one group
func ambiguousKeys(rows []Row) map[string]bool {
	groups := make(map[string]map[string]struct{})
	for _, r := range rows {
		k := candidateKey(r)
		if groups[k] == nil {
			groups[k] = make(map[string]struct{})
		}
		groups[k][r.Group] = struct{}{}
	}

	ambiguous := make(map[string]bool)
	for k, g := range groups {
		if len(g) > 1 {
			ambiguous[k] = true
		}
	}
	return ambiguous
}

// IdentityKeys returns the identity key of each row, aligned with rows.
// A row's key is its secondary key when set, else its primary key; a key
// observed with more than one distinct Group falls back to the primary key
// for every row carrying it.
func IdentityKeys(rows []Row) []string {
	ambiguous := ambiguousKeys(rows)
	keys := make([]string, len(rows))
	for i, r := range rows {
		k := candidateKey(r)
		if ambiguous[k] {
			k = r.PrimaryKey
		}
		keys[i] = k
	}
	return keys
}

// ComputeIdentityKey is IdentityKeys for a single row judged against its batch
func ComputeIdentityKey(row Row, batch []Row) string {
	k := candidateKey(row)
	seen := map[string]struct{}{row.Group: {}}
	for _, r := range batch {
		if candidateKey(r) == k {
			seen[r.Group] = struct{}{}
		}
	}
	if len(seen) > 1 {
		return row.PrimaryKey
	}
	return k
}

// beats reports whether a should represent the group instead of b: highest
// sort key, then smallest primary key. Exact duplicates of the primary key
// are ordered by their remaining content so no input order can leak through.
func beats(a, b Row) bool {
	ka, kb := SortKey(a.PrimaryKey), SortKey(b.PrimaryKey)
	if ka != kb {
		return ka > kb
	}
	if a.PrimaryKey != b.PrimaryKey {
		return a.PrimaryKey < b.PrimaryKey
	}
	return fingerprint(a) < fingerprint(b)
}

func fingerprint(r Row) string {
	var b strings.Builder
	b.WriteString(r.SecondaryKey)
	b.WriteByte(0)
	b.WriteString(r.Group)
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteByte(0)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(r.Fields[name])
	}
	for _, id := range r.Merged {
		b.WriteByte(0)
		b.WriteString(id)
	}
	return b.String()
}

// Deduplicate merges rows sharing an identity key. Output is sorted by Key.
func Deduplicate(rows []Row) []MergedEntity {
	entities, _ := DeduplicateWithSummary(rows)
	return entities
}

// DeduplicateWithSummary is Deduplicate plus run counters
func DeduplicateWithSummary(rows []Row) ([]MergedEntity, Summary) {
	summary := Summary{Input: len(rows)}
	keys := IdentityKeys(rows)
	summary.AmbiguousKeys = len(ambiguousKeys(rows))

	type group struct {
		winner Row
		ids    map[string]struct{}
	}
	groups := make(map[string]*group)

	for i, r := range rows {
		if r.PrimaryKey != "" && SortKey(r.PrimaryKey) == 0 {
			summary.MalformedKeys++
		}

		g, ok := groups[keys[i]]
		if !ok {
			g = &group{winner: r, ids: make(map[string]struct{})}
			groups[keys[i]] = g
		} else if beats(r, g.winner) {
			g.winner = r
		}

		if r.PrimaryKey != "" {
			g.ids[r.PrimaryKey] = struct{}{}
		}
		for _, id := range r.Merged {
			g.ids[id] = struct{}{}
		}
	}

	entities := make([]MergedEntity, 0, len(groups))
	for key, g := range groups {
		ids := make([]string, 0, len(g.ids))
		for id := range g.ids {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		entities = append(entities, MergedEntity{Key: key, Row: g.winner, AllIdentifiers: ids})
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Key < entities[j].Key
	})

	summary.Output = len(entities)
	summary.Merged = summary.Input - summary.Output
	debug.LogDedup("deduplicated %d rows into %d entities (%d ambiguous keys, %d malformed)\n",
		summary.Input, summary.Output, summary.AmbiguousKeys, summary.MalformedKeys)

	return entities, summary
}
