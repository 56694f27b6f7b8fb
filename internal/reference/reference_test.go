package reference

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNature(t *testing.T) {
	tests := []struct {
		label    string
		expected Nature
	}{
		{"Texte d'origine", Origin},
		{"origine", Origin},
		{"ORIGIN", Origin},
		{"Texte modificatif", Amending},
		{"modificatif", Amending},
		{"amending", Amending},
		{"Texte abrogé", Other},
		{"", Other},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseNature(tt.label), "ParseNature(%q)", tt.label)
	}
}

func TestSelectPrefersOriginOverRarerAmending(t *testing.T) {
	s := NewSelector(20)

	got, ok := s.Select([]Candidate{
		{ReferenceID: "2007-119", Nature: Origin, CorpusFrequency: 3},
		{ReferenceID: "90-973", Nature: Amending, CorpusFrequency: 1},
	})

	require.True(t, ok)
	assert.Equal(t, "2007-119", got.ReferenceID)
}

func TestSelectRejectsGenericReference(t *testing.T) {
	s := NewSelector(20)

	_, ok := s.Select([]Candidate{{ReferenceID: "84-16", Nature: Origin, CorpusFrequency: 500}})
	assert.False(t, ok)
}

func TestSelectCascade(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		want       string // empty means no selection
	}{
		{
			name:       "empty input",
			candidates: nil,
		},
		{
			name: "threshold is inclusive",
			candidates: []Candidate{
				{ReferenceID: "2010-1", Nature: Other, CorpusFrequency: 20},
			},
			want: "2010-1",
		},
		{
			name: "frequent origin loses to rare amending",
			candidates: []Candidate{
				{ReferenceID: "84-16", Nature: Origin, CorpusFrequency: 21},
				{ReferenceID: "2016-1234", Nature: Amending, CorpusFrequency: 2},
			},
			want: "2016-1234",
		},
		{
			name: "lowest frequency origin",
			candidates: []Candidate{
				{ReferenceID: "2002-1", Nature: Origin, CorpusFrequency: 5},
				{ReferenceID: "2003-2", Nature: Origin, CorpusFrequency: 2},
				{ReferenceID: "2004-3", Nature: Amending, CorpusFrequency: 1},
			},
			want: "2003-2",
		},
		{
			name: "amending before other",
			candidates: []Candidate{
				{ReferenceID: "2002-1", Nature: Other, CorpusFrequency: 1},
				{ReferenceID: "2003-2", Nature: Amending, CorpusFrequency: 4},
			},
			want: "2003-2",
		},
		{
			name: "other when nothing else",
			candidates: []Candidate{
				{ReferenceID: "2002-1", Nature: Other, CorpusFrequency: 7},
				{ReferenceID: "2003-2", Nature: Other, CorpusFrequency: 4},
			},
			want: "2003-2",
		},
		{
			name: "malformed ids are never selected",
			candidates: []Candidate{
				{ReferenceID: "JORF n°0123", Nature: Origin, CorpusFrequency: 1},
				{ReferenceID: "2003", Nature: Origin, CorpusFrequency: 1},
				{ReferenceID: "1-12", Nature: Origin, CorpusFrequency: 1},
			},
		},
		{
			name: "malformed origin skipped for valid amending",
			candidates: []Candidate{
				{ReferenceID: "arrêté du 3 mai", Nature: Origin, CorpusFrequency: 1},
				{ReferenceID: "2003-2", Nature: Amending, CorpusFrequency: 9},
			},
			want: "2003-2",
		},
		{
			name: "equal frequency broken by id",
			candidates: []Candidate{
				{ReferenceID: "2010-5", Nature: Origin, CorpusFrequency: 2},
				{ReferenceID: "2009-7", Nature: Origin, CorpusFrequency: 2},
			},
			want: "2009-7",
		},
	}

	s := NewSelector(DefaultThreshold)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Select(tt.candidates)
			if tt.want == "" {
				assert.False(t, ok, "unexpected selection %+v", got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got.ReferenceID)
		})
	}
}

func TestSelectIsOrderIndependent(t *testing.T) {
	s := NewSelector(20)
	a := []Candidate{
		{ReferenceID: "2010-5", Nature: Origin, CorpusFrequency: 2},
		{ReferenceID: "2009-7", Nature: Origin, CorpusFrequency: 2},
		{ReferenceID: "2001-1", Nature: Amending, CorpusFrequency: 1},
	}
	b := []Candidate{a[2], a[0], a[1]}

	ga, _ := s.Select(a)
	gb, _ := s.Select(b)
	assert.Equal(t, ga, gb)
}

func TestNewSelectorDefaults(t *testing.T) {
	s := NewSelector(0)
	assert.Equal(t, DefaultThreshold, s.Threshold)
	assert.Equal(t, DefaultFormat, s.Format)
}

func TestSelectCustomFormat(t *testing.T) {
	s := &Selector{Threshold: 20, Format: regexp.MustCompile(`^[A-Z]{4}\d{7}[A-Z]$`)}

	got, ok := s.Select([]Candidate{
		{ReferenceID: "2007-119", Nature: Origin, CorpusFrequency: 1},
		{ReferenceID: "MENH2435486A", Nature: Other, CorpusFrequency: 1},
	})
	require.True(t, ok)
	assert.Equal(t, "MENH2435486A", got.ReferenceID)

	// a zero Selector still validates with the default format
	zero := &Selector{Threshold: 20}
	_, ok = zero.Select([]Candidate{{ReferenceID: "bad", CorpusFrequency: 1}})
	assert.False(t, ok)
}

func TestCorpusFrequencies(t *testing.T) {
	freq := CorpusFrequencies(map[string][]string{
		"corps-1": {"84-16", "2007-119", "84-16"}, // repeated citation counts once
		"corps-2": {"84-16"},
		"corps-3": {"84-16", "90-973"},
	})

	assert.Equal(t, map[string]int{"84-16": 3, "2007-119": 1, "90-973": 1}, freq)
}

func TestSelectAll(t *testing.T) {
	entities := map[string][]RawCitation{
		"attachés": {
			{ReferenceID: "84-16", Nature: Other},
			{ReferenceID: "2011-1317", Nature: Origin, Description: "statut particulier du corps interministériel des attachés"},
		},
		"secrétaires": {
			{ReferenceID: "84-16", Nature: Other},
			{ReferenceID: "2010-302", Nature: Amending},
		},
		"orphan": {
			{ReferenceID: "84-16", Nature: Origin},
		},
	}

	selected := NewSelector(2).SelectAll(entities)

	require.Contains(t, selected, "attachés")
	assert.Equal(t, "2011-1317", selected["attachés"].ReferenceID)
	assert.Equal(t, 1, selected["attachés"].CorpusFrequency)
	assert.NotEmpty(t, selected["attachés"].Description)

	assert.Equal(t, "2010-302", selected["secrétaires"].ReferenceID)
	assert.NotContains(t, selected, "orphan", "84-16 is cited by 3 entities, above the threshold of 2")

	assert.Equal(t, []string{"attachés", "orphan", "secrétaires"}, SortedEntities(entities))
}
