package mcp

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/csplab/linkage/internal/dedup"
)

// toolParams are the decoded arguments of one tool
type toolParams interface {
	knownFields() map[string]struct{}
}

type SimilarityParams struct {
	A         string  `json:"a"`
	B         string  `json:"b"`
	Threshold float64 `json:"threshold,omitempty"`
}

func (SimilarityParams) knownFields() map[string]struct{} {
	return fields("a", "b", "threshold")
}

type FuzzyContainsParams struct {
	Needle    string  `json:"needle"`
	Haystack  string  `json:"haystack"`
	Threshold float64 `json:"threshold,omitempty"`
}

func (FuzzyContainsParams) knownFields() map[string]struct{} {
	return fields("needle", "haystack", "threshold")
}

type SemanticMatchParams struct {
	Text1     string  `json:"text1"`
	Text2     string  `json:"text2"`
	Strategy  string  `json:"strategy,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Anchor    *string `json:"anchor,omitempty"` // nil means the configured anchor word
}

func (SemanticMatchParams) knownFields() map[string]struct{} {
	return fields("text1", "text2", "strategy", "threshold", "anchor")
}

type DeduplicateParams struct {
	Rows []dedup.Row `json:"rows"`
}

func (DeduplicateParams) knownFields() map[string]struct{} {
	return fields("rows")
}

// CitationParam is a cited text with its nature as a free label
type CitationParam struct {
	ReferenceID string `json:"reference_id"`
	Nature      string `json:"nature,omitempty"`
	Description string `json:"description,omitempty"`
}

type SelectReferenceParams struct {
	Entities  map[string][]CitationParam `json:"entities"`
	Threshold int                        `json:"threshold,omitempty"`
}

func (SelectReferenceParams) knownFields() map[string]struct{} {
	return fields("entities", "threshold")
}

func fields(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// decodeParams unmarshals tool arguments into p. Unknown fields are not
// errors; they come back as warnings for the response.
func decodeParams(data json.RawMessage, p toolParams) ([]string, error) {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}

	_, unknown, err := collectUnknownFields(data, p.knownFields())
	if err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	warnings := make([]string, 0, len(unknown))
	for _, u := range unknown {
		warnings = append(warnings, fmt.Sprintf("unknown parameter %q ignored", u.Name))
	}
	sort.Strings(warnings)
	return warnings, nil
}
