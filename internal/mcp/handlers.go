package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/csplab/linkage/internal/dedup"
	"github.com/csplab/linkage/internal/matcher"
	"github.com/csplab/linkage/internal/reference"
	"github.com/csplab/linkage/internal/similarity"
)

type SimilarityResponse struct {
	EditDistance int     `json:"edit_distance"`
	Ratio        float64 `json:"ratio"`
	Threshold    float64 `json:"threshold"`
	Matches      bool    `json:"matches"`
}

type FuzzyContainsResponse struct {
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Matches   bool    `json:"matches"`
}

type SemanticMatchResponse struct {
	Strategy  string          `json:"strategy"`
	Outcome   matcher.Outcome `json:"outcome"`
	Score     float64         `json:"score"`
	Threshold float64         `json:"threshold"`
	Error     string          `json:"error,omitempty"`
}

type DeduplicateResponse struct {
	Entities []dedup.MergedEntity `json:"entities"`
	Summary  dedup.Summary        `json:"summary"`
}

type SelectReferenceResponse struct {
	Selected   map[string]reference.Candidate `json:"selected"`
	Unresolved []string                       `json:"unresolved"`
	Threshold  int                            `json:"threshold"`
}

func arguments(req *mcp.CallToolRequest) []byte {
	if req == nil || req.Params == nil {
		return nil
	}
	return req.Params.Arguments
}

func (s *Server) handleSimilarity(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p SimilarityParams
	warnings, err := decodeParams(arguments(req), &p)
	if err != nil {
		return nil, err
	}
	threshold, err := thresholdOrDefault(p.Threshold, s.cfg.Matching.EditThreshold)
	if err != nil {
		return nil, err
	}

	ratio := similarity.Ratio(p.A, p.B)
	return createResponseWithWarnings(SimilarityResponse{
		EditDistance: similarity.EditDistance(p.A, p.B),
		Ratio:        ratio,
		Threshold:    threshold,
		Matches:      ratio >= threshold,
	}, warnings)
}

func (s *Server) handleFuzzyContains(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p FuzzyContainsParams
	warnings, err := decodeParams(arguments(req), &p)
	if err != nil {
		return nil, err
	}
	threshold, err := thresholdOrDefault(p.Threshold, s.cfg.Matching.ContainsThreshold)
	if err != nil {
		return nil, err
	}

	score := similarity.ContainsScore(p.Needle, p.Haystack)
	return createResponseWithWarnings(FuzzyContainsResponse{
		Score:     score,
		Threshold: threshold,
		Matches:   score >= threshold,
	}, warnings)
}

func (s *Server) handleSemanticMatch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p SemanticMatchParams
	warnings, err := decodeParams(arguments(req), &p)
	if err != nil {
		return nil, err
	}

	var strategy matcher.Strategy
	switch strings.ToLower(p.Strategy) {
	case "", "semantic":
		threshold, err := thresholdOrDefault(p.Threshold, s.cfg.Matching.SemanticThreshold)
		if err != nil {
			return nil, err
		}
		anchor := s.cfg.Matching.AnchorWord
		if p.Anchor != nil {
			anchor = *p.Anchor
		}
		strategy = matcher.Semantic(threshold, anchor)
	case "window", "sliding_window":
		threshold, err := thresholdOrDefault(p.Threshold, s.cfg.Matching.WindowThreshold)
		if err != nil {
			return nil, err
		}
		strategy = matcher.SlidingWindow(threshold)
	default:
		return nil, fmt.Errorf("unknown strategy %q (want semantic or window)", p.Strategy)
	}

	res := s.matcher.EvaluateStrategy(ctx, strategy, p.Text1, p.Text2)
	resp := SemanticMatchResponse{
		Strategy:  strategy.Kind.String(),
		Outcome:   res.Outcome,
		Score:     res.Score,
		Threshold: strategy.Threshold,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return createResponseWithWarnings(resp, warnings)
}

func (s *Server) handleDeduplicate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p DeduplicateParams
	warnings, err := decodeParams(arguments(req), &p)
	if err != nil {
		return nil, err
	}
	for i, r := range p.Rows {
		if strings.TrimSpace(r.PrimaryKey) == "" {
			return nil, fmt.Errorf("row %d: primary_key is required", i)
		}
	}

	entities, summary := dedup.DeduplicateWithSummary(p.Rows)
	return createResponseWithWarnings(DeduplicateResponse{Entities: entities, Summary: summary}, warnings)
}

func (s *Server) handleSelectReference(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p SelectReferenceParams
	warnings, err := decodeParams(arguments(req), &p)
	if err != nil {
		return nil, err
	}
	if p.Threshold < 0 {
		return nil, errors.New("threshold must not be negative")
	}
	threshold := p.Threshold
	if threshold == 0 {
		threshold = s.cfg.Reference.FrequencyThreshold
	}

	entities := make(map[string][]reference.RawCitation, len(p.Entities))
	for entity, citations := range p.Entities {
		raw := make([]reference.RawCitation, 0, len(citations))
		for _, c := range citations {
			raw = append(raw, reference.RawCitation{
				ReferenceID: c.ReferenceID,
				Nature:      reference.ParseNature(c.Nature),
				Description: c.Description,
			})
		}
		entities[entity] = raw
	}

	selector := reference.NewSelector(threshold)
	selected := selector.SelectAll(entities)

	unresolved := make([]string, 0)
	for _, entity := range reference.SortedEntities(entities) {
		if _, ok := selected[entity]; !ok {
			unresolved = append(unresolved, entity)
		}
	}
	return createResponseWithWarnings(SelectReferenceResponse{
		Selected:   selected,
		Unresolved: unresolved,
		Threshold:  selector.Threshold,
	}, warnings)
}

// thresholdOrDefault keeps an explicit threshold in (0,1] and falls back to def when unset
func thresholdOrDefault(threshold, def float64) (float64, error) {
	switch {
	case threshold == 0:
		return def, nil
	case threshold < 0 || threshold > 1:
		return 0, fmt.Errorf("threshold %.2f out of range (0,1]", threshold)
	}
	return threshold, nil
}
