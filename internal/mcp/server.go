// Package mcp exposes the linkage engine as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/csplab/linkage/internal/config"
	linkdebug "github.com/csplab/linkage/internal/debug"
	"github.com/csplab/linkage/internal/matcher"
	"github.com/csplab/linkage/internal/version"
)

const (
	toolSimilarity      = "similarity"
	toolFuzzyContains   = "fuzzy_contains"
	toolSemanticMatch   = "semantic_match"
	toolDeduplicate     = "deduplicate"
	toolSelectReference = "select_reference"
)

type toolHandler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Server registers the engine tools on an MCP server
type Server struct {
	cfg      *config.Config
	matcher  *matcher.SemanticMatcher
	server   *mcp.Server
	handlers map[string]toolHandler
}

// NewServer creates the tool server. semantic_match is only registered when
// m carries an embedding cache.
func NewServer(cfg *config.Config, m *matcher.SemanticMatcher) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mcp server needs a config")
	}
	if m == nil {
		m = matcher.New(nil)
	}

	s := &Server{
		cfg:      cfg,
		matcher:  m,
		handlers: make(map[string]toolHandler),
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "csplab-mcp-server",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	linkdebug.LogMCP("registered tools: %v\n", s.ToolNames())
	return s, nil
}

func (s *Server) addTool(tool *mcp.Tool, h toolHandler) {
	wrapped := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.recoverFromPanic(tool.Name, func() (*mcp.CallToolResult, error) {
			return h(ctx, req)
		})
	}
	s.handlers[tool.Name] = wrapped
	s.server.AddTool(tool, wrapped)
}

func (s *Server) registerTools() {
	s.addTool(&mcp.Tool{
		Name:        toolSimilarity,
		Description: "Edit distance and normalized similarity ratio (case-insensitive) between two strings.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"a":         {Type: "string", Description: "First text"},
				"b":         {Type: "string", Description: "Second text"},
				"threshold": {Type: "number", Description: "Ratio needed for a match (default from config, 0.6)"},
			},
			Required: []string{"a", "b"},
		},
	}, s.handleSimilarity)

	s.addTool(&mcp.Tool{
		Name:        toolFuzzyContains,
		Description: "Whether a short text approximately appears inside a longer one, comparing word windows of the short text's length.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"needle":    {Type: "string", Description: "Short text to look for"},
				"haystack":  {Type: "string", Description: "Longer text"},
				"threshold": {Type: "number", Description: "Window ratio needed (default from config, 0.7)"},
			},
			Required: []string{"needle", "haystack"},
		},
	}, s.handleFuzzyContains)

	if s.matcher.Cache() != nil {
		s.addTool(&mcp.Tool{
			Name:        toolSemanticMatch,
			Description: "Embedding cosine comparison of two texts. Outcome is match, no_match or indeterminate when the provider fails.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"text1":     {Type: "string", Description: "First text (the short one for window)"},
					"text2":     {Type: "string", Description: "Second text"},
					"strategy":  {Type: "string", Description: "semantic (default) or window", Enum: []any{"semantic", "window"}},
					"threshold": {Type: "number", Description: "Cosine score needed (default from config)"},
					"anchor":    {Type: "string", Description: "Compare only the part of text2 after this word (semantic only; default from config, empty disables)"},
				},
				Required: []string{"text1", "text2"},
			},
		}, s.handleSemanticMatch)
	}

	rowSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"primary_key":   {Type: "string", Description: "Row identifier (NOR)"},
			"secondary_key": {Type: "string", Description: "Reference identifier, empty when none"},
			"group":         {Type: "string", Description: "Grouping attribute (corps)"},
			"fields":        {Type: "object", Description: "Other columns, carried to the output"},
		},
		Required: []string{"primary_key"},
	}
	s.addTool(&mcp.Tool{
		Name:        toolDeduplicate,
		Description: "Merge rows describing the same entity; the most recent identifier wins and every merged identifier is kept.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"rows": {Type: "array", Items: rowSchema, Description: "Rows to deduplicate"},
			},
			Required: []string{"rows"},
		},
	}, s.handleDeduplicate)

	citationSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"reference_id": {Type: "string", Description: "Text identifier, e.g. 2011-1317"},
			"nature":       {Type: "string", Description: "Nature label (origine, modificatif, ...)"},
			"description":  {Type: "string", Description: "Text title"},
		},
		Required: []string{"reference_id"},
	}
	s.addTool(&mcp.Tool{
		Name:        toolSelectReference,
		Description: "Pick the canonical defining text of each entity among its citations, using frequencies across the given entities.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"entities": {
					Type:                 "object",
					Description:          "Citations per entity",
					AdditionalProperties: &jsonschema.Schema{Type: "array", Items: citationSchema},
				},
				"threshold": {Type: "integer", Description: "Texts cited by more entities than this are ignored (default from config, 20)"},
			},
			Required: []string{"entities"},
		},
	}, s.handleSelectReference)
}

// recoverFromPanic turns handler panics and errors into error results
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			linkdebug.LogMCP("PANIC RECOVERED in %s: %v\n%s\n", operation, r, debug.Stack())
			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		linkdebug.LogMCP("error in %s: %v\n", operation, err)
		return createErrorResponse(operation, err)
	}
	return result, nil
}

// ToolNames lists the registered tools in lexical order
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start serves over stdio until ctx is done or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	linkdebug.SetMCPMode(true)
	linkdebug.LogMCP("starting MCP server with stdio transport\n")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// GetHandlerForTesting returns a handler function for testing purposes
func (s *Server) GetHandlerForTesting(toolName string) toolHandler {
	if h, ok := s.handlers[toolName]; ok {
		return h
	}
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return createErrorResponse("GetHandlerForTesting", fmt.Errorf("unknown tool: %s", toolName))
	}
}
