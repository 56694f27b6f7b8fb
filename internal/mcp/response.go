package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse reports a tool failure inside the result with IsError
// set, so the client sees it instead of a protocol error.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}
	if help := getOperationHelp(operation); help != "" {
		errorData["help"] = help
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// createResponseWithWarnings adds a "warnings" field to the JSON object of data
func createResponseWithWarnings(data interface{}, warnings []string) (*mcp.CallToolResult, error) {
	response, err := createJSONResponse(data)
	if err != nil || len(warnings) == 0 {
		return response, err
	}

	text := response.Content[0].(*mcp.TextContent).Text
	var responseData map[string]interface{}
	if err := json.Unmarshal([]byte(text), &responseData); err != nil {
		return response, nil
	}
	responseData["warnings"] = warnings
	return createJSONResponse(responseData)
}

func getOperationHelp(operation string) string {
	switch operation {
	case toolSimilarity:
		return `{"a": "text", "b": "text", "threshold": 0.6}`
	case toolFuzzyContains:
		return `{"needle": "text", "haystack": "text", "threshold": 0.7}`
	case toolSemanticMatch:
		return `{"text1": "text", "text2": "text", "strategy": "semantic|window", "threshold": 0.8, "anchor": "word"}`
	case toolDeduplicate:
		return `{"rows": [{"primary_key": "NOR", "secondary_key": "reference NOR", "group": "corps"}]}`
	case toolSelectReference:
		return `{"entities": {"corps": [{"reference_id": "2011-1317", "nature": "Texte d'origine"}]}, "threshold": 20}`
	}
	return ""
}
