package mcptesting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
)

// Envelope mirrors the JSON document bridge tools answer with.
type Envelope struct {
	Status    string          `json:"status"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
	Hint      string          `json:"hint"`
	Links     []struct {
		Rel  string `json:"rel"`
		Tool string `json:"tool"`
	} `json:"links"`
}

// DecodeData unmarshals the envelope's data into v.
func (e Envelope) DecodeData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// CallRequest builds a tool call request with the given arguments.
func CallRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// InvokeTool finds name among tools and calls its handler.
func InvokeTool(ctx context.Context, tools []domain.Tool, name string, args map[string]any) (*mcp.CallToolResult, error) {
	for _, t := range tools {
		if t.Name == name {
			return t.Handler(ctx, CallRequest(name, args))
		}
	}
	return nil, fmt.Errorf("tool %s not found", name)
}

// ParseEnvelope decodes the first text block of a bridge tool result.
func ParseEnvelope(result *mcp.CallToolResult) (Envelope, error) {
	var env Envelope
	if result == nil || len(result.Content) == 0 {
		return env, fmt.Errorf("empty result")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		return env, fmt.Errorf("first content block is %T, not text", result.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), &env); err != nil {
		return env, fmt.Errorf("result is not an envelope: %w", err)
	}
	return env, nil
}

// ToolNames lists the names of tools in order.
func ToolNames(tools []domain.Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}
