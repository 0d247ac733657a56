package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server/auth"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/linear"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
)

// ToolStatus represents the high-level status of a tool call
type ToolStatus string

const (
	ToolStatusOK      ToolStatus = "ok"
	ToolStatusError   ToolStatus = "error"
	ToolStatusPartial ToolStatus = "partial"
)

// Error codes shared by every bridge tool.
const (
	CodeInvalidParams       = "invalid_params"
	CodeServerNotFound      = "server_not_found"
	CodeToolBlocked         = "tool_blocked"
	CodeReadOnly            = "read_only"
	CodeUpstreamToolError   = "upstream_tool_error"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeTimeout             = "timeout"
	CodeLinearGraphQL       = "linear_graphql_error"
	CodeLinearNoAPIKey      = "linear_api_key_missing"
	CodeInternal            = "internal_error"
)

// ToolLink provides follow-up actions for LLMs to chain safely
type ToolLink struct {
	Rel    string         `json:"rel"`
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

// ToolResponse is the canonical envelope returned by tools
type ToolResponse struct {
	Status    ToolStatus `json:"status"`
	Code      string     `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
	RequestID string     `json:"requestId,omitempty"`
	Data      any        `json:"data,omitempty"`
	Links     []ToolLink `json:"links,omitempty"`
	Hint      string     `json:"hint,omitempty"`
}

// marshal pretty JSON for readability in clients
func (r ToolResponse) marshal(logger *slog.Logger) string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		if logger != nil {
			logger.Error("failed to marshal tool response", "error", err, "code", r.Code)
		}
		fallback := ToolResponse{Status: ToolStatusError, Code: "tool_response_marshal_error", Message: "failed to serialize tool response"}
		fb, _ := json.MarshalIndent(fallback, "", "  ")
		return string(fb)
	}
	return string(b)
}

// NewResult builds an MCP result from a ToolResponse in one line
func NewResult(resp ToolResponse) *mcp.CallToolResult {
	return NewResultWithLogger(resp, nil)
}

// NewResultWithLogger builds an MCP result from a ToolResponse using the provided logger
func NewResultWithLogger(resp ToolResponse, logger *slog.Logger) *mcp.CallToolResult {
	if resp.RequestID == "" {
		resp.RequestID = uuid.NewString()
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(resp.marshal(logger))},
		IsError: resp.Status == ToolStatusError,
	}
}

// OK is a convenience for success responses
func OK(message string, data any) *mcp.CallToolResult {
	return NewResult(ToolResponse{Status: ToolStatusOK, Message: message, Data: data})
}

// OKWithLinks is OK plus follow-up suggestions.
func OKWithLinks(message string, data any, links ...ToolLink) *mcp.CallToolResult {
	return NewResult(ToolResponse{Status: ToolStatusOK, Message: message, Data: data, Links: links})
}

// Error is a convenience for error responses
func Error(code, message, hint string, data any) *mcp.CallToolResult {
	return NewResult(ToolResponse{Status: ToolStatusError, Code: code, Message: message, Hint: hint, Data: data})
}

// Partial is a convenience for partial success responses
func Partial(message string, data any) *mcp.CallToolResult {
	return NewResult(ToolResponse{Status: ToolStatusPartial, Message: message, Data: data})
}

// WithImage appends an image block after the envelope text.
func WithImage(result *mcp.CallToolResult, mimeType string, data []byte) *mcp.CallToolResult {
	result.Content = append(result.Content, mcp.NewImageContent(base64.StdEncoding.EncodeToString(data), mimeType))
	return result
}

// FromError maps bridge and upstream failures to an error envelope.
func FromError(err error) *mcp.CallToolResult {
	code, hint := classifyError(err)
	return Error(code, err.Error(), hint, nil)
}

func classifyError(err error) (code, hint string) {
	var gqlErr *linear.GraphQLError
	switch {
	case isParamError(err):
		return CodeInvalidParams, "Check the tool's input schema and retry."
	case auth.IsReadOnlyViolation(err):
		return CodeReadOnly, "The bridge runs with security.read_only; only read tools are available."
	case mcpclient.IsBlocked(err):
		return CodeToolBlocked, "The tool matches security.blocked_tools."
	case toolserver.IsServerNotFound(err):
		return CodeServerNotFound, "Use list_servers to see the configured upstream servers."
	case errors.Is(err, linear.ErrNoAPIKey):
		return CodeLinearNoAPIKey, "Run 'mcp-bridge auth set linear' or set LINEAR_API_KEY."
	case errors.As(err, &gqlErr):
		return CodeLinearGraphQL, "Linear rejected the request; check ids and names against list tools."
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, "The upstream server did not answer in time; retry or raise the server timeout."
	case mcpclient.IsToolError(err):
		return CodeUpstreamToolError, ""
	case mcpclient.IsTransportFailure(err):
		return CodeUpstreamUnavailable, "Make sure the upstream MCP server is running and reachable."
	}
	return CodeInternal, ""
}
