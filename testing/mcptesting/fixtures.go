package mcptesting

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
)

// TextResult builds a reply with a single text block.
func TextResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

// JSONResult builds a reply whose text block is v encoded as JSON.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return mcp.NewToolResultText(string(data))
}

// StructuredResult builds a reply carrying structured content.
func StructuredResult(v any) *mcp.CallToolResult {
	data, _ := json.Marshal(v)
	return mcp.NewToolResultStructured(v, string(data))
}

// ImageResult builds a reply with one base64 image block.
func ImageResult(mimeType string, data []byte) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewImageContent(base64.StdEncoding.EncodeToString(data), mimeType),
		},
	}
}

// ErrorResult builds a reply flagged isError.
func ErrorResult(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// DiscardLogger returns a logger for tests; MCP_BRIDGE_TEST_VERBOSE=true logs to stderr.
func DiscardLogger() *slog.Logger {
	if os.Getenv("MCP_BRIDGE_TEST_VERBOSE") == "true" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
