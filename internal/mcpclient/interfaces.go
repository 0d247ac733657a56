package mcpclient

import (
	"context"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolCaller is the slice of an MCP client session the pool needs.
// *client.Client from mcp-go satisfies it.
type ToolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	Close() error
}

// Dialer connects to an upstream server and completes the initialize handshake.
type Dialer func(ctx context.Context, cfg toolserver.ServerConfig) (ToolCaller, error)

// ServerLookup resolves server names; *toolserver.Registry implements it.
type ServerLookup interface {
	Lookup(name string) (toolserver.ServerConfig, error)
}

// Caller is what the typed wrappers depend on.
type Caller interface {
	CallTool(ctx context.Context, server, tool string, params any) (*Result, error)
	IsTransportFailure(err error) bool
}

// ToolLister lists an upstream server's tools.
type ToolLister interface {
	ListTools(ctx context.Context, server string) ([]mcp.Tool, error)
}
