package domain

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerPlugin represents the unified plugin interface
// Each plugin only needs to provide its basic information and capabilities
type ServerPlugin interface {
	ID() string
	Name() string
	Description() string
	Version() string

	// Upstream MCP server the plugin fronts (empty string means always active)
	UpstreamServer() string
}

// ResourceProvider defines plugins that can provide resources
type ResourceProvider interface {
	ServerPlugin
	GetResources(ctx context.Context) ([]Resource, error)
}

// ToolProvider defines plugins that can provide tools
type ToolProvider interface {
	ServerPlugin
	GetTools(ctx context.Context) ([]Tool, error)
}

// PromptProvider defines plugins that can provide prompts
type PromptProvider interface {
	ServerPlugin
	GetPrompts(ctx context.Context) ([]Prompt, error)
}

// Resource represents a plugin resource capability
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Handler     ResourceHandler
}

// Tool represents a plugin tool capability
type Tool struct {
	Name        string
	Description string
	Builder     func() mcp.Tool
	Handler     ToolHandler

	// Access is the static classification; empty means ClassifyTool(Name).
	Access ToolAccess
	// Classify overrides Access per request, for tools that proxy other tools.
	Classify func(req mcp.CallToolRequest) ToolAccess
}

// AccessFor resolves the access level of a single call.
func (t Tool) AccessFor(req mcp.CallToolRequest) ToolAccess {
	if t.Classify != nil {
		return t.Classify(req)
	}
	if t.Access != "" {
		return t.Access
	}
	return ClassifyTool(t.Name)
}

// Prompt represents a plugin prompt capability
type Prompt struct {
	Name        string
	Description string
	Builder     func() mcp.Prompt
	Handler     PromptHandler
}

type ResourceHandler = server.ResourceHandlerFunc
type ToolHandler = server.ToolHandlerFunc
type PromptHandler = server.PromptHandlerFunc

// ServerPluginDiscoveryService reports which upstream MCP servers are configured.
type ServerPluginDiscoveryService interface {
	GetAvailableServers(ctx context.Context) ([]string, error)
}
