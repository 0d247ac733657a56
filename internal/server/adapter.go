package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/authorization"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server/auth"
)

// ServerPluginProvider exposes the capabilities of active plugins
type ServerPluginProvider interface {
	GetResourceProviders() []domain.ResourceProvider
	GetToolProviders() []domain.ToolProvider
	GetPromptProviders() []domain.PromptProvider
}

// DynamicServerPluginProvider provides access to only active plugins
type DynamicServerPluginProvider interface {
	GetActiveServerPlugins() []domain.ServerPlugin
}

// registration remembers what a plugin added so it can be taken back out.
type registration struct {
	tools     []string
	resources []string
	prompts   []string
}

// MCPAdapter bridges between our plugin system and the MCP server
type MCPAdapter struct {
	dynamicRegistry DynamicServerPluginProvider
	mcpServer       *server.MCPServer
	authChecker     auth.AuthorizationChecker
	logger          *slog.Logger

	mu         sync.Mutex
	registered map[string]registration
}

// NewMCPAdapter creates a new MCP adapter using the dynamic registry
func NewMCPAdapter(dynamicRegistry DynamicServerPluginProvider, mcpServer *server.MCPServer, authChecker auth.AuthorizationChecker, logger *slog.Logger) *MCPAdapter {
	return &MCPAdapter{
		dynamicRegistry: dynamicRegistry,
		mcpServer:       mcpServer,
		authChecker:     authChecker,
		logger:          logger,
		registered:      make(map[string]registration),
	}
}

// GetResourceProviders returns resource providers from active plugins only
func (a *MCPAdapter) GetResourceProviders() []domain.ResourceProvider {
	var providers []domain.ResourceProvider
	for _, plugin := range a.dynamicRegistry.GetActiveServerPlugins() {
		if provider, ok := plugin.(domain.ResourceProvider); ok {
			providers = append(providers, provider)
		}
	}
	return providers
}

// GetToolProviders returns tool providers from active plugins only
func (a *MCPAdapter) GetToolProviders() []domain.ToolProvider {
	var providers []domain.ToolProvider
	for _, plugin := range a.dynamicRegistry.GetActiveServerPlugins() {
		if provider, ok := plugin.(domain.ToolProvider); ok {
			providers = append(providers, provider)
		}
	}
	return providers
}

// GetPromptProviders returns prompt providers from active plugins only
func (a *MCPAdapter) GetPromptProviders() []domain.PromptProvider {
	var providers []domain.PromptProvider
	for _, plugin := range a.dynamicRegistry.GetActiveServerPlugins() {
		if provider, ok := plugin.(domain.PromptProvider); ok {
			providers = append(providers, provider)
		}
	}
	return providers
}

// RegisterAllServerPlugins registers every active plugin with the MCP server
func (a *MCPAdapter) RegisterAllServerPlugins(ctx context.Context) error {
	a.logger.Info("Registering all plugins with MCP server")

	for _, plugin := range a.dynamicRegistry.GetActiveServerPlugins() {
		if err := a.RegisterServerPlugin(ctx, plugin); err != nil {
			return fmt.Errorf("failed to register plugin %s: %w", plugin.ID(), err)
		}
	}

	a.logger.Info("All plugins registered successfully")
	return nil
}

// RegisterServerPlugin registers a single server plugin with the MCP server.
// A provider that fails to list its capabilities is logged and skipped.
func (a *MCPAdapter) RegisterServerPlugin(ctx context.Context, plugin domain.ServerPlugin) error {
	var reg registration

	if provider, ok := plugin.(domain.ResourceProvider); ok {
		resources, err := provider.GetResources(ctx)
		if err != nil {
			a.logger.Error("Failed to get resources from provider", "plugin", plugin.ID(), "error", err)
		}
		for _, resource := range resources {
			mcpResource := mcp.NewResource(
				resource.URI,
				resource.Name,
				mcp.WithResourceDescription(resource.Description),
				mcp.WithMIMEType(resource.MIMEType),
			)
			a.mcpServer.AddResource(mcpResource, resource.Handler)
			reg.resources = append(reg.resources, resource.URI)
			a.logger.Debug("Resource registered", "plugin", plugin.ID(), "uri", resource.URI)
		}
	}

	if provider, ok := plugin.(domain.ToolProvider); ok {
		tools, err := provider.GetTools(ctx)
		if err != nil {
			a.logger.Error("Failed to get tools from provider", "plugin", plugin.ID(), "error", err)
		}
		for _, tool := range tools {
			tool = authorization.WrapToolWithAuthorization(tool, a.authChecker, deniedResult, a.logger)
			a.mcpServer.AddTool(tool.Builder(), tool.Handler)
			reg.tools = append(reg.tools, tool.Name)
			a.logger.Debug("Tool registered", "plugin", plugin.ID(), "tool", tool.Name)
		}
	}

	if provider, ok := plugin.(domain.PromptProvider); ok {
		prompts, err := provider.GetPrompts(ctx)
		if err != nil {
			a.logger.Error("Failed to get prompts from provider", "plugin", plugin.ID(), "error", err)
		}
		for _, prompt := range prompts {
			a.mcpServer.AddPrompt(prompt.Builder(), prompt.Handler)
			reg.prompts = append(reg.prompts, prompt.Name)
			a.logger.Debug("Prompt registered", "plugin", plugin.ID(), "prompt", prompt.Name)
		}
	}

	a.mu.Lock()
	a.registered[plugin.ID()] = reg
	a.mu.Unlock()

	a.logger.Debug("ServerPlugin registered with MCP server",
		"server-plugin", plugin.ID(),
		"tools", len(reg.tools),
		"resources", len(reg.resources),
		"prompts", len(reg.prompts))
	return nil
}

// UnregisterServerPlugin removes everything a plugin registered.
func (a *MCPAdapter) UnregisterServerPlugin(plugin domain.ServerPlugin) {
	a.mu.Lock()
	reg, ok := a.registered[plugin.ID()]
	delete(a.registered, plugin.ID())
	a.mu.Unlock()
	if !ok {
		return
	}

	if len(reg.tools) > 0 {
		a.mcpServer.DeleteTools(reg.tools...)
	}
	for _, uri := range reg.resources {
		a.mcpServer.RemoveResource(uri)
	}
	if len(reg.prompts) > 0 {
		a.mcpServer.DeletePrompts(reg.prompts...)
	}
	a.logger.Info("ServerPlugin removed from MCP server", "server-plugin", plugin.ID())
}

// ApplyChanges is the registry change handler used after the initial sync.
func (a *MCPAdapter) ApplyChanges(ctx context.Context, activated, deactivated []domain.ServerPlugin) {
	for _, plugin := range deactivated {
		a.UnregisterServerPlugin(plugin)
	}
	for _, plugin := range activated {
		if err := a.RegisterServerPlugin(ctx, plugin); err != nil {
			a.logger.Error("Failed to register activated plugin", "plugin", plugin.ID(), "error", err)
		}
	}
}

// RegisteredTools lists the tool names added for a plugin.
func (a *MCPAdapter) RegisteredTools(pluginID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.registered[pluginID].tools...)
}

func deniedResult(err error) *mcp.CallToolResult {
	return FromError(err)
}
