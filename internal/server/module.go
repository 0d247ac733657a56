package server

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"

	plugins "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/application"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/infrastructure"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server/auth"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

// NewMCPServerInstance creates a new MCP server instance.
func NewMCPServerInstance(cfg *config.ServerConfig, logger *slog.Logger) *server.MCPServer {
	logger.Debug("Creating MCP server instance", "version", config.Version)
	return server.NewMCPServer(
		"MCP Bridge",
		config.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	)
}

var Module = fx.Module("server",
	fx.Provide(
		NewMCPServerInstance,
		auth.NewAuthorizationChecker,
		plugins.NewServerPluginRegistry,
		func(dynamicRegistry *plugins.DynamicServerPluginRegistry, mcpServer *server.MCPServer, checker auth.AuthorizationChecker, logger *slog.Logger) *MCPAdapter {
			return NewMCPAdapter(dynamicRegistry, mcpServer, checker, logger)
		},
		func(adapter *MCPAdapter) ServerPluginProvider { return adapter },
		fx.Annotate(
			infrastructure.NewPluginDiscoveryService,
			fx.As(new(domain.ServerPluginDiscoveryService)),
		),
		plugins.NewDynamicServerPluginRegistry,
	),
	fx.Invoke(registerServerHooks),
	fx.Invoke(func(registry *plugins.DynamicServerPluginRegistry, lc fx.Lifecycle) {
		registry.RegisterHooks(lc)
	}),
)
