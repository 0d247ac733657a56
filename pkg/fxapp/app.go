package fxapp

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/credentials"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/figma"
	linearplugin "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/linear"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/onboarding"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/playwright"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/linear"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/logger"
)

// Upstream wires the server registry, the client pool and the typed clients
// that sit on top of it.
var Upstream = fx.Module("upstream",
	fx.Provide(
		credentials.NewStore,
		toolserver.NewRegistryFromConfig,
		mcpclient.NewPoolFromConfig,
		func(pool *mcpclient.Pool) mcpclient.Caller { return pool },
		linear.NewClientFromConfig,
	),
	fx.Invoke(mcpclient.RegisterHooks),
)

func fxLogger(cfg *config.ServerConfig) fx.Option {
	// Default to a verbose logger for debug level
	if cfg.LogLevel != "debug" {
		return fx.NopLogger
	}
	return fx.WithLogger(
		func() fxevent.Logger {
			return &fxevent.ConsoleLogger{W: log.Writer()}
		},
	)
}

// New builds the MCP server application.
func New(cfg *config.ServerConfig) *fx.App {
	return fx.New(
		fxLogger(cfg),
		fx.Supply(cfg),
		config.Module,
		logger.Module,
		Upstream,
		server.Module,
		core.CoreModule,
		figma.Module,
		playwright.Module,
		linearplugin.Module,
		onboarding.Module,
	)
}

// NewClient builds an application without the MCP server, for one-shot
// commands that only call upstream tools. Use fx.Populate in opts to get at
// the pool or the typed clients.
func NewClient(cfg *config.ServerConfig, opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{
		fxLogger(cfg),
		fx.Supply(cfg),
		config.Module,
		logger.Module,
		Upstream,
	}, opts...)...)
}
