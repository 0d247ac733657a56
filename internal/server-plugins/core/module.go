package core

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/screenshot"
	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core/application"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core/infrastructure"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/logger"
)

func newCoreService(registry *toolserver.Registry, pool *mcpclient.Pool, buffer *logger.RingBuffer, log *slog.Logger) *application.CoreService {
	adapter := infrastructure.NewPoolAdapter(registry, pool, buffer, log)
	return application.NewCoreService(
		adapter, // ServerRepository
		adapter, // ToolRepository
		adapter, // LogRepository
		log,
	)
}

// CoreModule provides the always-on bridge plugin
var CoreModule = fx.Module("core",
	fx.Provide(
		fx.Private,
		newCoreService,
	),
	fx.Provide(
		fx.Annotate(
			func(svc *application.CoreService, cfg *config.ServerConfig, log *slog.Logger) serverDomain.ServerPlugin {
				return NewCoreServerPlugin(svc, screenshot.OptionsFromConfig(cfg), log)
			},
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
