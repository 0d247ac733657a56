package figma

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	figmatools "github.com/jimmyghelani-usm/mcp-bridge/internal/tools/figma"
)

var Module = fx.Module("figma",
	fx.Provide(
		fx.Annotate(
			func(caller mcpclient.Caller, logger *slog.Logger) serverDomain.ServerPlugin {
				return NewFigmaServerPlugin(figmatools.NewDesktop(caller), figmatools.NewRemote(caller), logger)
			},
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
