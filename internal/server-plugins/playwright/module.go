package playwright

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/screenshot"
	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	figmatools "github.com/jimmyghelani-usm/mcp-bridge/internal/tools/figma"
	pw "github.com/jimmyghelani-usm/mcp-bridge/internal/tools/playwright"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

var Module = fx.Module("playwright",
	fx.Provide(
		fx.Annotate(
			func(cfg *config.ServerConfig, caller mcpclient.Caller, logger *slog.Logger) serverDomain.ServerPlugin {
				browser := pw.New(caller)
				capturer := screenshot.NewCapturerFromConfig(cfg, browser, figmatools.NewDesktop(caller), logger)
				return NewPlaywrightServerPlugin(browser, capturer, screenshot.OptionsFromConfig(cfg), logger)
			},
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
