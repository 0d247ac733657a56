package linear

import (
	"go.uber.org/fx"

	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
)

var Module = fx.Module("linear",
	fx.Provide(
		fx.Annotate(
			NewLinearServerPlugin,
			fx.As(new(serverDomain.ServerPlugin)),
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
