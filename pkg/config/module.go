package config

import "go.uber.org/fx"

// Module expects the full ServerConfig to be supplied (fx.Supply) by the caller,
// which has already loaded it to pick the fx logger.
var Module = fx.Module("config",
	// Provides specific, smaller configs for consumers
	fx.Provide(func(cfg *ServerConfig) TransportConfig { return cfg.Transport }),
	fx.Provide(func(cfg *ServerConfig) SecurityConfig { return cfg.Security }),
	fx.Provide(func(cfg *ServerConfig) DiscoveryConfig { return cfg.Discovery }),
)
