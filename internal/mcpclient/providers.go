package mcpclient

import (
	"context"
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
	"go.uber.org/fx"
)

// NewPoolFromConfig creates the production pool for the configured servers.
func NewPoolFromConfig(cfg *config.ServerConfig, registry *toolserver.Registry, logger *slog.Logger) *Pool {
	cacheConfig := &CacheConfig{Enabled: false}
	if cfg.Cache.Enabled {
		cacheConfig = DefaultCacheConfig()
		if cfg.Cache.TTL > 0 {
			cacheConfig.DefaultTTL = cfg.Cache.TTL
		}
		logger.Info("Result caching enabled", "cache_ttl", cacheConfig.DefaultTTL)
	} else {
		logger.Info("Result caching disabled")
	}

	dial := NewDialer(ClientInfo{Name: cfg.ClientName, Version: cfg.ClientVersion}, logger)
	pool := NewPool(registry, dial, PoolConfig{
		Timeout:         cfg.Timeout,
		BlockedTools:    cfg.Security.BlockedTools,
		FallbackMarkers: cfg.Fallback.Markers,
		Cache:           cacheConfig,
	}, logger)
	registry.OnChange(pool.ApplyChanges)
	return pool
}

// RegisterHooks closes every upstream session when the application stops.
func RegisterHooks(lc fx.Lifecycle, pool *Pool, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("Closing upstream MCP clients", "connected", pool.Connected())
			return pool.CloseAll()
		},
	})
}
