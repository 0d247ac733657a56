package infrastructure

import (
	"context"
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

// srvPluginDiscoveryService implements domain.ServerPluginDiscoveryService
// on top of the upstream server registry.
type srvPluginDiscoveryService struct {
	registry   *toolserver.Registry
	configPath string
	logger     *slog.Logger
}

// NewPluginDiscoveryService creates a new plugin discovery service.
func NewPluginDiscoveryService(registry *toolserver.Registry, cfg *config.ServerConfig, logger *slog.Logger) domain.ServerPluginDiscoveryService {
	return &srvPluginDiscoveryService{
		registry:   registry,
		configPath: cfg.MCPConfigPath,
		logger:     logger,
	}
}

// GetAvailableServers re-reads the .mcp.json file so edits made while the
// bridge runs are picked up, then lists the configured servers.
func (s *srvPluginDiscoveryService) GetAvailableServers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.configPath != "" {
		changes, err := s.registry.ReloadFile(s.configPath)
		if err != nil {
			s.logger.Error("Failed to reload MCP server config",
				"path", s.configPath,
				"error", err)
			return nil, err
		}
		if !changes.Empty() {
			s.logger.Info("Upstream MCP servers changed",
				"added", changes.Added,
				"removed", changes.Removed,
				"updated", changes.Updated)
		}
	}

	servers := s.registry.Names()
	s.logger.Debug("Upstream MCP servers discovered",
		"servers", servers,
		"count", len(servers))

	return servers, nil
}
