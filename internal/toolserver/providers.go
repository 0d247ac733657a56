package toolserver

import (
	"fmt"
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/credentials"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

// linearRemoteURL is Linear's hosted MCP endpoint, reached through mcp-remote for OAuth.
const linearRemoteURL = "https://mcp.linear.app/sse"

// figmaTokenPlaceholder stands in for the token in written .mcp.json files.
const figmaTokenPlaceholder = "Bearer ${FIGMA_TOKEN}"

// DefaultServers returns the built-in upstream servers for the given configuration.
// The Figma remote server gets a bearer header only when a token is known.
func DefaultServers(cfg *config.ServerConfig, figmaToken string) []ServerConfig {
	remote := ServerConfig{
		Name:      FigmaRemote,
		Transport: TransportHTTP,
		URL:       cfg.Figma.RemoteURL,
	}
	if figmaToken != "" {
		remote.SecretHeaders = map[string]SecretHeader{
			"Authorization": {Value: "Bearer " + figmaToken, Placeholder: figmaTokenPlaceholder},
		}
	}

	return []ServerConfig{
		{
			Name:      FigmaDesktop,
			Transport: TransportHTTP,
			URL:       cfg.Figma.DesktopURL,
		},
		remote,
		{
			Name:      Playwright,
			Transport: TransportStdio,
			Command:   cfg.Playwright.Command,
			Args:      cfg.Playwright.Args,
		},
		{
			Name:      Linear,
			Transport: TransportStdio,
			Command:   "npx",
			Args:      []string{"-y", "mcp-remote", linearRemoteURL},
		},
	}
}

// NewRegistryFromConfig builds the defaults and merges the configured .mcp.json over them.
func NewRegistryFromConfig(cfg *config.ServerConfig, creds *credentials.Store, logger *slog.Logger) (*Registry, error) {
	figmaToken := cfg.Figma.Token
	if creds != nil {
		figmaToken = creds.Resolve(figmaToken, credentials.FigmaToken)
	}

	registry, err := NewRegistry(DefaultServers(cfg, figmaToken)...)
	if err != nil {
		return nil, fmt.Errorf("invalid built-in server: %w", err)
	}

	if cfg.MCPConfigPath != "" {
		if err := registry.LoadFile(cfg.MCPConfigPath); err != nil {
			return nil, err
		}
	}

	logger.Debug("Upstream MCP servers configured",
		"servers", registry.Names(),
		"mcp_config", cfg.MCPConfigPath)

	return registry, nil
}
