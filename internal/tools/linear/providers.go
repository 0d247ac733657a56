package linear

import (
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/credentials"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/httpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

// NewFallbackFromConfig returns the GraphQL fallback, or nil when it is
// disabled. Without an API key the fallback is still returned and fails with
// ErrNoAPIKey, so callers learn how to enable it.
func NewFallbackFromConfig(cfg *config.ServerConfig, creds *credentials.Store, logger *slog.Logger) Fallback {
	if !cfg.Linear.Fallback {
		logger.Debug("Linear GraphQL fallback disabled")
		return nil
	}

	apiKey := cfg.Linear.APIKey
	if creds != nil {
		apiKey = creds.Resolve(apiKey, credentials.LinearAPIKey)
	}
	if apiKey == "" {
		logger.Warn("Linear GraphQL fallback has no API key; retries will fail until one is set")
	}

	client := httpclient.New(&cfg.Linear.GraphQL, "linear-graphql", logger)
	return NewGraphQL(client, apiKey, logger)
}

// NewClientFromConfig wires the MCP client with its optional fallback.
func NewClientFromConfig(cfg *config.ServerConfig, caller mcpclient.Caller, creds *credentials.Store, logger *slog.Logger) *Client {
	return New(caller, NewFallbackFromConfig(cfg, creds, logger), logger)
}
