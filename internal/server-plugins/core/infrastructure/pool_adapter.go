package infrastructure

import (
	"context"
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/logger"
)

// PoolAdapter implements the core repositories over the server registry,
// the client pool and the log buffer.
type PoolAdapter struct {
	registry *toolserver.Registry
	pool     *mcpclient.Pool
	buffer   *logger.RingBuffer
	logger   *slog.Logger
}

func NewPoolAdapter(registry *toolserver.Registry, pool *mcpclient.Pool, buffer *logger.RingBuffer, logger *slog.Logger) *PoolAdapter {
	return &PoolAdapter{registry: registry, pool: pool, buffer: buffer, logger: logger}
}

func (a *PoolAdapter) ListServers(ctx context.Context) ([]domain.UpstreamServer, error) {
	connected := make(map[string]bool)
	for _, name := range a.pool.Connected() {
		connected[name] = true
	}

	names := a.registry.Names()
	servers := make([]domain.UpstreamServer, 0, len(names))
	for _, name := range names {
		cfg, err := a.registry.Lookup(name)
		if err != nil {
			// Removed by a concurrent reload.
			continue
		}
		s := domain.UpstreamServer{
			Name:      cfg.Name,
			Transport: string(cfg.Transport),
			Command:   cfg.Command,
			URL:       cfg.URL,
			Connected: connected[name],
		}
		if cfg.Timeout > 0 {
			s.Timeout = cfg.Timeout.String()
		}
		servers = append(servers, s)
	}
	return servers, nil
}

func (a *PoolAdapter) HasServer(name string) bool {
	return a.registry.Has(name)
}

func (a *PoolAdapter) ListTools(ctx context.Context, server string) ([]domain.UpstreamTool, error) {
	tools, err := a.pool.ListTools(ctx, server)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UpstreamTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, domain.UpstreamTool{
			Name:        t.Name,
			Description: t.Description,
			Access:      serverDomain.ClassifyTool(t.Name).String(),
			Blocked:     a.pool.IsBlocked(server, t.Name),
		})
	}
	return out, nil
}

func (a *PoolAdapter) CallTool(ctx context.Context, server, tool string, arguments map[string]any) (*domain.CallOutcome, error) {
	res, err := a.pool.CallTool(ctx, server, tool, arguments)
	if err != nil {
		return nil, err
	}
	outcome := &domain.CallOutcome{Server: server, Tool: tool, Value: res.Value()}
	images, err := res.Images()
	if err != nil {
		a.logger.Warn("Dropping undecodable image from upstream reply",
			"server", server,
			"tool", tool,
			"error", err)
		return outcome, nil
	}
	for _, img := range images {
		outcome.Images = append(outcome.Images, domain.ImageRef{MIMEType: img.MIMEType, Data: img.Data})
	}
	return outcome, nil
}

func (a *PoolAdapter) RecentLogs(n int) domain.LogSnapshot {
	lines, size, capacity := a.buffer.Tail(n)
	return domain.LogSnapshot{Lines: lines, Size: size, Capacity: capacity}
}
