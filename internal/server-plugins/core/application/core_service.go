package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core/domain"
)

const defaultLogLines = 100

// CoreService orchestrates the bridge's view of its upstream servers
type CoreService struct {
	serverRepo domain.ServerRepository
	toolRepo   domain.ToolRepository
	logRepo    domain.LogRepository
	logger     *slog.Logger
}

func NewCoreService(
	serverRepo domain.ServerRepository,
	toolRepo domain.ToolRepository,
	logRepo domain.LogRepository,
	logger *slog.Logger,
) *CoreService {
	return &CoreService{
		serverRepo: serverRepo,
		toolRepo:   toolRepo,
		logRepo:    logRepo,
		logger:     logger,
	}
}

func (s *CoreService) ListServers(ctx context.Context) ([]domain.UpstreamServer, error) {
	s.logger.Debug("Listing upstream servers")
	return s.serverRepo.ListServers(ctx)
}

func (s *CoreService) ListUpstreamTools(ctx context.Context, server string) ([]domain.UpstreamTool, error) {
	s.logger.Debug("Listing upstream tools", "server", server)
	if err := s.checkServer(server); err != nil {
		return nil, err
	}
	return s.toolRepo.ListTools(ctx, server)
}

// CallUpstreamTool forwards a raw call. Arguments may be nil.
func (s *CoreService) CallUpstreamTool(ctx context.Context, server, tool string, arguments map[string]any) (*domain.CallOutcome, error) {
	if err := s.checkServer(server); err != nil {
		return nil, err
	}
	if tool == "" {
		return nil, domain.ErrEmptyToolName
	}
	s.logger.Info("Forwarding upstream tool call", "server", server, "tool", tool)
	return s.toolRepo.CallTool(ctx, server, tool, arguments)
}

// RecentLogs returns the last n buffered log lines; n <= 0 means the default.
func (s *CoreService) RecentLogs(n int) domain.LogSnapshot {
	if n <= 0 {
		n = defaultLogLines
	}
	return s.logRepo.RecentLogs(n)
}

func (s *CoreService) checkServer(server string) error {
	if server == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	if !s.serverRepo.HasServer(server) {
		return fmt.Errorf("%w: %s", domain.ErrServerNotFound, server)
	}
	return nil
}
