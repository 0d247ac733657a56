package domain

import (
	"context"
)

// ServerRepository lists the configured upstream servers
type ServerRepository interface {
	ListServers(ctx context.Context) ([]UpstreamServer, error)
	HasServer(name string) bool
}

// ToolRepository lists and invokes upstream tools
type ToolRepository interface {
	ListTools(ctx context.Context, server string) ([]UpstreamTool, error)
	CallTool(ctx context.Context, server, tool string, arguments map[string]any) (*CallOutcome, error)
}

// LogRepository reads recently emitted log lines
type LogRepository interface {
	RecentLogs(n int) LogSnapshot
}
