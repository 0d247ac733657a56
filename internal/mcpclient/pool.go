package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// PoolConfig holds the call policy shared by every upstream server.
type PoolConfig struct {
	// Timeout bounds a single call; a server's own Timeout takes precedence.
	Timeout         time.Duration
	BlockedTools    []string
	FallbackMarkers []string
	Cache           *CacheConfig
}

type poolEntry struct {
	caller ToolCaller
	config toolserver.ServerConfig
}

// Pool caches one client per upstream server. The first caller dials; later
// and concurrent callers reuse the same session until it is evicted or closed.
type Pool struct {
	servers ServerLookup
	dial    Dialer
	config  PoolConfig
	cache   *ResultCacheManager
	logger  *slog.Logger
	tracer  trace.Tracer

	group   singleflight.Group
	mu      sync.Mutex
	clients map[string]*poolEntry
}

func NewPool(servers ServerLookup, dial Dialer, config PoolConfig, logger *slog.Logger) *Pool {
	if len(config.FallbackMarkers) == 0 {
		config.FallbackMarkers = DefaultFallbackMarkers
	}
	return &Pool{
		servers: servers,
		dial:    dial,
		config:  config,
		cache:   NewResultCacheManager(config.Cache, logger),
		logger:  logger,
		tracer:  otel.GetTracerProvider().Tracer("mcpclient"),
		clients: make(map[string]*poolEntry),
	}
}

// Client returns the cached session for server, dialing it on first use.
// A failed dial is not cached, so the next caller tries again.
func (p *Pool) Client(ctx context.Context, server string) (ToolCaller, error) {
	entry, err := p.entry(ctx, server)
	if err != nil {
		return nil, err
	}
	return entry.caller, nil
}

// entry returns the cached session while its server is still configured the
// same way; a removed or reconfigured server's session is closed first.
func (p *Pool) entry(ctx context.Context, server string) (*poolEntry, error) {
	p.mu.Lock()
	e, ok := p.clients[server]
	p.mu.Unlock()
	if ok {
		cfg, err := p.servers.Lookup(server)
		if err == nil && cfg.Equal(e.config) {
			return e, nil
		}
		p.logger.Info("Upstream server configuration changed, closing session", "server", server)
		p.evictEntry(server, e)
		if err != nil {
			return nil, err
		}
	}

	v, err, _ := p.group.Do(server, func() (any, error) {
		p.mu.Lock()
		if e, ok := p.clients[server]; ok {
			p.mu.Unlock()
			return e, nil
		}
		p.mu.Unlock()

		cfg, err := p.servers.Lookup(server)
		if err != nil {
			return nil, err
		}

		p.logger.Debug("Dialing MCP server",
			"server", server,
			"transport", cfg.Transport)

		caller, err := p.dial(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server %s: %w", server, err)
		}

		e := &poolEntry{caller: caller, config: cfg}
		p.mu.Lock()
		p.clients[server] = e
		p.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*poolEntry), nil
}

// Connected returns the names of servers with a live cached session.
func (p *Pool) Connected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.clients))
	for name := range p.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallTool forwards params to tool on server and returns the unwrapped reply.
// A reply flagged isError comes back together with a *ToolError.
func (p *Pool) CallTool(ctx context.Context, server, tool string, params any) (*Result, error) {
	if err := p.checkBlocked(server, tool); err != nil {
		return nil, err
	}

	args, err := ToArguments(params)
	if err != nil {
		return nil, &CallError{Server: server, Tool: tool, Err: err}
	}

	if cached, ok := p.cache.Get(server, tool, args); ok {
		return newResult(server, tool, cached), nil
	}

	entry, err := p.entry(ctx, server)
	if err != nil {
		return nil, &CallError{Server: server, Tool: tool, Err: err}
	}

	if timeout := p.timeoutFor(entry); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	requestID := uuid.NewString()
	ctx, span := p.tracer.Start(ctx, "mcp.call_tool "+tool,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("mcp.server", server),
			attribute.String("mcp.tool", tool),
			attribute.String("mcp.request_id", requestID),
		),
	)
	defer span.End()

	logger := p.logger.With("server", server, "tool", tool, "request_id", requestID)
	logger.Debug("Calling MCP tool", "arg_keys", argKeys(args))
	start := time.Now()

	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	raw, err := entry.caller.CallTool(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if p.IsTransportFailure(err) {
			logger.Warn("MCP transport failure, evicting client", "error", err)
			p.evictEntry(server, entry)
		} else {
			logger.Error("MCP tool call failed", "error", err)
		}
		return nil, &CallError{Server: server, Tool: tool, Err: err}
	}

	result := newResult(server, tool, raw)
	if result.IsError() {
		span.SetStatus(codes.Error, "tool returned isError")
		logger.Warn("MCP tool reported an error", "duration", time.Since(start))
		return result, &ToolError{Server: server, Tool: tool, Message: result.Text()}
	}

	logger.Debug("MCP tool call completed", "duration", time.Since(start))

	if p.cache.Cacheable(tool) {
		p.cache.Set(server, tool, args, raw)
	} else if IsMutatingTool(tool) {
		p.cache.InvalidateServer(server)
	}
	return result, nil
}

// ListTools lists the tools advertised by server.
func (p *Pool) ListTools(ctx context.Context, server string) ([]mcp.Tool, error) {
	entry, err := p.entry(ctx, server)
	if err != nil {
		return nil, err
	}
	if timeout := p.timeoutFor(entry); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := entry.caller.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		if p.IsTransportFailure(err) {
			p.evictEntry(server, entry)
		}
		return nil, fmt.Errorf("failed to list tools of %s: %w", server, err)
	}
	return res.Tools, nil
}

// timeoutFor prefers the server's own timeout over the pool timeout.
func (p *Pool) timeoutFor(e *poolEntry) time.Duration {
	if e.config.Timeout > 0 {
		return e.config.Timeout
	}
	return p.config.Timeout
}

// IsTransportFailure classifies err with the pool's fallback markers.
func (p *Pool) IsTransportFailure(err error) bool {
	return IsTransportFailure(err, p.config.FallbackMarkers...)
}

// Evict closes and forgets the session for server.
func (p *Pool) Evict(server string) error {
	p.mu.Lock()
	e, ok := p.clients[server]
	delete(p.clients, server)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	return e.caller.Close()
}

// evictEntry only evicts if the cached session is still the one that failed.
func (p *Pool) evictEntry(server string, failed *poolEntry) {
	p.mu.Lock()
	current, ok := p.clients[server]
	if ok && current == failed {
		delete(p.clients, server)
	}
	p.mu.Unlock()

	if ok && current == failed {
		if err := failed.caller.Close(); err != nil {
			p.logger.Debug("Closing failed MCP client", "server", server, "error", err)
		}
	}
}

// ApplyChanges closes the sessions of servers a registry reload removed or
// reconfigured, so the next call dials the new settings.
func (p *Pool) ApplyChanges(changes toolserver.Changes) {
	for _, server := range changes.Stale() {
		if err := p.Evict(server); err != nil {
			p.logger.Debug("Closing stale MCP client", "server", server, "error", err)
		}
	}
}

// CloseAll closes every cached session and empties the pool.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	clients := p.clients
	p.clients = make(map[string]*poolEntry)
	p.mu.Unlock()

	var errs []error
	for name, e := range clients {
		if err := e.caller.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	if len(clients) > 0 {
		p.logger.Debug("Closed MCP clients", "count", len(clients))
	}
	return errors.Join(errs...)
}

// IsBlocked reports whether the blocked-tool list refuses server/tool.
func (p *Pool) IsBlocked(server, tool string) bool {
	return p.checkBlocked(server, tool) != nil
}

// checkBlocked applies the blocked-tool list. A pattern with a slash matches
// "server/tool" as a glob; any other pattern is a substring of the tool name.
func (p *Pool) checkBlocked(server, tool string) error {
	qualified := server + "/" + tool
	for _, pattern := range p.config.BlockedTools {
		if pattern == "" {
			continue
		}
		if strings.Contains(pattern, "/") {
			if ok, _ := path.Match(pattern, qualified); ok {
				return &BlockedToolError{Server: server, Tool: tool, Pattern: pattern}
			}
			continue
		}
		if strings.Contains(tool, pattern) {
			return &BlockedToolError{Server: server, Tool: tool, Pattern: pattern}
		}
	}
	return nil
}

// IsMutatingTool reports whether a tool name follows the create_/update_/delete_ convention.
func IsMutatingTool(tool string) bool {
	for _, prefix := range []string{"create_", "update_", "delete_"} {
		if strings.HasPrefix(tool, prefix) {
			return true
		}
	}
	return false
}

func argKeys(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
