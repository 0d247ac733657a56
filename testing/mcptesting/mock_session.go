package mcptesting

import (
	"context"
	"fmt"
	"sync"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolHandler answers one tool on a MockSession.
type ToolHandler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// MockSession implements mcpclient.ToolCaller without a real server.
type MockSession struct {
	mu       sync.Mutex
	name     string
	tools    map[string]ToolHandler
	calls    []RecordedCall
	closed   int
	listErr  error
	closeErr error
	hangList bool
}

func NewMockSession(name string) *MockSession {
	return &MockSession{name: name, tools: make(map[string]ToolHandler)}
}

// Handle registers the handler for tool.
func (s *MockSession) Handle(tool string, h ToolHandler) *MockSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[tool] = h
	return s
}

// Reply registers a handler that always returns result.
func (s *MockSession) Reply(tool string, result *mcp.CallToolResult) *MockSession {
	return s.Handle(tool, func(context.Context, map[string]any) (*mcp.CallToolResult, error) {
		return result, nil
	})
}

// Fail registers a handler that always returns err.
func (s *MockSession) Fail(tool string, err error) *MockSession {
	return s.Handle(tool, func(context.Context, map[string]any) (*mcp.CallToolResult, error) {
		return nil, err
	})
}

func (s *MockSession) FailList(err error)  { s.listErr = err }
func (s *MockSession) FailClose(err error) { s.closeErr = err }

// HangList makes ListTools block until its context ends.
func (s *MockSession) HangList() { s.hangList = true }

func (s *MockSession) CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	s.mu.Lock()
	s.calls = append(s.calls, RecordedCall{Server: s.name, Tool: request.Params.Name, Args: args})
	h, ok := s.tools[request.Params.Name]
	s.mu.Unlock()

	if !ok {
		return ErrorResult(fmt.Sprintf("Tool %s not found", request.Params.Name)), nil
	}
	return h(ctx, args)
}

func (s *MockSession) ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if s.hangList {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &mcp.ListToolsResult{}
	for name := range s.tools {
		res.Tools = append(res.Tools, mcp.NewTool(name))
	}
	return res, nil
}

func (s *MockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return s.closeErr
}

// Calls returns the calls received so far.
func (s *MockSession) Calls() []RecordedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedCall(nil), s.calls...)
}

// Closed returns how many times Close was called.
func (s *MockSession) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockDialer hands out sessions by server name and counts dials.
type MockDialer struct {
	mu       sync.Mutex
	sessions map[string]func() *MockSession
	dials    map[string]int
	dialErr  map[string]error
}

func NewMockDialer() *MockDialer {
	return &MockDialer{
		sessions: make(map[string]func() *MockSession),
		dials:    make(map[string]int),
		dialErr:  make(map[string]error),
	}
}

// Serve makes every dial of server return the same session.
func (d *MockDialer) Serve(server string, session *MockSession) *MockDialer {
	return d.ServeFunc(server, func() *MockSession { return session })
}

// ServeFunc makes each dial of server return a session built by fn.
func (d *MockDialer) ServeFunc(server string, fn func() *MockSession) *MockDialer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[server] = fn
	return d
}

// FailDial makes dials of server fail with err until cleared with nil.
func (d *MockDialer) FailDial(server string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr[server] = err
}

// Dials returns how many times server was dialed.
func (d *MockDialer) Dials(server string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[server]
}

// Dial satisfies mcpclient.Dialer.
func (d *MockDialer) Dial(_ context.Context, cfg toolserver.ServerConfig) (mcpclient.ToolCaller, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[cfg.Name]++
	if err := d.dialErr[cfg.Name]; err != nil {
		return nil, err
	}
	fn, ok := d.sessions[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("mock dialer: no session for %s", cfg.Name)
	}
	return fn(), nil
}
