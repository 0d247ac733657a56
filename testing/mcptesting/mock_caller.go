package mcptesting

import (
	"context"
	"fmt"
	"sync"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/mark3labs/mcp-go/mcp"
)

// RecordedCall is one tool invocation seen by a mock.
type RecordedCall struct {
	Server string
	Tool   string
	Args   map[string]any
}

type scriptedReply struct {
	result *mcp.CallToolResult
	err    error
}

// MockCaller implements mcpclient.Caller for testing the typed wrappers.
// Replies are scripted per server/tool and consumed in order; the last reply repeats.
type MockCaller struct {
	mu      sync.Mutex
	replies map[string][]scriptedReply
	calls   []RecordedCall
	markers []string
}

func NewMockCaller() *MockCaller {
	return &MockCaller{replies: make(map[string][]scriptedReply)}
}

// Reply queues a successful reply for server/tool.
func (m *MockCaller) Reply(server, tool string, result *mcp.CallToolResult) *MockCaller {
	return m.queue(server, tool, scriptedReply{result: result})
}

// Fail queues a failure for server/tool.
func (m *MockCaller) Fail(server, tool string, err error) *MockCaller {
	return m.queue(server, tool, scriptedReply{err: err})
}

func (m *MockCaller) queue(server, tool string, r scriptedReply) *MockCaller {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := server + "/" + tool
	m.replies[key] = append(m.replies[key], r)
	return m
}

// CallTool mirrors the pool: isError replies come back with a *mcpclient.ToolError.
func (m *MockCaller) CallTool(_ context.Context, server, tool string, params any) (*mcpclient.Result, error) {
	args, err := mcpclient.ToArguments(params)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, RecordedCall{Server: server, Tool: tool, Args: args})
	key := server + "/" + tool
	queue := m.replies[key]
	if len(queue) == 0 {
		m.mu.Unlock()
		return nil, &mcpclient.CallError{Server: server, Tool: tool, Err: fmt.Errorf("no scripted reply")}
	}
	reply := queue[0]
	if len(queue) > 1 {
		m.replies[key] = queue[1:]
	}
	m.mu.Unlock()

	if reply.err != nil {
		return nil, &mcpclient.CallError{Server: server, Tool: tool, Err: reply.err}
	}
	res := &mcpclient.Result{Server: server, Tool: tool, Raw: reply.result}
	if res.IsError() {
		return res, &mcpclient.ToolError{Server: server, Tool: tool, Message: res.Text()}
	}
	return res, nil
}

// IsTransportFailure uses the default markers unless SetMarkers was called.
func (m *MockCaller) IsTransportFailure(err error) bool {
	return mcpclient.IsTransportFailure(err, m.markers...)
}

func (m *MockCaller) SetMarkers(markers ...string) { m.markers = markers }

// Calls returns every call made so far.
func (m *MockCaller) Calls() []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedCall(nil), m.calls...)
}

// LastCall returns the most recent call, or an empty RecordedCall.
func (m *MockCaller) LastCall() RecordedCall {
	calls := m.Calls()
	if len(calls) == 0 {
		return RecordedCall{}
	}
	return calls[len(calls)-1]
}
