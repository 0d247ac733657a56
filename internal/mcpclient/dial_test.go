package mcpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/testing/mcptesting"
)

func newEchoServer() *server.MCPServer {
	srv := server.NewMCPServer("echo", "0.0.1", server.WithToolCapabilities(true))
	srv.AddTool(
		mcp.NewTool("get_metadata",
			mcp.WithDescription("Echo the node id back"),
			mcp.WithString("nodeId", mcp.Required()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			nodeID, err := req.RequireString("nodeId")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(`{"node":"` + nodeID + `"}`), nil
		},
	)
	return srv
}

var _ = Describe("Pool against an in-process server", func() {
	It("should complete the handshake and call tools end to end", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		dial := func(ctx context.Context, cfg toolserver.ServerConfig) (mcpclient.ToolCaller, error) {
			c, err := client.NewInProcessClient(newEchoServer())
			if err != nil {
				return nil, err
			}
			if err := c.Start(ctx); err != nil {
				return nil, err
			}
			if err := mcpclient.Initialize(ctx, c, mcpclient.ClientInfo{Name: "test", Version: "dev"}); err != nil {
				return nil, err
			}
			return c, nil
		}

		pool := mcpclient.NewPool(newTestRegistry(), dial, mcpclient.PoolConfig{Timeout: time.Second}, mcptesting.DiscardLogger())
		DeferCleanup(func() { _ = pool.CloseAll() })

		res, err := pool.CallTool(ctx, "figma-desktop", "get_metadata", map[string]any{"nodeId": "1:2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Value()).To(HaveKeyWithValue("node", "1:2"))

		_, err = pool.CallTool(ctx, "figma-desktop", "get_metadata", nil)
		Expect(mcpclient.IsToolError(err)).To(BeTrue())

		tools, err := pool.ListTools(ctx, "figma-desktop")
		Expect(err).NotTo(HaveOccurred())
		Expect(tools).To(ContainElement(HaveField("Name", "get_metadata")))
	})

	It("should keep an SSE session usable after the dialing call's context ends", func() {
		ts := server.NewTestServer(newEchoServer())
		DeferCleanup(ts.Close)

		registry, err := toolserver.NewRegistry(toolserver.ServerConfig{
			Name:      "echo",
			Transport: toolserver.TransportSSE,
			URL:       ts.URL + "/sse",
		})
		Expect(err).NotTo(HaveOccurred())

		logger := mcptesting.DiscardLogger()
		dial := mcpclient.NewDialer(mcpclient.ClientInfo{Name: "test", Version: "dev"}, logger)
		pool := mcpclient.NewPool(registry, dial, mcpclient.PoolConfig{Timeout: 5 * time.Second}, logger)
		DeferCleanup(func() { _ = pool.CloseAll() })

		first, cancel := context.WithCancel(context.Background())
		_, err = pool.CallTool(first, "echo", "get_metadata", map[string]any{"nodeId": "1:2"})
		Expect(err).NotTo(HaveOccurred())
		cancel()

		for _, id := range []string{"3:4", "5:6"} {
			res, err := pool.CallTool(context.Background(), "echo", "get_metadata", map[string]any{"nodeId": id})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Value()).To(HaveKeyWithValue("node", id))
		}
		Expect(pool.Connected()).To(Equal([]string{"echo"}))
	})

	It("should report an SSE endpoint that refuses the stream and keep no session", func() {
		var requests atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			http.NotFound(w, r)
		}))
		DeferCleanup(ts.Close)

		registry, err := toolserver.NewRegistry(toolserver.ServerConfig{
			Name:      "echo",
			Transport: toolserver.TransportSSE,
			URL:       ts.URL + "/sse",
		})
		Expect(err).NotTo(HaveOccurred())

		logger := mcptesting.DiscardLogger()
		dial := mcpclient.NewDialer(mcpclient.ClientInfo{Name: "test", Version: "dev"}, logger)
		pool := mcpclient.NewPool(registry, dial, mcpclient.PoolConfig{Timeout: 5 * time.Second}, logger)
		DeferCleanup(func() { _ = pool.CloseAll() })

		_, err = pool.CallTool(context.Background(), "echo", "get_metadata", map[string]any{"nodeId": "1:2"})
		Expect(err).To(MatchError(ContainSubstring("failed to start SSE transport for echo")))
		Expect(requests.Load()).To(BeNumerically(">=", 1))
		Expect(pool.Connected()).To(BeEmpty())
	})
})
