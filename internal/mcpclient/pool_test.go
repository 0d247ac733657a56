package mcpclient_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/testing/mcptesting"
)

func newTestRegistry() *toolserver.Registry {
	registry, err := toolserver.NewRegistry(
		toolserver.ServerConfig{Name: "figma-desktop", Transport: toolserver.TransportHTTP, URL: "http://127.0.0.1:3845/mcp"},
		toolserver.ServerConfig{Name: "linear", Transport: toolserver.TransportStdio, Command: "npx", Args: []string{"-y", "mcp-remote"}},
		toolserver.ServerConfig{Name: "slow", Transport: toolserver.TransportStdio, Command: "slow", Timeout: 20 * time.Millisecond},
	)
	Expect(err).NotTo(HaveOccurred())
	return registry
}

var _ = Describe("Pool", func() {
	var (
		ctx      context.Context
		registry *toolserver.Registry
		dialer   *mcptesting.MockDialer
		linear   *mcptesting.MockSession
		pool     *mcpclient.Pool
		poolCfg  mcpclient.PoolConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		linear = mcptesting.NewMockSession("linear")
		dialer = mcptesting.NewMockDialer().Serve("linear", linear)
		poolCfg = mcpclient.PoolConfig{Timeout: time.Second}
	})

	JustBeforeEach(func() {
		registry = newTestRegistry()
		pool = mcpclient.NewPool(registry, dialer.Dial, poolCfg, mcptesting.DiscardLogger())
		DeferCleanup(func() { _ = pool.CloseAll() })
	})

	Describe("CallTool", func() {
		It("should forward params as arguments and unwrap JSON text", func() {
			linear.Reply("get_issue", mcptesting.JSONResult(map[string]any{"id": "ENG-1", "title": "Broken"}))

			res, err := pool.CallTool(ctx, "linear", "get_issue", map[string]any{"id": "ENG-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Value()).To(HaveKeyWithValue("title", "Broken"))
			Expect(linear.Calls()).To(HaveLen(1))
			Expect(linear.Calls()[0].Args).To(HaveKeyWithValue("id", "ENG-1"))
		})

		It("should encode struct params through their json tags", func() {
			type params struct {
				Query string `json:"query"`
				Limit int    `json:"limit,omitempty"`
			}
			linear.Reply("list_issues", mcptesting.JSONResult([]any{}))

			_, err := pool.CallTool(ctx, "linear", "list_issues", params{Query: "bug"})
			Expect(err).NotTo(HaveOccurred())
			Expect(linear.Calls()[0].Args).To(Equal(map[string]any{"query": "bug"}))
		})

		It("should dial once and reuse the session", func() {
			linear.Reply("list_teams", mcptesting.JSONResult([]any{}))

			for i := 0; i < 3; i++ {
				_, err := pool.CallTool(ctx, "linear", "list_teams", nil)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(dialer.Dials("linear")).To(Equal(1))
			Expect(pool.Connected()).To(Equal([]string{"linear"}))
		})

		It("should dial once for concurrent first callers", func() {
			linear.Reply("list_teams", mcptesting.JSONResult([]any{}))

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := pool.CallTool(ctx, "linear", "list_teams", nil)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()
			Expect(dialer.Dials("linear")).To(Equal(1))
		})

		It("should return a not-found error listing the configured servers", func() {
			_, err := pool.CallTool(ctx, "github", "search", nil)
			Expect(err).To(HaveOccurred())
			Expect(toolserver.IsServerNotFound(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("linear"))
		})

		It("should not cache a failed dial", func() {
			dialer.FailDial("linear", errors.New("spawn failed"))
			_, err := pool.CallTool(ctx, "linear", "list_teams", nil)
			Expect(err).To(MatchError(ContainSubstring("spawn failed")))

			dialer.FailDial("linear", nil)
			linear.Reply("list_teams", mcptesting.JSONResult([]any{}))
			_, err = pool.CallTool(ctx, "linear", "list_teams", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(dialer.Dials("linear")).To(Equal(2))
		})

		It("should surface isError replies as ToolError together with the result", func() {
			linear.Reply("get_issue", mcptesting.ErrorResult("Issue not found"))

			res, err := pool.CallTool(ctx, "linear", "get_issue", map[string]any{"id": "X"})
			Expect(mcpclient.IsToolError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("Issue not found"))
			Expect(res).NotTo(BeNil())
			Expect(pool.IsTransportFailure(err)).To(BeFalse())
			Expect(pool.Connected()).To(ContainElement("linear"))
		})

		It("should evict the session after a transport failure", func() {
			linear.Fail("get_issue", io.EOF)

			_, err := pool.CallTool(ctx, "linear", "get_issue", nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, io.EOF)).To(BeTrue())
			Expect(pool.IsTransportFailure(err)).To(BeTrue())
			Expect(pool.Connected()).To(BeEmpty())
			Expect(linear.Closed()).To(Equal(1))
		})

		It("should keep the session after a non-transport failure", func() {
			linear.Fail("get_issue", errors.New("invalid params"))

			_, err := pool.CallTool(ctx, "linear", "get_issue", nil)
			Expect(err).To(HaveOccurred())
			Expect(pool.Connected()).To(ContainElement("linear"))
		})

		It("should apply a per-server timeout over the pool timeout", func() {
			slow := mcptesting.NewMockSession("slow").Handle("wait", func(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			})
			dialer.Serve("slow", slow)

			start := time.Now()
			_, err := pool.CallTool(ctx, "slow", "wait", nil)
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
		})

		Context("with blocked tools", func() {
			BeforeEach(func() {
				poolCfg.BlockedTools = []string{"delete_", "linear/create_*"}
			})

			DescribeTable("should reject matching tools before dialing",
				func(tool string) {
					_, err := pool.CallTool(ctx, "linear", tool, nil)
					Expect(mcpclient.IsBlocked(err)).To(BeTrue())
					Expect(dialer.Dials("linear")).To(BeZero())
				},
				Entry("substring pattern", "delete_issue"),
				Entry("server glob pattern", "create_comment"),
			)

			It("should report the policy without calling", func() {
				Expect(pool.IsBlocked("linear", "create_issue")).To(BeTrue())
				Expect(pool.IsBlocked("playwright", "create_issue")).To(BeFalse())
				Expect(pool.IsBlocked("playwright", "delete_tab")).To(BeTrue())
			})

			It("should let other tools through", func() {
				linear.Reply("list_issues", mcptesting.JSONResult([]any{}))
				_, err := pool.CallTool(ctx, "linear", "list_issues", nil)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("with caching enabled", func() {
			BeforeEach(func() {
				poolCfg.Cache = mcpclient.DefaultCacheConfig()
			})

			It("should serve repeated read calls from the cache", func() {
				linear.Reply("list_teams", mcptesting.JSONResult([]any{"ENG"}))

				for i := 0; i < 3; i++ {
					res, err := pool.CallTool(ctx, "linear", "list_teams", nil)
					Expect(err).NotTo(HaveOccurred())
					Expect(res.Value()).To(Equal([]any{"ENG"}))
				}
				Expect(linear.Calls()).To(HaveLen(1))
			})

			It("should drop the server's cached results after a mutation", func() {
				linear.Reply("list_teams", mcptesting.JSONResult([]any{}))
				linear.Reply("create_issue", mcptesting.JSONResult(map[string]any{"id": "1"}))

				_, _ = pool.CallTool(ctx, "linear", "list_teams", nil)
				_, err := pool.CallTool(ctx, "linear", "create_issue", map[string]any{"title": "t"})
				Expect(err).NotTo(HaveOccurred())
				_, _ = pool.CallTool(ctx, "linear", "list_teams", nil)

				Expect(linear.Calls()).To(HaveLen(3))
			})

			It("should not cache tool errors", func() {
				linear.Reply("list_teams", mcptesting.ErrorResult("rate limited"))
				_, _ = pool.CallTool(ctx, "linear", "list_teams", nil)
				_, _ = pool.CallTool(ctx, "linear", "list_teams", nil)
				Expect(linear.Calls()).To(HaveLen(2))
			})
		})
	})

	Describe("ListTools", func() {
		It("should list the upstream tools", func() {
			linear.Reply("get_issue", mcptesting.TextResult("ok"))
			tools, err := pool.ListTools(ctx, "linear")
			Expect(err).NotTo(HaveOccurred())
			Expect(tools).To(HaveLen(1))
			Expect(tools[0].Name).To(Equal("get_issue"))
		})

		It("should apply the per-server timeout", func() {
			slow := mcptesting.NewMockSession("slow")
			slow.HangList()
			dialer.Serve("slow", slow)

			start := time.Now()
			_, err := pool.ListTools(ctx, "slow")
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
		})

		It("should evict on a transport failure", func() {
			linear.FailList(fmt.Errorf("read: %w", io.ErrUnexpectedEOF))
			_, err := pool.ListTools(ctx, "linear")
			Expect(err).To(HaveOccurred())
			Expect(pool.Connected()).To(BeEmpty())
		})
	})

	Describe("Evict and CloseAll", func() {
		It("should close the evicted session and redial on next use", func() {
			linear.Reply("list_teams", mcptesting.JSONResult([]any{}))
			_, _ = pool.CallTool(ctx, "linear", "list_teams", nil)

			Expect(pool.Evict("linear")).To(Succeed())
			Expect(linear.Closed()).To(Equal(1))

			_, _ = pool.CallTool(ctx, "linear", "list_teams", nil)
			Expect(dialer.Dials("linear")).To(Equal(2))
		})

		It("should redial a server whose configuration changed", func() {
			linear.Reply("list_teams", mcptesting.JSONResult([]any{}))
			_, err := pool.CallTool(ctx, "linear", "list_teams", nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(registry.Register(toolserver.ServerConfig{Name: "linear", Transport: toolserver.TransportStdio, Command: "linear-mcp"})).To(Succeed())

			_, err = pool.CallTool(ctx, "linear", "list_teams", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(linear.Closed()).To(Equal(1))
			Expect(dialer.Dials("linear")).To(Equal(2))
		})

		It("should close the session of a server that was removed", func() {
			linear.Reply("list_teams", mcptesting.JSONResult([]any{}))
			_, _ = pool.CallTool(ctx, "linear", "list_teams", nil)

			registry.Remove("linear")

			_, err := pool.CallTool(ctx, "linear", "list_teams", nil)
			Expect(toolserver.IsServerNotFound(err)).To(BeTrue())
			Expect(linear.Closed()).To(Equal(1))
			Expect(pool.Connected()).To(BeEmpty())
		})

		It("should close stale sessions when a reload reports changes", func() {
			linear.Reply("list_teams", mcptesting.JSONResult([]any{}))
			_, _ = pool.CallTool(ctx, "linear", "list_teams", nil)

			pool.ApplyChanges(toolserver.Changes{Updated: []string{"linear"}})
			Expect(linear.Closed()).To(Equal(1))
			Expect(pool.Connected()).To(BeEmpty())
		})

		It("should ignore unknown servers", func() {
			Expect(pool.Evict("nope")).To(Succeed())
		})

		It("should close every session and join close errors", func() {
			linear.Reply("list_teams", mcptesting.JSONResult([]any{}))
			linear.FailClose(errors.New("boom"))
			_, _ = pool.CallTool(ctx, "linear", "list_teams", nil)

			err := pool.CloseAll()
			Expect(err).To(MatchError(ContainSubstring("close linear: boom")))
			Expect(pool.Connected()).To(BeEmpty())
		})
	})
})
