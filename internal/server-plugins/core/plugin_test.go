package core_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/screenshot"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core/application"
	coreDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core/infrastructure"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/logger"
	"github.com/jimmyghelani-usm/mcp-bridge/testing/mcptesting"
)

func writePNG(path string, c color.RGBA) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	Expect(os.WriteFile(path, buf.Bytes(), 0o644)).To(Succeed())
}

var _ = Describe("CoreServerPlugin", func() {
	var (
		ctx     context.Context
		dialer  *mcptesting.MockDialer
		linear  *mcptesting.MockSession
		buffer  *logger.RingBuffer
		pool    *mcpclient.Pool
		plugin  *core.CoreServerPlugin
		tools   []domain.Tool
		blocked []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dialer = mcptesting.NewMockDialer()
		linear = mcptesting.NewMockSession(toolserver.Linear)
		dialer.Serve(toolserver.Linear, linear)
		buffer = logger.NewRingBuffer(10)
		blocked = nil
	})

	JustBeforeEach(func() {
		registry, err := toolserver.NewRegistry(
			toolserver.ServerConfig{Name: toolserver.Linear, Transport: toolserver.TransportHTTP, URL: "https://mcp.linear.app/mcp"},
			toolserver.ServerConfig{Name: toolserver.Playwright, Transport: toolserver.TransportStdio, Command: "npx"},
		)
		Expect(err).NotTo(HaveOccurred())
		log := mcptesting.DiscardLogger()
		pool = mcpclient.NewPool(registry, dialer.Dial, mcpclient.PoolConfig{BlockedTools: blocked}, log)
		adapter := infrastructure.NewPoolAdapter(registry, pool, buffer, log)
		svc := application.NewCoreService(adapter, adapter, adapter, log)
		plugin = core.NewCoreServerPlugin(svc, screenshot.DefaultOptions(), log)
		tools, err = plugin.GetTools(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	invoke := func(name string, args map[string]any) (*mcp.CallToolResult, mcptesting.Envelope) {
		result, err := mcptesting.InvokeTool(ctx, tools, name, args)
		Expect(err).NotTo(HaveOccurred())
		env, err := mcptesting.ParseEnvelope(result)
		Expect(err).NotTo(HaveOccurred())
		return result, env
	}

	findTool := func(name string) domain.Tool {
		for _, t := range tools {
			if t.Name == name {
				return t
			}
		}
		Fail("tool not found: " + name)
		return domain.Tool{}
	}

	It("is always active", func() {
		Expect(plugin.UpstreamServer()).To(BeEmpty())
	})

	It("lists servers with their session state", func() {
		linear.Reply("list_teams", mcptesting.JSONResult([]any{}))
		_, err := pool.CallTool(ctx, toolserver.Linear, "list_teams", nil)
		Expect(err).NotTo(HaveOccurred())

		_, env := invoke("list_servers", nil)
		Expect(env.Status).To(Equal("ok"))

		var servers []coreDomain.UpstreamServer
		Expect(env.DecodeData(&servers)).To(Succeed())
		Expect(servers).To(HaveLen(2))
		Expect(servers[0].Name).To(Equal(toolserver.Linear))
		Expect(servers[0].Connected).To(BeTrue())
		Expect(servers[1].Connected).To(BeFalse())
	})

	Context("listing upstream tools", func() {
		BeforeEach(func() {
			blocked = []string{"delete_"}
			linear.Reply("list_issues", mcptesting.JSONResult([]any{}))
			linear.Reply("create_issue", mcptesting.JSONResult(map[string]any{}))
			linear.Reply("delete_comment", mcptesting.JSONResult(map[string]any{}))
		})

		It("classifies and flags each tool", func() {
			_, env := invoke("list_upstream_tools", map[string]any{"server": toolserver.Linear})
			Expect(env.Status).To(Equal("ok"))

			var upstream []coreDomain.UpstreamTool
			Expect(env.DecodeData(&upstream)).To(Succeed())
			Expect(upstream).To(ContainElements(
				coreDomain.UpstreamTool{Name: "list_issues", Access: "read"},
				coreDomain.UpstreamTool{Name: "create_issue", Access: "write"},
				coreDomain.UpstreamTool{Name: "delete_comment", Access: "write", Blocked: true},
			))
		})
	})

	It("reports unknown servers", func() {
		result, env := invoke("list_upstream_tools", map[string]any{"server": "jira"})
		Expect(result.IsError).To(BeTrue())
		Expect(env.Code).To(Equal("server_not_found"))
	})

	Describe("call_upstream_tool", func() {
		It("forwards raw arguments", func() {
			linear.Reply("get_issue", mcptesting.JSONResult(map[string]any{"identifier": "ENG-1"}))

			_, env := invoke("call_upstream_tool", map[string]any{
				"server":    toolserver.Linear,
				"tool":      "get_issue",
				"arguments": map[string]any{"id": "ENG-1"},
			})
			Expect(env.Status).To(Equal("ok"))
			Expect(linear.Calls()[0].Args).To(HaveKeyWithValue("id", "ENG-1"))

			var outcome coreDomain.CallOutcome
			Expect(env.DecodeData(&outcome)).To(Succeed())
			Expect(outcome.Value).To(HaveKeyWithValue("identifier", "ENG-1"))
		})

		It("classifies access by the forwarded tool", func() {
			call := findTool("call_upstream_tool")
			Expect(call.AccessFor(mcptesting.CallRequest("call_upstream_tool", map[string]any{"tool": "list_issues"}))).
				To(Equal(domain.AccessRead))
			Expect(call.AccessFor(mcptesting.CallRequest("call_upstream_tool", map[string]any{"tool": "update_issue"}))).
				To(Equal(domain.AccessWrite))
		})

		It("requires a tool name", func() {
			_, env := invoke("call_upstream_tool", map[string]any{"server": toolserver.Linear})
			Expect(env.Code).To(Equal("invalid_params"))
		})

		It("passes upstream tool errors through", func() {
			_, env := invoke("call_upstream_tool", map[string]any{"server": toolserver.Linear, "tool": "missing"})
			Expect(env.Code).To(Equal("upstream_tool_error"))
		})
	})

	Describe("compare_screenshots", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			writePNG(filepath.Join(dir, "a.png"), color.RGBA{255, 255, 255, 255})
			writePNG(filepath.Join(dir, "b.png"), color.RGBA{255, 255, 255, 255})
			writePNG(filepath.Join(dir, "c.png"), color.RGBA{0, 0, 0, 255})
		})

		It("reports identical images as ok", func() {
			_, env := invoke("compare_screenshots", map[string]any{
				"actual": filepath.Join(dir, "a.png"), "expected": filepath.Join(dir, "b.png"),
			})
			Expect(env.Status).To(Equal("ok"))
			Expect(filepath.Join(dir, "diff.png")).To(BeAnExistingFile())
		})

		It("reports differing images as partial", func() {
			diffPath := filepath.Join(dir, "out", "diff.png")
			Expect(os.MkdirAll(filepath.Dir(diffPath), 0o755)).To(Succeed())

			_, env := invoke("compare_screenshots", map[string]any{
				"actual": filepath.Join(dir, "a.png"), "expected": filepath.Join(dir, "c.png"), "diffPath": diffPath,
			})
			Expect(env.Status).To(Equal("partial"))

			var data map[string]any
			Expect(env.DecodeData(&data)).To(Succeed())
			Expect(data["mismatchedPixels"]).To(BeNumerically("==", 16))
			Expect(diffPath).To(BeAnExistingFile())
		})

		It("is a write tool because it writes the diff image", func() {
			compare := findTool("compare_screenshots")
			Expect(compare.AccessFor(mcptesting.CallRequest("compare_screenshots", nil))).To(Equal(domain.AccessWrite))
		})
	})

	It("serves recent logs as a resource", func() {
		buffer.Append("first")
		buffer.Append("second")

		resources, err := plugin.GetResources(ctx)
		Expect(err).NotTo(HaveOccurred())

		var logs domain.Resource
		for _, r := range resources {
			if r.URI == "mcp-bridge://core/logs/recent" {
				logs = r
			}
		}
		var req mcp.ReadResourceRequest
		req.Params.URI = logs.URI
		contents, err := logs.Handler(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		text := contents[0].(mcp.TextResourceContents).Text
		Expect(text).To(ContainSubstring(`"second"`))
		Expect(text).To(ContainSubstring(`"capacity": 10`))
	})
})
