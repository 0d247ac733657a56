package onboarding_test

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/onboarding"
	onbDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/onboarding/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/testing/mcptesting"
)

type stubPlugin struct {
	id       string
	upstream string
	tools    []domain.Tool
	prompts  []domain.Prompt
}

func (s *stubPlugin) ID() string             { return s.id }
func (s *stubPlugin) Name() string           { return s.id }
func (s *stubPlugin) Description() string    { return "" }
func (s *stubPlugin) Version() string        { return "0.0.1" }
func (s *stubPlugin) UpstreamServer() string { return s.upstream }

func (s *stubPlugin) GetTools(context.Context) ([]domain.Tool, error)     { return s.tools, nil }
func (s *stubPlugin) GetPrompts(context.Context) ([]domain.Prompt, error) { return s.prompts, nil }

type stubProvider struct {
	plugins []*stubPlugin
	extra   []domain.ResourceProvider
}

func (s *stubProvider) GetResourceProviders() []domain.ResourceProvider { return s.extra }

func (s *stubProvider) GetToolProviders() []domain.ToolProvider {
	out := make([]domain.ToolProvider, 0, len(s.plugins))
	for _, p := range s.plugins {
		out = append(out, p)
	}
	return out
}

func (s *stubProvider) GetPromptProviders() []domain.PromptProvider {
	out := make([]domain.PromptProvider, 0, len(s.plugins))
	for _, p := range s.plugins {
		out = append(out, p)
	}
	return out
}

var _ = Describe("OnboardingServerPlugin", func() {
	var (
		ctx       context.Context
		plugin    *onboarding.OnboardingServerPlugin
		resources map[string]domain.Resource
	)

	read := func(uri string) string {
		var req mcp.ReadResourceRequest
		req.Params.URI = uri
		contents, err := resources[uri].Handler(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		return contents[0].(mcp.TextResourceContents).Text
	}

	BeforeEach(func() {
		ctx = context.Background()
		plugin = onboarding.NewOnboardingServerPlugin(mcptesting.DiscardLogger())
		list, err := plugin.GetResources(ctx)
		Expect(err).NotTo(HaveOccurred())
		resources = make(map[string]domain.Resource)
		for _, r := range list {
			resources[r.URI] = r
		}
	})

	It("is always active", func() {
		Expect(plugin.UpstreamServer()).To(BeEmpty())
		Expect(resources).To(HaveKey("mcp-bridge://onboarding/quickstart"))
	})

	It("points the quickstart at the visual check loop", func() {
		Expect(read("mcp-bridge://onboarding/quickstart")).To(ContainSubstring("playwright_visual_check"))
	})

	It("fails the capability index until a provider is set", func() {
		var req mcp.ReadResourceRequest
		req.Params.URI = "mcp-bridge://onboarding/capabilities"
		_, err := resources[req.Params.URI].Handler(ctx, req)
		Expect(err).To(HaveOccurred())
	})

	It("indexes active tools by upstream server with examples", func() {
		plugin.SetProvider(&stubProvider{
			plugins: []*stubPlugin{
				{
					id:       "playwright",
					upstream: "playwright",
					tools: []domain.Tool{
						{Name: "playwright_visual_check", Description: "diff", Access: domain.AccessWrite},
						{Name: "playwright_snapshot", Description: "tree"},
					},
				},
				{
					id: "core",
					tools: []domain.Tool{
						{Name: "call_upstream_tool", Description: "raw", Classify: func(mcp.CallToolRequest) domain.ToolAccess { return domain.AccessRead }},
					},
				},
				{
					id:       "figma",
					upstream: "figma-desktop",
					prompts:  []domain.Prompt{{Name: "implement_figma_design", Description: "implement"}},
				},
			},
			extra: []domain.ResourceProvider{plugin},
		})

		var catalog onbDomain.Catalog
		Expect(json.Unmarshal([]byte(read("mcp-bridge://onboarding/capabilities")), &catalog)).To(Succeed())

		Expect(catalog.Version).To(Equal(plugin.Version()))
		Expect(catalog.Servers).To(HaveLen(2))
		Expect(catalog.Servers[0].Server).To(Equal("playwright"))
		Expect(catalog.Servers[1].Server).To(Equal(onbDomain.BridgeServer))

		check, ok := catalog.Tool("playwright_visual_check")
		Expect(ok).To(BeTrue())
		Expect(check.Access).To(Equal("write"))
		Expect(check.Example).To(HaveKeyWithValue("nodeId", "1:2"))

		snapshot, _ := catalog.Tool("playwright_snapshot")
		Expect(snapshot.Access).To(Equal("read"))
		Expect(snapshot.Example).To(BeNil())

		raw, _ := catalog.Tool("call_upstream_tool")
		Expect(raw.Access).To(Equal(onbDomain.AccessPerCall))

		Expect(catalog.Prompts).To(ConsistOf(onbDomain.PromptRef{Plugin: "figma", Name: "implement_figma_design", Description: "implement"}))
		Expect(catalog.Resources).To(HaveLen(4))
	})

	It("maps intents to registered tool names", func() {
		var intents []onbDomain.Intent
		Expect(json.Unmarshal([]byte(read("mcp-bridge://onboarding/intent-map")), &intents)).To(Succeed())
		Expect(intents).To(ContainElement(HaveField("Goal", "compare")))
		for _, intent := range intents {
			if intent.Goal == "compare" {
				Expect(intent.Tool).To(Equal("playwright_visual_check"))
			}
		}
	})

	It("serves recipes", func() {
		var recipes []onbDomain.Recipe
		Expect(json.Unmarshal([]byte(read("mcp-bridge://onboarding/examples")), &recipes)).To(Succeed())
		Expect(recipes).NotTo(BeEmpty())
		Expect(recipes[0].Steps[0].Tool).To(Equal("figma_get_design_context"))
		Expect(recipes[0].Done).NotTo(BeEmpty())
	})
})
