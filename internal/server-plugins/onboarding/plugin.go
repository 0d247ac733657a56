package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	mcpserver "github.com/jimmyghelani-usm/mcp-bridge/internal/server"
	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	onbDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/onboarding/domain"
)

const uriPrefix = "mcp-bridge://onboarding/"

// OnboardingServerPlugin provides discovery and onboarding resources
type OnboardingServerPlugin struct {
	provider mcpserver.ServerPluginProvider
	logger   *slog.Logger
}

func NewOnboardingServerPlugin(logger *slog.Logger) *OnboardingServerPlugin {
	return &OnboardingServerPlugin{logger: logger}
}

// SetProvider allows late injection to avoid Fx cycles
func (p *OnboardingServerPlugin) SetProvider(provider mcpserver.ServerPluginProvider) {
	p.provider = provider
}

// ServerPlugin interface
func (p *OnboardingServerPlugin) ID() string   { return "onboarding" }
func (p *OnboardingServerPlugin) Name() string { return "Onboarding & Discovery" }
func (p *OnboardingServerPlugin) Description() string {
	return "Quickstart, capability index and intent map for the bridge tools"
}
func (p *OnboardingServerPlugin) Version() string        { return "0.1.0" }
func (p *OnboardingServerPlugin) UpstreamServer() string { return "" }

// ResourceProvider implementation
func (p *OnboardingServerPlugin) GetResources(ctx context.Context) ([]serverDomain.Resource, error) {
	return []serverDomain.Resource{
		{
			URI:         uriPrefix + "quickstart",
			Name:        "Quickstart",
			Description: "Start here: the design-to-code loop, Linear tracking and safe usage",
			MIMEType:    "text/markdown",
			Handler:     p.handleQuickstartResource,
		},
		{
			URI:         uriPrefix + "capabilities",
			Name:        "Capabilities Index",
			Description: "Index of the active tools, resources and prompts with examples",
			MIMEType:    "application/json",
			Handler:     p.handleCapabilitiesIndexResource,
		},
		{
			URI:         uriPrefix + "intent-map",
			Name:        "Intent Map",
			Description: "Mapping of common goals and their synonyms to bridge tools",
			MIMEType:    "application/json",
			Handler:     p.handleIntentMapResource,
		},
		{
			URI:         uriPrefix + "examples",
			Name:        "Recipes",
			Description: "Step-by-step tool sequences for common workflows",
			MIMEType:    "application/json",
			Handler:     p.handleExamplesResource,
		},
	}, nil
}

const quickstart = "# Quickstart\n\n" +
	"This server bridges Figma, Playwright and Linear MCP servers behind one set of tools.\n" +
	"Every tool answers with a JSON envelope: `status`, `code`, `message`, `data`, `hint`.\n\n" +
	"## Design to code\n" +
	"1) `figma_get_design_context` → `{ nodeId: \"https://www.figma.com/design/<key>/<name>?node-id=1-2\" }`\n" +
	"2) `figma_extract_design_spec` → colors, spacing, radii and typography of the node\n" +
	"3) Implement the component, start the dev server\n" +
	"4) `playwright_visual_check` → `{ url: \"http://localhost:3000\", nodeId: \"1:2\" }`\n" +
	"5) Iterate until `status` is `ok`; the diff image shows mismatches in red\n\n" +
	"## Track the work\n" +
	"- Find the ticket: `linear_list_issues` → `{ query: \"hero\", team: \"ENG\" }`\n" +
	"- Report progress: `linear_create_comment` → `{ issueId: \"ENG-42\", body: \"...\" }`\n\n" +
	"## Discover & learn\n" +
	"- Goals → tools: `mcp-bridge://onboarding/intent-map`\n" +
	"- Recipes: `mcp-bridge://onboarding/examples`\n" +
	"- Every active tool and prompt: `mcp-bridge://onboarding/capabilities`\n" +
	"- Upstream servers: `list_servers`, `list_upstream_tools`, `mcp-bridge://core/servers`\n\n" +
	"## Safety\n" +
	"- With `security.read_only` only read tools run; writes return code `read_only`\n" +
	"- Tools matching `security.blocked_tools` return code `tool_blocked`\n" +
	"- `call_upstream_tool` is checked against the forwarded tool name\n\n" +
	"## Troubleshooting\n" +
	"- `upstream_unavailable` from Figma → open the desktop app and enable its MCP server, or pass `remote: true`\n" +
	"- `upstream_tool_error` \"nothing selected\" → select a node in Figma or pass `nodeId`\n" +
	"- `linear_api_key_missing` → run `mcp-bridge auth set linear` for the GraphQL fallback\n"

func (p *OnboardingServerPlugin) handleQuickstartResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "text/markdown", Text: quickstart}}, nil
}

// toolExamples are attached to the capability index entries of the same name.
var toolExamples = map[string]map[string]any{
	"figma_get_design_context": {"nodeId": "1:2", "clientFrameworks": "react"},
	"playwright_visual_check":  {"url": "http://localhost:3000", "nodeId": "1:2"},
	"linear_create_issue":      {"title": "Hero spacing is off", "team": "ENG", "priority": 3},
	"call_upstream_tool":       {"server": "linear", "tool": "list_teams", "arguments": map[string]any{}},
}

func (p *OnboardingServerPlugin) handleCapabilitiesIndexResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if p.provider == nil {
		return nil, fmt.Errorf("capability index is not ready yet")
	}
	catalog := onbDomain.NewCatalog(p.Version())

	for _, tp := range p.provider.GetToolProviders() {
		ts, err := tp.GetTools(ctx)
		if err != nil {
			p.logger.Warn("Skipping tools of plugin", "plugin_id", tp.ID(), "error", err)
			continue
		}
		for _, t := range ts {
			catalog.AddTool(tp.UpstreamServer(), onbDomain.ToolRef{
				Name:        t.Name,
				Plugin:      tp.ID(),
				Description: t.Description,
				Access:      accessOf(t),
				Example:     toolExamples[t.Name],
			})
		}
	}
	for _, rp := range p.provider.GetResourceProviders() {
		rs, err := rp.GetResources(ctx)
		if err != nil {
			p.logger.Warn("Skipping resources of plugin", "plugin_id", rp.ID(), "error", err)
			continue
		}
		for _, r := range rs {
			catalog.Resources = append(catalog.Resources, onbDomain.ResourceRef{URI: r.URI, Name: r.Name, MIMEType: r.MIMEType})
		}
	}
	for _, pp := range p.provider.GetPromptProviders() {
		ps, err := pp.GetPrompts(ctx)
		if err != nil {
			p.logger.Warn("Skipping prompts of plugin", "plugin_id", pp.ID(), "error", err)
			continue
		}
		for _, pr := range ps {
			catalog.Prompts = append(catalog.Prompts, onbDomain.PromptRef{Plugin: pp.ID(), Name: pr.Name, Description: pr.Description})
		}
	}

	return jsonContents(req.Params.URI, catalog)
}

func accessOf(t serverDomain.Tool) string {
	switch {
	case t.Classify != nil:
		return onbDomain.AccessPerCall
	case t.Access != "":
		return t.Access.String()
	default:
		return serverDomain.ClassifyTool(t.Name).String()
	}
}

var intents = []onbDomain.Intent{
	{Goal: "inspect design", Synonyms: []string{"read figma", "design context", "get the mockup", "figma node"}, Tool: "figma_get_design_context", Params: []string{"nodeId", "fileKey"}},
	{Goal: "design tokens", Synonyms: []string{"colors", "spacing", "typography", "design spec", "variables"}, Tool: "figma_extract_design_spec", Params: []string{"nodeId"}},
	{Goal: "compare", Synonyms: []string{"pixel perfect", "visual diff", "matches design", "screenshot diff"}, Tool: "playwright_visual_check", Params: []string{"url", "nodeId"}},
	{Goal: "browse", Synonyms: []string{"open page", "visit", "load url"}, Tool: "playwright_navigate", Params: []string{"url"}},
	{Goal: "find ticket", Synonyms: []string{"search issues", "my issues", "backlog"}, Tool: "linear_list_issues", Params: []string{"query", "team", "assignee"}},
	{Goal: "file bug", Synonyms: []string{"create ticket", "new issue", "report"}, Tool: "linear_create_issue", Params: []string{"title", "team", "description"}},
	{Goal: "raw call", Synonyms: []string{"pass through", "other tool", "unwrapped tool"}, Tool: "call_upstream_tool", Params: []string{"server", "tool", "arguments"}},
}

func (p *OnboardingServerPlugin) handleIntentMapResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, intents)
}

var recipes = []onbDomain.Recipe{
	{
		ID:       "design-to-code",
		Title:    "Implement a Figma frame and verify it visually",
		Requires: []string{"Figma desktop app open with the MCP server enabled", "dev server running"},
		Steps: []onbDomain.Step{
			{Tool: "figma_get_design_context", Args: map[string]any{"nodeId": "1:2"}},
			{Tool: "figma_extract_design_spec", Args: map[string]any{"nodeId": "1:2"}, Note: "use the tokens instead of guessing values from the screenshot"},
			{Tool: "playwright_visual_check", Args: map[string]any{"url": "http://localhost:3000", "nodeId": "1:2"}, Note: "repeat after each change"},
		},
		Done: "visual check status is ok",
	},
	{
		ID:       "report-visual-regression",
		Title:    "File a Linear issue for a visual mismatch",
		Requires: []string{"a failed playwright_visual_check with its diff path"},
		Steps: []onbDomain.Step{
			{Tool: "linear_list_teams", Args: map[string]any{"query": "web"}},
			{Tool: "linear_create_issue", Args: map[string]any{"title": "Hero differs from design", "team": "WEB"}},
			{Tool: "linear_create_comment", Args: map[string]any{"issueId": "WEB-1", "body": "Diff image: <path>"}},
		},
		Done: "issue links the diff image",
	},
	{
		ID:       "offline-diff",
		Title:    "Compare two screenshots already on disk",
		Requires: []string{"two PNG files of the same size"},
		Steps: []onbDomain.Step{
			{Tool: "compare_screenshots", Args: map[string]any{"actual": "actual.png", "expected": "expected.png"}, Note: "partial means some pixels differ; open the diff image"},
		},
		Done: "status is ok",
	},
}

func (p *OnboardingServerPlugin) handleExamplesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, recipes)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(b)}}, nil
}
