package figma

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/designspec"
	mcpserver "github.com/jimmyghelani-usm/mcp-bridge/internal/server"
	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	figmatools "github.com/jimmyghelani-usm/mcp-bridge/internal/tools/figma"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
)

// FigmaServerPlugin re-exposes the Figma Dev Mode tools. Calls go to the
// desktop server unless the caller asks for the remote one.
type FigmaServerPlugin struct {
	desktop *figmatools.Client
	remote  *figmatools.Client
	logger  *slog.Logger
}

func NewFigmaServerPlugin(desktop, remote *figmatools.Client, logger *slog.Logger) *FigmaServerPlugin {
	return &FigmaServerPlugin{desktop: desktop, remote: remote, logger: logger}
}

func (p *FigmaServerPlugin) ID() string      { return "figma" }
func (p *FigmaServerPlugin) Name() string    { return "Figma" }
func (p *FigmaServerPlugin) Version() string { return "0.1.0" }
func (p *FigmaServerPlugin) Description() string {
	return "Figma design context, screenshots, variables and design token extraction"
}
func (p *FigmaServerPlugin) UpstreamServer() string { return toolserver.FigmaDesktop }

// nodeArgs carries the arguments shared by the node tools.
type nodeArgs struct {
	figmatools.NodeParams
	Remote bool `json:"remote,omitempty"`
}

func nodeOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("nodeId", mcp.Required(), mcp.Description("Node id (\"1:2\" or \"1-2\") or a Figma URL with node-id")),
		mcp.WithString("fileKey", mcp.Description("File key, needed by the remote server; taken from the URL when nodeId is one")),
		mcp.WithString("clientLanguages", mcp.Description("Comma-separated languages of the consuming project, e.g. typescript,css")),
		mcp.WithString("clientFrameworks", mcp.Description("Comma-separated frameworks of the consuming project, e.g. react")),
		mcp.WithBoolean("remote", mcp.Description("Use the remote Figma server instead of the desktop app")),
	}
}

func (p *FigmaServerPlugin) GetTools(ctx context.Context) ([]serverDomain.Tool, error) {
	designContext := append(nodeOptions(),
		mcp.WithBoolean("forceCode", mcp.Description("Return code even for large selections")))
	figJam := append(nodeOptions(),
		mcp.WithBoolean("includeImagesOfNodes", mcp.Description("Include rendered images of the board nodes")))

	return mcpserver.BuildTools(
		mcpserver.ToolSpec{
			Name:        "figma_get_design_context",
			Description: "Generate UI code for a Figma node",
			Upstream:    figmatools.ToolGetDesignContext,
			Options:     designContext,
			Handler:     p.handleGetDesignContext,
		},
		mcpserver.ToolSpec{
			Name:        "figma_get_screenshot",
			Description: "Render a Figma node as an image",
			Upstream:    figmatools.ToolGetScreenshot,
			Options:     nodeOptions(),
			Handler:     p.handleGetScreenshot,
		},
		mcpserver.ToolSpec{
			Name:        "figma_get_variable_defs",
			Description: "List the variables and styles bound to a Figma node",
			Upstream:    figmatools.ToolGetVariableDefs,
			Options:     nodeOptions(),
			Handler:     p.handleGetVariableDefs,
		},
		mcpserver.ToolSpec{
			Name:        "figma_get_metadata",
			Description: "Get the layer tree of a Figma node as XML",
			Upstream:    figmatools.ToolGetMetadata,
			Options:     nodeOptions(),
			Handler:     p.handleGetMetadata,
		},
		mcpserver.ToolSpec{
			Name:        "figma_get_code_connect_map",
			Description: "Map Figma components in a node to code components",
			Upstream:    figmatools.ToolGetCodeConnectMap,
			Options:     nodeOptions(),
			Handler:     p.handleGetCodeConnectMap,
		},
		mcpserver.ToolSpec{
			Name:        "figma_get_figjam",
			Description: "Describe a FigJam board node",
			Upstream:    figmatools.ToolGetFigJam,
			Options:     figJam,
			Handler:     p.handleGetFigJam,
		},
		mcpserver.ToolSpec{
			Name:        "figma_create_design_system_rules",
			Description: "Generate design system rules for the consuming project",
			Upstream:    figmatools.ToolCreateDesignSystemRules,
			Options: []mcp.ToolOption{
				mcp.WithString("clientLanguages", mcp.Description("Comma-separated languages, e.g. typescript")),
				mcp.WithString("clientFrameworks", mcp.Description("Comma-separated frameworks, e.g. react")),
				mcp.WithBoolean("remote", mcp.Description("Use the remote Figma server")),
			},
			Handler: p.handleCreateDesignSystemRules,
		},
		mcpserver.ToolSpec{
			Name:        "figma_extract_design_spec",
			Description: "Extract colors, typography, spacing, radii, shadows and variables of a Figma node",
			Upstream:    figmatools.ToolGetDesignContext,
			Options:     nodeOptions(),
			Handler:     p.handleExtractDesignSpec,
		},
	), nil
}

func (p *FigmaServerPlugin) GetPrompts(ctx context.Context) ([]serverDomain.Prompt, error) {
	return []serverDomain.Prompt{
		{
			Name:        "implement_figma_design",
			Description: "Implement a Figma node as a component and check it against the design",
			Builder: func() mcp.Prompt {
				return mcp.NewPrompt("implement_figma_design",
					mcp.WithPromptDescription("Implement a Figma node as a component and check it against the design"),
					mcp.WithArgument("node_id", mcp.ArgumentDescription("Figma node id or URL"), mcp.RequiredArgument()),
					mcp.WithArgument("framework", mcp.ArgumentDescription("Target framework, default react")),
					mcp.WithArgument("url", mcp.ArgumentDescription("Local URL where the component renders")),
				)
			},
			Handler: p.handleImplementPrompt,
		},
	}, nil
}

func (p *FigmaServerPlugin) client(remote bool) *figmatools.Client {
	if remote {
		return p.remote
	}
	return p.desktop
}

// bindNode decodes node arguments and normalizes URL input.
func bindNode(req mcp.CallToolRequest) (nodeArgs, error) {
	var args nodeArgs
	if err := mcpserver.Bind(req, &args); err != nil {
		return args, err
	}
	if args.FileKey == "" {
		args.FileKey = figmatools.FileKeyFromURL(args.NodeID)
	}
	args.NodeID = figmatools.NormalizeNodeID(args.NodeID)
	return args, mcpserver.Required("nodeId", args.NodeID)
}

func (p *FigmaServerPlugin) handleGetDesignContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := bindNode(req)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	code, err := p.client(args.Remote).GetDesignContext(ctx, figmatools.GetDesignContextParams{
		NodeParams: args.NodeParams,
		ForceCode:  req.GetBool("forceCode", false),
	})
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	return mcpserver.OKWithLinks("Design context generated", map[string]any{"nodeId": args.NodeID, "code": code},
		mcpserver.ToolLink{Rel: "screenshot", Tool: "figma_get_screenshot", Params: map[string]any{"nodeId": args.NodeID}},
		mcpserver.ToolLink{Rel: "tokens", Tool: "figma_extract_design_spec", Params: map[string]any{"nodeId": args.NodeID}},
	), nil
}

func (p *FigmaServerPlugin) handleGetScreenshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := bindNode(req)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	shot, err := p.client(args.Remote).GetScreenshot(ctx, args.NodeParams)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	result := mcpserver.OK("Screenshot rendered", map[string]any{
		"nodeId":   args.NodeID,
		"mimeType": shot.MIMEType,
		"bytes":    len(shot.Data),
	})
	return mcpserver.WithImage(result, shot.MIMEType, shot.Data), nil
}

func (p *FigmaServerPlugin) handleGetVariableDefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := bindNode(req)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	defs, err := p.client(args.Remote).GetVariableDefs(ctx, args.NodeParams)
	return mcpserver.Respond(fmt.Sprintf("%d variables", len(defs)), defs, err), nil
}

func (p *FigmaServerPlugin) handleGetMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := bindNode(req)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	xml, err := p.client(args.Remote).GetMetadata(ctx, args.NodeParams)
	return mcpserver.Respond("Metadata retrieved", map[string]any{"nodeId": args.NodeID, "metadata": xml}, err), nil
}

func (p *FigmaServerPlugin) handleGetCodeConnectMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := bindNode(req)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	entries, err := p.client(args.Remote).GetCodeConnectMap(ctx, args.NodeParams)
	return mcpserver.Respond(fmt.Sprintf("%d mapped components", len(entries)), entries, err), nil
}

func (p *FigmaServerPlugin) handleGetFigJam(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := bindNode(req)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	board, err := p.client(args.Remote).GetFigJam(ctx, figmatools.GetFigJamParams{
		NodeParams:           args.NodeParams,
		IncludeImagesOfNodes: req.GetBool("includeImagesOfNodes", false),
	})
	return mcpserver.Respond("FigJam board retrieved", board, err), nil
}

func (p *FigmaServerPlugin) handleCreateDesignSystemRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params figmatools.CreateDesignSystemRulesParams
	if err := mcpserver.Bind(req, &params); err != nil {
		return mcpserver.FromError(err), nil
	}
	rules, err := p.client(req.GetBool("remote", false)).CreateDesignSystemRules(ctx, params)
	return mcpserver.Respond("Design system rules generated", map[string]any{"rules": rules}, err), nil
}

func (p *FigmaServerPlugin) handleExtractDesignSpec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := bindNode(req)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	spec, err := designspec.Scrape(ctx, p.client(args.Remote), args.NodeParams, p.logger)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	if spec.IsEmpty() {
		return mcpserver.Partial("No design tokens found in the generated code", spec), nil
	}
	return mcpserver.OK("Design spec extracted", spec), nil
}

func (p *FigmaServerPlugin) handleImplementPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	nodeID := strings.TrimSpace(req.Params.Arguments["node_id"])
	if nodeID == "" {
		return nil, fmt.Errorf("node_id is required")
	}
	framework := req.Params.Arguments["framework"]
	if framework == "" {
		framework = "react"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Implement Figma node %s as a %s component.\n\n", nodeID, framework)
	fmt.Fprintf(&b, "1. Call figma_get_design_context with nodeId %q and clientFrameworks %q.\n", nodeID, framework)
	fmt.Fprintf(&b, "2. Call figma_extract_design_spec with the same nodeId and use its tokens instead of literal values where the project defines them.\n")
	b.WriteString("3. Call figma_get_screenshot to see the intended rendering.\n")
	if url := req.Params.Arguments["url"]; url != "" {
		fmt.Fprintf(&b, "4. Once implemented, call playwright_visual_check with url %q and nodeId %q and fix differences until it passes.\n", url, nodeID)
	}

	return mcp.NewGetPromptResult(
		"Implement a Figma design",
		[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(b.String()))},
	), nil
}
