package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/screenshot"
	mcpserver "github.com/jimmyghelani-usm/mcp-bridge/internal/server"
	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugins/core/application"
)

const (
	serversResourceURI = "mcp-bridge://core/servers"
	logsResourceURI    = "mcp-bridge://core/logs/recent"
)

// CoreServerPlugin exposes the bridge itself: its upstream servers, a raw
// pass-through call, offline screenshot comparison and its recent logs.
type CoreServerPlugin struct {
	coreService *application.CoreService
	diffOpts    screenshot.Options
	logger      *slog.Logger
}

func NewCoreServerPlugin(coreService *application.CoreService, diffOpts screenshot.Options, logger *slog.Logger) *CoreServerPlugin {
	return &CoreServerPlugin{coreService: coreService, diffOpts: diffOpts, logger: logger}
}

func (p *CoreServerPlugin) ID() string   { return "core" }
func (p *CoreServerPlugin) Name() string { return "Bridge Core" }
func (p *CoreServerPlugin) Description() string {
	return "Upstream server inspection, raw tool pass-through and screenshot comparison"
}
func (p *CoreServerPlugin) Version() string { return "0.1.0" }

// UpstreamServer is empty: the core plugin is always active.
func (p *CoreServerPlugin) UpstreamServer() string { return "" }

// ResourceProvider implementation
func (p *CoreServerPlugin) GetResources(ctx context.Context) ([]serverDomain.Resource, error) {
	return []serverDomain.Resource{
		{
			URI:         serversResourceURI,
			Name:        "Upstream Servers",
			Description: "Configured upstream MCP servers and whether a session is open",
			MIMEType:    "application/json",
			Handler:     p.handleServersResource,
		},
		{
			URI:         logsResourceURI,
			Name:        "Recent Logs",
			Description: "The most recent bridge log lines, with secrets redacted",
			MIMEType:    "application/json",
			Handler:     p.handleLogsResource,
		},
	}, nil
}

func (p *CoreServerPlugin) handleServersResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	servers, err := p.coreService.ListServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return jsonResource(req.Params.URI, servers)
}

func (p *CoreServerPlugin) handleLogsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, p.coreService.RecentLogs(0))
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ToolProvider implementation
func (p *CoreServerPlugin) GetTools(ctx context.Context) ([]serverDomain.Tool, error) {
	return mcpserver.BuildTools(
		mcpserver.ToolSpec{
			Name:        "list_servers",
			Description: "List the configured upstream MCP servers",
			Handler:     p.handleListServers,
		},
		mcpserver.ToolSpec{
			Name:        "list_upstream_tools",
			Description: "List the tools an upstream server advertises, with their access level",
			Options: []mcp.ToolOption{
				mcp.WithString("server", mcp.Required(), mcp.Description("Upstream server name, see list_servers")),
			},
			Handler: p.handleListUpstreamTools,
		},
		mcpserver.ToolSpec{
			Name:        "call_upstream_tool",
			Description: "Call any tool of an upstream server with raw arguments",
			Options: []mcp.ToolOption{
				mcp.WithString("server", mcp.Required(), mcp.Description("Upstream server name")),
				mcp.WithString("tool", mcp.Required(), mcp.Description("Upstream tool name")),
				mcp.WithObject("arguments", mcp.Description("Tool arguments as a JSON object")),
			},
			Handler: p.handleCallUpstreamTool,
			Access:  serverDomain.AccessWrite,
			Classify: func(req mcp.CallToolRequest) serverDomain.ToolAccess {
				return serverDomain.ClassifyTool(req.GetString("tool", ""))
			},
		},
		mcpserver.ToolSpec{
			Name:        "compare_screenshots",
			Description: "Diff two PNG or JPEG files on disk and write a diff image",
			Access:      serverDomain.AccessWrite,
			Options: []mcp.ToolOption{
				mcp.WithString("actual", mcp.Required(), mcp.Description("Path of the first image")),
				mcp.WithString("expected", mcp.Required(), mcp.Description("Path of the second image")),
				mcp.WithString("diffPath", mcp.Description("Where to write the diff; defaults next to actual")),
				mcp.WithNumber("threshold", mcp.Description("Per-pixel color threshold between 0 and 1")),
			},
			Handler: p.handleCompareScreenshots,
		},
	), nil
}

func (p *CoreServerPlugin) handleListServers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	servers, err := p.coreService.ListServers(ctx)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	return mcpserver.OK(fmt.Sprintf("%d upstream servers configured", len(servers)), servers), nil
}

func (p *CoreServerPlugin) handleListUpstreamTools(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Server string `json:"server"`
	}
	if err := bindRequired(req, &args, func() error { return mcpserver.Required("server", args.Server) }); err != nil {
		return mcpserver.FromError(err), nil
	}
	tools, err := p.coreService.ListUpstreamTools(ctx, args.Server)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	return mcpserver.OK(fmt.Sprintf("%s advertises %d tools", args.Server, len(tools)), tools), nil
}

func (p *CoreServerPlugin) handleCallUpstreamTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Server    string         `json:"server"`
		Tool      string         `json:"tool"`
		Arguments map[string]any `json:"arguments"`
	}
	err := bindRequired(req, &args, func() error {
		if err := mcpserver.Required("server", args.Server); err != nil {
			return err
		}
		return mcpserver.Required("tool", args.Tool)
	})
	if err != nil {
		return mcpserver.FromError(err), nil
	}

	outcome, err := p.coreService.CallUpstreamTool(ctx, args.Server, args.Tool, args.Arguments)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	result := mcpserver.OK(fmt.Sprintf("%s/%s returned", args.Server, args.Tool), outcome)
	for _, img := range outcome.Images {
		result = mcpserver.WithImage(result, img.MIMEType, img.Data)
	}
	return result, nil
}

func (p *CoreServerPlugin) handleCompareScreenshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Actual    string   `json:"actual"`
		Expected  string   `json:"expected"`
		DiffPath  string   `json:"diffPath"`
		Threshold *float64 `json:"threshold"`
	}
	err := bindRequired(req, &args, func() error {
		if err := mcpserver.Required("actual", args.Actual); err != nil {
			return err
		}
		if err := mcpserver.Required("expected", args.Expected); err != nil {
			return err
		}
		if args.Threshold != nil && (*args.Threshold < 0 || *args.Threshold > 1) {
			return &mcpserver.ParamError{Err: fmt.Errorf("threshold must be between 0 and 1")}
		}
		return nil
	})
	if err != nil {
		return mcpserver.FromError(err), nil
	}

	opts := p.diffOpts
	opts.AllowSizeMismatch = true
	if args.Threshold != nil {
		opts.Threshold = *args.Threshold
	}
	diffPath := args.DiffPath
	if diffPath == "" {
		diffPath = filepath.Join(filepath.Dir(args.Actual), "diff.png")
	}

	res, err := screenshot.CompareFiles(args.Actual, args.Expected, diffPath, opts)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	data := map[string]any{
		"diffPath":         diffPath,
		"width":            res.Width,
		"height":           res.Height,
		"mismatchedPixels": res.MismatchedPixels,
		"totalPixels":      res.TotalPixels,
		"ratio":            res.Ratio,
		"sizeMismatch":     res.SizeMismatch,
	}
	if res.MismatchedPixels == 0 {
		return mcpserver.OK("Images are identical within the threshold", data), nil
	}
	return mcpserver.Partial(fmt.Sprintf("%d pixels differ (%.2f%%)", res.MismatchedPixels, res.Ratio*100), data), nil
}

// bindRequired decodes the arguments and then runs check against them.
func bindRequired(req mcp.CallToolRequest, dst any, check func() error) error {
	if err := mcpserver.Bind(req, dst); err != nil {
		return err
	}
	return check()
}
