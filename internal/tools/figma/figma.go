// Package figma wraps the tools exposed by the Figma Dev Mode MCP servers.
package figma

import (
	"context"
	"fmt"
	"strings"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
)

const (
	ToolGetDesignContext        = "get_design_context"
	ToolGetVariableDefs         = "get_variable_defs"
	ToolGetScreenshot           = "get_screenshot"
	ToolGetMetadata             = "get_metadata"
	ToolGetCodeConnectMap       = "get_code_connect_map"
	ToolCreateDesignSystemRules = "create_design_system_rules"
	ToolGetFigJam               = "get_figjam"
)

// NodeParams selects a node and describes the client that will consume the
// generated code. FileKey is only needed by the remote server.
type NodeParams struct {
	NodeID           string `json:"nodeId,omitempty"`
	FileKey          string `json:"fileKey,omitempty"`
	ClientLanguages  string `json:"clientLanguages,omitempty"`
	ClientFrameworks string `json:"clientFrameworks,omitempty"`
}

type GetDesignContextParams struct {
	NodeParams
	ForceCode bool `json:"forceCode,omitempty"`
}

type GetVariableDefsParams = NodeParams

type GetScreenshotParams = NodeParams

type GetMetadataParams = NodeParams

type GetCodeConnectMapParams = NodeParams

type GetFigJamParams struct {
	NodeParams
	IncludeImagesOfNodes bool `json:"includeImagesOfNodes,omitempty"`
}

type CreateDesignSystemRulesParams struct {
	ClientLanguages  string `json:"clientLanguages,omitempty"`
	ClientFrameworks string `json:"clientFrameworks,omitempty"`
}

// Screenshot is a rendered node image.
type Screenshot struct {
	MIMEType string
	Data     []byte
}

// CodeConnectEntry maps a Figma node to a component in the codebase.
type CodeConnectEntry struct {
	CodeConnectSrc  string `json:"codeConnectSrc"`
	CodeConnectName string `json:"codeConnectName"`
}

// Client calls one Figma MCP server, desktop or remote.
type Client struct {
	caller mcpclient.Caller
	server string
}

// NewDesktop returns a client for the Figma desktop app server.
func NewDesktop(caller mcpclient.Caller) *Client {
	return New(caller, toolserver.FigmaDesktop)
}

// NewRemote returns a client for the hosted Figma server.
func NewRemote(caller mcpclient.Caller) *Client {
	return New(caller, toolserver.FigmaRemote)
}

func New(caller mcpclient.Caller, server string) *Client {
	return &Client{caller: caller, server: server}
}

// Server returns the upstream server name.
func (c *Client) Server() string {
	return c.server
}

// GetDesignContext returns the generated code for a node. Replies that only
// carry an "Error:" message are returned as a *mcpclient.ToolError.
func (c *Client) GetDesignContext(ctx context.Context, params GetDesignContextParams) (string, error) {
	res, err := c.caller.CallTool(ctx, c.server, ToolGetDesignContext, params)
	if err != nil {
		return "", err
	}
	text := res.Text()
	if err := mcpclient.GuardErrorText(c.server, ToolGetDesignContext, text); err != nil {
		return "", err
	}
	return text, nil
}

// GetVariableDefs returns the variables bound to a node, keyed by name.
func (c *Client) GetVariableDefs(ctx context.Context, params GetVariableDefsParams) (map[string]any, error) {
	return mcpclient.Call[map[string]any](ctx, c.caller, c.server, ToolGetVariableDefs, params)
}

// GetScreenshot renders a node and returns the image bytes.
func (c *Client) GetScreenshot(ctx context.Context, params GetScreenshotParams) (*Screenshot, error) {
	res, err := c.caller.CallTool(ctx, c.server, ToolGetScreenshot, params)
	if err != nil {
		return nil, err
	}
	if err := mcpclient.GuardErrorText(c.server, ToolGetScreenshot, res.Text()); err != nil {
		return nil, err
	}

	images, err := res.Images()
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%s/%s: reply carried no image", c.server, ToolGetScreenshot)
	}
	return &Screenshot{MIMEType: images[0].MIMEType, Data: images[0].Data}, nil
}

// GetMetadata returns the node tree of a selection as XML.
func (c *Client) GetMetadata(ctx context.Context, params GetMetadataParams) (string, error) {
	res, err := c.caller.CallTool(ctx, c.server, ToolGetMetadata, params)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (c *Client) GetCodeConnectMap(ctx context.Context, params GetCodeConnectMapParams) (map[string]CodeConnectEntry, error) {
	return mcpclient.Call[map[string]CodeConnectEntry](ctx, c.caller, c.server, ToolGetCodeConnectMap, params)
}

// CreateDesignSystemRules returns a rules prompt for the given client stack.
func (c *Client) CreateDesignSystemRules(ctx context.Context, params CreateDesignSystemRulesParams) (string, error) {
	res, err := c.caller.CallTool(ctx, c.server, ToolCreateDesignSystemRules, params)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

// GetFigJam returns the unwrapped FigJam board description.
func (c *Client) GetFigJam(ctx context.Context, params GetFigJamParams) (any, error) {
	res, err := c.caller.CallTool(ctx, c.server, ToolGetFigJam, params)
	if err != nil {
		return nil, err
	}
	return res.Value(), nil
}

// NormalizeNodeID accepts "1-2", "1:2" or a Figma URL carrying node-id and
// returns the "1:2" form the tools expect.
func NormalizeNodeID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.Index(id, "node-id="); i >= 0 {
		id = id[i+len("node-id="):]
		if j := strings.IndexAny(id, "&#"); j >= 0 {
			id = id[:j]
		}
	}
	return strings.Replace(id, "-", ":", 1)
}

// FileKeyFromURL extracts the file key from a figma.com design or file URL.
func FileKeyFromURL(u string) string {
	for _, marker := range []string{"/design/", "/file/", "/board/"} {
		if i := strings.Index(u, marker); i >= 0 {
			rest := u[i+len(marker):]
			if j := strings.IndexAny(rest, "/?#"); j >= 0 {
				rest = rest[:j]
			}
			return rest
		}
	}
	return ""
}
