package playwright

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/screenshot"
	mcpserver "github.com/jimmyghelani-usm/mcp-bridge/internal/server"
	serverDomain "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	pw "github.com/jimmyghelani-usm/mcp-bridge/internal/tools/playwright"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
)

// PlaywrightServerPlugin re-exposes the Playwright browser tools and adds
// the page-versus-design visual check.
type PlaywrightServerPlugin struct {
	browser  *pw.Client
	capturer *screenshot.Capturer
	diffOpts screenshot.Options
	logger   *slog.Logger
}

func NewPlaywrightServerPlugin(browser *pw.Client, capturer *screenshot.Capturer, diffOpts screenshot.Options, logger *slog.Logger) *PlaywrightServerPlugin {
	return &PlaywrightServerPlugin{browser: browser, capturer: capturer, diffOpts: diffOpts, logger: logger}
}

func (p *PlaywrightServerPlugin) ID() string             { return "playwright" }
func (p *PlaywrightServerPlugin) Name() string           { return "Playwright" }
func (p *PlaywrightServerPlugin) Version() string        { return "0.1.0" }
func (p *PlaywrightServerPlugin) UpstreamServer() string { return toolserver.Playwright }
func (p *PlaywrightServerPlugin) Description() string {
	return "Browser automation through Playwright and visual comparison against Figma"
}

// textTool adapts a wrapper method that answers with a page snapshot.
func textTool[P any](name, upstream, description string, validate func(P) error, call func(context.Context, P) (string, error), opts ...mcp.ToolOption) mcpserver.ToolSpec {
	return mcpserver.ToolSpec{
		Name:        name,
		Description: description,
		Upstream:    upstream,
		Options:     opts,
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var params P
			if err := mcpserver.Bind(req, &params); err != nil {
				return mcpserver.FromError(err), nil
			}
			if validate != nil {
				if err := validate(params); err != nil {
					return mcpserver.FromError(err), nil
				}
			}
			text, err := call(ctx, params)
			return mcpserver.Respond(description, map[string]any{"snapshot": text}, err), nil
		},
	}
}

func noParams(f func(context.Context) (string, error)) func(context.Context, struct{}) (string, error) {
	return func(ctx context.Context, _ struct{}) (string, error) { return f(ctx) }
}

func targetOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("element", mcp.Description("Human-readable element description")),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Exact element reference from the page snapshot")),
	}
}

func requireRef(t pw.Target) error {
	if err := pw.ValidateRef(t.Ref); err != nil {
		return &mcpserver.ParamError{Err: err}
	}
	return nil
}

func (p *PlaywrightServerPlugin) GetTools(ctx context.Context) ([]serverDomain.Tool, error) {
	b := p.browser
	return mcpserver.BuildTools(
		textTool("playwright_navigate", pw.ToolNavigate, "Navigate to a URL",
			func(a pw.NavigateParams) error { return mcpserver.Required("url", a.URL) },
			b.Navigate,
			mcp.WithString("url", mcp.Required(), mcp.Description("URL to open"))),
		textTool("playwright_navigate_back", pw.ToolNavigateBack, "Go back to the previous page", nil, noParams(b.NavigateBack)),
		textTool("playwright_snapshot", pw.ToolSnapshot, "Capture the accessibility snapshot of the page", nil, noParams(b.Snapshot)),
		textTool("playwright_click", pw.ToolClick, "Click an element",
			func(a pw.ClickParams) error { return requireRef(a.Target) },
			b.Click,
			append(targetOptions(),
				mcp.WithBoolean("doubleClick", mcp.Description("Double-click instead of click")),
				mcp.WithString("button", mcp.Enum("left", "right", "middle")))...),
		textTool("playwright_type", pw.ToolType, "Type text into an editable element",
			func(a pw.TypeParams) error { return requireRef(a.Target) },
			b.Type,
			append(targetOptions(),
				mcp.WithString("text", mcp.Required(), mcp.Description("Text to type")),
				mcp.WithBoolean("submit", mcp.Description("Press Enter afterwards")),
				mcp.WithBoolean("slowly", mcp.Description("Type one character at a time")))...),
		textTool("playwright_hover", pw.ToolHover, "Hover over an element", requireRef, b.Hover, targetOptions()...),
		textTool("playwright_press_key", pw.ToolPressKey, "Press a key",
			func(a pw.PressKeyParams) error { return mcpserver.Required("key", a.Key) },
			b.PressKey,
			mcp.WithString("key", mcp.Required(), mcp.Description("Key name such as ArrowLeft or a character"))),
		textTool("playwright_select_option", pw.ToolSelectOption, "Select options in a dropdown",
			func(a pw.SelectOptionParams) error { return requireRef(a.Target) },
			b.SelectOption,
			append(targetOptions(),
				mcp.WithArray("values", mcp.Required(), mcp.WithStringItems(), mcp.Description("Values to select")))...),
		textTool("playwright_fill_form", pw.ToolFillForm, "Fill several form fields", nil, b.FillForm,
			mcp.WithArray("fields", mcp.Required(), mcp.Description("Fields to fill"), mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":  map[string]any{"type": "string"},
					"type":  map[string]any{"type": "string", "enum": []string{"textbox", "checkbox", "radio", "combobox", "slider"}},
					"ref":   map[string]any{"type": "string"},
					"value": map[string]any{"type": "string"},
				},
				"required": []string{"name", "type", "ref", "value"},
			}))),
		textTool("playwright_wait_for", pw.ToolWaitFor, "Wait for time to pass or text to appear or disappear", nil, b.WaitFor,
			mcp.WithNumber("time", mcp.Description("Seconds to wait")),
			mcp.WithString("text", mcp.Description("Text to wait for")),
			mcp.WithString("textGone", mcp.Description("Text to wait to disappear"))),
		textTool("playwright_resize", pw.ToolResize, "Resize the browser window", nil, b.Resize,
			mcp.WithNumber("width", mcp.Required()),
			mcp.WithNumber("height", mcp.Required())),
		textTool("playwright_console_messages", pw.ToolConsoleMessages, "Return the console messages of the page", nil, b.ConsoleMessages,
			mcp.WithBoolean("onlyErrors", mcp.Description("Only return errors"))),
		textTool("playwright_network_requests", pw.ToolNetworkRequests, "List network requests since the page loaded", nil, noParams(b.NetworkRequests)),
		textTool("playwright_tabs", pw.ToolTabs, "List, open, close or select browser tabs", nil, b.Tabs,
			mcp.WithString("action", mcp.Required(), mcp.Enum("list", "new", "close", "select")),
			mcp.WithNumber("index", mcp.Description("Tab index for close and select"))),
		textTool("playwright_handle_dialog", pw.ToolHandleDialog, "Accept or dismiss a dialog", nil, b.HandleDialog,
			mcp.WithBoolean("accept", mcp.Required()),
			mcp.WithString("promptText", mcp.Description("Text for prompt dialogs"))),
		textTool("playwright_close", pw.ToolClose, "Close the page", nil, noParams(b.Close)),
		mcpserver.ToolSpec{
			Name:        "playwright_evaluate",
			Description: "Evaluate a JavaScript function on the page or an element",
			Upstream:    pw.ToolEvaluate,
			Options: []mcp.ToolOption{
				mcp.WithString("function", mcp.Required(), mcp.Description("() => { ... } or (element) => { ... }")),
				mcp.WithString("element", mcp.Description("Human-readable element description")),
				mcp.WithString("ref", mcp.Description("Element reference from the page snapshot")),
			},
			Handler: p.handleEvaluate,
		},
		mcpserver.ToolSpec{
			Name:        "playwright_take_screenshot",
			Description: "Take a screenshot of the page or an element",
			Upstream:    pw.ToolTakeScreenshot,
			Options: []mcp.ToolOption{
				mcp.WithString("type", mcp.Enum("png", "jpeg")),
				mcp.WithString("filename", mcp.Description("File name to save the screenshot to")),
				mcp.WithString("element", mcp.Description("Human-readable element description")),
				mcp.WithString("ref", mcp.Description("Element reference from the page snapshot")),
				mcp.WithBoolean("fullPage", mcp.Description("Capture the full scrollable page")),
			},
			Handler: p.handleTakeScreenshot,
		},
		mcpserver.ToolSpec{
			Name:        "playwright_visual_check",
			Description: "Screenshot a page and a Figma node, diff them and report the mismatch ratio",
			Upstream:    pw.ToolTakeScreenshot,
			// Navigates the browser and writes the screenshots and diff to disk.
			Access: serverDomain.AccessWrite,
			Options: []mcp.ToolOption{
				mcp.WithString("url", mcp.Required(), mcp.Description("Page to capture")),
				mcp.WithString("nodeId", mcp.Required(), mcp.Description("Figma node id or URL")),
				mcp.WithString("fileKey", mcp.Description("Figma file key for the remote server")),
				mcp.WithNumber("width", mcp.Description("Viewport width")),
				mcp.WithNumber("height", mcp.Description("Viewport height")),
				mcp.WithBoolean("fullPage", mcp.Description("Capture the full scrollable page")),
				mcp.WithString("name", mcp.Description("Prefix of the output directory")),
				mcp.WithNumber("threshold", mcp.Description("Per-pixel color threshold between 0 and 1")),
			},
			Handler: p.handleVisualCheck,
		},
	), nil
}

func (p *PlaywrightServerPlugin) handleEvaluate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params pw.EvaluateParams
	if err := mcpserver.Bind(req, &params); err != nil {
		return mcpserver.FromError(err), nil
	}
	if err := mcpserver.Required("function", params.Function); err != nil {
		return mcpserver.FromError(err), nil
	}
	value, err := p.browser.Evaluate(ctx, params)
	return mcpserver.Respond("Function evaluated", map[string]any{"result": value}, err), nil
}

func (p *PlaywrightServerPlugin) handleTakeScreenshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params pw.TakeScreenshotParams
	if err := mcpserver.Bind(req, &params); err != nil {
		return mcpserver.FromError(err), nil
	}
	shot, err := p.browser.TakeScreenshot(ctx, params)
	if err != nil {
		return mcpserver.FromError(err), nil
	}
	result := mcpserver.OK("Screenshot taken", map[string]any{"path": shot.Path, "bytes": len(shot.Data)})
	if len(shot.Data) > 0 {
		result = mcpserver.WithImage(result, shot.MIMEType, shot.Data)
	}
	return result, nil
}

type visualCheckArgs struct {
	URL       string   `json:"url"`
	NodeID    string   `json:"nodeId"`
	FileKey   string   `json:"fileKey"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	FullPage  bool     `json:"fullPage"`
	Name      string   `json:"name"`
	Threshold *float64 `json:"threshold"`
}

func (p *PlaywrightServerPlugin) handleVisualCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args visualCheckArgs
	if err := mcpserver.Bind(req, &args); err != nil {
		return mcpserver.FromError(err), nil
	}
	for _, check := range []error{mcpserver.Required("url", args.URL), mcpserver.Required("nodeId", args.NodeID)} {
		if check != nil {
			return mcpserver.FromError(check), nil
		}
	}

	opts := p.diffOpts
	if args.Threshold != nil {
		if *args.Threshold < 0 || *args.Threshold > 1 {
			return mcpserver.FromError(&mcpserver.ParamError{Err: fmt.Errorf("threshold must be between 0 and 1")}), nil
		}
		opts.Threshold = *args.Threshold
	}

	report, err := p.capturer.Capture(ctx, screenshot.CaptureRequest{
		URL:      args.URL,
		NodeID:   args.NodeID,
		FileKey:  args.FileKey,
		Width:    args.Width,
		Height:   args.Height,
		FullPage: args.FullPage,
		Name:     args.Name,
	}, opts)
	if err != nil {
		return mcpserver.FromError(err), nil
	}

	if report.Passed {
		return mcpserver.OK("Page matches the design", report), nil
	}
	return mcpserver.NewResult(mcpserver.ToolResponse{
		Status:  mcpserver.ToolStatusPartial,
		Message: fmt.Sprintf("Page differs from the design: %.2f%% of pixels mismatched", report.Result.Ratio*100),
		Data:    report,
		Hint:    "Open the diff image to see the differing regions in red.",
	}), nil
}
