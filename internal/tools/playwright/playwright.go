// Package playwright wraps the browser tools of the Playwright MCP server.
// Every method maps to the tool browser_<snake_case name>.
package playwright

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
)

const (
	ToolNavigate        = "browser_navigate"
	ToolNavigateBack    = "browser_navigate_back"
	ToolSnapshot        = "browser_snapshot"
	ToolClick           = "browser_click"
	ToolType            = "browser_type"
	ToolHover           = "browser_hover"
	ToolPressKey        = "browser_press_key"
	ToolSelectOption    = "browser_select_option"
	ToolFillForm        = "browser_fill_form"
	ToolWaitFor         = "browser_wait_for"
	ToolEvaluate        = "browser_evaluate"
	ToolResize          = "browser_resize"
	ToolTakeScreenshot  = "browser_take_screenshot"
	ToolConsoleMessages = "browser_console_messages"
	ToolNetworkRequests = "browser_network_requests"
	ToolTabs            = "browser_tabs"
	ToolHandleDialog    = "browser_handle_dialog"
	ToolClose           = "browser_close"
)

// Target identifies an element from a page snapshot. Element is the
// human-readable description used for permission prompts; Ref is exact.
type Target struct {
	Element string `json:"element"`
	Ref     string `json:"ref"`
}

// refPattern matches snapshot element refs: e12, or f1e12 for an element
// inside a frame. Older servers prefix the snapshot instead (s1e12).
var refPattern = regexp.MustCompile(`^(?:[fs]\d+)?e\d+$`)

// ValidateRef rejects refs that did not come from a page snapshot, such as
// CSS selectors or element labels.
func ValidateRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("ref is required")
	}
	if !refPattern.MatchString(ref) {
		return fmt.Errorf("ref %q is not a snapshot element reference such as e12", ref)
	}
	return nil
}

func validateOptionalRef(action, ref string) error {
	if ref == "" {
		return nil
	}
	if err := ValidateRef(ref); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

func (t Target) validate(action string) error {
	if err := ValidateRef(t.Ref); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

type NavigateParams struct {
	URL string `json:"url"`
}

type ClickParams struct {
	Target
	DoubleClick bool     `json:"doubleClick,omitempty"`
	Button      string   `json:"button,omitempty"`
	Modifiers   []string `json:"modifiers,omitempty"`
}

type TypeParams struct {
	Target
	Text   string `json:"text"`
	Submit bool   `json:"submit,omitempty"`
	Slowly bool   `json:"slowly,omitempty"`
}

type HoverParams = Target

type PressKeyParams struct {
	Key string `json:"key"`
}

type SelectOptionParams struct {
	Target
	Values []string `json:"values"`
}

// FormField is one entry of a FillForm call. Type is textbox, checkbox,
// radio, combobox or slider.
type FormField struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Ref   string `json:"ref"`
	Value string `json:"value"`
}

type FillFormParams struct {
	Fields []FormField `json:"fields"`
}

// WaitForParams waits for a duration in seconds, for text to appear, or for
// text to disappear.
type WaitForParams struct {
	Time     float64 `json:"time,omitempty"`
	Text     string  `json:"text,omitempty"`
	TextGone string  `json:"textGone,omitempty"`
}

type EvaluateParams struct {
	Function string `json:"function"`
	Element  string `json:"element,omitempty"`
	Ref      string `json:"ref,omitempty"`
}

type ResizeParams struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type TakeScreenshotParams struct {
	Type     string `json:"type,omitempty"`
	Filename string `json:"filename,omitempty"`
	Element  string `json:"element,omitempty"`
	Ref      string `json:"ref,omitempty"`
	FullPage bool   `json:"fullPage,omitempty"`
}

type ConsoleMessagesParams struct {
	OnlyErrors bool `json:"onlyErrors,omitempty"`
}

// TabsParams drives browser_tabs; Action is list, new, close or select.
type TabsParams struct {
	Action string `json:"action"`
	Index  *int   `json:"index,omitempty"`
}

type HandleDialogParams struct {
	Accept     bool   `json:"accept"`
	PromptText string `json:"promptText,omitempty"`
}

// Screenshot is an image captured from the page. Path is set when the server
// also saved it to disk.
type Screenshot struct {
	MIMEType string
	Data     []byte
	Path     string
}

// Client calls the Playwright MCP server.
type Client struct {
	caller mcpclient.Caller
	server string
}

func New(caller mcpclient.Caller) *Client {
	return &Client{caller: caller, server: toolserver.Playwright}
}

// text calls tool and returns its text reply. Playwright answers most actions
// with a markdown page snapshot.
func (c *Client) text(ctx context.Context, tool string, params any) (string, error) {
	res, err := c.caller.CallTool(ctx, c.server, tool, params)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

func (c *Client) Navigate(ctx context.Context, params NavigateParams) (string, error) {
	if params.URL == "" {
		return "", fmt.Errorf("navigate: url is required")
	}
	return c.text(ctx, ToolNavigate, params)
}

func (c *Client) NavigateBack(ctx context.Context) (string, error) {
	return c.text(ctx, ToolNavigateBack, nil)
}

// Snapshot returns the accessibility snapshot of the current page.
func (c *Client) Snapshot(ctx context.Context) (string, error) {
	return c.text(ctx, ToolSnapshot, nil)
}

func (c *Client) Click(ctx context.Context, params ClickParams) (string, error) {
	if err := params.validate("click"); err != nil {
		return "", err
	}
	return c.text(ctx, ToolClick, params)
}

func (c *Client) Type(ctx context.Context, params TypeParams) (string, error) {
	if err := params.validate("type"); err != nil {
		return "", err
	}
	return c.text(ctx, ToolType, params)
}

func (c *Client) Hover(ctx context.Context, params HoverParams) (string, error) {
	if err := params.validate("hover"); err != nil {
		return "", err
	}
	return c.text(ctx, ToolHover, params)
}

func (c *Client) PressKey(ctx context.Context, params PressKeyParams) (string, error) {
	return c.text(ctx, ToolPressKey, params)
}

func (c *Client) SelectOption(ctx context.Context, params SelectOptionParams) (string, error) {
	if err := params.validate("select option"); err != nil {
		return "", err
	}
	return c.text(ctx, ToolSelectOption, params)
}

func (c *Client) FillForm(ctx context.Context, params FillFormParams) (string, error) {
	if len(params.Fields) == 0 {
		return "", fmt.Errorf("fill form: at least one field is required")
	}
	for _, f := range params.Fields {
		if err := ValidateRef(f.Ref); err != nil {
			return "", fmt.Errorf("fill form: field %q: %w", f.Name, err)
		}
	}
	return c.text(ctx, ToolFillForm, params)
}

func (c *Client) WaitFor(ctx context.Context, params WaitForParams) (string, error) {
	return c.text(ctx, ToolWaitFor, params)
}

// Evaluate runs a JavaScript function in the page, or on an element when a
// ref is given, and returns its unwrapped result.
func (c *Client) Evaluate(ctx context.Context, params EvaluateParams) (any, error) {
	if err := validateOptionalRef("evaluate", params.Ref); err != nil {
		return nil, err
	}
	res, err := c.caller.CallTool(ctx, c.server, ToolEvaluate, params)
	if err != nil {
		return nil, err
	}
	return res.Value(), nil
}

func (c *Client) Resize(ctx context.Context, params ResizeParams) (string, error) {
	if params.Width <= 0 || params.Height <= 0 {
		return "", fmt.Errorf("resize: width and height must be positive, got %dx%d", params.Width, params.Height)
	}
	return c.text(ctx, ToolResize, params)
}

var savedPathPattern = regexp.MustCompile(`(?i)saved (?:it )?(?:as|to) (\S+\.(?:png|jpe?g))`)

// TakeScreenshot captures the viewport, the full page or one element.
func (c *Client) TakeScreenshot(ctx context.Context, params TakeScreenshotParams) (*Screenshot, error) {
	if err := validateOptionalRef("take screenshot", params.Ref); err != nil {
		return nil, err
	}
	res, err := c.caller.CallTool(ctx, c.server, ToolTakeScreenshot, params)
	if err != nil {
		return nil, err
	}

	shot := &Screenshot{}
	if m := savedPathPattern.FindStringSubmatch(res.Text()); m != nil {
		shot.Path = strings.Trim(m[1], "`'\"")
	}

	images, err := res.Images()
	if err != nil {
		return nil, err
	}
	if len(images) > 0 {
		shot.MIMEType = images[0].MIMEType
		shot.Data = images[0].Data
	}
	if shot.Data == nil && shot.Path == "" {
		return nil, fmt.Errorf("%s/%s: reply carried no image", c.server, ToolTakeScreenshot)
	}
	return shot, nil
}

func (c *Client) ConsoleMessages(ctx context.Context, params ConsoleMessagesParams) (string, error) {
	return c.text(ctx, ToolConsoleMessages, params)
}

func (c *Client) NetworkRequests(ctx context.Context) (string, error) {
	return c.text(ctx, ToolNetworkRequests, nil)
}

func (c *Client) Tabs(ctx context.Context, params TabsParams) (string, error) {
	switch params.Action {
	case "list", "new", "close", "select":
	default:
		return "", fmt.Errorf("tabs: unknown action %q", params.Action)
	}
	return c.text(ctx, ToolTabs, params)
}

func (c *Client) HandleDialog(ctx context.Context, params HandleDialogParams) (string, error) {
	return c.text(ctx, ToolHandleDialog, params)
}

// Close closes the page. The upstream session stays open.
func (c *Client) Close(ctx context.Context) (string, error) {
	return c.text(ctx, ToolClose, nil)
}
