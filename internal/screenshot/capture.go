package screenshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/figma"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/playwright"
)

// Browser is the part of the Playwright client a capture needs.
type Browser interface {
	Navigate(ctx context.Context, params playwright.NavigateParams) (string, error)
	Resize(ctx context.Context, params playwright.ResizeParams) (string, error)
	TakeScreenshot(ctx context.Context, params playwright.TakeScreenshotParams) (*playwright.Screenshot, error)
}

// Design is the part of the Figma client a capture needs.
type Design interface {
	GetScreenshot(ctx context.Context, params figma.GetScreenshotParams) (*figma.Screenshot, error)
}

// CaptureRequest names the page and the design node to compare.
type CaptureRequest struct {
	URL      string
	NodeID   string
	FileKey  string
	Width    int
	Height   int
	FullPage bool
	// Name prefixes the output directory; it defaults to the URL host.
	Name string
}

// Report is the outcome of a capture. Passed is set when the mismatch ratio
// is within the allowed ratio.
type Report struct {
	Dir        string  `json:"dir"`
	PagePath   string  `json:"pagePath"`
	DesignPath string  `json:"designPath"`
	DiffPath   string  `json:"diffPath"`
	Result     *Result `json:"result"`
	MaxRatio   float64 `json:"maxRatio"`
	Passed     bool    `json:"passed"`
}

// Capturer screenshots a page with Playwright and a node with Figma, stores
// both and diffs them.
type Capturer struct {
	browser  Browser
	design   Design
	dir      string
	maxRatio float64
	logger   *slog.Logger
	now      func() time.Time
}

func NewCapturer(browser Browser, design Design, dir string, maxRatio float64, logger *slog.Logger) *Capturer {
	return &Capturer{
		browser:  browser,
		design:   design,
		dir:      dir,
		maxRatio: maxRatio,
		logger:   logger,
		now:      time.Now,
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Capture runs the whole workflow. Size differences are tolerated and show up
// in the mismatch ratio.
func (c *Capturer) Capture(ctx context.Context, req CaptureRequest, opts Options) (*Report, error) {
	if req.URL == "" || req.NodeID == "" {
		return nil, fmt.Errorf("both a URL and a Figma node id are required")
	}
	opts.AllowSizeMismatch = true

	dir := filepath.Join(c.dir, c.runName(req))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	logger := c.logger.With("url", req.URL, "node_id", req.NodeID, "dir", dir)

	page, err := c.capturePage(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Debug("Captured page screenshot", "bytes", len(page))

	shot, err := c.design.GetScreenshot(ctx, figma.GetScreenshotParams{
		NodeID:  figma.NormalizeNodeID(req.NodeID),
		FileKey: req.FileKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture design screenshot: %w", err)
	}
	logger.Debug("Captured design screenshot", "bytes", len(shot.Data))

	pageImg, err := Decode(page)
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	designImg, err := Decode(shot.Data)
	if err != nil {
		return nil, fmt.Errorf("design screenshot: %w", err)
	}

	report := &Report{
		Dir:        dir,
		PagePath:   filepath.Join(dir, "page.png"),
		DesignPath: filepath.Join(dir, "design.png"),
		DiffPath:   filepath.Join(dir, "diff.png"),
		MaxRatio:   c.maxRatio,
	}
	if err := WritePNG(report.PagePath, pageImg); err != nil {
		return nil, err
	}
	if err := WritePNG(report.DesignPath, designImg); err != nil {
		return nil, err
	}

	res, err := Compare(pageImg, designImg, opts)
	if err != nil {
		return nil, err
	}
	if err := WritePNG(report.DiffPath, res.Diff); err != nil {
		return nil, err
	}
	report.Result = res
	report.Passed = res.Ratio <= c.maxRatio

	logger.Info("Visual comparison finished",
		"mismatched_pixels", res.MismatchedPixels,
		"ratio", res.Ratio,
		"passed", report.Passed)
	return report, nil
}

func (c *Capturer) capturePage(ctx context.Context, req CaptureRequest) ([]byte, error) {
	if req.Width > 0 && req.Height > 0 {
		if _, err := c.browser.Resize(ctx, playwright.ResizeParams{Width: req.Width, Height: req.Height}); err != nil {
			return nil, fmt.Errorf("failed to resize browser: %w", err)
		}
	}
	if _, err := c.browser.Navigate(ctx, playwright.NavigateParams{URL: req.URL}); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", req.URL, err)
	}

	shot, err := c.browser.TakeScreenshot(ctx, playwright.TakeScreenshotParams{Type: "png", FullPage: req.FullPage})
	if err != nil {
		return nil, fmt.Errorf("failed to capture page screenshot: %w", err)
	}
	if len(shot.Data) > 0 {
		return shot.Data, nil
	}
	data, err := os.ReadFile(shot.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page screenshot: %w", err)
	}
	return data, nil
}

func (c *Capturer) runName(req CaptureRequest) string {
	name := req.Name
	if name == "" {
		name = req.URL
		if i := strings.Index(name, "://"); i >= 0 {
			name = name[i+3:]
		}
	}
	name = strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-")
	if name == "" {
		name = "capture"
	}
	return fmt.Sprintf("%s-%s-%s", name, c.now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
}
