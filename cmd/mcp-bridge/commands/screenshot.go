package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/screenshot"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/figma"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/playwright"
)

func (c *cli) screenshotDiffCmd() *cobra.Command {
	var (
		diffPath  string
		threshold float64
		maxRatio  float64
	)
	cmd := &cobra.Command{
		Use:   "screenshot-diff <actual> <expected>",
		Short: "Diff two images; exits 1 when the mismatch ratio exceeds --max-ratio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := screenshot.OptionsFromConfig(c.cfg)
			opts.AllowSizeMismatch = true
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}
			if !cmd.Flags().Changed("max-ratio") {
				maxRatio = c.cfg.Screenshots.MaxDiffRatio
			}
			if diffPath == "" {
				diffPath = filepath.Join(filepath.Dir(args[0]), "diff.png")
			}

			res, err := screenshot.CompareFiles(args[0], args[1], diffPath, opts)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), map[string]any{
				"diffPath":         diffPath,
				"width":            res.Width,
				"height":           res.Height,
				"mismatchedPixels": res.MismatchedPixels,
				"totalPixels":      res.TotalPixels,
				"ratio":            res.Ratio,
				"sizeMismatch":     res.SizeMismatch,
			}); err != nil {
				return err
			}
			if res.Ratio > maxRatio {
				return fmt.Errorf("images differ: %.2f%% of pixels mismatched (max %.2f%%)", res.Ratio*100, maxRatio*100)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&diffPath, "diff", "", "where to write the diff image (default diff.png next to <actual>)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "per-pixel color threshold between 0 and 1 (default screenshots.threshold)")
	cmd.Flags().Float64Var(&maxRatio, "max-ratio", 0, "largest accepted mismatch ratio (default screenshots.max_diff_ratio)")
	return cmd
}

func (c *cli) visualCheckCmd() *cobra.Command {
	var (
		req    screenshot.CaptureRequest
		remote bool
	)
	cmd := &cobra.Command{
		Use:   "visual-check",
		Short: "Screenshot a page and a Figma node and diff them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.FileKey == "" {
				req.FileKey = figma.FileKeyFromURL(req.NodeID)
			}
			return c.withUpstream(cmd.Context(), func(u upstream) error {
				design := figma.NewDesktop(u.pool)
				if remote {
					design = figma.NewRemote(u.pool)
				}
				capturer := screenshot.NewCapturerFromConfig(c.cfg, playwright.New(u.pool), design, u.logger)
				report, err := capturer.Capture(cmd.Context(), req, screenshot.OptionsFromConfig(c.cfg))
				if err != nil {
					return err
				}
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if !report.Passed {
					return fmt.Errorf("page differs from the design: %.2f%% of pixels mismatched, see %s", report.Result.Ratio*100, report.DiffPath)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.URL, "url", "", "page to capture")
	cmd.Flags().StringVar(&req.NodeID, "node-id", "", "Figma node id or URL")
	cmd.Flags().StringVar(&req.FileKey, "file-key", "", "Figma file key, needed by the remote server")
	cmd.Flags().IntVar(&req.Width, "width", 0, "viewport width")
	cmd.Flags().IntVar(&req.Height, "height", 0, "viewport height")
	cmd.Flags().BoolVar(&req.FullPage, "full-page", false, "capture the full scrollable page")
	cmd.Flags().StringVar(&req.Name, "name", "", "prefix of the output directory")
	cmd.Flags().BoolVar(&remote, "remote", false, "use the remote Figma server")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("node-id")
	return cmd
}
