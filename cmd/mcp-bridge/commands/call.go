package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) callCmd() *cobra.Command {
	var (
		params    string
		imagesDir string
	)
	cmd := &cobra.Command{
		Use:   "call <server> <tool>",
		Short: "Call a tool on an upstream server and print its reply",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, tool := args[0], args[1]
			arguments, err := parseParams(params)
			if err != nil {
				return err
			}

			return c.withUpstream(cmd.Context(), func(u upstream) error {
				res, err := u.pool.CallTool(cmd.Context(), server, tool, arguments)
				if err != nil {
					return err
				}
				if imagesDir != "" {
					images, err := res.Images()
					if err != nil {
						return err
					}
					if err := os.MkdirAll(imagesDir, 0o755); err != nil {
						return fmt.Errorf("failed to create %s: %w", imagesDir, err)
					}
					for i, img := range images {
						ext := strings.TrimPrefix(img.MIMEType, "image/")
						path := filepath.Join(imagesDir, fmt.Sprintf("%s-%d.%s", tool, i, ext))
						if err := os.WriteFile(path, img.Data, 0o644); err != nil {
							return fmt.Errorf("failed to write %s: %w", path, err)
						}
						fmt.Fprintln(cmd.ErrOrStderr(), "saved", path)
					}
				}
				return writeJSON(cmd.OutOrStdout(), res.Value())
			})
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "tool arguments as a JSON object")
	cmd.Flags().StringVar(&imagesDir, "save-images", "", "directory to write image content to")
	return cmd
}

// parseParams decodes a JSON object; empty input means no arguments.
func parseParams(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("--params must be a JSON object: %w", err)
	}
	return out, nil
}
