package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/designspec"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/figma"
)

func (c *cli) figmaSpecsCmd() *cobra.Command {
	var (
		nodeID     string
		fileKey    string
		frameworks string
		remote     bool
		output     string
	)
	cmd := &cobra.Command{
		Use:   "figma-specs",
		Short: "Extract colors, typography, spacing and radii of a Figma node as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileKey == "" {
				fileKey = figma.FileKeyFromURL(nodeID)
			}
			params := figma.NodeParams{
				NodeID:           figma.NormalizeNodeID(nodeID),
				FileKey:          fileKey,
				ClientFrameworks: frameworks,
			}
			if params.NodeID == "" {
				return fmt.Errorf("--node-id is not a node id or a Figma URL with node-id")
			}

			return c.withUpstream(cmd.Context(), func(u upstream) error {
				client := figma.NewDesktop(u.pool)
				if remote {
					client = figma.NewRemote(u.pool)
				}
				spec, err := designspec.Scrape(cmd.Context(), client, params, u.logger)
				if err != nil {
					return err
				}
				if spec.IsEmpty() {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: no design values found for node", params.NodeID)
				}
				return writeJSONTo(cmd.OutOrStdout(), output, spec)
			})
		},
	}
	cmd.Flags().StringVar(&nodeID, "node-id", "", "node id (1:2 or 1-2) or a Figma URL with node-id")
	cmd.Flags().StringVar(&fileKey, "file-key", "", "file key, needed by the remote server")
	cmd.Flags().StringVar(&frameworks, "frameworks", "", "comma-separated frameworks of the consuming project")
	cmd.Flags().BoolVar(&remote, "remote", false, "use the remote Figma server instead of the desktop app")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the spec to a file")
	_ = cmd.MarkFlagRequired("node-id")
	return cmd
}
