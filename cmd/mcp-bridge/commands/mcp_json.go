package commands

import (
	"os"

	"github.com/spf13/cobra"
)

func (c *cli) mcpJSONCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "mcp-json",
		Short: "Print the effective upstream servers as a .mcp.json document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withUpstream(cmd.Context(), func(u upstream) error {
				if output == "" {
					return u.registry.WriteMCPJSON(cmd.OutOrStdout())
				}
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				if err := u.registry.WriteMCPJSON(f); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
