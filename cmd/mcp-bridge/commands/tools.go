package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
)

func (c *cli) toolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools <server>",
		Short: "List the tools of an upstream server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withUpstream(cmd.Context(), func(u upstream) error {
				tools, err := u.pool.ListTools(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), tools)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TOOL\tACCESS\tDESCRIPTION")
				for _, t := range tools {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, domain.ClassifyTool(t.Name), firstLine(t.Description))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full tool definitions as JSON")
	return cmd
}

func (c *cli) serversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List the configured upstream servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withUpstream(cmd.Context(), func(u upstream) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tTRANSPORT\tTARGET")
				for _, name := range u.registry.Names() {
					s, err := u.registry.Lookup(name)
					if err != nil {
						continue
					}
					target := s.URL
					if target == "" {
						target = s.Command
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Transport, target)
				}
				return tw.Flush()
			})
		},
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
