package commands

import (
	"github.com/spf13/cobra"

	"github.com/jimmyghelani-usm/mcp-bridge/pkg/fxapp"
)

func (c *cli) serveCmd() *cobra.Command {
	var (
		transport string
		port      int
		readOnly  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("transport") {
				c.cfg.Transport.Type = transport
			}
			if cmd.Flags().Changed("port") {
				c.cfg.Transport.Port = port
			}
			if readOnly {
				c.cfg.Security.ReadOnly = true
			}

			app := fxapp.New(c.cfg)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "", "stdio, sse or http (overrides transport.type)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port for sse and http")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "only expose tools that do not mutate upstream state")
	return cmd
}
