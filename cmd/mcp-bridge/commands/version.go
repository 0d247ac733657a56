package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"config": "none"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (built on %s)\n", config.AppName, config.Version, BuildTime)
		},
	}
}
