package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/credentials"
)

func (c *cli) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "auth",
		Short:       "Manage upstream tokens in the OS credential store",
		Annotations: map[string]string{"config": "none"},
	}
	cmd.AddCommand(c.authSetCmd(), c.authDeleteCmd(), c.authStatusCmd())
	return cmd
}

func (c *cli) authSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <linear|figma> [token]",
		Short: "Store a token; read from stdin when not given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := credentials.ParseKind(args[0])
			if err != nil {
				return err
			}
			token := ""
			if len(args) == 2 {
				token = args[1]
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "Enter %s: ", kind)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = line
			}
			if err := c.creds.Set(kind, strings.TrimSpace(token)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s stored\n", kind)
			return nil
		},
	}
}

func (c *cli) authDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <linear|figma>",
		Short: "Remove a stored token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := credentials.ParseKind(args[0])
			if err != nil {
				return err
			}
			if err := c.creds.Delete(kind); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", kind)
			return nil
		},
	}
}

func (c *cli) authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which tokens are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, kind := range credentials.Kinds() {
				state := "not stored"
				if c.creds.Has(kind) {
					state = "stored"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", kind, state)
			}
			return nil
		},
	}
}
