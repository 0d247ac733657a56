package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/credentials"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/fxapp"
)

// BuildTime is set by main from its ldflags.
var BuildTime = "unknown"

const stopTimeout = 10 * time.Second

// cli holds the state shared by the subcommands of one invocation.
type cli struct {
	configFile string
	logLevel   string
	cfg        *config.ServerConfig
	creds      *credentials.Store
}

// upstream is what one-shot commands get from the client application.
type upstream struct {
	pool     *mcpclient.Pool
	registry *toolserver.Registry
	logger   *slog.Logger
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{creds: credentials.NewStore()}

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "One MCP endpoint for Figma, Playwright and Linear",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsConfig(cmd) {
				return nil
			}
			cfg, err := config.LoadConfigFrom(c.configFile)
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				if err := config.ValidateLogLevel(c.logLevel); err != nil {
					return err
				}
				cfg.LogLevel = c.logLevel
			}
			c.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ./config.yaml or $XDG_CONFIG_HOME/mcp-bridge/config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	root.AddCommand(
		c.serveCmd(),
		c.callCmd(),
		c.toolsCmd(),
		c.serversCmd(),
		c.mcpJSONCmd(),
		c.figmaSpecsCmd(),
		c.screenshotDiffCmd(),
		c.visualCheckCmd(),
		c.authCmd(),
		versionCmd(),
	)
	return root
}

// needsConfig is false for commands that must work without a valid config.
func needsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["config"] == "none" {
			return false
		}
	}
	return true
}

// withUpstream starts the client application for the duration of fn.
func (c *cli) withUpstream(ctx context.Context, fn func(u upstream) error) error {
	var u upstream
	app := fxapp.NewClient(c.cfg, fx.Populate(&u.pool, &u.registry, &u.logger))
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()
	return fn(u)
}
