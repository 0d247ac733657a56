package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"

	plugins "github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/application"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

const shutdownTimeout = 30 * time.Second

type serverHooksParams struct {
	fx.In
	Lifecycle       fx.Lifecycle
	Shutdowner      fx.Shutdowner
	Config          *config.ServerConfig
	MCPServer       *server.MCPServer
	Adapter         *MCPAdapter
	DynamicRegistry *plugins.DynamicServerPluginRegistry
	Logger          *slog.Logger
}

// registerServerHooks uses fx.Hook to manage the server's lifecycle.
func registerServerHooks(p serverHooksParams) {
	var (
		httpServer *http.Server
		stopStdio  context.CancelFunc
	)
	cfg, logger := p.Config, p.Logger

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Performing initial plugin synchronization...")
			if err := p.DynamicRegistry.SyncServerPlugins(ctx); err != nil {
				logger.Error("Initial plugin sync failed", "error", err)
			}

			if err := p.Adapter.RegisterAllServerPlugins(ctx); err != nil {
				return fmt.Errorf("failed to register server plugins: %w", err)
			}
			p.DynamicRegistry.OnChange(p.Adapter.ApplyChanges)

			addr := net.JoinHostPort(cfg.Transport.Host, strconv.Itoa(cfg.Transport.Port))
			switch cfg.Transport.Type {
			case "sse":
				sseServer := server.NewSSEServer(p.MCPServer, server.WithBaseURL("http://"+addr))
				httpServer = newHTTPServer(addr, sseServer, cfg.Transport.CORS)
			case "http":
				mux := http.NewServeMux()
				mux.Handle("/mcp", server.NewStreamableHTTPServer(p.MCPServer))
				httpServer = newHTTPServer(addr, mux, cfg.Transport.CORS)
			case "stdio":
				logger.Info("Starting MCP server with 'stdio' transport.")
				stdioCtx, cancel := context.WithCancel(context.Background())
				stopStdio = cancel
				go func() {
					stdio := server.NewStdioServer(p.MCPServer)
					if err := stdio.Listen(stdioCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("Stdio server failed", "error", err)
					}
					// The client closed stdin; nothing is left to serve.
					if err := p.Shutdowner.Shutdown(); err != nil {
						logger.Debug("Shutdown already in progress", "error", err)
					}
				}()
				return nil
			default:
				return fmt.Errorf("unknown transport type: %s", cfg.Transport.Type)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			logger.Info("MCP server listening", "transport", cfg.Transport.Type, "address", addr)
			go func() {
				if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if stopStdio != nil {
				stopStdio()
			}
			if httpServer != nil {
				logger.Info("Shutting down HTTP server gracefully...")
				shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			}
			logger.Info("Stdio server shutdown.")
			return nil
		},
	})
}

func newHTTPServer(addr string, handler http.Handler, cors config.CORSConfig) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           CORSMiddleware(cors)(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
