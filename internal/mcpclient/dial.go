package mcpclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// ClientInfo identifies the bridge during the initialize handshake.
type ClientInfo struct {
	Name    string
	Version string
}

// NewDialer returns the Dialer used in production: stdio spawns the configured
// command, http uses streamable HTTP and sse uses the legacy SSE transport.
//
// The session outlives the call that dialed it, so the transport is started
// on a context detached from ctx. Only the handshake is bound to ctx.
func NewDialer(info ClientInfo, logger *slog.Logger) Dialer {
	return func(ctx context.Context, cfg toolserver.ServerConfig) (ToolCaller, error) {
		c, err := newTransportClient(context.WithoutCancel(ctx), cfg, logger)
		if err != nil {
			return nil, err
		}

		if err := Initialize(ctx, c, info); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize MCP server %s: %w", cfg.Name, err)
		}

		logger.Debug("MCP server connected",
			"server", cfg.Name,
			"transport", cfg.Transport)
		return c, nil
	}
}

func newTransportClient(ctx context.Context, cfg toolserver.ServerConfig, logger *slog.Logger) (*client.Client, error) {
	switch cfg.Transport {
	case toolserver.TransportStdio:
		// The stdio client spawns the subprocess on construction; Start is not needed.
		c, err := client.NewStdioMCPClient(cfg.Command, cfg.EnvList(), cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("failed to spawn MCP server %s (%s): %w", cfg.Name, cfg.Command, err)
		}
		if stderr, ok := client.GetStderr(c); ok {
			go drainStderr(stderr, cfg.Name, logger)
		}
		return c, nil

	case toolserver.TransportHTTP:
		var opts []transport.StreamableHTTPCOption
		if headers := cfg.ExpandedHeaders(); len(headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(headers))
		}
		c, err := client.NewStreamableHttpClient(cfg.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client for %s: %w", cfg.Name, err)
		}
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to start HTTP transport for %s: %w", cfg.Name, err)
		}
		return c, nil

	case toolserver.TransportSSE:
		var opts []transport.ClientOption
		if headers := cfg.ExpandedHeaders(); len(headers) > 0 {
			opts = append(opts, transport.WithHeaders(headers))
		}
		c, err := client.NewSSEMCPClient(cfg.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE client for %s: %w", cfg.Name, err)
		}
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to start SSE transport for %s: %w", cfg.Name, err)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown transport %q for server %s", cfg.Transport, cfg.Name)
	}
}

// Initializer is the part of an MCP client that performs the handshake.
type Initializer interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
}

// Initialize runs the MCP initialize handshake with the latest protocol version.
func Initialize(ctx context.Context, c Initializer, info ClientInfo) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    info.Name,
		Version: info.Version,
	}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	_, err := c.Initialize(ctx, req)
	return err
}

// drainStderr forwards a stdio server's stderr to the debug log; an unread pipe
// would eventually block the child.
func drainStderr(r io.Reader, server string, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		logger.Debug("MCP server stderr", "server", server, "line", scanner.Text())
	}
}
