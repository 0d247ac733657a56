package authorization

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/server/auth"
	"github.com/mark3labs/mcp-go/mcp"
)

// DeniedResult renders a refused call for the client.
type DeniedResult func(err error) *mcp.CallToolResult

func defaultDenied(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Permission denied: %v", err))
}

// WrapToolWithAuthorization checks every call against authChecker before the
// original handler runs. A refusal is reported as a tool error result, not a
// protocol error, so the calling agent can read it.
func WrapToolWithAuthorization(
	tool domain.Tool,
	authChecker auth.AuthorizationChecker,
	denied DeniedResult,
	logger *slog.Logger,
) domain.Tool {
	if authChecker == nil {
		return tool
	}
	if denied == nil {
		denied = defaultDenied
	}

	originalHandler := tool.Handler
	authorizedHandler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		access := tool.AccessFor(request)

		if err := authChecker.CheckPermission(ctx, tool.Name, access); err != nil {
			logger.Warn("Authorization failed",
				"tool", tool.Name,
				"access", access,
				"error", err)
			return denied(err), nil
		}

		return originalHandler(ctx, request)
	}

	wrapped := tool
	wrapped.Handler = authorizedHandler
	return wrapped
}
