package auth

import (
	"context"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

type AllowAllChecker struct{}

func NewAllowAllChecker() *AllowAllChecker {
	return &AllowAllChecker{}
}

func (c *AllowAllChecker) CheckPermission(context.Context, string, domain.ToolAccess) error {
	return nil
}

// ReadOnlyChecker refuses every write tool.
type ReadOnlyChecker struct{}

func NewReadOnlyChecker() *ReadOnlyChecker {
	return &ReadOnlyChecker{}
}

func (c *ReadOnlyChecker) CheckPermission(_ context.Context, tool string, access domain.ToolAccess) error {
	if access == domain.AccessWrite {
		return &PermissionError{Tool: tool, Access: access, Err: ErrReadOnly}
	}
	return nil
}

// NewAuthorizationChecker picks the checker for the security settings.
func NewAuthorizationChecker(cfg config.SecurityConfig) AuthorizationChecker {
	if cfg.ReadOnly {
		return NewReadOnlyChecker()
	}
	return NewAllowAllChecker()
}
