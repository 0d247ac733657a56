package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
)

// ErrReadOnly is returned for write tools while the bridge runs read-only.
var ErrReadOnly = errors.New("bridge is read-only")

// AuthorizationChecker decides whether a tool call may proceed.
type AuthorizationChecker interface {
	CheckPermission(ctx context.Context, tool string, access domain.ToolAccess) error
}

// PermissionError names the tool and access level that were refused.
type PermissionError struct {
	Tool   string
	Access domain.ToolAccess
	Err    error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Tool, e.Access, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// IsReadOnlyViolation reports whether err came from the read-only policy.
func IsReadOnlyViolation(err error) bool {
	return errors.Is(err, ErrReadOnly)
}
