package toolserver

import (
	"errors"
	"fmt"
)

// ErrServerNotFound is the sentinel for unknown upstream servers.
var ErrServerNotFound = errors.New("server not found")

// ServerNotFoundError names the server that was looked up.
type ServerNotFoundError struct {
	Name      string
	Available []string
}

func (e *ServerNotFoundError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Available) == 0 {
		return fmt.Sprintf("MCP server %q not configured", e.Name)
	}
	return fmt.Sprintf("MCP server %q not configured (available: %v)", e.Name, e.Available)
}

func (e *ServerNotFoundError) Unwrap() error { return ErrServerNotFound }

// IsServerNotFound returns true when err is (or wraps) a ServerNotFoundError.
func IsServerNotFound(err error) bool {
	return errors.Is(err, ErrServerNotFound)
}
