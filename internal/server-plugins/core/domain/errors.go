package domain

import (
	"errors"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
)

var (
	// ErrServerNotFound is shared with the registry so callers classify both the same way.
	ErrServerNotFound = toolserver.ErrServerNotFound
	ErrEmptyToolName  = errors.New("tool name cannot be empty")
)
