package domain

import (
	"strings"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
)

// ToolAccess classifies what a tool does to the outside world.
type ToolAccess string

const (
	AccessRead  ToolAccess = "read"
	AccessWrite ToolAccess = "write"
)

// IsValid checks if the access level is known
func (a ToolAccess) IsValid() bool {
	switch a {
	case AccessRead, AccessWrite:
		return true
	default:
		return false
	}
}

// String returns the string representation of the access level
func (a ToolAccess) String() string {
	return string(a)
}

// knownTools overrides the naming convention for upstream tools that it misclassifies.
var knownTools = map[string]ToolAccess{
	"create_design_system_rules": AccessRead,
}

// browserObservers are the browser tools that only look at the page. Every
// other browser_ tool drives the page and counts as a write.
var browserObservers = map[string]bool{
	"browser_snapshot":         true,
	"browser_take_screenshot":  true,
	"browser_console_messages": true,
	"browser_network_requests": true,
	"browser_wait_for":         true,
	"browser_resize":           true,
}

// ClassifyTool returns the access level implied by a tool name. The name may
// be qualified as "server/tool".
func ClassifyTool(name string) ToolAccess {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if access, ok := knownTools[name]; ok {
		return access
	}
	if strings.HasPrefix(name, "browser_") {
		if browserObservers[name] {
			return AccessRead
		}
		return AccessWrite
	}
	if mcpclient.IsMutatingTool(name) {
		return AccessWrite
	}
	return AccessRead
}
