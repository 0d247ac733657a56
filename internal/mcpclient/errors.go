package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/client/transport"
)

// DefaultFallbackMarkers are the error substrings that mark a call as lost in transit.
var DefaultFallbackMarkers = []string{"ETIMEDOUT", "Connection closed", "MCP_TIMEOUT"}

// sessionMarkers mean the server no longer knows the session; they always
// count as transport failures so the pool redials.
var sessionMarkers = []string{"Invalid session ID", "session not found", "client not initialized"}

// guardMarker is the prefix some servers use to report failures inside a successful reply.
const guardMarker = "Error:"

// ToolError is returned when the server answered but flagged the result as an error.
type ToolError struct {
	Server  string
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s: tool error: %s", e.Server, e.Tool, e.Message)
}

// BlockedToolError is returned for calls rejected by the blocked-tool list.
type BlockedToolError struct {
	Server  string
	Tool    string
	Pattern string
}

func (e *BlockedToolError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s: tool is blocked (matches pattern '%s')", e.Server, e.Tool, e.Pattern)
}

// CallError wraps a failure that happened before the server produced a result.
type CallError struct {
	Server string
	Tool   string
	Err    error
}

func (e *CallError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s: %v", e.Server, e.Tool, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// IsToolError returns true when err is (or wraps) a ToolError.
func IsToolError(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}

// IsBlocked returns true when err is (or wraps) a BlockedToolError.
func IsBlocked(err error) bool {
	var be *BlockedToolError
	return errors.As(err, &be)
}

// GuardErrorText turns a textual "Error:" reply into a ToolError.
func GuardErrorText(server, tool, text string) error {
	if strings.Contains(text, guardMarker) {
		return &ToolError{Server: server, Tool: tool, Message: strings.TrimSpace(text)}
	}
	return nil
}

// IsTransportFailure reports whether err means the request or reply was lost
// rather than answered, or that the session is gone. Tool errors and
// cancellations never qualify. Anything mcp-go reports as a *transport.Error
// does. With no markers the DefaultFallbackMarkers apply.
func IsTransportFailure(err error, markers ...string) bool {
	if err == nil {
		return false
	}
	if IsToolError(err) || IsBlocked(err) || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, transport.ErrSessionTerminated) {
		return true
	}
	var te *transport.Error
	if errors.As(err, &te) {
		return true
	}

	if len(markers) == 0 {
		markers = DefaultFallbackMarkers
	}
	msg := err.Error()
	for _, m := range sessionMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	for _, m := range markers {
		if m != "" && strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
