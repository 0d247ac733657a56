package server

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
)

// ToolSpec is the compact form plugins use to declare a tool. Upstream names
// the wrapped upstream tool and decides the access level; it may be empty
// for tools that only touch local state.
type ToolSpec struct {
	Name        string
	Description string
	Upstream    string
	Options     []mcp.ToolOption
	Handler     domain.ToolHandler
	// Access overrides the level derived from Upstream.
	Access domain.ToolAccess
	// Classify decides the access per call, for tools whose effect depends on arguments.
	Classify func(req mcp.CallToolRequest) domain.ToolAccess
}

// BuildTools turns specs into plugin tools with read-only hints set.
func BuildTools(specs ...ToolSpec) []domain.Tool {
	tools := make([]domain.Tool, 0, len(specs))
	for _, spec := range specs {
		access := domain.AccessRead
		if spec.Upstream != "" {
			access = domain.ClassifyTool(spec.Upstream)
		}
		if spec.Access != "" {
			access = spec.Access
		}

		opts := append([]mcp.ToolOption{
			mcp.WithDescription(spec.Description),
			mcp.WithReadOnlyHintAnnotation(access == domain.AccessRead),
		}, spec.Options...)
		name := spec.Name

		tools = append(tools, domain.Tool{
			Name:        name,
			Description: spec.Description,
			Access:      access,
			Builder:     func() mcp.Tool { return mcp.NewTool(name, opts...) },
			Handler:     spec.Handler,
			Classify:    spec.Classify,
		})
	}
	return tools
}

// ParamError reports arguments that could not be decoded or validated.
type ParamError struct {
	Err error
}

func (e *ParamError) Error() string { return "invalid arguments: " + e.Err.Error() }

func (e *ParamError) Unwrap() error { return e.Err }

// Bind decodes the call arguments into dst, using its json tags.
func Bind(req mcp.CallToolRequest, dst any) error {
	if err := req.BindArguments(dst); err != nil {
		return &ParamError{Err: err}
	}
	return nil
}

// Required reports a missing argument as a ParamError.
func Required(name, value string) error {
	if value == "" {
		return &ParamError{Err: fmt.Errorf("%s is required", name)}
	}
	return nil
}

// Respond renders a handler outcome as an envelope.
func Respond(message string, data any, err error) *mcp.CallToolResult {
	if err != nil {
		return FromError(err)
	}
	return OK(message, data)
}

func isParamError(err error) bool {
	var pe *ParamError
	return errors.As(err, &pe)
}
