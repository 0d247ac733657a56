package mcpclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Image is a decoded image content block.
type Image struct {
	MIMEType string
	Data     []byte
}

// Result wraps a tool reply and knows how to unwrap its content envelope.
type Result struct {
	Server string
	Tool   string
	Raw    *mcp.CallToolResult
}

func newResult(server, tool string, raw *mcp.CallToolResult) *Result {
	if raw == nil {
		raw = &mcp.CallToolResult{}
	}
	return &Result{Server: server, Tool: tool, Raw: raw}
}

// IsError reports the server-side isError flag.
func (r *Result) IsError() bool {
	return r.Raw.IsError
}

// Text concatenates the text blocks of the reply, one per line.
func (r *Result) Text() string {
	var parts []string
	for _, c := range r.Raw.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Value unwraps the reply: structured content when the server sent it,
// otherwise the text parsed as JSON, otherwise the raw text.
func (r *Result) Value() any {
	if r.Raw.StructuredContent != nil {
		return r.Raw.StructuredContent
	}
	text := r.Text()
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed
	}
	return text
}

// Decode unmarshals the reply into v. Text that is not JSON is an error unless
// v is a *string, which receives the raw text.
func (r *Result) Decode(v any) error {
	if r.Raw.StructuredContent != nil {
		data, err := json.Marshal(r.Raw.StructuredContent)
		if err != nil {
			return fmt.Errorf("%s/%s: failed to re-encode structured content: %w", r.Server, r.Tool, err)
		}
		return json.Unmarshal(data, v)
	}

	text := r.Text()
	if err := json.Unmarshal([]byte(text), v); err != nil {
		if s, ok := v.(*string); ok {
			*s = text
			return nil
		}
		return fmt.Errorf("%s/%s: reply is not JSON: %w", r.Server, r.Tool, err)
	}
	return nil
}

// Images decodes every base64 image block in the reply.
func (r *Result) Images() ([]Image, error) {
	var images []Image
	for _, c := range r.Raw.Content {
		var ic mcp.ImageContent
		switch v := c.(type) {
		case mcp.ImageContent:
			ic = v
		case *mcp.ImageContent:
			ic = *v
		default:
			continue
		}
		data, err := base64.StdEncoding.DecodeString(ic.Data)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: invalid image data: %w", r.Server, r.Tool, err)
		}
		images = append(images, Image{MIMEType: ic.MIMEType, Data: data})
	}
	return images, nil
}

// Call invokes a tool and decodes the reply into T.
func Call[T any](ctx context.Context, c Caller, server, tool string, params any) (T, error) {
	var out T
	res, err := c.CallTool(ctx, server, tool, params)
	if err != nil {
		return out, err
	}
	if err := res.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// ToArguments converts a params struct or map into an MCP arguments object.
// Struct fields follow their json tags, so omitempty fields are left out.
func ToArguments(params any) (map[string]any, error) {
	switch p := params.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return p, nil
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	args := map[string]any{}
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("tool arguments must encode to a JSON object: %w", err)
	}
	return args, nil
}
