package toolserver

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"time"
)

// Transport is how the bridge reaches an upstream MCP server.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
	TransportSSE   Transport = "sse"
)

// Well-known upstream server names.
const (
	FigmaDesktop = "figma-desktop"
	FigmaRemote  = "figma-remote"
	Playwright   = "playwright"
	Linear       = "linear"
)

// ServerConfig describes one upstream MCP tool server.
type ServerConfig struct {
	Name      string
	Transport Transport
	Command   string
	Args      []string
	Env       map[string]string
	URL       string
	Headers   map[string]string
	// SecretHeaders are sent like Headers but never written out; a written
	// .mcp.json carries the placeholder instead.
	SecretHeaders map[string]SecretHeader
	// Timeout overrides the pool-wide call timeout when positive.
	Timeout time.Duration
}

// SecretHeader is a header value resolved from a credential.
type SecretHeader struct {
	Value       string
	Placeholder string
}

// Equal reports whether c and o connect to the same server the same way.
func (c ServerConfig) Equal(o ServerConfig) bool {
	return c.Name == o.Name &&
		c.Transport == o.Transport &&
		c.Command == o.Command &&
		slices.Equal(c.Args, o.Args) &&
		maps.Equal(c.Env, o.Env) &&
		c.URL == o.URL &&
		maps.Equal(c.Headers, o.Headers) &&
		maps.Equal(c.SecretHeaders, o.SecretHeaders) &&
		c.Timeout == o.Timeout
}

// Validate checks that the transport has what it needs to connect.
func (c ServerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	switch c.Transport {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("server %s: stdio transport requires a command", c.Name)
		}
	case TransportHTTP, TransportSSE:
		if c.URL == "" {
			return fmt.Errorf("server %s: %s transport requires a url", c.Name, c.Transport)
		}
	default:
		return fmt.Errorf("server %s: unknown transport %q", c.Name, c.Transport)
	}
	return nil
}

// EnvList renders Env as KEY=VALUE pairs with ${VAR} references expanded.
func (c ServerConfig) EnvList() []string {
	out := make([]string, 0, len(c.Env))
	for _, k := range sortedKeys(c.Env) {
		out = append(out, k+"="+ExpandEnv(c.Env[k]))
	}
	return out
}

// ExpandedHeaders returns Headers with ${VAR} references expanded, plus the
// secret headers. A header referencing an unset variable is dropped.
func (c ServerConfig) ExpandedHeaders() map[string]string {
	if len(c.Headers) == 0 && len(c.SecretHeaders) == 0 {
		return nil
	}
	out := make(map[string]string, len(c.Headers)+len(c.SecretHeaders))
	for k, v := range c.Headers {
		if expanded, ok := expandAll(v); ok && expanded != "" {
			out[k] = expanded
		}
	}
	for k, v := range c.SecretHeaders {
		out[k] = v.Value
	}
	return out
}

// expandAll is ExpandEnv that fails when a referenced variable is unset.
func expandAll(s string) (string, bool) {
	for _, m := range envRef.FindAllStringSubmatch(s, -1) {
		if os.Getenv(m[1]) == "" {
			return "", false
		}
	}
	return ExpandEnv(s), true
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv replaces ${VAR} with the process environment value. Bare $VAR is left alone.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envRef.FindStringSubmatch(m)[1])
	})
}
