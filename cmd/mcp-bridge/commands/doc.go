// Package commands implements the mcp-bridge command line: the bridge
// server itself and one-shot commands that talk to the upstream MCP servers.
package commands
