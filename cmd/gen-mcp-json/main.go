// Command gen-mcp-json adds the bridge itself as a stdio server to the
// .mcp.json at the module root, so editors pick up a local build. Other
// entries in the file are kept; the bridge skips its own entry when it loads
// upstream servers from the same file.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

type serverDef struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// bridgeEnv carries the settings that differ from the defaults. Tokens are
// left out, they resolve from the OS keychain or the editor's environment.
func bridgeEnv(cfg, defaults *config.ServerConfig) map[string]string {
	env := map[string]string{}
	set := func(key, value, def string) {
		if value != def {
			env[config.EnvPrefix+"_"+key] = value
		}
	}
	set("LOG_LEVEL", cfg.LogLevel, defaults.LogLevel)
	set("MCP_CONFIG", cfg.MCPConfigPath, defaults.MCPConfigPath)
	set("SECURITY_READ_ONLY", strconv.FormatBool(cfg.Security.ReadOnly), strconv.FormatBool(defaults.Security.ReadOnly))
	set("SECURITY_BLOCKED_TOOLS", strings.Join(cfg.Security.BlockedTools, ","), strings.Join(defaults.Security.BlockedTools, ","))
	set("LINEAR_FALLBACK", strconv.FormatBool(cfg.Linear.Fallback), strconv.FormatBool(defaults.Linear.Fallback))
	set("FIGMA_DESKTOP_URL", cfg.Figma.DesktopURL, defaults.Figma.DesktopURL)
	set("SCREENSHOTS_DIR", cfg.Screenshots.Dir, defaults.Screenshots.Dir)
	return env
}

// mergeBridgeEntry sets the bridge's entry in an existing .mcp.json document
// and leaves every other server and top-level key as it was.
func mergeBridgeEntry(existing []byte, entry serverDef) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(existing)) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, fmt.Errorf("existing .mcp.json is not valid JSON: %w", err)
		}
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := doc["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, fmt.Errorf("mcpServers is not an object: %w", err)
		}
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	servers[config.AppName] = raw

	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	command := os.Getenv("MCP_BRIDGE_GEN_COMMAND")
	if command == "" {
		buildDir, binName := os.Getenv("BUILD_DIR"), os.Getenv("BINARY_NAME")
		if buildDir != "" && binName != "" {
			command = filepath.ToSlash(filepath.Join(buildDir, binName))
		} else {
			command = filepath.ToSlash(filepath.Join("./build", config.AppName))
		}
	}

	entry := serverDef{
		Command: command,
		Args:    []string{"serve", "--transport", "stdio"},
		Env:     bridgeEnv(cfg, config.DefaultConfig()),
	}

	wd, _ := os.Getwd()
	root, err := findModuleRoot(wd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate module root: %v\n", err)
		os.Exit(1)
	}
	outPath := filepath.Join(root, ".mcp.json")

	existing, err := os.ReadFile(outPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .mcp.json: %v\n", err)
		os.Exit(1)
	}
	data, err := mergeBridgeEntry(existing, entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to update .mcp.json: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write .mcp.json: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote", outPath)
}
