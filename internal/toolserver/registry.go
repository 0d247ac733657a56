package toolserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

// mcpJSON mirrors the .mcp.json document understood by MCP hosts.
type mcpJSON struct {
	MCPServers map[string]serverDef `json:"mcpServers"`
}

type serverDef struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Timeout string            `json:"timeout,omitempty"`
	// Disabled entries remove a server, including a built-in one.
	Disabled bool `json:"disabled,omitempty"`
}

// Registry maps server names to their connection settings. Servers added with
// Register form the base set; a loaded .mcp.json is applied over a copy of it,
// so reloading a file drops entries that were removed from it.
type Registry struct {
	mu        sync.RWMutex
	base      map[string]ServerConfig
	servers   map[string]ServerConfig
	listeners []func(Changes)
}

// Changes lists the server names a reload added, removed or reconfigured.
type Changes struct {
	Added   []string
	Removed []string
	Updated []string
}

// Empty reports whether the reload changed nothing.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0
}

// Stale returns the servers whose existing sessions no longer match the registry.
func (c Changes) Stale() []string {
	return append(append([]string(nil), c.Removed...), c.Updated...)
}

// NewRegistry creates a registry seeded with the given servers.
func NewRegistry(servers ...ServerConfig) (*Registry, error) {
	r := &Registry{
		base:    make(map[string]ServerConfig),
		servers: make(map[string]ServerConfig),
	}
	for _, s := range servers {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a server after validating it.
func (r *Registry) Register(cfg ServerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base[cfg.Name] = cfg
	r.servers[cfg.Name] = cfg
	return nil
}

// Remove drops name from the registry. It reports whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.servers[name]
	delete(r.base, name)
	delete(r.servers, name)
	return ok
}

// OnChange registers fn to be called after a load that changed the server set.
func (r *Registry) OnChange(fn func(Changes)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Lookup returns the configuration for name.
func (r *Registry) Lookup(name string) (ServerConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.servers[name]
	if !ok {
		return ServerConfig{}, &ServerNotFoundError{Name: name, Available: r.namesUnsafe()}
	}
	return cfg, nil
}

// Has reports whether name is configured.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.servers[name]
	return ok
}

// Names returns the configured server names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesUnsafe()
}

func (r *Registry) namesUnsafe() []string {
	names := make([]string, 0, len(r.servers))
	for n := range r.servers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadFile applies a .mcp.json file over the base servers. A missing file
// leaves only the base servers.
func (r *Registry) LoadFile(path string) error {
	_, err := r.ReloadFile(path)
	return err
}

// ReloadFile is LoadFile that also reports what changed.
func (r *Registry) ReloadFile(path string) (Changes, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r.apply(nil), nil
		}
		return Changes{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	changes, err := r.Reload(f)
	if err != nil {
		return Changes{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return changes, nil
}

// Load applies a .mcp.json document over the base servers.
func (r *Registry) Load(rd io.Reader) error {
	_, err := r.Reload(rd)
	return err
}

// Reload parses the whole document before touching the registry; an invalid
// entry leaves the current servers in place.
func (r *Registry) Reload(rd io.Reader) (Changes, error) {
	var doc mcpJSON
	if err := json.NewDecoder(rd).Decode(&doc); err != nil {
		return Changes{}, fmt.Errorf("invalid .mcp.json: %w", err)
	}

	defs := make(map[string]*ServerConfig, len(doc.MCPServers))
	for name, def := range doc.MCPServers {
		if def.Disabled {
			defs[name] = nil
			continue
		}
		if def.isSelf() {
			continue
		}
		cfg, err := def.toConfig(name)
		if err != nil {
			return Changes{}, err
		}
		if err := cfg.Validate(); err != nil {
			return Changes{}, err
		}
		defs[name] = &cfg
	}
	return r.apply(defs), nil
}

// apply swaps in base plus defs, where a nil def removes the server.
func (r *Registry) apply(defs map[string]*ServerConfig) Changes {
	r.mu.Lock()
	next := maps.Clone(r.base)
	for name, cfg := range defs {
		if cfg == nil {
			delete(next, name)
			continue
		}
		next[name] = *cfg
	}
	changes := diffServers(r.servers, next)
	r.servers = next
	listeners := append(([]func(Changes))(nil), r.listeners...)
	r.mu.Unlock()

	if !changes.Empty() {
		for _, fn := range listeners {
			fn(changes)
		}
	}
	return changes
}

func diffServers(prev, next map[string]ServerConfig) Changes {
	var c Changes
	for name, cfg := range next {
		old, ok := prev[name]
		switch {
		case !ok:
			c.Added = append(c.Added, name)
		case !old.Equal(cfg):
			c.Updated = append(c.Updated, name)
		}
	}
	for name := range prev {
		if _, ok := next[name]; !ok {
			c.Removed = append(c.Removed, name)
		}
	}
	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Updated)
	return c
}

// WriteMCPJSON writes the registry as an indented .mcp.json document.
// encoding/json sorts map keys, which keeps the output stable between runs.
func (r *Registry) WriteMCPJSON(w io.Writer) error {
	r.mu.RLock()
	doc := mcpJSON{MCPServers: make(map[string]serverDef, len(r.servers))}
	for name, cfg := range r.servers {
		doc.MCPServers[name] = fromConfig(cfg)
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal .mcp.json: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// isSelf reports whether the entry launches the bridge itself. Such entries
// are skipped so the bridge never spawns itself as an upstream.
func (d serverDef) isSelf() bool {
	if d.Command == "" {
		return false
	}
	name := strings.TrimSuffix(filepath.Base(d.Command), ".exe")
	return name == config.AppName
}

func (d serverDef) toConfig(name string) (ServerConfig, error) {
	cfg := ServerConfig{
		Name:    name,
		Command: d.Command,
		Args:    d.Args,
		Env:     d.Env,
		URL:     d.URL,
		Headers: d.Headers,
	}

	switch strings.ToLower(d.Type) {
	case "stdio":
		cfg.Transport = TransportStdio
	case "http", "streamable-http", "streamablehttp":
		cfg.Transport = TransportHTTP
	case "sse":
		cfg.Transport = TransportSSE
	case "":
		if d.Command != "" {
			cfg.Transport = TransportStdio
		} else {
			cfg.Transport = TransportHTTP
		}
	default:
		return ServerConfig{}, fmt.Errorf("server %s: unknown type %q", name, d.Type)
	}

	if d.Timeout != "" {
		timeout, err := time.ParseDuration(d.Timeout)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("server %s: invalid timeout: %w", name, err)
		}
		cfg.Timeout = timeout
	}
	return cfg, nil
}

func fromConfig(cfg ServerConfig) serverDef {
	def := serverDef{
		Type:    string(cfg.Transport),
		Command: cfg.Command,
		Args:    cfg.Args,
		Env:     cfg.Env,
		URL:     cfg.URL,
		Headers: cfg.Headers,
	}
	if len(cfg.SecretHeaders) > 0 {
		def.Headers = maps.Clone(cfg.Headers)
		if def.Headers == nil {
			def.Headers = make(map[string]string, len(cfg.SecretHeaders))
		}
		for k, v := range cfg.SecretHeaders {
			def.Headers[k] = v.Placeholder
		}
	}
	if cfg.Timeout > 0 {
		def.Timeout = cfg.Timeout.String()
	}
	return def
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
