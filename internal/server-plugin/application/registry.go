package plugins

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/server-plugin/domain"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
	"go.uber.org/fx"
)

// ServerPluginRegistry manages the basic registration of server plugins
type ServerPluginRegistry struct {
	plugins map[string]domain.ServerPlugin
	mu      sync.RWMutex
}

// NewServerPluginRegistry creates a new server plugin registry
func NewServerPluginRegistry() *ServerPluginRegistry {
	return &ServerPluginRegistry{
		plugins: make(map[string]domain.ServerPlugin),
	}
}

// Register registers a server plugin
func (r *ServerPluginRegistry) Register(plugin domain.ServerPlugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plugins[plugin.ID()] = plugin
	return nil
}

// Get returns a registered plugin by ID.
func (r *ServerPluginRegistry) Get(id string) (domain.ServerPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[id]
	return plugin, ok
}

// IDs returns the registered plugin IDs, sorted.
func (r *ServerPluginRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ChangeHandler is notified after a sync that changed the active plugin set.
type ChangeHandler func(ctx context.Context, activated, deactivated []domain.ServerPlugin)

// DynamicServerPluginRegistry manages the lifecycle of server plugins based on
// which upstream MCP servers are configured.
type DynamicServerPluginRegistry struct {
	pluginRegistry  *ServerPluginRegistry
	pluginDiscovery domain.ServerPluginDiscoveryService
	logger          *slog.Logger
	srvConfig       *config.ServerConfig

	allServerPlugins []domain.ServerPlugin
	active           map[string]bool
	onChange         ChangeHandler
	mu               sync.RWMutex
}

type DynamicServerPluginRegistryParams struct {
	fx.In
	PluginRegistry  *ServerPluginRegistry
	PluginDiscovery domain.ServerPluginDiscoveryService
	Logger          *slog.Logger
	SrvConfig       *config.ServerConfig
	ServerPlugins   []domain.ServerPlugin `group:"server_plugins"`
}

// NewDynamicServerPluginRegistry creates a new dynamic server plugin registry
func NewDynamicServerPluginRegistry(params DynamicServerPluginRegistryParams) *DynamicServerPluginRegistry {
	plugins := slices.Clone(params.ServerPlugins)
	slices.SortFunc(plugins, func(a, b domain.ServerPlugin) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})

	return &DynamicServerPluginRegistry{
		pluginRegistry:   params.PluginRegistry,
		pluginDiscovery:  params.PluginDiscovery,
		logger:           params.Logger,
		srvConfig:        params.SrvConfig,
		allServerPlugins: plugins,
		active:           make(map[string]bool),
	}
}

// OnChange installs the handler called when later syncs activate or
// deactivate plugins. The initial sync is expected to run before it is set.
func (r *DynamicServerPluginRegistry) OnChange(handler ChangeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = handler
}

// RegisterHooks connects the registry's lifecycle to the Fx application lifecycle.
func (r *DynamicServerPluginRegistry) RegisterHooks(lc fx.Lifecycle) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			r.logger.Info("DynamicServerPluginRegistry starting...")

			for _, srvPlugin := range r.allServerPlugins {
				if err := r.pluginRegistry.Register(srvPlugin); err != nil {
					r.logger.Error("Failed to register server plugin",
						"plugin", srvPlugin.ID(),
						"error", err)
					continue
				}
				r.logger.Debug("ServerPlugin registered with registry",
					"plugin", srvPlugin.ID(),
					"name", srvPlugin.Name(),
					"upstream", srvPlugin.UpstreamServer())
			}

			if r.srvConfig.Discovery.Enabled && r.srvConfig.Discovery.SyncInterval > 0 {
				r.logger.Info("Starting upstream discovery sync loop",
					"interval", r.srvConfig.Discovery.SyncInterval)
				go r.runSyncLoop(ctx, r.srvConfig.Discovery.SyncInterval)
			} else {
				r.logger.Info("Upstream discovery sync loop disabled")
			}
			return nil
		},
		OnStop: func(context.Context) error {
			r.logger.Info("DynamicServerPluginRegistry stopping...")
			cancel()
			return nil
		},
	})
}

func (r *DynamicServerPluginRegistry) runSyncLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("ServerPlugin synchronization loop stopped")
			return
		case <-ticker.C:
			if err := r.syncServerPlugins(ctx); err != nil {
				r.logger.Error("ServerPlugin sync failed", "error", err)
			}
		}
	}
}

// syncServerPlugins activates plugins whose upstream server is configured and
// deactivates the rest. Plugins without an upstream are always active.
func (r *DynamicServerPluginRegistry) syncServerPlugins(ctx context.Context) error {
	r.logger.Debug("Starting server plugin synchronization")

	servers, err := r.pluginDiscovery.GetAvailableServers(ctx)
	if err != nil {
		r.logger.Error("Failed to discover upstream servers, keeping current plugin state", "error", err)
		return nil
	}

	r.mu.Lock()
	var activated, deactivated []domain.ServerPlugin
	for _, srvPlugin := range r.allServerPlugins {
		id := srvPlugin.ID()
		upstream := srvPlugin.UpstreamServer()

		shouldBeActive := upstream == "" || slices.Contains(servers, upstream)
		isCurrentlyActive := r.active[id]

		r.logger.Debug("ServerPlugin activation check",
			"plugin", id,
			"upstream", upstream,
			"should_be_active", shouldBeActive,
			"currently_active", isCurrentlyActive)

		switch {
		case shouldBeActive && !isCurrentlyActive:
			r.active[id] = true
			activated = append(activated, srvPlugin)
			r.logger.Info("ServerPlugin activated", "plugin", id, "upstream", upstream)
		case !shouldBeActive && isCurrentlyActive:
			r.active[id] = false
			deactivated = append(deactivated, srvPlugin)
			r.logger.Info("ServerPlugin deactivated", "plugin", id, "upstream", upstream)
		}
	}
	handler := r.onChange
	total := r.getActiveServerPluginsCountUnsafe()
	r.mu.Unlock()

	r.logger.Info("ServerPlugin synchronization completed",
		"activated", len(activated),
		"deactivated", len(deactivated),
		"total_active", total)

	if handler != nil && (len(activated) > 0 || len(deactivated) > 0) {
		handler(ctx, activated, deactivated)
	}
	return nil
}

// getActiveServerPluginsCountUnsafe must be called with the lock held.
func (r *DynamicServerPluginRegistry) getActiveServerPluginsCountUnsafe() int {
	count := 0
	for _, plugin := range r.allServerPlugins {
		if r.active[plugin.ID()] {
			count++
		}
	}
	return count
}

// GetActiveServerPlugins returns a list of currently active server plugins.
func (r *DynamicServerPluginRegistry) GetActiveServerPlugins() []domain.ServerPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var activeServerPlugins []domain.ServerPlugin
	for _, srvPlugin := range r.allServerPlugins {
		if r.active[srvPlugin.ID()] {
			activeServerPlugins = append(activeServerPlugins, srvPlugin)
		}
	}

	return activeServerPlugins
}

// IsServerPluginActive checks if a specific plugin is currently active.
func (r *DynamicServerPluginRegistry) IsServerPluginActive(srvPluginID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.active[srvPluginID]
}

// SyncServerPlugins performs a manual synchronization of server plugins.
func (r *DynamicServerPluginRegistry) SyncServerPlugins(ctx context.Context) error {
	return r.syncServerPlugins(ctx)
}
