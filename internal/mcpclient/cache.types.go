package mcpclient

import (
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// CacheConfig defines result caching behavior. Only tools with a policy are cached.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
	Policies   map[string]time.Duration
}

// DefaultCacheConfig caches read-only lookups whose answers change slowly.
// Browser automation tools never appear here: every call has side effects.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:    true,
		DefaultTTL: 2 * time.Minute,
		Policies: map[string]time.Duration{
			// Figma design data
			"get_variable_defs":    5 * time.Minute,
			"get_metadata":         2 * time.Minute,
			"get_code_connect_map": 5 * time.Minute,

			// Linear workspace structure
			"list_teams":          10 * time.Minute,
			"get_team":            10 * time.Minute,
			"list_issue_statuses": 10 * time.Minute,
			"list_issue_labels":   10 * time.Minute,
			"list_users":          10 * time.Minute,
			"list_projects":       2 * time.Minute,
			"list_cycles":         5 * time.Minute,

			"search_documentation": 30 * time.Minute,
		},
	}
}

// TTLFor returns the TTL for a tool and whether the tool is cacheable at all.
func (c *CacheConfig) TTLFor(tool string) (time.Duration, bool) {
	if c == nil || !c.Enabled {
		return 0, false
	}
	ttl, ok := c.Policies[tool]
	if !ok {
		return 0, false
	}
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}
	return ttl, true
}

type cacheEntry struct {
	server    string
	result    *mcp.CallToolResult
	expiresAt time.Time
}

type resultCache struct {
	entries map[string]*cacheEntry
	mutex   sync.RWMutex
}
