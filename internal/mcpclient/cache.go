package mcpclient

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// ResultCacheManager caches successful results of read-only tools with per-tool TTLs.
type ResultCacheManager struct {
	config    *CacheConfig
	cache     *resultCache
	logger    *slog.Logger
	lastSweep time.Time
	now       func() time.Time
}

// NewResultCacheManager returns nil when caching is disabled; a nil manager is a no-op.
func NewResultCacheManager(config *CacheConfig, logger *slog.Logger) *ResultCacheManager {
	if config == nil || !config.Enabled {
		return nil
	}

	manager := &ResultCacheManager{
		config: config,
		cache: &resultCache{
			entries: make(map[string]*cacheEntry),
		},
		logger: logger,
		now:    time.Now,
	}
	manager.lastSweep = manager.now()

	logger.Debug("Result cache manager initialized",
		"default_ttl", config.DefaultTTL,
		"policies", len(config.Policies))

	return manager
}

// Cacheable reports whether results of tool are cached.
func (cm *ResultCacheManager) Cacheable(tool string) bool {
	if cm == nil {
		return false
	}
	_, ok := cm.config.TTLFor(tool)
	return ok
}

// Get retrieves a cached result if available and not expired
func (cm *ResultCacheManager) Get(server, tool string, args map[string]any) (*mcp.CallToolResult, bool) {
	if cm == nil || !cm.Cacheable(tool) {
		return nil, false
	}

	key := cm.generateCacheKey(server, tool, args)

	cm.cache.mutex.RLock()
	defer cm.cache.mutex.RUnlock()

	entry, exists := cm.cache.entries[key]
	if !exists || cm.now().After(entry.expiresAt) {
		return nil, false
	}

	cm.logger.Debug("Cache hit",
		"server", server,
		"tool", tool,
		"key", key)

	return entry.result, true
}

// Set stores a result with the tool's TTL. Uncacheable tools are ignored.
func (cm *ResultCacheManager) Set(server, tool string, args map[string]any, result *mcp.CallToolResult) {
	if cm == nil {
		return
	}
	ttl, ok := cm.config.TTLFor(tool)
	if !ok {
		return
	}

	key := cm.generateCacheKey(server, tool, args)

	cm.cache.mutex.Lock()
	defer cm.cache.mutex.Unlock()

	now := cm.now()
	cm.cache.entries[key] = &cacheEntry{
		server:    server,
		result:    result,
		expiresAt: now.Add(ttl),
	}

	if now.Sub(cm.lastSweep) >= cm.config.DefaultTTL/2 {
		cm.cleanupExpiredUnsafe(now)
		cm.lastSweep = now
	}

	cm.logger.Debug("Cached tool result",
		"server", server,
		"tool", tool,
		"key", key,
		"ttl", ttl)
}

// InvalidateServer drops every cached result of one server.
func (cm *ResultCacheManager) InvalidateServer(server string) {
	if cm == nil {
		return
	}

	cm.cache.mutex.Lock()
	defer cm.cache.mutex.Unlock()

	for key, entry := range cm.cache.entries {
		if entry.server == server {
			delete(cm.cache.entries, key)
		}
	}
	cm.logger.Debug("Cache invalidated", "server", server)
}

// Invalidate clears all cached entries
func (cm *ResultCacheManager) Invalidate() {
	if cm == nil {
		return
	}

	cm.cache.mutex.Lock()
	defer cm.cache.mutex.Unlock()

	cm.cache.entries = make(map[string]*cacheEntry)
	cm.logger.Debug("Cache invalidated")
}

// Len returns the number of stored entries, expired ones included.
func (cm *ResultCacheManager) Len() int {
	if cm == nil {
		return 0
	}
	cm.cache.mutex.RLock()
	defer cm.cache.mutex.RUnlock()
	return len(cm.cache.entries)
}

// generateCacheKey hashes server, tool and the canonical (key-sorted) JSON of args.
func (cm *ResultCacheManager) generateCacheKey(server, tool string, args map[string]any) string {
	hasher := sha256.New()
	hasher.Write([]byte(server))
	hasher.Write([]byte{0})
	hasher.Write([]byte(tool))
	hasher.Write([]byte{0})
	if data, err := json.Marshal(args); err == nil {
		hasher.Write(data)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16] // First 16 chars
}

func (cm *ResultCacheManager) cleanupExpiredUnsafe(now time.Time) {
	cleaned := 0
	for key, entry := range cm.cache.entries {
		if now.After(entry.expiresAt) {
			delete(cm.cache.entries, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		cm.logger.Debug("Cleaned expired cache entries", "count", cleaned)
	}
}
