package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	AppName   = "mcp-bridge"
	EnvPrefix = "MCP_BRIDGE"
)

// Version is set by the main package from its build-time ldflags.
var Version = "dev"

type TransportConfig struct {
	Type string     `mapstructure:"type"` // "stdio", "sse" or "http"
	Host string     `mapstructure:"host"`
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig applies to the sse and http transports.
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type SecurityConfig struct {
	BlockedTools []string `mapstructure:"blocked_tools"`
	ReadOnly     bool     `mapstructure:"read_only"`
}

type FallbackConfig struct {
	Markers []string `mapstructure:"markers"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

type CircuitBreakerConfig struct {
	MaxFailures   int           `mapstructure:"max_failures"`
	Timeout       time.Duration `mapstructure:"timeout"`
	HalfOpenLimit int           `mapstructure:"half_open_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// ClientConfig configures an outbound HTTP client.
type ClientConfig struct {
	BaseURL        string               `mapstructure:"base_url"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	Retry          RetryConfig          `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
}

type LinearConfig struct {
	APIKey   string       `mapstructure:"api_key"`
	Fallback bool         `mapstructure:"fallback"`
	GraphQL  ClientConfig `mapstructure:"graphql"`
}

type FigmaConfig struct {
	DesktopURL string `mapstructure:"desktop_url"`
	RemoteURL  string `mapstructure:"remote_url"`
	Token      string `mapstructure:"token"`
}

type PlaywrightConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

type ScreenshotConfig struct {
	Dir          string  `mapstructure:"dir"`
	Threshold    float64 `mapstructure:"threshold"`
	MaxDiffRatio float64 `mapstructure:"max_diff_ratio"`
}

type DiscoveryConfig struct {
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	Enabled      bool          `mapstructure:"enabled"`
}

type ServerConfig struct {
	Transport     TransportConfig  `mapstructure:"transport"`
	LogLevel      string           `mapstructure:"log_level"`
	LogFormat     string           `mapstructure:"log_format"`
	LogBufferSize int              `mapstructure:"log_buffer_size"`
	Timeout       time.Duration    `mapstructure:"timeout"`
	MCPConfigPath string           `mapstructure:"mcp_config"`
	ClientName    string           `mapstructure:"client_name"`
	ClientVersion string           `mapstructure:"client_version"`
	Cache         CacheConfig      `mapstructure:"cache"`
	Security      SecurityConfig   `mapstructure:"security"`
	Fallback      FallbackConfig   `mapstructure:"fallback"`
	Linear        LinearConfig     `mapstructure:"linear"`
	Figma         FigmaConfig      `mapstructure:"figma"`
	Playwright    PlaywrightConfig `mapstructure:"playwright"`
	Screenshots   ScreenshotConfig `mapstructure:"screenshots"`
	Discovery     DiscoveryConfig  `mapstructure:"discovery"`
}

func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Transport: TransportConfig{
			Type: "stdio",
			Host: "localhost",
			Port: 8080,
			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{},
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization", "Mcp-Session-Id"},
				MaxAge:         300,
			},
		},
		LogLevel:      "info",
		LogFormat:     "json",
		LogBufferSize: 1000,
		Timeout:       60 * time.Second,
		MCPConfigPath: ".mcp.json",
		ClientName:    AppName,
		ClientVersion: "dev",
		Cache: CacheConfig{
			Enabled: true,
			TTL:     2 * time.Minute,
		},
		Security: SecurityConfig{
			BlockedTools: []string{},
		},
		Fallback: FallbackConfig{
			Markers: []string{"ETIMEDOUT", "Connection closed", "MCP_TIMEOUT"},
		},
		Linear: LinearConfig{
			Fallback: true,
			GraphQL: ClientConfig{
				BaseURL: "https://api.linear.app/graphql",
				Timeout: 30 * time.Second,
				Retry: RetryConfig{
					MaxAttempts:     3,
					InitialInterval: 200 * time.Millisecond,
					MaxInterval:     2 * time.Second,
					Multiplier:      2.0,
				},
				CircuitBreaker: CircuitBreakerConfig{
					MaxFailures:   5,
					Timeout:       30 * time.Second,
					HalfOpenLimit: 1,
				},
				RateLimit: RateLimitConfig{
					RequestsPerSecond: 10,
					BurstSize:         5,
				},
			},
		},
		Figma: FigmaConfig{
			DesktopURL: "http://127.0.0.1:3845/mcp",
			RemoteURL:  "https://mcp.figma.com/mcp",
		},
		Playwright: PlaywrightConfig{
			Command: "npx",
			Args:    []string{"@playwright/mcp@latest"},
		},
		Screenshots: ScreenshotConfig{
			Dir:          filepath.Join(xdg.DataHome, AppName, "screenshots"),
			Threshold:    0.1,
			MaxDiffRatio: 0.01,
		},
		Discovery: DiscoveryConfig{
			SyncInterval: 1 * time.Minute,
			Enabled:      true,
		},
	}
}

// LoadConfig reads .env, config.yaml and MCP_BRIDGE_* variables on top of the defaults.
func LoadConfig() (*ServerConfig, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom is LoadConfig with an explicit config file; empty means search the usual paths.
func LoadConfigFrom(configFile string) (*ServerConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := DefaultConfig()
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, AppName))
		v.AddConfigPath("/etc/" + AppName + "/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Vendor variables take part too, so an existing .env keeps working
	_ = v.BindEnv("linear.api_key", EnvPrefix+"_LINEAR_API_KEY", "LINEAR_API_KEY")
	_ = v.BindEnv("figma.token", EnvPrefix+"_FIGMA_TOKEN", "FIGMA_ACCESS_TOKEN", "FIGMA_TOKEN")

	setDefaults(v, config)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, config *ServerConfig) {
	// Server configuration defaults
	v.SetDefault("transport.type", config.Transport.Type)
	v.SetDefault("transport.host", config.Transport.Host)
	v.SetDefault("transport.port", config.Transport.Port)
	v.SetDefault("transport.cors.enabled", config.Transport.CORS.Enabled)
	v.SetDefault("transport.cors.allowed_origins", config.Transport.CORS.AllowedOrigins)
	v.SetDefault("transport.cors.allowed_methods", config.Transport.CORS.AllowedMethods)
	v.SetDefault("transport.cors.allowed_headers", config.Transport.CORS.AllowedHeaders)
	v.SetDefault("transport.cors.max_age", config.Transport.CORS.MaxAge)
	v.SetDefault("log_level", config.LogLevel)
	v.SetDefault("log_format", config.LogFormat)
	v.SetDefault("log_buffer_size", config.LogBufferSize)
	v.SetDefault("timeout", config.Timeout)
	v.SetDefault("mcp_config", config.MCPConfigPath)
	v.SetDefault("client_name", config.ClientName)
	v.SetDefault("client_version", config.ClientVersion)

	v.SetDefault("cache.enabled", config.Cache.Enabled)
	v.SetDefault("cache.ttl", config.Cache.TTL)

	v.SetDefault("security.blocked_tools", config.Security.BlockedTools)
	v.SetDefault("security.read_only", config.Security.ReadOnly)
	v.SetDefault("fallback.markers", config.Fallback.Markers)

	// Linear and its GraphQL fallback client
	v.SetDefault("linear.api_key", config.Linear.APIKey)
	v.SetDefault("linear.fallback", config.Linear.Fallback)
	gql := config.Linear.GraphQL
	v.SetDefault("linear.graphql.base_url", gql.BaseURL)
	v.SetDefault("linear.graphql.timeout", gql.Timeout)
	v.SetDefault("linear.graphql.retry.max_attempts", gql.Retry.MaxAttempts)
	v.SetDefault("linear.graphql.retry.initial_interval", gql.Retry.InitialInterval)
	v.SetDefault("linear.graphql.retry.max_interval", gql.Retry.MaxInterval)
	v.SetDefault("linear.graphql.retry.multiplier", gql.Retry.Multiplier)
	v.SetDefault("linear.graphql.circuit_breaker.max_failures", gql.CircuitBreaker.MaxFailures)
	v.SetDefault("linear.graphql.circuit_breaker.timeout", gql.CircuitBreaker.Timeout)
	v.SetDefault("linear.graphql.circuit_breaker.half_open_limit", gql.CircuitBreaker.HalfOpenLimit)
	v.SetDefault("linear.graphql.rate_limit.requests_per_second", gql.RateLimit.RequestsPerSecond)
	v.SetDefault("linear.graphql.rate_limit.burst_size", gql.RateLimit.BurstSize)

	v.SetDefault("figma.desktop_url", config.Figma.DesktopURL)
	v.SetDefault("figma.remote_url", config.Figma.RemoteURL)
	v.SetDefault("figma.token", config.Figma.Token)

	v.SetDefault("playwright.command", config.Playwright.Command)
	v.SetDefault("playwright.args", config.Playwright.Args)

	v.SetDefault("screenshots.dir", config.Screenshots.Dir)
	v.SetDefault("screenshots.threshold", config.Screenshots.Threshold)
	v.SetDefault("screenshots.max_diff_ratio", config.Screenshots.MaxDiffRatio)

	v.SetDefault("discovery.sync_interval", config.Discovery.SyncInterval)
	v.SetDefault("discovery.enabled", config.Discovery.Enabled)
}

func validateConfig(config *ServerConfig) error {
	switch config.Transport.Type {
	case "stdio", "sse", "http":
	default:
		return fmt.Errorf("unknown transport type: %s", config.Transport.Type)
	}

	if config.Transport.Type != "stdio" && (config.Transport.Port <= 0 || config.Transport.Port > 65535) {
		return fmt.Errorf("the port must be between 1 and 65535")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("the timeout must be positive")
	}

	if config.Cache.Enabled && config.Cache.TTL <= 0 {
		return fmt.Errorf("the cache TTL must be positive when caching is enabled")
	}

	if config.Linear.GraphQL.BaseURL == "" {
		return fmt.Errorf("the Linear GraphQL URL cannot be empty")
	}

	if config.Linear.GraphQL.Retry.MaxAttempts < 1 {
		return fmt.Errorf("linear.graphql.retry.max_attempts must be at least 1")
	}

	if config.Screenshots.Threshold < 0 || config.Screenshots.Threshold > 1 {
		return fmt.Errorf("the screenshot threshold must be between 0 and 1")
	}

	if err := ValidateLogLevel(config.LogLevel); err != nil {
		return err
	}

	validLogFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validLogFormats[config.LogFormat] {
		return fmt.Errorf("invalid log format: %s", config.LogFormat)
	}

	return nil
}

// ValidateLogLevel reports whether level is one the logger understands.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level: %s", level)
}
