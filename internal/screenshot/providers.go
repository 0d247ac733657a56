package screenshot

import (
	"log/slog"

	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

// OptionsFromConfig returns the diff options for the configured threshold.
func OptionsFromConfig(cfg *config.ServerConfig) Options {
	opts := DefaultOptions()
	opts.Threshold = cfg.Screenshots.Threshold
	return opts
}

// NewCapturerFromConfig writes captures under the configured screenshot directory.
func NewCapturerFromConfig(cfg *config.ServerConfig, browser Browser, design Design, logger *slog.Logger) *Capturer {
	return NewCapturer(browser, design, cfg.Screenshots.Dir, cfg.Screenshots.MaxDiffRatio, logger)
}
