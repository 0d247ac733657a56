package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
	"go.uber.org/fx"
)

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds the redacting handler for the configured format, writing to w.
func NewHandler(cfg *config.ServerConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.LogLevel),
		ReplaceAttr: redactAttr,
	}

	if cfg.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// NewSlogLogger logs to stderr; stdout belongs to the stdio MCP transport.
func NewSlogLogger(cfg *config.ServerConfig, buffer *RingBuffer) *slog.Logger {
	handler := NewHandler(cfg, os.Stderr)
	if buffer != nil {
		handler = newBufferingHandler(handler, buffer)
	}
	return slog.New(handler)
}

func NewRingBufferFromConfig(cfg *config.ServerConfig) *RingBuffer {
	return NewRingBuffer(cfg.LogBufferSize)
}

var Module = fx.Module("logger",
	fx.Provide(
		NewRingBufferFromConfig,
		NewSlogLogger,
	),
)
