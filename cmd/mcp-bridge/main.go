package main

import (
	"os"

	"github.com/jimmyghelani-usm/mcp-bridge/cmd/mcp-bridge/commands"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	config.Version = Version
	commands.BuildTime = BuildTime
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
