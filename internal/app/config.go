package app

import (
	"time"

	"karmactl/internal/config"
)

// Mode selects how the application presents the Karma server.
type Mode int

const (
	// ModeTUI runs the interactive dashboard.
	ModeTUI Mode = iota
	// ModeCLI prints server output to the console until interrupted.
	ModeCLI
	// ModeMCP serves the MCP tools over stdio.
	ModeMCP
)

func (m Mode) String() string {
	switch m {
	case ModeCLI:
		return "cli"
	case ModeMCP:
		return "mcp"
	default:
		return "tui"
	}
}

// Config holds the application configuration
type Config struct {
	// KarmaConfigFile is the karma.conf.js to serve.
	KarmaConfigFile string

	// UI mode
	Mode Mode

	// Debug settings
	Debug bool

	// SettingsPath replaces the layered settings lookup when set.
	SettingsPath string

	// StartTimeout overrides the configured start timeout when non-nil.
	StartTimeout *time.Duration

	// MCPListen serves the MCP tools over SSE on this address instead of stdio.
	MCPListen string

	// Version is reported by the MCP server.
	Version string

	// Loaded settings
	Settings *config.Settings
}

// NewConfig creates a new application configuration
func NewConfig(karmaConfigFile string, mode Mode, debug bool) *Config {
	return &Config{
		KarmaConfigFile: karmaConfigFile,
		Mode:            mode,
		Debug:           debug,
	}
}

// startTimeout is the flag override or the configured timeout.
func (c *Config) startTimeout() time.Duration {
	if c.StartTimeout != nil {
		return *c.StartTimeout
	}
	if c.Settings != nil {
		return c.Settings.StartTimeout()
	}
	return 0
}
