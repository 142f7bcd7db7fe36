package config

import (
	"os"
	"time"

	"mvdan.cc/sh/v3/shell"
)

// Settings is the top-level configuration structure for karmactl.
type Settings struct {
	// Node is the node command line, e.g. "node" or "node --max-old-space-size=4096".
	// Environment variables are expanded.
	Node              string `yaml:"node,omitempty"`
	LibDirectory      string `yaml:"libDirectory,omitempty"`      // Where the start script lives; empty means next to the executable
	StartScript       string `yaml:"startScript,omitempty"`       // Start script file name inside LibDirectory
	StartPattern      string `yaml:"startPattern,omitempty"`      // Regex for the start line; one capture group for the port
	StartTimeoutMs    int    `yaml:"startTimeoutMs,omitempty"`    // 0 waits forever
	StopGracePeriodMs int    `yaml:"stopGracePeriodMs,omitempty"` // Time between terminate and kill
	LogLevel          string `yaml:"logLevel,omitempty"`          // debug, info, warn or error
	OutputBufferLines int    `yaml:"outputBufferLines,omitempty"` // Lines kept for the TUI and MCP output tool
}

// NodeCommand splits Node into the executable and its leading arguments.
func (s Settings) NodeCommand() ([]string, error) {
	return shell.Fields(s.Node, os.Getenv)
}

// StartTimeout is StartTimeoutMs as a duration.
func (s Settings) StartTimeout() time.Duration {
	return time.Duration(s.StartTimeoutMs) * time.Millisecond
}

// StopGracePeriod is StopGracePeriodMs as a duration.
func (s Settings) StopGracePeriod() time.Duration {
	return time.Duration(s.StopGracePeriodMs) * time.Millisecond
}
