package config

import "karmactl/internal/karma"

// GetDefaultSettings returns the settings used when no file overrides them.
func GetDefaultSettings() Settings {
	return Settings{
		Node:              "node",
		StartScript:       karma.DefaultStartScript,
		StartPattern:      karma.DefaultStartPattern,
		StartTimeoutMs:    0,
		StopGracePeriodMs: 5000,
		LogLevel:          "info",
		OutputBufferLines: 1000,
	}
}
