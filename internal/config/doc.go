// Package config provides configuration management for karmactl.
//
// Settings describe how the Karma server is launched, not which project is
// tested: the Karma config file is always given on the command line.
// Settings are loaded from YAML files and merged in order, later sources
// overriding earlier ones:
//
//  1. Defaults (GetDefaultSettings)
//  2. User settings (~/.config/karmactl/config.yaml)
//  3. Project settings (./.karmactl/config.yaml)
//
// LoadSettingsFromPath replaces steps 2 and 3 with a single explicit file.
//
// # Settings File
//
//	node: "node --max-old-space-size=4096"
//	libDirectory: "/opt/karmactl/lib"
//	startScript: "Start.js"
//	startPattern: 'Started - port: (\d+)'
//	startTimeoutMs: 30000
//	stopGracePeriodMs: 5000
//	logLevel: "debug"
//	outputBufferLines: 1000
//
// The node value is split with shell quoting rules and may reference
// environment variables, e.g. "${NODE_HOME}/bin/node".
package config
