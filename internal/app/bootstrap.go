package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"karmactl/internal/config"
	"karmactl/internal/karma"
	"karmactl/internal/process"
	"karmactl/pkg/logging"
)

// Application is the main application structure that bootstraps and runs karmactl
type Application struct {
	config *Config
	server *karma.Server
}

// NewApplication creates and initializes a new application instance
func NewApplication(cfg *Config) (*Application, error) {
	// Initialize logging for CLI output (will be replaced for TUI mode)
	logging.InitForCLI(bootstrapLevel(cfg.Debug), logOutput(cfg.Mode))

	var settings config.Settings
	var err error

	if cfg.SettingsPath != "" {
		settings, err = config.LoadSettingsFromPath(cfg.SettingsPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load settings from path: %s", cfg.SettingsPath)
			return nil, fmt.Errorf("failed to load settings from path %s: %w", cfg.SettingsPath, err)
		}
		logging.Debug("Bootstrap", "Loaded settings from custom path: %s", cfg.SettingsPath)
	} else {
		settings, err = config.LoadSettings()
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load settings")
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		logging.Debug("Bootstrap", "Loaded settings using layered approach")
	}
	cfg.Settings = &settings

	// Re-initialize with the configured level now that it is known
	logging.InitForCLI(cfg.logLevel(), logOutput(cfg.Mode))

	server, err := NewServer(cfg.KarmaConfigFile, settings)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to create Karma server")
		return nil, fmt.Errorf("failed to create karma server: %w", err)
	}

	return &Application{
		config: cfg,
		server: server,
	}, nil
}

// NewServer builds a Karma server for configFile from settings.
func NewServer(configFile string, settings config.Settings) (*karma.Server, error) {
	node, err := settings.NodeCommand()
	if err != nil {
		return nil, fmt.Errorf("invalid node command %q: %w", settings.Node, err)
	}

	opts := []karma.Option{
		karma.WithRunner(process.NewExecRunner(settings.StopGracePeriod())),
		karma.WithNodeCommand(node),
		karma.WithLibDirectory(settings.LibDirectory),
		karma.WithStartScript(settings.StartScript),
	}
	if settings.StartPattern != "" {
		opts = append(opts, karma.WithStartPattern(settings.StartPattern))
	}
	return karma.New(configFile, opts...)
}

// Run executes the application in the appropriate mode
func (a *Application) Run(ctx context.Context) error {
	switch a.config.Mode {
	case ModeCLI:
		return runCLIMode(ctx, a.config, a.server)
	case ModeMCP:
		return runMCPMode(ctx, a.config, a.server)
	default:
		return runTUIMode(ctx, a.config, a.server)
	}
}

func bootstrapLevel(debug bool) logging.LogLevel {
	if debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

// logLevel is debug when requested on the command line, otherwise the
// configured level.
func (c *Config) logLevel() logging.LogLevel {
	if c.Debug || c.Settings == nil {
		return bootstrapLevel(c.Debug)
	}
	level, err := logging.ParseLevel(c.Settings.LogLevel)
	if err != nil {
		logging.Warn("Bootstrap", "Ignoring log level: %v", err)
	}
	return level
}

// logOutput keeps stdout free for the protocol in MCP mode.
func logOutput(mode Mode) io.Writer {
	if mode == ModeMCP {
		return os.Stderr
	}
	return os.Stdout
}
