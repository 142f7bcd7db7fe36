package cmd

import (
	"context"
	"fmt"
	"time"

	"karmactl/internal/app"

	"github.com/spf13/cobra"
)

// serveNoTUI controls whether to run in CLI mode (true) or TUI mode (false).
// CLI mode is useful for scripting and CI environments.
var serveNoTUI bool

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveSettings points at a settings file that replaces the layered lookup.
var serveSettings string

// serveTimeout bounds the wait for the start line; 0 waits until the process ends.
var serveTimeout time.Duration

// serveCmd defines the serve command structure.
var serveCmd = &cobra.Command{
	Use:   "serve <karma.conf.js>",
	Short: "Start a Karma server with an interactive TUI or CLI mode.",
	Long: `Starts a Karma server for the given karma.conf.js and reports the port it
listens on. It can run in two modes:

1. Interactive TUI Mode (default):
   - Shows the server state, its URL and the merged output.
   - Keys: s start, x stop, y copy URL, q quit (stopping the server).

2. Non-TUI / CLI Mode (using --no-tui flag):
   - Prints the server output to the console.
   - Runs until the server exits or karmactl is interrupted (e.g., Ctrl+C).

Configuration:
  karmactl loads settings from ~/.config/karmactl/config.yaml and then
  .karmactl/config.yaml in the current directory. Use --settings to read a
  single file instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	mode := app.ModeTUI
	if serveNoTUI {
		mode = app.ModeCLI
	}

	cfg := app.NewConfig(args[0], mode, serveDebug)
	cfg.SettingsPath = serveSettings
	cfg.Version = rootCmd.Version
	if cmd.Flags().Changed("timeout") {
		if serveTimeout < 0 {
			return fmt.Errorf("--timeout must not be negative, got %s", serveTimeout)
		}
		cfg.StartTimeout = &serveTimeout
	}

	return runApplication(cmd, cfg)
}

// runApplication creates the application and runs it with the command's context.
func runApplication(cmd *cobra.Command, cfg *app.Config) error {
	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

// init registers the serve command and its flags with the root command.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveNoTUI, "no-tui", false, "Disable TUI and print the server output to the console")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable general debug logging")
	serveCmd.Flags().StringVar(&serveSettings, "settings", "", "Settings file to use instead of the layered configuration")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 0, "How long to wait for the server to report its port (0 waits until it exits)")
}
