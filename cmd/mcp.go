package cmd

import (
	"fmt"
	"time"

	"karmactl/internal/app"

	"github.com/spf13/cobra"
)

var (
	mcpDebug    bool
	mcpSettings string
	mcpTimeout  time.Duration
	mcpListen   string
)

// mcpCmd serves the Karma server as MCP tools.
var mcpCmd = &cobra.Command{
	Use:   "mcp <karma.conf.js>",
	Short: "Expose a Karma server to AI assistants over MCP",
	Long: `Serves MCP tools that control a Karma server for the given karma.conf.js.

Available tools:
  karma_start   - Start the server and wait for its port
  karma_stop    - Stop the server
  karma_status  - Report the state, port and URL
  karma_output  - Return the most recent output lines

The tools are served on stdin/stdout by default. Use --listen to serve
them over SSE instead. The Karma server is stopped when the session ends.`,
	Args: cobra.ExactArgs(1),
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(args[0], app.ModeMCP, mcpDebug)
	cfg.SettingsPath = mcpSettings
	cfg.MCPListen = mcpListen
	cfg.Version = rootCmd.Version
	if cmd.Flags().Changed("timeout") {
		if mcpTimeout < 0 {
			return fmt.Errorf("--timeout must not be negative, got %s", mcpTimeout)
		}
		cfg.StartTimeout = &mcpTimeout
	}

	return runApplication(cmd, cfg)
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().BoolVar(&mcpDebug, "debug", false, "Enable general debug logging (written to stderr)")
	mcpCmd.Flags().StringVar(&mcpSettings, "settings", "", "Settings file to use instead of the layered configuration")
	mcpCmd.Flags().DurationVar(&mcpTimeout, "timeout", 0, "Default wait for the port in karma_start (0 waits until it exits)")
	mcpCmd.Flags().StringVar(&mcpListen, "listen", "", "Serve over SSE on this host:port instead of stdio")
}
