package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"karmactl/internal/karma"
	"karmactl/internal/mcptools"
	"karmactl/internal/reporting"
	"karmactl/internal/tui"
	"karmactl/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// exitSlack is added to the stop grace period when waiting for the
// process to go away on shutdown.
const exitSlack = 2 * time.Second

// runCLIMode executes the non-interactive command line mode
func runCLIMode(ctx context.Context, config *Config, server *karma.Server) error {
	logging.Debug("CLI", "Running in no-TUI mode.")

	reporter := reporting.NewConsoleReporter(os.Stdout)
	detach := reporter.Attach(server)
	defer detach()

	timeout := config.startTimeout()
	started, err := server.Start(timeout)
	if err != nil {
		logging.Error("CLI", err, "Failed to start Karma server")
		return err
	}
	finished := server.Finished()

	go func() {
		if _, err := started.Wait(ctx); errors.Is(err, karma.ErrStartTimeout) {
			logging.Warn("CLI", "Karma did not report a port within %s; it keeps running", timeout)
		}
	}()

	logging.Info("CLI", "Karma server starting. Press Ctrl+C to stop it and exit.")

	// Wait for interrupt signal to gracefully shutdown
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-finished.Done():
		code, err := finished.Wait(context.Background())
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("karma server exited with code %d", code)
		}
		return nil
	case <-sigCtx.Done():
		logging.Info("CLI", "--- Shutting down Karma server ---")
		return shutdown(server, config, "interrupted")
	}
}

// runTUIMode executes the interactive terminal UI mode
func runTUIMode(ctx context.Context, config *Config, server *karma.Server) error {
	logging.Debug("CLI", "Starting TUI mode...")

	// Switch logging to channel-based system for TUI integration
	logChan := logging.InitForTUI(config.logLevel())
	defer logging.CloseTUIChannel()

	p := tui.NewProgram(server, tui.Options{
		StartTimeout: config.startTimeout(),
		AutoStart:    true,
		LogChannel:   logChan,
	}, tea.WithAltScreen(), tea.WithContext(ctx))
	defer p.Detach()

	// Run the TUI until user exits
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logging.Error("TUI-Lifecycle", err, "Error running TUI program")
		_ = shutdown(server, config, "the dashboard failed")
		return err
	}
	logging.Debug("TUI-Lifecycle", "TUI exited.")

	return shutdown(server, config, "the dashboard was closed")
}

// runMCPMode serves the MCP tools until the client disconnects or the
// process is interrupted.
func runMCPMode(ctx context.Context, config *Config, server *karma.Server) error {
	capacity := 0
	if config.Settings != nil {
		capacity = config.Settings.OutputBufferLines
	}
	output := reporting.NewLineBuffer(capacity)
	detach := output.Attach(server)
	defer detach()

	tools := mcptools.NewTools(server, output, config.startTimeout())
	mcpServer := mcptools.NewServer(tools, config.Version)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	if config.MCPListen != "" {
		err = mcptools.ServeSSE(sigCtx, mcpServer, config.MCPListen)
	} else {
		err = mcptools.ServeStdio(sigCtx, mcpServer)
	}
	if shutdownErr := shutdown(server, config, "the MCP session ended"); err == nil {
		err = shutdownErr
	}
	return err
}

// shutdown stops a running server and waits for it to exit.
func shutdown(server *karma.Server, config *Config, reason string) error {
	finished := server.Finished()
	if finished == nil || server.State() == karma.StateIdle {
		return nil
	}
	server.Stop(reason)

	wait := exitSlack
	if config.Settings != nil {
		wait += config.Settings.StopGracePeriod()
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	if _, err := finished.Wait(ctx); errors.Is(err, context.DeadlineExceeded) {
		logging.Warn("Shutdown", "Karma server did not exit within %s", wait)
		return fmt.Errorf("karma server did not exit within %s", wait)
	}
	return nil
}
