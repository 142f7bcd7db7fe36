package mcptools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"karmactl/pkg/logging"

	"github.com/mark3labs/mcp-go/server"
)

const shutdownTimeout = 5 * time.Second

// ServeStdio serves s on stdin and stdout until ctx ends or stdin closes.
func ServeStdio(ctx context.Context, s *server.MCPServer) error {
	logging.Info("MCPTools", "Serving MCP tools on stdio")
	err := server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio MCP server: %w", err)
	}
	return nil
}

// ServeSSE serves s over server-sent events on addr until ctx ends.
func ServeSSE(ctx context.Context, s *server.MCPServer, addr string) error {
	sseServer := server.NewSSEServer(
		s,
		server.WithBaseURL("http://"+addr),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)

	logging.Info("MCPTools", "Serving MCP tools on http://%s/sse", addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- sseServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("SSE MCP server on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("MCPTools", err, "Failed to shut down SSE server")
			return err
		}
		return nil
	}
}
