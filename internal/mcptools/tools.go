package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"karmactl/internal/karma"
	"karmactl/internal/reporting"
	"karmactl/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const defaultOutputLines = 50

// maxStartWait bounds a karma_start call that has no timeout of its own.
// The stdio transport handles one message at a time, so an unbounded wait
// would keep karma_stop and karma_status from being read.
const maxStartWait = 30 * time.Second

// Controller is the part of the Karma server the tools drive.
type Controller interface {
	Start(timeout time.Duration) (*karma.Outcome[int], error)
	Stop(reason string)
	State() karma.State
	Port() int
	ConfigFile() string
}

// Tools exposes a Karma server as MCP tools.
type Tools struct {
	ctrl           Controller
	output         *reporting.LineBuffer
	defaultTimeout time.Duration
	maxWait        time.Duration
}

// NewTools creates the tool set. output may be nil, in which case
// karma_output reports that no output is captured.
func NewTools(ctrl Controller, output *reporting.LineBuffer, defaultTimeout time.Duration) *Tools {
	return &Tools{ctrl: ctrl, output: output, defaultTimeout: defaultTimeout, maxWait: maxStartWait}
}

// Status is the JSON shape returned by the start, stop and status tools.
type Status struct {
	State      string `json:"state"`
	Port       int    `json:"port,omitempty"`
	URL        string `json:"url,omitempty"`
	ConfigFile string `json:"configFile"`
	Message    string `json:"message,omitempty"`
}

// GetTools returns the tool definitions.
func (t *Tools) GetTools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("karma_start",
			mcp.WithDescription("Start the Karma server and wait until it reports its port"),
			mcp.WithNumber("timeout_ms",
				mcp.Description("How long to wait for the port, in milliseconds; 0 waits up to 30 seconds and leaves the server starting"),
			),
		),
		mcp.NewTool("karma_stop",
			mcp.WithDescription("Ask the running Karma server to terminate"),
			mcp.WithString("reason",
				mcp.Description("Why the server is being stopped; written to the log"),
			),
		),
		mcp.NewTool("karma_status",
			mcp.WithDescription("Get the Karma server state and port"),
		),
		mcp.NewTool("karma_output",
			mcp.WithDescription("Get the most recent Karma server output lines"),
			mcp.WithNumber("lines",
				mcp.Description("Number of lines to return (default 50)"),
			),
		),
	}
}

// Register adds every tool to s.
func (t *Tools) Register(s *server.MCPServer) {
	handlers := map[string]server.ToolHandlerFunc{
		"karma_start":  t.HandleStart,
		"karma_stop":   t.HandleStop,
		"karma_status": t.HandleStatus,
		"karma_output": t.HandleOutput,
	}
	for _, tool := range t.GetTools() {
		s.AddTool(tool, handlers[tool.Name])
	}
}

// NewServer builds an MCP server with the tools of t registered.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer("karmactl", version,
		server.WithToolCapabilities(false),
	)
	t.Register(s)
	return s
}

// HandleStart handles the karma_start MCP tool
func (t *Tools) HandleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timeout := t.defaultTimeout
	if ms, ok := numberArg(request, "timeout_ms"); ok {
		timeout = time.Duration(ms) * time.Millisecond
	}

	outcome, err := t.ctrl.Start(timeout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start Karma server: %v", err)), nil
	}

	waitCtx := ctx
	if timeout <= 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, t.maxWait)
		defer cancel()
	}

	port, err := outcome.Wait(waitCtx)
	switch {
	case errors.Is(err, karma.ErrStartTimeout):
		return t.statusResult(fmt.Sprintf("No port reported within %s; the server is still starting", timeout))
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return t.statusResult(fmt.Sprintf("No port reported within %s; the server is still starting", t.maxWait))
	case errors.Is(err, karma.ErrStartCancelled):
		return mcp.NewToolResultError("Karma server exited before reporting a port"), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("Stopped waiting for Karma server: %v", err)), nil
	}

	logging.Info("MCPTools", "Karma server started on port %d", port)
	return t.statusResult("")
}

// HandleStop handles the karma_stop MCP tool
func (t *Tools) HandleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reason := "requested via MCP"
	if r, ok := request.GetArguments()["reason"].(string); ok && r != "" {
		reason = r
	}
	if t.ctrl.State() == karma.StateIdle {
		return t.statusResult("Karma server is not running")
	}
	t.ctrl.Stop(reason)
	return t.statusResult("Stop requested")
}

// HandleStatus handles the karma_status MCP tool
func (t *Tools) HandleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.statusResult("")
}

// HandleOutput handles the karma_output MCP tool
func (t *Tools) HandleOutput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.output == nil {
		return mcp.NewToolResultText("No output is captured"), nil
	}
	n := defaultOutputLines
	if v, ok := numberArg(request, "lines"); ok && v > 0 {
		n = int(v)
	}

	jsonData, err := json.MarshalIndent(t.output.Last(n), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (t *Tools) currentStatus() Status {
	st := Status{
		State:      t.ctrl.State().String(),
		Port:       t.ctrl.Port(),
		ConfigFile: t.ctrl.ConfigFile(),
	}
	if st.Port != 0 {
		st.URL = fmt.Sprintf("http://localhost:%d/", st.Port)
	}
	return st
}

func (t *Tools) statusResult(message string) (*mcp.CallToolResult, error) {
	st := t.currentStatus()
	st.Message = message
	jsonData, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// numberArg reads a numeric argument; JSON numbers arrive as float64.
func numberArg(request mcp.CallToolRequest, name string) (float64, bool) {
	switch v := request.GetArguments()[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
