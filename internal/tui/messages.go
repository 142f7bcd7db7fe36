package tui

import (
	"karmactl/internal/reporting"
	"karmactl/pkg/logging"
)

// serverStartedMsg is sent when the server reports its port.
type serverStartedMsg struct {
	Port int
}

// serverStoppedMsg is sent when the server process has ended.
type serverStoppedMsg struct {
	ExitCode *int
	Err      error
}

// outputLineMsg carries one line of server output.
type outputLineMsg struct {
	Line reporting.OutputLine
}

// startRequestMsg asks the model to start the server.
type startRequestMsg struct{}

// startResultMsg is the settled start outcome of a start issued from the UI.
type startResultMsg struct {
	Port int
	Err  error
}

// logEntryMsg carries an application log entry.
type logEntryMsg struct {
	Entry logging.LogEntry
}

// logChannelClosedMsg is sent once the log channel is closed.
type logChannelClosedMsg struct{}

// clearStatusMsg clears the status bar message with the matching id.
type clearStatusMsg struct {
	id int
}
