package tui

import (
	"time"

	"karmactl/internal/reporting"

	tea "github.com/charmbracelet/bubbletea"
)

// Server is a controllable Karma server that publishes its events.
// *karma.Server satisfies it.
type Server interface {
	Controller
	reporting.Source
}

// Program is a running dashboard bound to a server.
type Program struct {
	*tea.Program
	detach func()
}

// NewProgram creates the dashboard program and forwards the server's
// events into it. Call Detach once Run has returned.
func NewProgram(srv Server, opts Options, programOpts ...tea.ProgramOption) *Program {
	if len(programOpts) == 0 {
		programOpts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	p := tea.NewProgram(NewModel(srv, opts), programOpts...)
	return &Program{Program: p, detach: forwardEvents(srv, p)}
}

// Detach stops forwarding server events.
func (p *Program) Detach() {
	p.detach()
}

// sender is the part of tea.Program events are forwarded through.
type sender interface {
	Send(msg tea.Msg)
}

func forwardEvents(src reporting.Source, p sender) func() {
	unsubs := []func(){
		src.OnStarted(func(port int) {
			p.Send(serverStartedMsg{Port: port})
		}),
		src.OnStopped(func(exitCode *int, failure error) {
			p.Send(serverStoppedMsg{ExitCode: exitCode, Err: failure})
		}),
		src.OnOutputReceived(func(line string) {
			p.Send(outputLineMsg{Line: reporting.OutputLine{Timestamp: time.Now(), Stream: reporting.StreamStdout, Text: line}})
		}),
		src.OnErrorReceived(func(line string) {
			p.Send(outputLineMsg{Line: reporting.OutputLine{Timestamp: time.Now(), Stream: reporting.StreamStderr, Text: line}})
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
