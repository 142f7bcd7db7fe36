package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"karmactl/internal/karma"
	"karmactl/internal/reporting"
	"karmactl/pkg/logging"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// For mocking in tests
var writeClipboard = clipboard.WriteAll

// Controller is the part of the Karma server the UI drives.
type Controller interface {
	Start(timeout time.Duration) (*karma.Outcome[int], error)
	Stop(reason string)
	State() karma.State
	Port() int
	ConfigFile() string
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

// Options configures the dashboard.
type Options struct {
	// StartTimeout bounds the wait for the port; 0 waits until the process ends.
	StartTimeout time.Duration
	// AutoStart starts the server as soon as the program runs.
	AutoStart bool
	// LogChannel feeds application logs into the output pane. May be nil.
	LogChannel <-chan logging.LogEntry
}

// Model is the bubbletea model of the Karma server dashboard.
type Model struct {
	ctrl         Controller
	startTimeout time.Duration
	autoStart    bool
	logChannel   <-chan logging.LogEntry

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	pane    *outputPane

	width  int
	height int

	statusMessage string
	statusKind    statusKind
	statusID      int

	quitting bool
}

// NewModel creates the dashboard model.
func NewModel(ctrl Controller, opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = startingStateStyle

	return Model{
		ctrl:         ctrl,
		startTimeout: opts.StartTimeout,
		autoStart:    opts.AutoStart,
		logChannel:   opts.LogChannel,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		pane:         newOutputPane(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, listenForLogs(m.logChannel)}
	if m.autoStart {
		cmds = append(cmds, func() tea.Msg { return startRequestMsg{} })
	}
	return tea.Batch(cmds...)
}

// listenForLogs reads one entry; Update re-arms it after every entry.
func listenForLogs(ch <-chan logging.LogEntry) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return logChannelClosedMsg{}
		}
		return logEntryMsg{Entry: entry}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case startRequestMsg:
		return m.start()

	case serverStartedMsg:
		m.appendLine(reporting.OutputLine{
			Stream: reporting.StreamLifecycle,
			Text:   fmt.Sprintf("Karma server listening on %s", serverURL(msg.Port)),
		})
		return m, m.setStatus(fmt.Sprintf("%s Karma started on port %d", IconCheck, msg.Port), statusSuccess)

	case serverStoppedMsg:
		m.appendLine(reporting.OutputLine{
			Stream: reporting.StreamLifecycle,
			Text:   reporting.StoppedMessage(msg.ExitCode, msg.Err),
		})
		if msg.Err != nil {
			return m, m.setStatus(fmt.Sprintf("%s Karma server failed", IconCross), statusError)
		}
		return m, m.setStatus(fmt.Sprintf("%s Karma server stopped", IconStop), statusInfo)

	case outputLineMsg:
		m.appendLine(msg.Line)
		return m, nil

	case startResultMsg:
		// Success and early exit are reported by the server events.
		if errors.Is(msg.Err, karma.ErrStartTimeout) {
			return m, m.setStatus(fmt.Sprintf("%s No port reported within %s", IconWarning, m.startTimeout), statusError)
		}
		return m, nil

	case logEntryMsg:
		text := fmt.Sprintf("[%s] %s: %s", msg.Entry.Level, msg.Entry.Subsystem, msg.Entry.Message)
		if msg.Entry.Err != nil {
			text += fmt.Sprintf(" (%v)", msg.Entry.Err)
		}
		m.appendLine(reporting.OutputLine{Timestamp: msg.Entry.Timestamp, Stream: logStream, Text: text})
		return m, listenForLogs(m.logChannel)

	case logChannelClosedMsg:
		return m, nil

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.statusMessage = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// logStream marks application log lines in the output pane.
const logStream reporting.Stream = "log"

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.ctrl.State() != karma.StateIdle {
			m.ctrl.Stop("the dashboard was closed")
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Start):
		return m.start()

	case key.Matches(msg, m.keys.Stop):
		if m.ctrl.State() == karma.StateIdle {
			return m, m.setStatus("Karma server is not running", statusInfo)
		}
		m.ctrl.Stop("stopped from the dashboard")
		return m, m.setStatus(fmt.Sprintf("%s Stopping Karma server", IconStop), statusInfo)

	case key.Matches(msg, m.keys.CopyURL):
		port := m.ctrl.Port()
		if port == 0 {
			return m, m.setStatus("No URL yet: Karma has not reported a port", statusError)
		}
		if err := writeClipboard(serverURL(port)); err != nil {
			logging.Error("TUI", err, "Failed to copy URL")
			return m, m.setStatus("Copy URL failed", statusError)
		}
		return m, m.setStatus(fmt.Sprintf("%s %s copied to clipboard", IconLink, serverURL(port)), statusSuccess)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.pane.follow = true
		m.pane.sync()
		m.pane.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.pane.sync()
		m.pane.viewport, cmd = m.pane.viewport.Update(msg)
		m.pane.follow = m.pane.viewport.AtBottom()
		return m, cmd
	}
	return m, nil
}

func (m Model) start() (tea.Model, tea.Cmd) {
	outcome, err := m.ctrl.Start(m.startTimeout)
	if err != nil {
		var invalid *karma.InvalidOperationError
		if errors.As(err, &invalid) {
			return m, m.setStatus(fmt.Sprintf("%s Karma server is already %s", IconWarning, invalid.State), statusError)
		}
		logging.Error("TUI", err, "Failed to start Karma server")
		return m, m.setStatus(fmt.Sprintf("%s %v", IconCross, err), statusError)
	}
	return m, tea.Batch(
		m.setStatus(fmt.Sprintf("%s Starting Karma server", IconHourglass), statusInfo),
		awaitStart(outcome),
	)
}

// awaitStart waits for the start outcome off the update loop.
func awaitStart(outcome *karma.Outcome[int]) tea.Cmd {
	return func() tea.Msg {
		port, err := outcome.Wait(context.Background())
		return startResultMsg{Port: port, Err: err}
	}
}

// setStatus shows message in the status bar and schedules its removal.
func (m *Model) setStatus(message string, kind statusKind) tea.Cmd {
	m.statusID++
	m.statusMessage = message
	m.statusKind = kind

	id := m.statusID
	return tea.Tick(statusMessageTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (m *Model) appendLine(line reporting.OutputLine) {
	if line.Timestamp.IsZero() {
		line.Timestamp = time.Now()
	}
	m.pane.append(line)
}

// resize fits the output viewport between the header and the status bar.
func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.help.Width = m.width

	frameW := outputPanelStyle.GetHorizontalFrameSize()
	frameH := outputPanelStyle.GetVerticalFrameSize()
	chrome := 1 + 1 + strings.Count(m.help.View(m.keys), "\n") + 1 // header, status bar, help

	m.pane.setSize(max(m.width-frameW, 0), max(m.height-frameH-chrome, 1))
}

func serverURL(port int) string {
	return fmt.Sprintf("http://localhost:%d/", port)
}
