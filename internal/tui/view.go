package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"karmactl/internal/karma"
	"karmactl/internal/reporting"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	output := outputPanelStyle.Render(m.pane.view())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		output,
		m.renderStatusBar(),
		m.help.View(m.keys),
	)
}

func (m Model) renderHeader() string {
	state := m.ctrl.State()

	var stateText string
	switch state {
	case karma.StateRunning:
		stateText = runningStateStyle.Render(IconPlay + " running")
	case karma.StateStarting:
		stateText = startingStateStyle.Render(m.spinner.View() + " starting")
	default:
		stateText = idleStateStyle.Render(IconStop + " idle")
	}

	parts := []string{"Karma", stateText, filepath.Base(m.ctrl.ConfigFile())}
	if port := m.ctrl.Port(); port != 0 {
		parts = append(parts, urlStyle.Render(serverURL(port)))
	}

	return headerStyle.Width(m.width).MaxHeight(1).Render(strings.Join(parts, "  •  "))
}

func (m Model) renderStatusBar() string {
	style := statusBarStyle
	switch m.statusKind {
	case statusSuccess:
		style = statusSuccessStyle
	case statusError:
		style = statusErrorStyle
	}

	text := m.statusMessage
	if text == "" {
		text = fmt.Sprintf("%d lines", len(m.pane.lines))
		if !m.pane.follow {
			text += "  •  scrolled (G to follow)"
		}
	}
	innerWidth := m.width - style.GetHorizontalFrameSize()
	return style.Width(m.width).Render(truncate(text, innerWidth))
}

// renderLine truncates a line to avoid viewport wrapping and styles it by
// its stream.
func renderLine(l reporting.OutputLine, maxWidth int) string {
	return styleForStream(l.Stream).Render(truncate(l.Text, maxWidth))
}

func styleForStream(s reporting.Stream) lipgloss.Style {
	switch s {
	case reporting.StreamStderr:
		return stderrLineStyle
	case reporting.StreamLifecycle:
		return lifecycleLineStyle
	case logStream:
		return logLineStyle
	default:
		return stdoutLineStyle
	}
}

// truncate shortens s to maxWidth cells, marking the cut with an ellipsis.
// A non-positive maxWidth leaves s unchanged.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 || runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth-1, "") + "…"
}
