package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	// maxOutputLines bounds the lines kept for the output pane.
	maxOutputLines = 2000
	// statusMessageTTL is how long a status bar message stays visible.
	statusMessageTTL = 3 * time.Second
)

// Nerd Font Icons
const (
	IconCheck     = "✔"
	IconCross     = "✗"
	IconWarning   = "⚠"
	IconHourglass = "⏳"
	IconPlay      = "▶"
	IconStop      = "⏹"
	IconLink      = "🔗"
)

// Styles for the TUI, defined using the lipgloss library.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}).
			Background(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#303030"}).
			Padding(0, 2)

	idleStateStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#A0A0A0"})
	startingStateStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#8B6914", Dark: "#FFD700"})
	runningStateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#006400", Dark: "#90EE90"})

	urlStyle = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.AdaptiveColor{Light: "#0000CC", Dark: "#58A6FF"})

	outputPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#A0A0A0"})

	stdoutLineStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"})
	stderrLineStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8B0000", Dark: "#FF8C8C"})
	lifecycleLineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#00008B", Dark: "#ADD8E6"})
	logLineStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#707070", Dark: "#909090"})

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}).
			Background(lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#2A2A3A"}).
			Padding(0, 1)
	statusSuccessStyle = statusBarStyle.Copy().Foreground(lipgloss.AdaptiveColor{Light: "#006400", Dark: "#90EE90"})
	statusErrorStyle   = statusBarStyle.Copy().Foreground(lipgloss.AdaptiveColor{Light: "#8B0000", Dark: "#FF8C8C"})
)
