package reporting

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	stdoutPrefixStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stderrPrefixStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	startedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	stoppedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	failedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// ConsoleReporter prints server events to a writer, one line each.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a reporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Attach starts printing src's events until the returned func is called.
func (c *ConsoleReporter) Attach(src Source) func() {
	return subscribeAll(src, c.started, c.stopped, c.output, c.errLine)
}

func (c *ConsoleReporter) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

func (c *ConsoleReporter) started(port int) {
	c.println(startedStyle.Render(fmt.Sprintf("Karma server listening on http://localhost:%d/", port)))
}

func (c *ConsoleReporter) stopped(exitCode *int, failure error) {
	style := stoppedStyle
	if failure != nil || (exitCode != nil && *exitCode != 0) {
		style = failedStyle
	}
	c.println(style.Render(StoppedMessage(exitCode, failure)))
}

func (c *ConsoleReporter) output(line string) {
	c.println(stdoutPrefixStyle.Render("karma │") + " " + line)
}

func (c *ConsoleReporter) errLine(line string) {
	c.println(stderrPrefixStyle.Render("karma ✗") + " " + line)
}
