package tui

import (
	"strings"

	"karmactl/internal/reporting"

	"github.com/charmbracelet/bubbles/viewport"
)

// outputPane is the scrollback behind the output viewport. Each line is
// styled once when it is appended; the viewport content is rebuilt from
// the styled lines only when they changed or the width changed.
//
// Model holds the pane by pointer so View can bring the viewport up to
// date for every copy of the model.
type outputPane struct {
	lines    []reporting.OutputLine
	rendered []string
	viewport viewport.Model
	follow   bool

	dirty         bool
	renderedWidth int
}

func newOutputPane() *outputPane {
	vp := viewport.New(80, 20)
	return &outputPane{
		viewport:      vp,
		follow:        true,
		renderedWidth: vp.Width,
	}
}

func (p *outputPane) append(line reporting.OutputLine) {
	p.lines = append(p.lines, line)
	p.rendered = append(p.rendered, renderLine(line, p.renderedWidth))
	if over := len(p.lines) - maxOutputLines; over > 0 {
		p.lines = p.lines[over:]
		p.rendered = p.rendered[over:]
	}
	p.dirty = true
}

func (p *outputPane) setSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
}

// sync sets the viewport content from the styled lines if it is stale.
func (p *outputPane) sync() {
	if p.renderedWidth != p.viewport.Width {
		p.renderedWidth = p.viewport.Width
		for i, l := range p.lines {
			p.rendered[i] = renderLine(l, p.renderedWidth)
		}
		p.dirty = true
	}
	if !p.dirty {
		return
	}
	p.viewport.SetContent(strings.Join(p.rendered, "\n"))
	if p.follow {
		p.viewport.GotoBottom()
	}
	p.dirty = false
}

func (p *outputPane) view() string {
	p.sync()
	return p.viewport.View()
}
