// Package console prints the short status lines a developer sees while the
// daemon runs. Live subprocess output is not routed through here.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Status markers.
const (
	MarkSignal  = "[>>>]"
	MarkStep    = "[+]"
	MarkFailure = "[-]"
	MarkInfo    = "[.]"
	MarkWarning = "[!]"
	MarkDaemon  = "[*]"
)

// Printer writes styled status lines. Styling is dropped automatically when
// the writer is not a terminal.
type Printer struct {
	mu  sync.Mutex
	out io.Writer

	signal  lipgloss.Style
	step    lipgloss.Style
	failure lipgloss.Style
	info    lipgloss.Style
	warning lipgloss.Style
	daemon  lipgloss.Style
}

func New(out io.Writer) *Printer {
	if out == nil {
		out = io.Discard
	}
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:     out,
		signal:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		step:    r.NewStyle().Foreground(lipgloss.Color("10")),
		failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		info:    r.NewStyle().Faint(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		daemon:  r.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

func (p *Printer) Signal(format string, args ...any)  { p.line(p.signal, MarkSignal, format, args) }
func (p *Printer) Step(format string, args ...any)    { p.line(p.step, MarkStep, format, args) }
func (p *Printer) Failure(format string, args ...any) { p.line(p.failure, MarkFailure, format, args) }
func (p *Printer) Info(format string, args ...any)    { p.line(p.info, MarkInfo, format, args) }
func (p *Printer) Warning(format string, args ...any) { p.line(p.warning, MarkWarning, format, args) }
func (p *Printer) Daemon(format string, args ...any)  { p.line(p.daemon, MarkDaemon, format, args) }

// Plain writes an unstyled line.
func (p *Printer) Plain(format string, args ...any) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) line(style lipgloss.Style, mark, format string, args []any) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", style.Render(mark), fmt.Sprintf(format, args...))
}
