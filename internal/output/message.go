package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Messenger prints short status lines. Colors follow the writer's terminal
// capabilities and are dropped entirely when plain is set.
type Messenger struct {
	out   io.Writer
	err   io.Writer
	plain bool

	info    lipgloss.Style
	warn    lipgloss.Style
	success lipgloss.Style
	faint   lipgloss.Style
}

// NewMessenger creates a messenger writing info and success lines to out and
// warnings to errOut.
func NewMessenger(out, errOut io.Writer, plain bool) *Messenger {
	r := lipgloss.NewRenderer(out)
	return &Messenger{
		out:     out,
		err:     errOut,
		plain:   plain,
		info:    r.NewStyle().Foreground(lipgloss.Color("39")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		faint:   r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (m *Messenger) render(style lipgloss.Style, s string) string {
	if m.plain {
		return s
	}
	return style.Render(s)
}

// Info prints an informational line.
func (m *Messenger) Info(msg string) {
	_, _ = fmt.Fprintln(m.out, m.render(m.info, "i")+"  "+msg)
}

// Infof prints a formatted informational line.
func (m *Messenger) Infof(format string, args ...any) {
	m.Info(fmt.Sprintf(format, args...))
}

// Warn prints a warning line.
func (m *Messenger) Warn(msg string) {
	_, _ = fmt.Fprintln(m.err, m.render(m.warn, "!")+"  "+msg)
}

// Warnf prints a formatted warning line.
func (m *Messenger) Warnf(format string, args ...any) {
	m.Warn(fmt.Sprintf(format, args...))
}

// Success prints a success line.
func (m *Messenger) Success(msg string) {
	_, _ = fmt.Fprintln(m.out, m.render(m.success, "✓")+"  "+msg)
}

// Successf prints a formatted success line.
func (m *Messenger) Successf(format string, args ...any) {
	m.Success(fmt.Sprintf(format, args...))
}

// Faint renders s de-emphasized.
func (m *Messenger) Faint(s string) string {
	return m.render(m.faint, s)
}
