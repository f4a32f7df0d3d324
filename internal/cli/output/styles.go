package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette.
var (
	colorAccent  = lipgloss.Color("#8BC34A")
	colorError   = lipgloss.Color("#E53935")
	colorWarning = lipgloss.Color("#FFC107")
	colorInfo    = lipgloss.Color("#2196F3")
	colorMuted   = lipgloss.Color("#7A8494")
)

// Styles are the lipgloss styles used in text mode. They are bound to the
// renderer's color profile, so they render plain text when colors are off.
type Styles struct {
	Bold      lipgloss.Style
	Header    lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Info      lipgloss.Style
	Confirmed lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Bold:      r.NewStyle().Bold(true),
		Header:    r.NewStyle().Bold(true).Foreground(colorAccent),
		Muted:     r.NewStyle().Foreground(colorMuted),
		Success:   r.NewStyle().Foreground(colorAccent),
		Warning:   r.NewStyle().Foreground(colorWarning),
		Error:     r.NewStyle().Foreground(colorError).Bold(true),
		Info:      r.NewStyle().Foreground(colorInfo),
		Confirmed: r.NewStyle().Foreground(colorAccent).Bold(true),
	}
}
