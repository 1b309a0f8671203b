package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	Endpoint      lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusRunning lipgloss.Style
}

// NewStyles builds styles bound to lr, so color output follows the
// profile detected for the renderer's writer.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:       lr.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Header2:       lr.NewStyle().Bold(true),
		Bold:          lr.NewStyle().Bold(true),
		Muted:         lr.NewStyle().Foreground(lipgloss.Color("245")),
		Success:       lr.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		Warning:       lr.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Error:         lr.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Endpoint:      lr.NewStyle().Foreground(lipgloss.Color("39")),
		StatusSuccess: lr.NewStyle().Foreground(lipgloss.Color("42")).SetString("✓"),
		StatusFailed:  lr.NewStyle().Foreground(lipgloss.Color("196")).SetString("✗"),
		StatusRunning: lr.NewStyle().Foreground(lipgloss.Color("214")).SetString("…"),
	}
}
