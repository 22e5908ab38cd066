package watch

import "github.com/charmbracelet/lipgloss"

// Styles bundles the lipgloss styles the model renders with, following
// the same small-struct-of-styles shape used throughout the example TUIs.
type Styles struct {
	Header lipgloss.Style
	Footer lipgloss.Style
	Rule   lipgloss.Style
	Muted  lipgloss.Style
	Error  lipgloss.Style
}

// DefaultStyles returns termweave-watch's fixed palette.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Footer: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Rule:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}
