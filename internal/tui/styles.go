package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor  = lipgloss.Color("#2F80ED") // Electron blue
	addedColor   = lipgloss.Color("#10B981")
	changedColor = lipgloss.Color("#F59E0B")
	mutedColor   = lipgloss.Color("#6B7280")
	removedColor = lipgloss.Color("#EF4444")
)

var (
	appStyle = lipgloss.NewStyle().Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accentColor).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(1, 0, 0, 0)

	successBadge = lipgloss.NewStyle().
			Foreground(addedColor).
			Bold(true)

	errorBadge = lipgloss.NewStyle().
			Foreground(removedColor).
			Bold(true)

	addedStyle    = lipgloss.NewStyle().Foreground(addedColor)
	modifiedStyle = lipgloss.NewStyle().Foreground(changedColor)
	deletedStyle  = lipgloss.NewStyle().Foreground(removedColor)
)

// statusStyle colors an M/A/D change marker.
func statusStyle(status rune) lipgloss.Style {
	switch status {
	case 'A':
		return addedStyle
	case 'D':
		return deletedStyle
	default:
		return modifiedStyle
	}
}
