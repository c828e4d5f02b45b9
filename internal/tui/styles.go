package tui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75")).
			MarginTop(1)
	LinkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			Underline(true)

	HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
