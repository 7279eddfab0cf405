package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1)

	userBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2e8b57")).
			Padding(0, 1)

	botBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)

	senderStyle   = lipgloss.NewStyle().Faint(true)
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563eb"))
	hostStyle     = lipgloss.NewStyle().Underline(true)
	urlStyle      = lipgloss.NewStyle().Faint(true)
	typingStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	emptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#aaaaaa"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
)
