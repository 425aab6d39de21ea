package app

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stageStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	documentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	completeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	historyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	summaryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	concernStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	userBubbleStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	assistantBubbleStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	errorBubbleStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("160")).Foreground(lipgloss.Color("203")).Padding(0, 1)
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)

	severityCriticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true)
	severityWarningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	severityInfoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	severitySafeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
)
