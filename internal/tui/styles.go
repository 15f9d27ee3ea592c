package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5a56e0", Dark: "#7d79f6"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6a737d", Dark: "#8b949e"}
	colorDanger = lipgloss.AdaptiveColor{Light: "#cb2431", Dark: "#f97583"}
	colorDone   = lipgloss.AdaptiveColor{Light: "#22863a", Dark: "#97e023"}

	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(colorMuted)
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(colorAccent).Underline(true)

	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dragStyle    = lipgloss.NewStyle().Reverse(true)
	targetStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	doneStyle    = lipgloss.NewStyle().Foreground(colorDone).Strikethrough(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	overdueStyle = lipgloss.NewStyle().Foreground(colorDanger)

	noticeStyle = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	footerStyle = lipgloss.NewStyle().Faint(true)
)
