package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/collabedit/docsync/internal/client/syncstatus"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#BD93F9"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	labelStyle = lipgloss.NewStyle().Width(10)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#44475A")).
			Padding(1, 2)
)

var statusColors = map[syncstatus.State]string{
	syncstatus.Synced: "#50FA7B",
	syncstatus.Typing: "#F1FA8C",
	syncstatus.Saving: "#8BE9FD",
	syncstatus.Saved:  "#50FA7B",
	syncstatus.Error:  "#FF5555",
}

func statusStyle(s syncstatus.State) lipgloss.Style {
	color, ok := statusColors[s]
	if !ok {
		color = "#F8F8F2"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
}
