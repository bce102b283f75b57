package main

import (
	"github.com/charmbracelet/lipgloss"

	"mq/internal/cluster"
)

var (
	subtle     = theme.TextMuted
	highlight  = theme.Accent
	textStrong = theme.TextStrong

	headerStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true)

	headerMetaStyle = lipgloss.NewStyle().
			Foreground(subtle)

	paneTitleStyle = lipgloss.NewStyle().
			Foreground(theme.TextOnAccent).
			Bold(true).
			Padding(0, 1)

	paneBodyStyle = lipgloss.NewStyle().
			Foreground(textStrong).
			Background(theme.Surface)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(subtle).
				Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(theme.Danger).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(subtle)

	warningStyle = lipgloss.NewStyle().
			Foreground(theme.AccentOrange)

	copyStatusStyle = lipgloss.NewStyle().
			Foreground(theme.AccentGreen).
			Bold(true)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(subtle).
				Bold(true).
				Padding(0, 1)

	tableCellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

var statusColorMap = map[cluster.Status]lipgloss.TerminalColor{
	cluster.StatusRunning:    theme.AccentGreen,
	cluster.StatusCompleting: theme.AccentGreen,
	cluster.StatusPending:    theme.AccentOrange,
	cluster.StatusCompleted:  theme.AccentBlue,
	cluster.StatusFailed:     theme.Danger,
}

func statusColor(s cluster.Status) lipgloss.TerminalColor {
	if c, ok := statusColorMap[s]; ok {
		return c
	}
	return theme.TextDim
}
