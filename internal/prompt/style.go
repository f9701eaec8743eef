// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package prompt

import "github.com/charmbracelet/lipgloss"

var (
	groupStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	commentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	contextStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	keyStyle     = lipgloss.NewStyle().Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	markerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)
