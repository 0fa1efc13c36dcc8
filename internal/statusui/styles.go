// Package statusui holds the Lip Gloss palette cmd/memoire-monitor renders
// with, adapted from tui/internal/ui/styles.go's color and style set.
package statusui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the status TUI.
var (
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorRed     = lipgloss.Color("#FF0000")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
)

// Base styles reused across panels.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	LevelGreenStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	LevelYellowStyle = lipgloss.NewStyle().
				Foreground(ColorYellow)

	LevelRedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed)

	FooterKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorYellow)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)
)
