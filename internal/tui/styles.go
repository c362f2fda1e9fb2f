package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Each colour has a light and dark variant so reports stay
// readable on both terminal backgrounds.
var (
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	ColorError     = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	ColorText      = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#F1F5F9"}
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#94A3B8"}
	ColorSubtle    = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}
)

var (
	StyleHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	StyleLabel  = lipgloss.NewStyle().Bold(true).Foreground(ColorText).Width(14)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleSubtle  = lipgloss.NewStyle().Foreground(ColorSubtle).Italic(true)

	// StyleArchitecture tags catalog groups.
	StyleArchitecture = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)

	// StyleBox frames the end-of-run report.
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)
)

const logoASCII = `
    _ _                      _ _
 __| (_)__ _ _ _ ___ __ _ _(_) |__  ___
/ _  | / _  | '_(_-</ _| '_| | '_ \/ -_)
\__,_|_\__,_|_| /__/\__|_| |_|_.__/\___|`

// Logo returns the banner shown above the configure menu.
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n")) + "\n" +
		StyleMuted.Render("speech to text, one line per speaker")
}
