// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Palette entries adapt to light and dark terminals. Output written to a
// non-terminal (or with NO_COLOR set) is rendered without escapes.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	colorPath   = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
)

var (
	// TitleStyle marks headers and the root of a tree listing.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	// SubtitleStyle is for hints and secondary annotations.
	SubtitleStyle = lipgloss.NewStyle().Foreground(colorMuted)
	SuccessStyle  = lipgloss.NewStyle().Foreground(colorOK)
	ErrorStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorFail)
	WarningStyle  = lipgloss.NewStyle().Foreground(colorWarn)
	// PathStyle renders VFS paths, package locations and package ids.
	PathStyle = lipgloss.NewStyle().Foreground(colorPath)

	linkStyle = lipgloss.NewStyle().Italic(true).Foreground(colorMuted)
)
