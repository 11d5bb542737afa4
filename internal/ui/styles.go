// Package ui provides terminal styling and pager support for loom CLI output.
// Uses an adaptive palette that works in both light and dark terminals.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/loomworks/loom/internal/types"
)

var (
	ColorGood = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorBad = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	GoodStyle   = lipgloss.NewStyle().Foreground(ColorGood)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	BadStyle    = lipgloss.NewStyle().Foreground(ColorBad)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	TitleStyle  = lipgloss.NewStyle().Bold(true)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// Tree characters for hierarchical display
const (
	TreeBranch = "├─ "
	TreeLast   = "└─ "
	TreePipe   = "│  "
	TreeIndent = "   "
)

// DisableColor forces plain output regardless of terminal capabilities.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// StatusStyle returns the style for a work item status.
func StatusStyle(s types.Status) lipgloss.Style {
	switch s {
	case types.StatusDone:
		return GoodStyle
	case types.StatusInProgress:
		return AccentStyle
	case types.StatusReview:
		return WarnStyle
	default:
		return MutedStyle
	}
}

// PriorityStyle returns the style for a work item priority.
func PriorityStyle(p types.Priority) lipgloss.Style {
	switch p {
	case types.PriorityHigh:
		return BadStyle
	case types.PriorityLow:
		return MutedStyle
	default:
		return WarnStyle
	}
}

// RenderMuted renders text in the muted (gray) style.
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}

// RenderAccent renders text in the accent (blue) style.
func RenderAccent(s string) string {
	return AccentStyle.Render(s)
}

// RenderInactive marks soft-deleted rows.
func RenderInactive(s string) string {
	return MutedStyle.Strikethrough(true).Render(s)
}
