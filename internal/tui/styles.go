// Package tui renders the interactive sector picker.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary     = lipgloss.Color("#101F38")
	accent      = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#6b7280")
	border      = lipgloss.Color("#dce0e5")
	destructive = lipgloss.Color("#e53935")
)

// Styles holds the picker's lipgloss styles.
type Styles struct {
	Header   lipgloss.Style
	Category lipgloss.Style
	Sector   lipgloss.Style
	Leaf     lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Notice   lipgloss.Style
	Filter   lipgloss.Style
	Focused  lipgloss.Style
}

// DefaultStyles returns the standard picker styles.
func DefaultStyles() Styles {
	filter := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)

	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(primary).Padding(0, 1),
		Category: lipgloss.NewStyle().Bold(true),
		Sector:   lipgloss.NewStyle().PaddingLeft(2).Foreground(muted),
		Leaf:     lipgloss.NewStyle().PaddingLeft(4),
		Cursor:   lipgloss.NewStyle().PaddingLeft(4).Bold(true).Foreground(accent),
		Selected: lipgloss.NewStyle().Foreground(accent),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Notice:   lipgloss.NewStyle().Bold(true).Foreground(destructive),
		Filter:   filter,
		Focused:  filter.BorderForeground(accent),
	}
}
