// Package tui provides terminal user interface components.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the TUI.
type Theme struct {
	Primary    lipgloss.AdaptiveColor
	Secondary  lipgloss.AdaptiveColor
	Success    lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
	Error      lipgloss.AdaptiveColor
	Muted      lipgloss.AdaptiveColor
	Background lipgloss.AdaptiveColor
	Foreground lipgloss.AdaptiveColor
	Border     lipgloss.AdaptiveColor
}

// DefaultTheme returns the default inkwell theme.
func DefaultTheme() Theme {
	return Theme{
		Primary:    lipgloss.AdaptiveColor{Light: "#3b5bdb", Dark: "#91a7ff"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#616e7c", Dark: "#9aa5b1"},
		Success:    lipgloss.AdaptiveColor{Light: "#2b8a3e", Dark: "#8ce99a"},
		Warning:    lipgloss.AdaptiveColor{Light: "#e67700", Dark: "#ffd43b"},
		Error:      lipgloss.AdaptiveColor{Light: "#c92a2a", Dark: "#ffa8a8"},
		Muted:      lipgloss.AdaptiveColor{Light: "#868e96", Dark: "#6c7380"},
		Background: lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#1a1b26"},
		Foreground: lipgloss.AdaptiveColor{Light: "#212529", Dark: "#e6e8ef"},
		Border:     lipgloss.AdaptiveColor{Light: "#dee2e6", Dark: "#3b4048"},
	}
}

// Styles holds the styled components shared by the picker, spinner, and
// editor. Components that need finer control pull the raw palette via Theme.
type Styles struct {
	theme Theme

	Body    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style

	// Selection styles for list-like components
	Selected lipgloss.Style
	Cursor   lipgloss.Style
}

// NewStyles creates a new Styles with the default theme.
func NewStyles() *Styles {
	return NewStylesWithTheme(DefaultTheme())
}

// NewStylesWithTheme creates a new Styles with a custom theme.
func NewStylesWithTheme(theme Theme) *Styles {
	return &Styles{
		theme: theme,

		Body:    lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Bold:    lipgloss.NewStyle().Bold(true).Foreground(theme.Foreground),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),

		Selected: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1),
		Cursor: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
	}
}

// Theme returns the current theme.
func (s *Styles) Theme() Theme {
	return s.theme
}
