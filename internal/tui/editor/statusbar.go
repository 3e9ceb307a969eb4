package editor

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/inkwell/inkwell-cli/internal/autosave"
	"github.com/inkwell/inkwell-cli/internal/tui"
)

// statusBar renders the bottom bar: key hints on the left, save state and
// connectivity on the right.
type statusBar struct {
	styles   *tui.Styles
	width    int
	state    autosave.State
	readOnly bool
	keyHints []key.Binding
}

func newStatusBar(styles *tui.Styles) statusBar {
	return statusBar{
		styles: styles,
		state:  autosave.State{Status: autosave.StatusIdle, Online: true},
	}
}

func (s *statusBar) SetState(st autosave.State) {
	s.state = st
}

func (s *statusBar) SetKeyHints(hints []key.Binding) {
	s.keyHints = hints
}

func (s *statusBar) SetWidth(w int) {
	s.width = w
}

// badge returns the save-status indicator for the current state.
func (s *statusBar) badge() string {
	theme := s.styles.Theme()
	switch s.state.Status {
	case autosave.StatusSaving:
		return lipgloss.NewStyle().Foreground(theme.Secondary).Render("… saving")
	case autosave.StatusSaved:
		return lipgloss.NewStyle().Foreground(theme.Success).Render("✓ saved")
	case autosave.StatusError:
		return lipgloss.NewStyle().Foreground(theme.Error).Render("✗ save failed")
	case autosave.StatusConflict:
		return lipgloss.NewStyle().Foreground(theme.Warning).Render("⚠ conflict")
	case autosave.StatusOffline:
		return lipgloss.NewStyle().Foreground(theme.Warning).Render("◌ offline — draft kept")
	default:
		return ""
	}
}

func (s *statusBar) View() string {
	if s.width <= 0 {
		return ""
	}

	theme := s.styles.Theme()

	barStyle := lipgloss.NewStyle().
		Width(s.width).
		Foreground(theme.Secondary).
		Background(theme.Background)

	var hints []string
	for _, k := range s.keyHints {
		if k.Enabled() {
			help := k.Help()
			hint := lipgloss.NewStyle().
				Foreground(theme.Primary).
				Render(help.Key) +
				lipgloss.NewStyle().
					Foreground(theme.Muted).
					Render(" "+help.Desc)
			hints = append(hints, hint)
		}
	}
	left := strings.Join(hints, "  ")

	var parts []string
	if s.readOnly {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.Muted).Render("[read-only]"))
	}
	if badge := s.badge(); badge != "" {
		parts = append(parts, badge)
	}
	if s.state.HasUnsavedChanges {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.Warning).Render("•"))
	}
	if s.state.Online {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.Success).Render("●"))
	} else {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.Error).Render("○"))
	}
	right := strings.Join(parts, " ")

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return barStyle.Render(left + strings.Repeat(" ", gap) + right)
}
