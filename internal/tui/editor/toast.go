package editor

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/inkwell/inkwell-cli/internal/tui"
)

// toastDuration is how long a toast remains visible.
const toastDuration = 3 * time.Second

// toastTickMsg is the internal tick for dismissing toasts.
type toastTickMsg struct{}

// toast renders ephemeral notices above the status bar: draft written,
// draft restored, connectivity changes.
type toast struct {
	styles  *tui.Styles
	width   int
	message string
	isError bool
	visible bool
}

func newToast(styles *tui.Styles) toast {
	return toast{styles: styles}
}

// Show displays a toast message and schedules its dismissal.
func (t *toast) Show(message string, isError bool) tea.Cmd {
	t.message = message
	t.isError = isError
	t.visible = true
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastTickMsg{}
	})
}

func (t *toast) SetWidth(w int) {
	t.width = w
}

func (t *toast) Visible() bool {
	return t.visible
}

// Update handles toast tick messages.
func (t *toast) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(toastTickMsg); ok {
		t.visible = false
		t.message = ""
	}
	return nil
}

func (t toast) View() string {
	if !t.visible || t.message == "" {
		return ""
	}

	theme := t.styles.Theme()
	fg := theme.Success
	if t.isError {
		fg = theme.Error
	}

	style := lipgloss.NewStyle().
		Foreground(fg).
		Align(lipgloss.Center).
		Width(t.width)

	return style.Render(t.message)
}
