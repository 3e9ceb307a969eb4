package editor

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/inkwell/inkwell-cli/internal/tui"
)

const (
	conflictKeepMine   = "mine"
	conflictTakeRemote = "theirs"
)

// conflictPrompt is the embedded resolution form shown when a save is
// rejected because the remote copy diverged. Saving stays suspended until
// the user picks a side.
type conflictPrompt struct {
	styles *tui.Styles
	form   *huh.Form
	choice string

	// remote is present when the remote copy could be fetched for display.
	remote    Payload
	hasRemote bool
}

func newConflictPrompt(styles *tui.Styles, remote Payload, hasRemote bool) *conflictPrompt {
	c := &conflictPrompt{
		styles:    styles,
		remote:    remote,
		hasRemote: hasRemote,
	}

	desc := "Someone else saved this document while you were editing."
	if hasRemote {
		desc = fmt.Sprintf("%s\nServer copy: %q (%d characters).",
			desc, remote.Title, len(remote.Body))
	}

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Document changed on the server").
				Description(desc).
				Options(
					huh.NewOption("Keep my version (overwrite the server)", conflictKeepMine),
					huh.NewOption("Take the server version (discard my edits)", conflictTakeRemote),
				).
				Value(&c.choice),
		),
	).WithShowHelp(false)

	return c
}

func (c *conflictPrompt) Init() tea.Cmd {
	return c.form.Init()
}

// Update forwards messages to the form. done is true once a choice has been
// made; the caller then reads Choice and tears the prompt down.
func (c *conflictPrompt) Update(msg tea.Msg) (cmd tea.Cmd, done bool) {
	model, cmd := c.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		c.form = f
	}
	return cmd, c.form.State == huh.StateCompleted
}

// Choice returns the selected resolution.
func (c *conflictPrompt) Choice() string {
	return c.choice
}

// Remote returns the fetched server copy, if any.
func (c *conflictPrompt) Remote() (Payload, bool) {
	return c.remote, c.hasRemote
}

func (c *conflictPrompt) View(width int) string {
	theme := c.styles.Theme()
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Warning).
		Padding(1, 2)
	if width > 4 {
		box = box.Width(width - 2)
	}
	return box.Render(c.form.View())
}
