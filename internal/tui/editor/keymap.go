package editor

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the editor keybindings. Everything not listed here is
// forwarded to the focused input widget.
type keyMap struct {
	ForceSave  key.Binding
	Editor     key.Binding
	Preview    key.Binding
	FocusTitle key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ForceSave: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save now"),
		),
		Editor: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "$EDITOR"),
		),
		Preview: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "preview"),
		),
		FocusTitle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "title/body"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "save & quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// hints returns the bindings shown in the status bar, in display order.
func (k keyMap) hints() []key.Binding {
	return []key.Binding{k.ForceSave, k.Editor, k.Preview, k.Quit}
}
