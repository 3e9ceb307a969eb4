// Package editor implements the interactive document editor: a textarea
// wired to an autosave controller so that every keystroke schedules a
// debounced save, with a status bar reflecting the save lifecycle and an
// inline resolution prompt when the server copy diverges.
package editor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/inkwell/inkwell-cli/internal/autosave"
	"github.com/inkwell/inkwell-cli/internal/richtext"
	"github.com/inkwell/inkwell-cli/internal/tui"
)

// Payload is the document content the editor saves. It round-trips through
// the draft store, so it must marshal cleanly.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Session configures one editor run against one document.
type Session struct {
	DocumentID string
	Initial    Payload
	Controller *autosave.Controller[Payload]
	Styles     *tui.Styles
	ReadOnly   bool
}

// stateMsg carries a controller state transition into the program.
type stateMsg autosave.State

// flushedMsg is sent when the pre-quit flush has completed.
type flushedMsg struct{}

// resolvedMsg is sent when a conflict resolution attempt has completed.
type resolvedMsg struct{}

// editorReturnMsg is sent when the external $EDITOR process exits.
type editorReturnMsg struct {
	content string
	err     error
}

// Model is the bubbletea model for the editor.
type Model struct {
	session Session
	ctrl    *autosave.Controller[Payload]
	styles  *tui.Styles
	keys    keyMap

	title textinput.Model
	body  textarea.Model

	statusBar statusBar
	toast     toast
	conflict  *conflictPrompt

	preview     bool
	previewText string

	width, height int
	titleFocused  bool
	quitting      bool

	states    chan autosave.State
	cancelSub func()
}

// New creates an editor model for the session. The caller owns the
// controller; the model only subscribes to it.
func New(session Session) *Model {
	styles := session.Styles
	if styles == nil {
		styles = tui.NewStyles()
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Untitled"
	ti.CharLimit = 0
	ti.SetValue(session.Initial.Title)

	ta := textarea.New()
	ta.Placeholder = "Start writing…"
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetValue(session.Initial.Body)
	ta.Focus()

	m := &Model{
		session:   session,
		ctrl:      session.Controller,
		styles:    styles,
		keys:      defaultKeyMap(),
		title:     ti,
		body:      ta,
		statusBar: newStatusBar(styles),
		toast:     newToast(styles),
		states:    make(chan autosave.State, 16),
	}
	m.statusBar.readOnly = session.ReadOnly
	m.statusBar.SetKeyHints(m.keys.hints())
	m.statusBar.SetState(m.ctrl.State())

	m.cancelSub = m.ctrl.Subscribe(func(st autosave.State) {
		// Drop the oldest snapshot when the program falls behind; only
		// the latest matters for display.
		for {
			select {
			case m.states <- st:
				return
			default:
				select {
				case <-m.states:
				default:
				}
			}
		}
	})

	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForState())
}

func (m *Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-m.states
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

func (m *Model) payload() Payload {
	return Payload{Title: m.title.Value(), Body: m.body.Value()}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case stateMsg:
		return m.handleState(autosave.State(msg))

	case toastTickMsg:
		m.toast.Update(msg)
		return m, nil

	case editorReturnMsg:
		if msg.err != nil {
			return m, m.toast.Show(fmt.Sprintf("editor: %v", msg.err), true)
		}
		m.body.SetValue(msg.content)
		if !m.session.ReadOnly {
			m.ctrl.Save(m.payload())
		}
		return m, nil

	case flushedMsg:
		return m, tea.Quit

	case resolvedMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.conflict != nil {
		return m.updateConflict(msg)
	}
	return m, nil
}

func (m *Model) handleState(st autosave.State) (tea.Model, tea.Cmd) {
	prev := m.statusBar.state
	m.statusBar.SetState(st)

	cmds := []tea.Cmd{m.waitForState()}

	switch {
	case st.Status == autosave.StatusConflict && m.conflict == nil:
		remote, ok := m.ctrl.RemoteVersion()
		m.conflict = newConflictPrompt(m.styles, remote, ok)
		cmds = append(cmds, m.conflict.Init())
	case st.Status == autosave.StatusOffline && prev.Status != autosave.StatusOffline:
		cmds = append(cmds, m.toast.Show("Connection lost — edits kept as a local draft", false))
	case st.Online && !prev.Online:
		cmds = append(cmds, m.toast.Show("Back online", false))
	case st.Status == autosave.StatusError && prev.Status != autosave.StatusError:
		cmds = append(cmds, m.toast.Show("Save failed — will retry", true))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.conflict != nil {
		return m.updateConflict(msg)
	}

	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m.flushAndQuit()

	case key.Matches(msg, m.keys.Quit):
		if m.preview {
			m.preview = false
			return m, nil
		}
		return m.flushAndQuit()

	case key.Matches(msg, m.keys.ForceSave):
		if m.session.ReadOnly {
			return m, nil
		}
		p := m.payload()
		return m, func() tea.Msg {
			m.ctrl.ForceSave(p)
			return nil
		}

	case key.Matches(msg, m.keys.Editor):
		if m.session.ReadOnly {
			return m, nil
		}
		return m, m.openExternalEditor()

	case key.Matches(msg, m.keys.Preview):
		m.togglePreview()
		return m, nil

	case key.Matches(msg, m.keys.FocusTitle):
		m.toggleFocus()
		return m, nil
	}

	if m.preview {
		return m, nil
	}
	if m.session.ReadOnly && !isNavigationKey(msg) {
		return m, nil
	}

	before := m.payload()
	var cmd tea.Cmd
	if m.titleFocused {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.body, cmd = m.body.Update(msg)
	}

	if after := m.payload(); after != before && !m.session.ReadOnly {
		m.ctrl.Save(after)
	}
	return m, cmd
}

func (m *Model) updateConflict(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd, done := m.conflict.Update(msg)
	if !done {
		return m, cmd
	}

	choice := m.conflict.Choice()
	remote, hasRemote := m.conflict.Remote()
	m.conflict = nil

	if choice == conflictTakeRemote {
		if hasRemote {
			m.title.SetValue(remote.Title)
			m.body.SetValue(remote.Body)
		}
		return m, tea.Batch(cmd, func() tea.Msg {
			m.ctrl.ResolveConflict(true)
			return resolvedMsg{}
		})
	}

	mine := m.payload()
	return m, tea.Batch(cmd, func() tea.Msg {
		m.ctrl.ResolveConflict(false, mine)
		return resolvedMsg{}
	})
}

func (m *Model) flushAndQuit() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}
	m.quitting = true
	return m, func() tea.Msg {
		m.ctrl.Flush()
		return flushedMsg{}
	}
}

func (m *Model) toggleFocus() {
	if m.titleFocused {
		m.titleFocused = false
		m.title.Blur()
		m.body.Focus()
	} else {
		m.titleFocused = true
		m.body.Blur()
		m.title.Focus()
	}
}

func (m *Model) togglePreview() {
	if m.preview {
		m.preview = false
		return
	}
	width := m.width
	if width <= 0 {
		width = richtext.DefaultWidth
	}
	rendered, err := richtext.RenderMarkdownWithWidth(m.body.Value(), width)
	if err != nil {
		rendered = m.body.Value()
	}
	m.previewText = rendered
	m.preview = true
}

func (m *Model) openExternalEditor() tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}

	tmpFile, err := os.CreateTemp("", "inkwell-*.md")
	if err != nil {
		return func() tea.Msg {
			return editorReturnMsg{err: fmt.Errorf("creating temp file: %w", err)}
		}
	}
	if content := m.body.Value(); content != "" {
		_, _ = tmpFile.WriteString(content)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	// Always exec.Command, never a shell, to avoid injection through $EDITOR.
	parts := strings.Fields(editor)
	args := append(parts[1:], tmpPath)
	cmd := exec.Command(parts[0], args...) //nolint:gosec,noctx

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		if err != nil {
			os.Remove(tmpPath)
			return editorReturnMsg{err: err}
		}
		data, readErr := os.ReadFile(tmpPath)
		os.Remove(tmpPath)
		if readErr != nil {
			return editorReturnMsg{err: readErr}
		}
		return editorReturnMsg{content: string(data)}
	})
}

func (m *Model) layout() {
	m.statusBar.SetWidth(m.width)
	m.toast.SetWidth(m.width)
	m.title.Width = max(0, m.width-2)
	m.body.SetWidth(max(0, m.width))

	bodyHeight := m.height - 3 // title, separator, status bar
	if m.toast.Visible() {
		bodyHeight--
	}
	if bodyHeight > 0 {
		m.body.SetHeight(bodyHeight)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width <= 0 {
		return ""
	}

	theme := m.styles.Theme()

	titleStyle := m.styles.Bold
	if m.titleFocused {
		titleStyle = titleStyle.Foreground(theme.Primary)
	}
	titleLine := titleStyle.Render(m.title.View())

	separator := lipgloss.NewStyle().
		Foreground(theme.Border).
		Render(strings.Repeat("─", max(0, m.width)))

	var middle string
	switch {
	case m.conflict != nil:
		middle = m.conflict.View(m.width)
	case m.preview:
		middle = clampLines(m.previewText, m.body.Height(), m.width)
	default:
		middle = m.body.View()
	}

	var b strings.Builder
	b.WriteString(titleLine)
	b.WriteString("\n")
	b.WriteString(separator)
	b.WriteString("\n")
	b.WriteString(middle)
	b.WriteString("\n")
	if m.toast.Visible() {
		b.WriteString(m.toast.View())
		b.WriteString("\n")
	}
	b.WriteString(m.statusBar.View())
	return b.String()
}

// Close cancels the controller subscription. Call after the program exits.
func (m *Model) Close() {
	if m.cancelSub != nil {
		m.cancelSub()
		m.cancelSub = nil
	}
}

// Run starts the editor program and blocks until it exits.
func Run(session Session) error {
	m := New(session)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// clampLines truncates s to at most n lines, each at most width cells wide.
// Lines carry ANSI styling from the Markdown renderer, so truncation has to
// be escape-sequence aware.
func clampLines(s string, n, width int) string {
	lines := strings.Split(s, "\n")
	if n > 0 && len(lines) > n {
		lines = lines[:n]
	}
	if width > 0 {
		for i, line := range lines {
			lines[i] = ansi.Truncate(line, width, "…")
		}
	}
	return strings.Join(lines, "\n")
}

func isNavigationKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp, tea.KeyDown, tea.KeyLeft, tea.KeyRight,
		tea.KeyPgUp, tea.KeyPgDown, tea.KeyHome, tea.KeyEnd:
		return true
	}
	return false
}
