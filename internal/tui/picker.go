package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PickerItem is one selectable row in the fuzzy picker.
type PickerItem struct {
	ID          string
	Title       string
	Description string
}

func (i PickerItem) String() string {
	return i.Title
}

// FilterValue returns the string the query matches against.
func (i PickerItem) FilterValue() string {
	return i.Title + " " + i.Description
}

// PickerItemsLoadedMsg delivers asynchronously loaded items to the model.
type PickerItemsLoadedMsg struct {
	Items []PickerItem
	Err   error
}

// ItemLoader loads picker items in the background.
type ItemLoader func() ([]PickerItem, error)

// pickerModel is the bubbletea model behind the picker. Selections are
// resolved through originalItems so callers always get the undecorated
// item even when the displayed row carries recent-item markers.
type pickerModel struct {
	items        []PickerItem
	filtered     []PickerItem
	textInput    textinput.Model
	cursor       int
	scrollOffset int
	maxVisible   int
	selected     *PickerItem
	quitting     bool
	styles       *Styles
	title        string

	loading    bool
	loadingMsg string
	spinner    spinner.Model
	loadError  error

	recentItems      []PickerItem
	originalItems    map[string]PickerItem
	emptyMessage     string
	autoSelectSingle bool
	showHelp         bool
}

// PickerOption configures a picker.
type PickerOption func(*pickerModel)

// WithPickerTitle sets the picker title.
func WithPickerTitle(title string) PickerOption {
	return func(m *pickerModel) { m.title = title }
}

// WithMaxVisible sets how many rows are shown before scrolling.
func WithMaxVisible(n int) PickerOption {
	return func(m *pickerModel) { m.maxVisible = n }
}

// WithLoading starts the picker in a loading state.
func WithLoading(msg string) PickerOption {
	return func(m *pickerModel) {
		m.loading = true
		m.loadingMsg = msg
	}
}

// WithRecentItems pins recently used items to the top of the list.
func WithRecentItems(items []PickerItem) PickerOption {
	return func(m *pickerModel) { m.recentItems = items }
}

// WithEmptyMessage sets the message shown when no items match.
func WithEmptyMessage(msg string) PickerOption {
	return func(m *pickerModel) { m.emptyMessage = msg }
}

// WithAutoSelectSingle returns immediately when exactly one item exists.
func WithAutoSelectSingle() PickerOption {
	return func(m *pickerModel) { m.autoSelectSingle = true }
}

// WithHelp toggles the keyboard shortcut line.
func WithHelp(show bool) PickerOption {
	return func(m *pickerModel) { m.showHelp = show }
}

func newPickerModel(items []PickerItem, opts ...PickerOption) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Width = 40
	ti.Focus()

	styles := NewStyles()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.theme.Primary)

	m := pickerModel{
		items:         items,
		filtered:      items,
		textInput:     ti,
		styles:        styles,
		title:         "Select an item",
		maxVisible:    10,
		spinner:       sp,
		loadingMsg:    "Loading...",
		emptyMessage:  "No items found",
		showHelp:      true,
		originalItems: make(map[string]PickerItem),
	}

	for _, opt := range opts {
		opt(&m)
	}

	// Remember the undecorated items before display markup is applied.
	m.rememberOriginals(items)
	m.rememberOriginals(m.recentItems)

	if len(m.recentItems) > 0 {
		m.items = m.mergeWithRecents(m.items)
		m.filtered = m.items
	}

	return m
}

func (m *pickerModel) rememberOriginals(items []PickerItem) {
	for _, item := range items {
		m.originalItems[item.ID] = item
	}
}

// mergeWithRecents puts decorated recent items first and drops their
// duplicates from the main list.
func (m pickerModel) mergeWithRecents(items []PickerItem) []PickerItem {
	if len(m.recentItems) == 0 {
		return items
	}

	merged := make([]PickerItem, 0, len(m.recentItems)+len(items))
	recentIDs := make(map[string]bool, len(m.recentItems))
	for _, item := range m.recentItems {
		recentIDs[item.ID] = true
		merged = append(merged, PickerItem{
			ID:          item.ID,
			Title:       "* " + item.Title,
			Description: "(recent) " + item.Description,
		})
	}

	for _, item := range items {
		if !recentIDs[item.ID] {
			merged = append(merged, item)
		}
	}
	return merged
}

func (m pickerModel) Init() tea.Cmd {
	if m.loading {
		return m.spinner.Tick
	}
	return textinput.Blink
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PickerItemsLoadedMsg:
		return m.applyLoaded(msg)

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m pickerModel) applyLoaded(msg PickerItemsLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.Err != nil {
		m.loadError = msg.Err
		m.quitting = true
		return m, tea.Quit
	}

	m.items = msg.Items
	m.filtered = m.filter(m.textInput.Value())
	if m.originalItems == nil {
		m.originalItems = make(map[string]PickerItem)
	}
	m.rememberOriginals(msg.Items)

	if m.autoSelectSingle && len(m.items) == 1 {
		m.selected = m.getOriginalItem(m.items[0].ID)
		return m, tea.Quit
	}

	return m, textinput.Blink
}

func (m pickerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While loading, only cancellation is accepted.
	if m.loading {
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		if len(m.filtered) > 0 && m.cursor < len(m.filtered) {
			m.selected = m.getOriginalItem(m.filtered[m.cursor].ID)
		}
		return m, tea.Quit
	case "tab":
		// Select the first match.
		if len(m.filtered) > 0 {
			m.selected = m.getOriginalItem(m.filtered[0].ID)
		}
		return m, tea.Quit
	case "up", "ctrl+p", "k":
		m.moveCursor(-1)
	case "down", "ctrl+n", "j":
		m.moveCursor(1)
	case "ctrl+d":
		m.moveCursor(m.maxVisible / 2)
	case "ctrl+u":
		m.moveCursor(-m.maxVisible / 2)
	case "g":
		m.cursor = 0
		m.scrollOffset = 0
	case "G":
		m.cursor = len(m.filtered) - 1
		if m.cursor >= m.maxVisible {
			m.scrollOffset = m.cursor - m.maxVisible + 1
		}
	default:
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		m.filtered = m.filter(m.textInput.Value())
		m.cursor = 0
		m.scrollOffset = 0
		return m, cmd
	}

	return m, nil
}

// moveCursor shifts the cursor by delta, clamping to the filtered list
// and keeping the cursor inside the visible window.
func (m *pickerModel) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor > len(m.filtered)-1 {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+m.maxVisible {
		m.scrollOffset = m.cursor - m.maxVisible + 1
	}
}

// filter returns the items whose FilterValue contains the query,
// case-insensitively.
func (m pickerModel) filter(query string) []PickerItem {
	if query == "" {
		return m.items
	}

	query = strings.ToLower(query)
	var result []PickerItem
	for _, item := range m.items {
		if strings.Contains(strings.ToLower(item.FilterValue()), query) {
			result = append(result, item)
		}
	}
	return result
}

// getOriginalItem resolves a displayed row back to its undecorated item.
func (m pickerModel) getOriginalItem(id string) *PickerItem {
	if original, ok := m.originalItems[id]; ok {
		return &original
	}
	for _, item := range m.items {
		if item.ID == id {
			return &item
		}
	}
	return nil
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(m.styles.theme.Primary).
		MarginBottom(1)
	b.WriteString(titleStyle.Render(m.title) + "\n\n")

	if m.loading {
		b.WriteString(m.spinner.View() + " " + m.styles.Muted.Render(m.loadingMsg) + "\n")
		return b.String()
	}

	b.WriteString(m.textInput.View() + "\n\n")
	m.viewRows(&b)

	if m.showHelp {
		helpStyle := m.styles.Muted.Padding(1, 0, 0, 0)
		b.WriteString("\n" + helpStyle.Render("↑↓/jk navigate • enter select • tab first • esc cancel"))
	}

	return b.String()
}

func (m pickerModel) viewRows(b *strings.Builder) {
	if len(m.filtered) == 0 {
		b.WriteString(m.styles.Muted.Render(m.emptyMessage))
		return
	}

	start := m.scrollOffset
	end := start + m.maxVisible
	if end > len(m.filtered) {
		end = len(m.filtered)
	}

	for i := start; i < end; i++ {
		item := m.filtered[i]
		cursor, style := "  ", m.styles.Body
		if i == m.cursor {
			cursor, style = m.styles.Cursor.Render("> "), m.styles.Selected
		}

		line := cursor + style.Render(item.Title)
		if item.Description != "" {
			line += m.styles.Muted.Render(" - " + item.Description)
		}
		b.WriteString(line + "\n")
	}

	if len(m.filtered) > m.maxVisible {
		b.WriteString("\n" + m.styles.Muted.Render(
			fmt.Sprintf("Showing %d-%d of %d", start+1, end, len(m.filtered)),
		))
	}
}

// Picker shows a fuzzy-search picker and returns the selected item.
type Picker struct {
	items  []PickerItem
	opts   []PickerOption
	loader ItemLoader
}

// NewPicker creates a picker over a fixed item list.
func NewPicker(items []PickerItem, opts ...PickerOption) *Picker {
	return &Picker{items: items, opts: opts}
}

// NewPickerWithLoader creates a picker that loads its items in the
// background while a spinner is shown.
func NewPickerWithLoader(loader ItemLoader, opts ...PickerOption) *Picker {
	return &Picker{loader: loader, opts: opts}
}

// Run shows the picker. A nil item with a nil error means the user
// canceled.
func (p *Picker) Run() (*PickerItem, error) {
	if p.loader != nil {
		return p.runWithLoader()
	}

	m := newPickerModel(p.items, p.opts...)
	if m.autoSelectSingle && len(m.items) == 1 {
		return m.getOriginalItem(m.items[0].ID), nil
	}

	finalModel, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, err
	}

	final := finalModel.(pickerModel) //nolint:errcheck // the program only ever runs this model
	if final.quitting {
		return nil, nil
	}
	return final.selected, nil
}

func (p *Picker) runWithLoader() (*PickerItem, error) {
	opts := append(p.opts, WithLoading("Loading..."))
	m := newPickerModel(nil, opts...)
	program := tea.NewProgram(m)

	go func() {
		items, err := p.loader()
		program.Send(PickerItemsLoadedMsg{Items: items, Err: err})
	}()

	finalModel, err := program.Run()
	if err != nil {
		return nil, err
	}

	final := finalModel.(pickerModel) //nolint:errcheck // the program only ever runs this model
	if final.quitting {
		// loadError is nil when the user simply canceled.
		return nil, final.loadError
	}
	return final.selected, nil
}

// Pick is a convenience wrapper for one-off pickers.
func Pick(title string, items []PickerItem) (*PickerItem, error) {
	return NewPicker(items, WithPickerTitle(title)).Run()
}

// PickDocument shows a picker for documents, with recently opened
// documents pinned to the top of the list.
func PickDocument(documents, recent []PickerItem) (*PickerItem, error) {
	return NewPicker(documents,
		WithPickerTitle("Select a document"),
		WithRecentItems(recent),
		WithEmptyMessage("No documents found"),
	).Run()
}
