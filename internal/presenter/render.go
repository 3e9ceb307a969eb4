package presenter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/inkwell/inkwell-cli/internal/tui"
)

// Styles holds the lipgloss styles used by the presenter.
type Styles struct {
	Primary lipgloss.Style
	Normal  lipgloss.Style
	Muted   lipgloss.Style
	Subtle  lipgloss.Style // for footer elements (most understated)
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Heading lipgloss.Style
	Label   lipgloss.Style
	Body    lipgloss.Style
}

// NewStyles creates presenter styles from a theme.
func NewStyles(theme tui.Theme, styled bool) Styles {
	if !styled {
		return Styles{
			Primary: lipgloss.NewStyle(),
			Normal:  lipgloss.NewStyle(),
			Muted:   lipgloss.NewStyle(),
			Subtle:  lipgloss.NewStyle(),
			Success: lipgloss.NewStyle(),
			Warning: lipgloss.NewStyle(),
			Error:   lipgloss.NewStyle(),
			Heading: lipgloss.NewStyle(),
			Label:   lipgloss.NewStyle(),
			Body:    lipgloss.NewStyle(),
		}
	}

	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Dark))
	}
	return Styles{
		Primary: fg(theme.Primary).Bold(true),
		Normal:  fg(theme.Foreground),
		Muted:   fg(theme.Muted),
		Subtle:  fg(theme.Border),
		Success: fg(theme.Success),
		Warning: fg(theme.Warning),
		Error:   fg(theme.Error),
		Heading: fg(theme.Muted).Bold(true),
		Label:   fg(theme.Muted),
		Body:    fg(theme.Foreground),
	}
}

// EmphasisStyle returns the style for a given emphasis string.
func (s Styles) EmphasisStyle(emphasis string) lipgloss.Style {
	switch emphasis {
	case "primary":
		return s.Primary
	case "muted":
		return s.Muted
	case "success":
		return s.Success
	case "warning":
		return s.Warning
	case "error":
		return s.Error
	default:
		return s.Normal
	}
}

// fieldRow is one renderable field within a detail section, after the
// schema-level filters (collapsed empties, title role) have been applied.
type fieldRow struct {
	name string
	spec FieldSpec
	val  any
	text string
	body bool
}

// sectionRows applies the filters shared by every detail renderer: collapsed
// fields vanish when empty, and the title role is the headline rather than a
// labeled row.
func sectionRows(schema *EntitySchema, fields []string, data map[string]any, locale Locale) []fieldRow {
	rows := make([]fieldRow, 0, len(fields))
	for _, name := range fields {
		spec := schema.Fields[name]
		val := data[name]

		if spec.Collapse && isEmpty(val) {
			continue
		}
		if spec.Role == "title" {
			continue
		}

		rows = append(rows, fieldRow{
			name: name,
			spec: spec,
			val:  val,
			text: FormatField(spec, name, val, locale),
			body: spec.Role == "body",
		})
	}
	return rows
}

// roleOrderedFields returns every schema field sorted by name and grouped in
// headline-to-footnote role order, for schemas that define no detail sections.
func roleOrderedFields(schema *EntitySchema) []string {
	names := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var ordered []string
	for _, role := range []string{"title", "detail", "body", "meta"} {
		for _, name := range names {
			if schema.Fields[name].Role == role {
				ordered = append(ordered, name)
			}
		}
	}
	return ordered
}

// visibleAffordances filters schema actions by their when-conditions.
func visibleAffordances(schema *EntitySchema, data map[string]any) []Affordance {
	var visible []Affordance
	for _, a := range schema.Actions {
		if EvalCondition(a.When, data) {
			visible = append(visible, a)
		}
	}
	return visible
}

// RenderDetail renders a single entity using its schema's detail view.
func RenderDetail(w io.Writer, schema *EntitySchema, data map[string]any, styles Styles, locale Locale) error {
	var b strings.Builder

	if headline := RenderHeadline(schema, data); headline != "" {
		b.WriteString(styles.Primary.Render(headline))
		b.WriteString("\n")
	}

	if len(schema.Views.Detail.Sections) > 0 {
		for _, section := range schema.Views.Detail.Sections {
			rows := sectionRows(schema, section.Fields, data, locale)
			renderSection(&b, section.Heading, rows, styles)
		}
	} else {
		rows := sectionRows(schema, roleOrderedFields(schema), data, locale)
		renderSection(&b, "", rows, styles)
	}

	if len(schema.Actions) > 0 {
		renderAffordances(&b, schema, data, styles)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderList renders a slice of entities using the schema's list view.
func RenderList(w io.Writer, schema *EntitySchema, data []map[string]any, styles Styles, locale Locale) error {
	columns := listColumns(schema)
	if len(columns) == 0 || len(data) == 0 {
		return nil
	}

	var b strings.Builder
	for _, item := range data {
		parts := make([]string, 0, len(columns))
		for _, col := range columns {
			spec := schema.Fields[col]
			val := item[col]
			style := resolveEmphasis(spec, val, styles)
			parts = append(parts, style.Render(FormatField(spec, col, val, locale)))
		}
		b.WriteString(strings.Join(parts, "  "))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// listColumns returns the schema's list columns, falling back to fields
// with title/detail roles in sorted order.
func listColumns(schema *EntitySchema) []string {
	if cols := schema.Views.List.Columns; len(cols) > 0 {
		return cols
	}
	var candidates []string
	for name, spec := range schema.Fields {
		if spec.Role == "title" || spec.Role == "detail" {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)
	return candidates
}

// renderSection writes one labeled section. Body rows appear as indented text
// blocks when their value is present; labeled rows align on the widest label
// in the section and vanish when they format to nothing. The heading is
// suppressed for sections with nothing to show.
func renderSection(b *strings.Builder, heading string, rows []fieldRow, styles Styles) {
	maxLen := 0
	hasVisible := false
	for _, row := range rows {
		if row.body {
			if !isEmpty(row.val) {
				hasVisible = true
			}
			continue
		}
		hasVisible = true
		if l := len(fieldLabel(row.name)); l > maxLen {
			maxLen = l
		}
	}
	if !hasVisible {
		return
	}

	if heading != "" {
		b.WriteString("\n")
		b.WriteString(styles.Heading.Render(heading))
		b.WriteString("\n")
	}

	for _, row := range rows {
		style := rowStyle(row, styles)

		if row.body {
			if isEmpty(row.val) {
				continue
			}
			b.WriteString("\n")
			b.WriteString(style.Render("  " + row.text))
			b.WriteString("\n")
			continue
		}

		if row.text == "" {
			continue
		}
		b.WriteString(styles.Label.Render(fmt.Sprintf("  %-*s  ", maxLen, fieldLabel(row.name))))
		b.WriteString(style.Render(row.text))
		b.WriteString("\n")
	}
}

func rowStyle(row fieldRow, styles Styles) lipgloss.Style {
	style := resolveEmphasis(row.spec, row.val, styles)
	if row.body && row.spec.Emphasis == "" && row.spec.WhenStale == "" {
		style = styles.Body
	}
	return style
}

func renderAffordances(b *strings.Builder, schema *EntitySchema, data map[string]any, styles Styles) {
	visible := visibleAffordances(schema, data)
	if len(visible) == 0 {
		return
	}

	// Footer separator
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render("─────"))
	b.WriteString("\n")
	b.WriteString(styles.Subtle.Render("Next:"))
	b.WriteString("\n")

	maxCmd := 0
	cmds := make([]string, len(visible))
	for i, a := range visible {
		cmds[i] = RenderTemplate(a.Cmd, data)
		if len(cmds[i]) > maxCmd {
			maxCmd = len(cmds[i])
		}
	}

	for i, a := range visible {
		line := fmt.Sprintf("  %-*s  %s", maxCmd, cmds[i], a.Label)
		b.WriteString(styles.Subtle.Render(line))
		b.WriteString("\n")
	}
}

// resolveEmphasis picks the right style for a field, considering conditional emphasis.
func resolveEmphasis(spec FieldSpec, val any, styles Styles) lipgloss.Style {
	// Conditional emphasis: when_stale applies to this field's own timestamp
	if spec.WhenStale != "" && IsStale(val) {
		return styles.EmphasisStyle(spec.WhenStale)
	}

	if spec.Emphasis != "" {
		return styles.EmphasisStyle(spec.Emphasis)
	}
	return styles.Normal
}

// fieldLabel converts a field key to a human label.
func fieldLabel(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	key = strings.TrimSuffix(key, " on")
	key = strings.TrimSuffix(key, " at")
	words := strings.Fields(key)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func isEmpty(val any) bool {
	if val == nil {
		return true
	}
	switch v := val.(type) {
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []map[string]any:
		return len(v) == 0
	}
	return false
}

// escapePipe escapes pipe characters in Markdown table cells.
func escapePipe(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// =============================================================================
// Markdown Rendering
// =============================================================================

// RenderDetailMarkdown renders a single entity as Markdown.
func RenderDetailMarkdown(w io.Writer, schema *EntitySchema, data map[string]any, locale Locale) error {
	var b strings.Builder

	if headline := RenderHeadline(schema, data); headline != "" {
		b.WriteString("**" + headline + "**\n")
	}

	if len(schema.Views.Detail.Sections) > 0 {
		for _, section := range schema.Views.Detail.Sections {
			rows := sectionRows(schema, section.Fields, data, locale)
			renderSectionMarkdown(&b, section.Heading, rows)
		}
	} else {
		rows := sectionRows(schema, roleOrderedFields(schema), data, locale)
		renderSectionMarkdown(&b, "", rows)
	}

	if len(schema.Actions) > 0 {
		renderAffordancesMarkdown(&b, schema, data)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderListMarkdown renders a slice of entities as a Markdown table.
func RenderListMarkdown(w io.Writer, schema *EntitySchema, data []map[string]any, locale Locale) error {
	columns := listColumns(schema)
	if len(columns) == 0 || len(data) == 0 {
		return nil
	}

	var b strings.Builder

	var headers []string
	var dividers []string
	for _, col := range columns {
		headers = append(headers, fieldLabel(col))
		dividers = append(dividers, "---")
	}
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("| " + strings.Join(dividers, " | ") + " |\n")

	for _, item := range data {
		var cells []string
		for _, col := range columns {
			spec := schema.Fields[col]
			cells = append(cells, escapePipe(FormatField(spec, col, item[col], locale)))
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// renderSectionMarkdown mirrors renderSection for Markdown output: body rows
// become paragraphs, labeled rows become list items, and the heading is held
// back until the section proves non-empty.
func renderSectionMarkdown(b *strings.Builder, heading string, rows []fieldRow) {
	var lines []string
	for _, row := range rows {
		if row.text == "" {
			continue
		}
		if row.body {
			lines = append(lines, "\n"+row.text+"\n")
			continue
		}
		lines = append(lines, "- **"+fieldLabel(row.name)+":** "+row.text+"\n")
	}

	if len(lines) == 0 {
		return
	}

	if heading != "" {
		b.WriteString("\n#### " + heading + "\n\n")
	}
	for _, line := range lines {
		b.WriteString(line)
	}
}

func renderAffordancesMarkdown(b *strings.Builder, schema *EntitySchema, data map[string]any) {
	visible := visibleAffordances(schema, data)
	if len(visible) == 0 {
		return
	}

	b.WriteString("\n#### Next\n\n")
	for _, a := range visible {
		cmd := RenderTemplate(a.Cmd, data)
		b.WriteString("- `" + cmd + "` — " + a.Label + "\n")
	}
}
